// Package factory provides a small generic registry used to instantiate
// modules from configuration, such as the metrics sinks listed under
// metrics.sinks. Modules are defined by a type string and a map of raw
// settings; factories decode the settings into typed structs with Decode
// and return the concrete implementation.
package factory
