// Package infra holds the adapters behind the core contracts: the
// Collaborate HTTP client, roster readers, metrics sinks, the MQTT notifier,
// Sentry reporting and the zerolog logger. Core packages never import infra.
package infra
