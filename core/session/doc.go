// Package session resolves layered session configuration into the payload
// sent to the Collaborate scheduler. A course layer and a class layer are
// each expanded from their flat recurrence shorthand, deep-merged onto a
// fresh copy of DefaultTemplate (class over course over defaults) and
// checked for fields that are still null.
package session
