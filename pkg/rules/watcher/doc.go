// Package watcher emits debounced rule-change notifications for the
// local rule source.
//
// The watcher observes the rules root recursively through fsnotify.
// Rapid successive filesystem events for the same rule collapse into a
// single notification carrying the last observed change type; metadata
// sidecar files never trigger rule-change events. Callbacks are invoked
// in registration order and are isolated from one another: one
// callback's panic does not stop the fan-out.
package watcher
