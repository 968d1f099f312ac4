// Package notifications delivers monitoring events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Per-event flags let operators pick which milestones (pass
// completion, detections, errors) generate a push.
//
// Extend this package if you need alternative transports; all monitoring code
// depends only on the simple Service interface.
package notifications
