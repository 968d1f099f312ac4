// Package services provides the shared error taxonomy and context helpers
// used across the monitoring pipeline.
package services
