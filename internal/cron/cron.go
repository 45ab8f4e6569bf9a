// Package cron runs periodic background jobs such as history statistics
// reporting and provider health probes.
package cron

import "context"

// ServiceName is the AppContext service holding the *Scheduler, so
// modules can register jobs during Provision.
const ServiceName = "cron.scheduler"

// Job is a periodic background task.
type Job interface {
	// Name identifies the job in logs. Names are unique per Scheduler.
	Name() string

	// Schedule returns a 5-field cron expression or descriptor, e.g.
	// "*/5 * * * *" or "@hourly".
	Schedule() string

	// Run executes one tick. It should return promptly once ctx is done.
	Run(ctx context.Context) error
}
