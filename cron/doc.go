// Package cron fires periodic payroll generation.
//
// An [Entry] binds a cron expression to a pipeline operation. On every
// firing the [Scheduler] starts the operation once for each user holding
// the manager role, using the idempotency key
//
//	cron:<entry name>:<YYYY-MM>
//
// Because the key only changes with the salary period, an entry that
// fires twice in one month, on one instance or on several, starts each
// manager's run at most once. The guard is the only coordination between
// instances; there is no leader election.
//
// # Registering an Entry
//
//	sched := cron.NewScheduler(orch, dir, cron.WithEmitter(orch.Extensions()))
//	sched.Add("monthly-slips", "0 6 1 * *", run.OpCreateIndividualDocuments)
//	sched.Start(ctx)
//
// Schedules use the standard 5-field syntax or descriptors such as
// "@monthly" and "@every 1h", evaluated in UTC. [Scheduler.Fire] runs an
// entry immediately, which is what `payrolld run --entry` does.
package cron
