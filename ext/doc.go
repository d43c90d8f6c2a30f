// Package ext defines the extension system for the payroll pipeline.
//
// Extensions are notified of lifecycle events and can react to them by
// recording metrics, writing audit logs and so on. Each lifecycle hook is
// a separate interface so extensions opt in only to the events they care
// about.
//
// # Implementing an Extension
//
//	type Audit struct{}
//
//	func (a *Audit) Name() string { return "audit" }
//
//	func (a *Audit) OnRecipientFailed(ctx context.Context, r *run.Run, o dispatch.Outcome) error {
//	    log.Printf("run %s: %s: %s", r.ID, o.RecipientID, o.Error)
//	    return nil
//	}
//
// # Run Hooks
//
//   - [RunAdmitted] the idempotency guard accepted the run
//   - [RunRejected] the key was already used
//   - [RunCacheHit] the run was answered from the result cache
//   - [RunCompleted] the run finished
//   - [RunFailed] the run failed as a whole
//
// # Document and Delivery Hooks
//
//   - [DocumentRejected] a builder rejected an employee
//   - [ArtifactArchived] a document was archived
//   - [RecipientSent] and [RecipientFailed] per delivery
//
// # Other Hooks
//
//   - [CronFired] a schedule entry started a run
//   - [Shutdown] the process is stopping
//
// Hook errors are logged and never propagated to the pipeline.
package ext
