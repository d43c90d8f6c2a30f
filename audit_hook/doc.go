// Package audithook is a payroll extension that records who generated and
// sent salary documents to an audit trail backend.
//
// Every run, document and delivery hook emits a structured [AuditEvent]
// through the [Recorder] interface: info severity for normal progress,
// warning for duplicates, rejected documents and failed deliveries,
// critical for runs that fail as a whole. Events carry the operation, the
// acting manager and the idempotency key.
//
// # Logging recorder
//
//	orch, _ := pipeline.New(dir, builder, sender,
//	    pipeline.WithExtension(audithook.New(audithook.NewSlogRecorder(logger))),
//	)
//
// # Selective filtering
//
//	audithook.New(recorder,
//	    audithook.WithActions(
//	        audithook.ActionRunFailed,
//	        audithook.ActionRecipientFailed,
//	    ),
//	)
package audithook
