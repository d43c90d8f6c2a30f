package audithook

// Audit event actions. Each constant corresponds to one ext lifecycle hook
// and becomes the Action field of the audit event.
const (
	ActionRunAdmitted      = "run.admitted"
	ActionRunRejected      = "run.rejected"
	ActionRunCompleted     = "run.completed"
	ActionRunFailed        = "run.failed"
	ActionDocumentRejected = "document.rejected"
	ActionArtifactArchived = "artifact.archived"
	ActionRecipientSent    = "recipient.sent"
	ActionRecipientFailed  = "recipient.failed"
	ActionCronFired        = "cron.fired"
)

// Audit event categories group related actions.
const (
	CategoryRun      = "payroll.run"
	CategoryDocument = "payroll.document"
	CategoryDelivery = "payroll.delivery"
	CategoryCron     = "payroll.cron"
)

// Resource types used as the Resource field in audit events.
const (
	ResourceRun       = "run"
	ResourceEmployee  = "employee"
	ResourceArtifact  = "artifact"
	ResourceRecipient = "recipient"
	ResourceCron      = "cron_entry"
)

// AllActions returns every action this extension can emit.
func AllActions() []string {
	return []string{
		ActionRunAdmitted,
		ActionRunRejected,
		ActionRunCompleted,
		ActionRunFailed,
		ActionDocumentRejected,
		ActionArtifactArchived,
		ActionRecipientSent,
		ActionRecipientFailed,
		ActionCronFired,
	}
}
