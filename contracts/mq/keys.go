package mq

// Routing keys on the crm.events exchange.
const (
	KeyLeadStageChanged  = "lead.stage_changed"
	KeyActivityCompleted = "activity.completed"
	KeyActivityCreated   = "activity.created"
	KeyActivityOverdue   = "activity.overdue"
)
