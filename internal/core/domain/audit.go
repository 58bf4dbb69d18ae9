package domain

import "time"

// AuditOutcome is the result recorded for an audited action.
type AuditOutcome string

const (
	AuditAllowed AuditOutcome = "allowed"
	AuditDenied  AuditOutcome = "denied"
	AuditFailed  AuditOutcome = "failed"
)

// AuditEvent records an authorization-relevant action taken by a principal.
type AuditEvent struct {
	ActorID     string
	ActorRole   Role
	TenantScope string
	Action      string
	Resource    ResourceType
	ResourceID  string
	ClientID    string
	Outcome     AuditOutcome
	Reason      string
	At          time.Time
}

// NewAuditEvent fills the actor fields from p.
func NewAuditEvent(p Principal, action string, resource ResourceType, outcome AuditOutcome) AuditEvent {
	return AuditEvent{
		ActorID:     p.ID,
		ActorRole:   p.Role,
		TenantScope: p.TenantScope,
		Action:      action,
		Resource:    resource,
		Outcome:     outcome,
		At:          time.Now().UTC(),
	}
}
