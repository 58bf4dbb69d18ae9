package domain

// Action is an operation checked by the enforcer.
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// ResourceType names the tenant-owned record kinds.
type ResourceType string

const (
	ResourceClient   ResourceType = "client"
	ResourceKeyword  ResourceType = "keyword"
	ResourceBacklink ResourceType = "backlink"
	// ResourceSession is used for audit events about logins and accounts.
	ResourceSession ResourceType = "session"
)
