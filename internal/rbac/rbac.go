package rbac

type Role string
type Capability string

const (
	RoleViewer  Role = "viewer"
	RoleAgent   Role = "agent"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

const (
	CapRead       Capability = "read"
	CapInbox      Capability = "inbox"
	CapMoveStage  Capability = "move_stage"
	CapWriteLeads Capability = "write_leads"
	CapReadUsers  Capability = "read_users"
	CapSync       Capability = "sync"
	CapCleanup    Capability = "cleanup"
	CapAdminUsers Capability = "admin_users"
)

func Can(role Role, capability Capability) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleManager:
		return capability == CapRead || capability == CapInbox || capability == CapMoveStage ||
			capability == CapWriteLeads || capability == CapReadUsers
	case RoleAgent:
		return capability == CapRead || capability == CapInbox || capability == CapMoveStage
	case RoleViewer:
		return capability == CapRead
	default:
		return false
	}
}

func Valid(role string) bool {
	switch Role(role) {
	case RoleViewer, RoleAgent, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// Normalize maps unknown roles to the least privileged one.
func Normalize(role string) Role {
	if Valid(role) {
		return Role(role)
	}
	return RoleViewer
}
