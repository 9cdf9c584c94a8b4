package domain

// Principal is the authenticated identity attached to a request. The zero
// value is the anonymous principal.
type Principal struct {
	ID     string
	Role   Role
	Active bool
}

// IsAnonymous reports whether no identity is attached.
func (p Principal) IsAnonymous() bool {
	return p.ID == ""
}

// IsAdmin reports whether the principal carries the administrator role.
func (p Principal) IsAdmin() bool {
	return !p.IsAnonymous() && p.Active && p.Role == RoleAdmin
}

// Action enumerates every operation the policy gates.
type Action string

const (
	ActionRegister Action = "auth:register"
	ActionLogin    Action = "auth:login"

	ActionTaskCreate Action = "task:create"
	ActionTaskRead   Action = "task:read"
	ActionTaskUpdate Action = "task:update"
	ActionTaskDelete Action = "task:delete"
	ActionTaskList   Action = "task:list"
	ActionStatsRead  Action = "task:stats"

	ActionUserRead   Action = "user:read"
	ActionUserUpdate Action = "user:update"
	ActionUserList   Action = "user:list"
)

// Can decides whether the principal may perform the action on a resource
// owned by ownerID. Collection actions pass an empty ownerID; they are never
// flatly denied for authenticated principals, only narrowed by the caller.
// The function is pure and total: any unknown action is denied.
func Can(p Principal, action Action, ownerID string) bool {
	// Anonymous principals may only begin an identity: register or login.
	if p.IsAnonymous() {
		return action == ActionRegister || action == ActionLogin
	}

	if !p.Active {
		return false
	}

	if p.Role == RoleAdmin {
		return true
	}

	switch action {
	case ActionRegister, ActionLogin:
		return true
	case ActionTaskCreate, ActionTaskList, ActionStatsRead:
		return true
	case ActionTaskRead, ActionTaskUpdate, ActionTaskDelete:
		return ownerID != "" && ownerID == p.ID
	case ActionUserRead, ActionUserUpdate:
		return ownerID != "" && ownerID == p.ID
	case ActionUserList:
		return false
	default:
		return false
	}
}
