package auth

// Action names something a principal may try to do.
type Action string

const (
	ActionCreatePost Action = "create-post"
	ActionEditPost   Action = "edit-post"
	ActionDeletePost Action = "delete-post"
	ActionComment    Action = "comment"
)

// Decision is the outcome of an authorization check.
type Decision bool

const (
	Deny  Decision = false
	Allow Decision = true
)

// Authorizer decides whether a principal may perform an action. Handlers and
// middleware depend on this interface rather than on a concrete rule, so new
// roles only touch the implementation.
type Authorizer interface {
	Authorize(p Principal, action Action) Decision
}

// Policy is the blog's Authorizer: content changes are reserved for a
// configured set of admin user ids; commenting is open to any signed-in user.
type Policy struct {
	admins map[int64]struct{}
}

var _ Authorizer = (*Policy)(nil)

// NewPolicy returns a Policy treating adminIDs as administrators.
func NewPolicy(adminIDs ...int64) *Policy {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &Policy{admins: admins}
}

// IsAdmin reports whether p is one of the configured administrators.
func (pol *Policy) IsAdmin(p Principal) bool {
	if !p.Authenticated() {
		return false
	}
	_, ok := pol.admins[p.ID()]
	return ok
}

func (pol *Policy) Authorize(p Principal, action Action) Decision {
	switch action {
	case ActionCreatePost, ActionEditPost, ActionDeletePost:
		return Decision(pol.IsAdmin(p))
	case ActionComment:
		return Decision(p.Authenticated())
	default:
		return Deny
	}
}
