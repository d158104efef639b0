package task

import "strings"

// Operation is a mutating action that needs an authorization decision.
type Operation string

const (
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// ParseOperation normalizes a request value. Unknown values are kept as-is
// so that Authorize can deny them.
func ParseOperation(v string) Operation {
	return Operation(strings.ToLower(strings.TrimSpace(v)))
}

// Decision is the outcome of Authorize.
type Decision int

const (
	Deny Decision = iota
	Permit
)

func (d Decision) String() string {
	if d == Permit {
		return "permit"
	}
	return "deny"
}

// rule returns a decision and true when it settles the request, or false to
// defer to the next rule.
type rule func(id *Identity, t *Task, op Operation) (Decision, bool)

// rules are evaluated in order; the first one that decides wins. The admin
// bypass sits before the operation check and the owner check.
var rules = []rule{
	requireSubjects,
	adminBypass,
	knownOperation,
	ownerOnly,
}

// Authorize decides whether id may perform op on t. Assignees are never
// granted mutations through this path, only owners and administrators.
func Authorize(id *Identity, t *Task, op Operation) Decision {
	for _, r := range rules {
		if d, ok := r(id, t, op); ok {
			return d
		}
	}
	return Deny
}

func requireSubjects(id *Identity, t *Task, _ Operation) (Decision, bool) {
	if id == nil || t == nil {
		return Deny, true
	}
	return Deny, false
}

func adminBypass(id *Identity, _ *Task, _ Operation) (Decision, bool) {
	if id.IsAdmin {
		return Permit, true
	}
	return Deny, false
}

func knownOperation(_ *Identity, _ *Task, op Operation) (Decision, bool) {
	if op != OpUpdate && op != OpDelete {
		return Deny, true
	}
	return Deny, false
}

func ownerOnly(id *Identity, t *Task, _ Operation) (Decision, bool) {
	if t.OwnerID != "" && t.OwnerID == id.ID {
		return Permit, true
	}
	return Deny, false
}
