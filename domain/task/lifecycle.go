package task

import "strings"

// Transition is a user action that changes one of the two status flags.
type Transition string

const (
	TransitionCheck         Transition = "check"
	TransitionUncheck       Transition = "uncheck"
	TransitionMarkImportant Transition = "mark-important"
	TransitionMarkTrivial   Transition = "mark-trivial"
)

// ParseTransition maps a request value to a Transition.
func ParseTransition(v string) (Transition, error) {
	tr := Transition(strings.ToLower(strings.TrimSpace(v)))
	switch tr {
	case TransitionCheck, TransitionUncheck, TransitionMarkImportant, TransitionMarkTrivial:
		return tr, nil
	}
	return "", NewValidationError("transition", "must be one of check, uncheck, mark-important, mark-trivial")
}

// ApplyTransition returns t after tr and whether anything changed. Every
// transition is idempotent: checking a Done task leaves it Done.
func ApplyTransition(t Task, tr Transition) (Task, bool) {
	switch tr {
	case TransitionCheck:
		return setActive(t, StatusDone)
	case TransitionUncheck:
		return setActive(t, StatusDoing)
	case TransitionMarkImportant:
		return setImportance(t, ImportanceImportant)
	case TransitionMarkTrivial:
		return setImportance(t, ImportanceTrivial)
	}
	return t, false
}

func setActive(t Task, s ActiveStatus) (Task, bool) {
	if t.ActiveStatus == s {
		return t, false
	}
	t.ActiveStatus = s
	return t, true
}

func setImportance(t Task, i Importance) (Task, bool) {
	if t.Importance == i {
		return t, false
	}
	t.Importance = i
	return t, true
}
