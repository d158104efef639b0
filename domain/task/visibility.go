package task

// CanSee reports whether id may see t: administrators see everything, other
// users see what they own or are assigned to, anonymous callers see nothing.
func CanSee(id *Identity, t *Task) bool {
	if id == nil || t == nil {
		return false
	}
	if id.IsAdmin {
		return true
	}
	if id.ID == "" {
		return false
	}
	return t.OwnerID == id.ID || t.AssigneeID == id.ID
}

// Visible narrows tasks to the ones id may see. The input is never modified
// and the result is never nil.
func Visible(tasks []Task, id *Identity) []Task {
	out := make([]Task, 0, len(tasks))
	if id == nil {
		return out
	}
	for i := range tasks {
		if CanSee(id, &tasks[i]) {
			out = append(out, tasks[i])
		}
	}
	return out
}
