package task

import "testing"

func TestAuthorize_Correctness(t *testing.T) {
	tasks := []Task{
		{ID: 1, OwnerID: "u1", AssigneeID: "u2"},
		{ID: 2, OwnerID: "u2"},
		{ID: 3, OwnerID: ""},
	}
	identities := []Identity{
		{ID: "u1"},
		{ID: "u2"},
		{ID: "u3"},
		{ID: ""},
		{ID: "admin", IsAdmin: true},
	}

	for _, task := range tasks {
		for _, id := range identities {
			for _, op := range []Operation{OpUpdate, OpDelete} {
				want := id.IsAdmin || (task.OwnerID != "" && task.OwnerID == id.ID)
				got := Authorize(&id, &task, op) == Permit
				if got != want {
					t.Errorf("Authorize(%q, task %d, %s) permit = %v, want %v", id.ID, task.ID, op, got, want)
				}
			}
		}
	}
}

func TestAuthorize_AssigneeCannotMutate(t *testing.T) {
	task := &Task{ID: 1, OwnerID: "owner", AssigneeID: "helper"}
	helper := &Identity{ID: "helper"}

	if !CanSee(helper, task) {
		t.Fatal("assignee should see the task")
	}
	for _, op := range []Operation{OpUpdate, OpDelete} {
		if d := Authorize(helper, task, op); d != Deny {
			t.Errorf("Authorize(assignee, %s) = %v, want deny", op, d)
		}
	}
}

func TestAuthorize_AdminMayDeleteAnyTask(t *testing.T) {
	admin := &Identity{ID: "admin", IsAdmin: true}
	task := &Task{ID: 9, OwnerID: "someone", AssigneeID: "else"}
	if d := Authorize(admin, task, OpDelete); d != Permit {
		t.Errorf("Authorize(admin, Delete) = %v, want permit", d)
	}
}

func TestAuthorize_EdgeCases(t *testing.T) {
	owner := &Identity{ID: "u1"}
	admin := &Identity{ID: "a", IsAdmin: true}
	task := &Task{ID: 1, OwnerID: "u1"}

	tests := []struct {
		name string
		id   *Identity
		task *Task
		op   Operation
		want Decision
	}{
		{"anonymous", nil, task, OpUpdate, Deny},
		{"missing task", owner, nil, OpUpdate, Deny},
		{"admin without task", admin, nil, OpDelete, Deny},
		{"owner unknown operation", owner, task, Operation("archive"), Deny},
		{"admin unknown operation", admin, task, Operation("archive"), Permit},
		{"owner parsed operation", owner, task, ParseOperation(" Delete "), Permit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Authorize(tt.id, tt.task, tt.op); got != tt.want {
				t.Errorf("Authorize() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecision_String(t *testing.T) {
	if Permit.String() != "permit" || Deny.String() != "deny" {
		t.Errorf("String() = %q/%q", Permit.String(), Deny.String())
	}
}
