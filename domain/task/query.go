package task

import (
	"cmp"
	"slices"
	"strings"
)

// SortKey selects the column and direction of the task list ordering.
type SortKey string

const (
	SortByID         SortKey = ""
	SortTitleAsc     SortKey = "title"
	SortTitleDesc    SortKey = "-title"
	SortOwnerAsc     SortKey = "owner"
	SortOwnerDesc    SortKey = "-owner"
	SortAssigneeAsc  SortKey = "assignee"
	SortAssigneeDesc SortKey = "-assignee"
)

var sortKeys = map[string]SortKey{
	"title":     SortTitleAsc,
	"-title":    SortTitleDesc,
	"owner":     SortOwnerAsc,
	"-owner":    SortOwnerDesc,
	"assignee":  SortAssigneeAsc,
	"-assignee": SortAssigneeDesc,
}

// ParseSortKey maps a request value to a SortKey. Unrecognized values fall
// back to ascending id order.
func ParseSortKey(v string) SortKey {
	if k, ok := sortKeys[strings.ToLower(strings.TrimSpace(v))]; ok {
		return k
	}
	return SortByID
}

// compare orders a and b by the key's column, breaking ties by id so the
// ordering is total.
func (k SortKey) compare(a, b Task) int {
	var c int
	switch k {
	case SortTitleAsc:
		c = strings.Compare(a.Title, b.Title)
	case SortTitleDesc:
		c = strings.Compare(b.Title, a.Title)
	case SortOwnerAsc:
		c = strings.Compare(a.OwnerID, b.OwnerID)
	case SortOwnerDesc:
		c = strings.Compare(b.OwnerID, a.OwnerID)
	case SortAssigneeAsc:
		c = strings.Compare(a.AssigneeID, b.AssigneeID)
	case SortAssigneeDesc:
		c = strings.Compare(b.AssigneeID, a.AssigneeID)
	}
	if c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// StatusFilter restricts the list to one status value.
type StatusFilter string

const (
	FilterNone         StatusFilter = ""
	FilterImportant    StatusFilter = "important"
	FilterNotImportant StatusFilter = "not-important"
	FilterDoing        StatusFilter = "doing"
	FilterDone         StatusFilter = "done"
)

// ParseStatusFilter maps a request value to a StatusFilter. Unlike sort keys,
// an unknown filter is rejected so a typo never widens the result.
func ParseStatusFilter(v string) (StatusFilter, error) {
	f := StatusFilter(strings.ToLower(strings.TrimSpace(v)))
	switch f {
	case FilterNone, FilterImportant, FilterNotImportant, FilterDoing, FilterDone:
		return f, nil
	}
	return FilterNone, NewValidationError("filter", "must be one of important, not-important, doing, done")
}

// Match reports whether t passes the filter.
func (f StatusFilter) Match(t *Task) bool {
	switch f {
	case FilterImportant:
		return t.Importance == ImportanceImportant
	case FilterNotImportant:
		return t.Importance == ImportanceTrivial
	case FilterDoing:
		return t.ActiveStatus == StatusDoing
	case FilterDone:
		return t.ActiveStatus == StatusDone
	}
	return true
}

// Query holds the list parameters applied after visibility.
type Query struct {
	Search string
	Sort   SortKey
	Filter StatusFilter
}

// Apply runs search and filter, then sorts. Search is a case-sensitive
// substring match on the title. The input slice is left untouched.
func Apply(tasks []Task, q Query) []Task {
	out := make([]Task, 0, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		if q.Search != "" && !strings.Contains(t.Title, q.Search) {
			continue
		}
		if !q.Filter.Match(t) {
			continue
		}
		out = append(out, *t)
	}
	slices.SortStableFunc(out, q.Sort.compare)
	return out
}
