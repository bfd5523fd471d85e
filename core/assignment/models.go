package assignment

import (
	"fmt"
	"time"

	"github.com/tailwebs/classwork/core"
)

// Status of an Assignment. Transitions are monotonic: Draft -> Published -> Completed.
type Status int

const (
	StatusUnknown Status = iota
	StatusDraft
	StatusPublished
	StatusCompleted
)

var statusNames = map[Status]string{
	StatusDraft:     "Draft",
	StatusPublished: "Published",
	StatusCompleted: "Completed",
}

// Statuses lists every valid Status in lifecycle order.
var Statuses = []Status{StatusDraft, StatusPublished, StatusCompleted}

func ParseStatus(s string) (Status, error) {
	s = core.CleanString(s, true /* lower */)
	for st, name := range statusNames {
		if core.CleanString(name, true) == s {
			return st, nil
		}
	}
	return StatusUnknown, fmt.Errorf("unknown status %q", s)
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "Unknown"
}

func (s Status) MarshalText() ([]byte, error) {
	name, ok := statusNames[s]
	if !ok {
		return nil, fmt.Errorf("cannot marshal status %d", int(s))
	}
	return []byte(name), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	st, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// CanTransitionTo reports whether s -> next is a legal lifecycle change.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusDraft:
		return next == StatusPublished
	case StatusPublished:
		return next == StatusCompleted
	default:
		return false
	}
}

// Editable reports whether title, description and due date may still change.
func (s Status) Editable() bool {
	return s == StatusDraft || s == StatusPublished
}

// Assignment is a graded task owned by a Teacher.
type Assignment struct {
	ID          string    `json:"_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     string    `json:"dueDate"` // YYYY-MM-DD
	Status      Status    `json:"status"`
	OwnerID     string    `json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Fields contains what a Teacher may set on an Assignment.
type Fields struct {
	Title       string `json:"title" validate:"notblank"`
	Description string `json:"description" validate:"notblank"`
	DueDate     string `json:"dueDate" validate:"notblank,datetime=2006-01-02"`
}

func (f *Fields) Validate() error {
	f.Title = core.CleanString(f.Title)
	f.Description = core.CleanString(f.Description)
	f.DueDate = core.CleanString(f.DueDate)
	return core.Validate(f)
}

// FieldsOf returns the editable fields of a.
func FieldsOf(a Assignment) Fields {
	return Fields{Title: a.Title, Description: a.Description, DueDate: a.DueDate}
}

// Action is something a Teacher may do to an Assignment.
type Action string

const (
	ActionEdit     Action = "edit"
	ActionPublish  Action = "publish"
	ActionComplete Action = "complete"
	ActionDelete   Action = "delete"
)

// Actions returns the actions that are locally known to be legal for a.
func Actions(a Assignment) []Action {
	actions := make([]Action, 0, 3)
	if a.Status.Editable() {
		actions = append(actions, ActionEdit)
	}
	if a.Status.CanTransitionTo(StatusPublished) {
		actions = append(actions, ActionPublish)
	}
	if a.Status.CanTransitionTo(StatusCompleted) {
		actions = append(actions, ActionComplete)
	}
	return append(actions, ActionDelete)
}
