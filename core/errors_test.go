package core

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{name: "message", err: &Error{Kind: KindConflict, Message: "already submitted", Err: cause}, want: "already submitted"},
		{
			name: "fields",
			err:  NewValidationError("", FieldError{Field: "title", Error: "Title is required"}, FieldError{Field: "dueDate", Error: "Due date is required"}),
			want: "title: Title is required; dueDate: Due date is required",
		},
		{name: "cause", err: &Error{Kind: KindNetwork, Err: cause}, want: cause.Error()},
		{name: "nothing", err: &Error{}, want: DefaultMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestKindOf(t *testing.T) {
	base := NewError(KindConflict, "taken")
	wrapped := errors.Wrap(base, "creating")

	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindConflict))
	assert.False(t, IsKind(nil, KindUnknown))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))

	e, ok := AsError(wrapped)
	require.True(t, ok)
	assert.Same(t, base, e)
	assert.Equal(t, "InvalidTransition", KindInvalidTransition.String())
	assert.Equal(t, "Kind(99)", Kind(99).String())
}

func TestReclassify(t *testing.T) {
	conflict := &Error{Kind: KindConflict, Message: "cannot move a Draft assignment to Completed", Status: 409}

	got := Reclassify(conflict, KindConflict, KindInvalidTransition)
	e, ok := AsError(got)
	require.True(t, ok)
	assert.Equal(t, KindInvalidTransition, e.Kind)
	assert.Equal(t, conflict.Message, e.Message)
	assert.Equal(t, 409, e.Status)
	assert.Equal(t, KindConflict, conflict.Kind, "the original is not modified")

	notFound := NewError(KindNotFound, "not found")
	assert.Same(t, notFound, Reclassify(notFound, KindConflict, KindInvalidTransition))
	plain := errors.New("plain")
	assert.Equal(t, plain, Reclassify(plain, KindConflict, KindInvalidTransition))
}

func TestValidate(t *testing.T) {
	type form struct {
		Title   string `json:"title" validate:"notblank"`
		DueDate string `json:"dueDate" validate:"notblank,datetime=2006-01-02"`
		Email   string `json:"email,omitempty" validate:"omitempty,email"`
	}
	tests := []struct {
		name string
		form form
		want map[string]string
	}{
		{name: "valid", form: form{Title: "Essay", DueDate: "2024-05-01"}},
		{name: "blank", form: form{Title: " \t", DueDate: "2024-05-01"}, want: map[string]string{"title": "Title is required"}},
		{name: "bad date", form: form{Title: "x", DueDate: "2024-13-01"}, want: map[string]string{"dueDate": "Due date must be a date (YYYY-MM-DD)"}},
		{name: "bad email", form: form{Title: "x", DueDate: "2024-05-01", Email: "nope"}, want: map[string]string{"email": "email must be a valid email address"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.form)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			e, ok := AsError(err)
			require.True(t, ok)
			assert.Equal(t, KindValidation, e.Kind)
			assert.Equal(t, tt.want, e.FieldMap())
		})
	}
}

func TestCleanString(t *testing.T) {
	assert.Equal(t, "Essay 1", CleanString("  Essay 1\n"))
	assert.Equal(t, "tom@x.io", CleanString(" TOM@x.io ", true))
}
