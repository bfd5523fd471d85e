package submission

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/tailwebs/classwork/core"
)

const (
	MinMark = 0
	MaxMark = 100
)

const errEmptyAnswer = "answer cannot be empty"

var errMarkRange = fmt.Sprintf("mark must be a number between %d and %d", MinMark, MaxMark)

// Submission is a Student's single answer to one Assignment.
type Submission struct {
	ID           string    `json:"_id"`
	AssignmentID string    `json:"assignmentId"`
	StudentID    string    `json:"studentId"`
	Answer       string    `json:"answer"`
	SubmittedAt  time.Time `json:"submittedAt"`
	Reviewed     bool      `json:"reviewed"`
	Mark         *float64  `json:"mark"`

	// display only
	StudentName     string `json:"studentName,omitempty"`
	AssignmentTitle string `json:"assignmentTitle,omitempty"`
}

func (s Submission) HasMark() bool { return s.Mark != nil }

// MarkString renders the mark, "-" when absent.
func (s Submission) MarkString() string {
	if s.Mark == nil {
		return "-"
	}
	return strconv.FormatFloat(*s.Mark, 'f', -1, 64)
}

type newSubmission struct {
	Answer string `json:"answer" validate:"notblank"`
}

// ValidateAnswer returns the trimmed answer, or a Validation error when nothing is left of it.
func ValidateAnswer(answer string) (string, error) {
	req := newSubmission{Answer: core.CleanString(answer)}
	if err := core.Validate(&req); err != nil {
		if e, ok := core.AsError(err); ok {
			e.Message = errEmptyAnswer
		}
		return "", err
	}
	return req.Answer, nil
}

type reviewRequest struct {
	Reviewed bool `json:"reviewed"`
}

type markRequest struct {
	Mark float64 `json:"mark"`
}

// ValidateMark fails with OutOfRange unless m is a finite number in [MinMark, MaxMark].
func ValidateMark(m float64) error {
	if math.IsNaN(m) || math.IsInf(m, 0) || m < MinMark || m > MaxMark {
		return &core.Error{
			Kind:    core.KindOutOfRange,
			Message: errMarkRange,
			Fields:  []core.FieldError{{Field: "mark", Error: errMarkRange}},
		}
	}
	return nil
}

// ParseMark parses user input. Blank input is a legal "no mark" and returns nil.
func ParseMark(s string) (*float64, error) {
	s = core.CleanString(s)
	if s == "" {
		return nil, nil
	}
	m, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, ValidateMark(math.NaN())
	}
	if err := ValidateMark(m); err != nil {
		return nil, err
	}
	return &m, nil
}
