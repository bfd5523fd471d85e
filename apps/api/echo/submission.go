package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tailwebs/classwork/core"
	"github.com/tailwebs/classwork/core/assignment"
	"github.com/tailwebs/classwork/core/submission"
	inmemdb "github.com/tailwebs/classwork/storage/inmem"
)

var (
	errNoSubmission  = core.NewError(core.KindNotFound, "no submission yet")
	errNotOpen       = core.NewError(core.KindConflict, "assignment is not open for submissions")
	errDuplicate     = core.NewError(core.KindConflict, "you have already submitted this assignment")
	errEmptyAnswer   = core.NewValidationError("answer cannot be empty", core.FieldError{Field: "answer", Error: "Answer is required"})
	errMissingReview = core.NewValidationError("", core.FieldError{Field: "reviewed", Error: "Reviewed is required"})
	errMissingMark   = core.NewValidationError("", core.FieldError{Field: "mark", Error: "Mark is required"})
)

type submissionApi struct {
	repo        *inmemdb.SubmissionRepository
	assignments *inmemdb.AssignmentRepository
	users       *inmemdb.UserRepository
	metrics     *metrics
}

func registerSubmissionAPI(g *echo.Group, jwt echo.MiddlewareFunc, api *submissionApi) {
	sg := g.Group("/submissions", jwt)
	sg.GET("", api.queryAll, teacherOnly)
	sg.GET("/assignment/:id", api.queryByAssignment, teacherOnly)
	sg.GET("/my/:id", api.retrieveMine, studentOnly)
	sg.POST("/:id", api.create, studentOnly)
	sg.POST("/:id/review", api.review, teacherOnly, api.ownedSubmissionMiddleware)
	sg.POST("/:id/mark", api.mark, teacherOnly, api.ownedSubmissionMiddleware)
}

type (
	answerRequest struct {
		Answer string `json:"answer"`
	}

	reviewRequest struct {
		Reviewed *bool `json:"reviewed"`
	}

	markRequest struct {
		Mark *float64 `json:"mark"`
	}
)

// Handlers

func (api *submissionApi) queryAll(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	owned := api.assignments.FilterAssignments(claims.Subject)
	ids := make([]string, len(owned))
	for i, a := range owned {
		ids[i] = a.ID
	}
	return ctx.JSON(http.StatusOK, api.decorate(api.repo.FilterSubmissions(ids...)))
}

func (api *submissionApi) queryByAssignment(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	a, err := api.assignments.GetAssignmentByID(ctx.Param("id"))
	if err != nil || a.OwnerID != claims.Subject {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, api.decorate(api.repo.FilterSubmissions(a.ID)))
}

func (api *submissionApi) retrieveMine(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if _, err := api.visibleAssignment(ctx.Param("id")); err != nil {
		return err
	}
	sub, err := api.repo.GetStudentSubmission(ctx.Param("id"), claims.Subject)
	if err != nil {
		if err == inmemdb.ErrNotFound {
			return errNoSubmission
		}
		return errors.Wrap(err, "finding own submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *submissionApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	var data answerRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to answerRequest")
	}
	data.Answer = core.CleanString(data.Answer)
	if data.Answer == "" {
		return errEmptyAnswer
	}

	a, err := api.visibleAssignment(ctx.Param("id"))
	if err != nil {
		return err
	}
	if a.Status != assignment.StatusPublished {
		return errNotOpen
	}

	sub, err := api.repo.CreateSubmission(submission.Submission{
		AssignmentID: a.ID,
		StudentID:    claims.Subject,
		Answer:       data.Answer,
	})
	if err != nil {
		if err == inmemdb.ErrAlreadySubmitted {
			return errDuplicate
		}
		return errors.Wrap(err, "creating submission")
	}
	api.metrics.submissions.Inc()
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *submissionApi) review(ctx echo.Context) error {
	sub, ok := ctx.Get(objectContextKey).(submission.Submission)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	var data reviewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to reviewRequest")
	}
	if data.Reviewed == nil {
		return errMissingReview
	}

	sub, err := api.repo.UpdateReview(sub.ID, data.Reviewed, nil)
	if err != nil {
		return errors.Wrap(err, "updating review")
	}
	api.metrics.reviews.WithLabelValues("review").Inc()
	return ctx.JSON(http.StatusOK, sub)
}

func (api *submissionApi) mark(ctx echo.Context) error {
	sub, ok := ctx.Get(objectContextKey).(submission.Submission)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	var data markRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to markRequest")
	}
	if data.Mark == nil {
		return errMissingMark
	}
	if err := submission.ValidateMark(*data.Mark); err != nil {
		return err
	}

	sub, err := api.repo.UpdateReview(sub.ID, nil, data.Mark)
	if err != nil {
		return errors.Wrap(err, "updating mark")
	}
	api.metrics.reviews.WithLabelValues("mark").Inc()
	return ctx.JSON(http.StatusOK, sub)
}

// visibleAssignment finds an assignment a Student may see. Drafts are not found.
func (api *submissionApi) visibleAssignment(id string) (assignment.Assignment, error) {
	a, err := api.assignments.GetAssignmentByID(id)
	if err != nil {
		if err == inmemdb.ErrNotFound {
			return assignment.Assignment{}, errHttpNotFound
		}
		return assignment.Assignment{}, errors.Wrap(err, "finding assignment by ID")
	}
	if a.Status == assignment.StatusDraft {
		return assignment.Assignment{}, errHttpNotFound
	}
	return a, nil
}

// decorate fills the display only fields.
func (api *submissionApi) decorate(subs []submission.Submission) []submission.Submission {
	for i := range subs {
		if usr, err := api.users.GetUserByID(subs[i].StudentID); err == nil {
			subs[i].StudentName = usr.Name
		}
		if a, err := api.assignments.GetAssignmentByID(subs[i].AssignmentID); err == nil {
			subs[i].AssignmentTitle = a.Title
		}
	}
	return subs
}

// ownedSubmissionMiddleware loads the submission in the path. It must belong to one of the Teacher's assignments.
func (api *submissionApi) ownedSubmissionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		sub, err := api.repo.GetSubmissionByID(ctx.Param("id"))
		if err != nil {
			if err == inmemdb.ErrNotFound {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding submission by ID")
		}
		a, err := api.assignments.GetAssignmentByID(sub.AssignmentID)
		if err != nil || a.OwnerID != claims.Subject {
			return errHttpNotFound
		}
		ctx.Set(objectContextKey, sub)
		return next(ctx)
	}
}
