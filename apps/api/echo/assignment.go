package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tailwebs/classwork/core"
	"github.com/tailwebs/classwork/core/assignment"
	inmemdb "github.com/tailwebs/classwork/storage/inmem"
)

var (
	errObjNotFoundInCtx = errors.New("object not found in echo.Context")
	errStudentDrafts    = core.NewError(core.KindForbidden, "students cannot list draft assignments")
)

// what a Student can see
var visibleStatuses = []assignment.Status{assignment.StatusPublished, assignment.StatusCompleted}

type assignmentApi struct {
	repo    *inmemdb.AssignmentRepository
	subs    *inmemdb.SubmissionRepository
	metrics *metrics
}

func registerAssignmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, api *assignmentApi) {
	ag := g.Group("/assignments", jwt)
	ag.GET("", api.query)
	ag.POST("", api.create, teacherOnly)

	// detail endpoints
	dg := ag.Group("/:id", teacherOnly, api.ownedAssignmentMiddleware)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.POST("/publish", api.publish)
	dg.POST("/complete", api.complete)
}

type statusFilter struct {
	Status string `query:"status"`
}

// Handlers

func (api *assignmentApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	id := claims.Identity()

	var filter statusFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to statusFilter")
	}
	var statuses []assignment.Status
	if s := core.CleanString(filter.Status); s != "" {
		st, err := assignment.ParseStatus(s)
		if err != nil {
			return core.NewValidationError("", core.FieldError{Field: "status", Error: err.Error()})
		}
		statuses = append(statuses, st)
	}

	var items []assignment.Assignment
	switch {
	case id.IsTeacher():
		items = api.repo.FilterAssignments(id.ID, statuses...)
	case len(statuses) == 0:
		items = api.repo.FilterAssignments("", visibleStatuses...)
	case statuses[0] == assignment.StatusDraft:
		return errStudentDrafts
	default:
		items = api.repo.FilterAssignments("", statuses...)
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *assignmentApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	var data assignment.Fields
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Fields")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	a := api.repo.CreateAssignment(assignment.Assignment{
		Title:       data.Title,
		Description: data.Description,
		DueDate:     data.DueDate,
		Status:      assignment.StatusDraft,
		OwnerID:     claims.Subject,
	})
	return ctx.JSON(http.StatusCreated, a)
}

func (api *assignmentApi) update(ctx echo.Context) error {
	a, ok := ctx.Get(objectContextKey).(assignment.Assignment)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	var data assignment.Fields
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Fields")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	if !a.Status.Editable() {
		return core.NewError(core.KindInvalidState, "a "+a.Status.String()+" assignment cannot be edited")
	}

	a.Title, a.Description, a.DueDate = data.Title, data.Description, data.DueDate
	a, err := api.repo.UpdateAssignment(a)
	if err != nil {
		return errors.Wrap(err, "updating assignment")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *assignmentApi) publish(ctx echo.Context) error {
	return api.transition(ctx, assignment.StatusPublished)
}

func (api *assignmentApi) complete(ctx echo.Context) error {
	return api.transition(ctx, assignment.StatusCompleted)
}

func (api *assignmentApi) transition(ctx echo.Context, next assignment.Status) error {
	a, ok := ctx.Get(objectContextKey).(assignment.Assignment)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	if !a.Status.CanTransitionTo(next) {
		return core.NewError(core.KindInvalidTransition,
			"cannot move a "+a.Status.String()+" assignment to "+next.String())
	}

	a.Status = next
	a, err := api.repo.UpdateAssignment(a)
	if err != nil {
		return errors.Wrap(err, "updating assignment status")
	}
	api.metrics.transitions.WithLabelValues(next.String()).Inc()
	return ctx.JSON(http.StatusOK, a)
}

func (api *assignmentApi) destroy(ctx echo.Context) error {
	a, ok := ctx.Get(objectContextKey).(assignment.Assignment)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	if err := api.repo.DeleteAssignment(a.ID); err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	api.subs.DeleteAssignmentSubmissions(a.ID)
	return ctx.NoContent(http.StatusNoContent)
}

// ownedAssignmentMiddleware loads the assignment in the path. Foreign assignments are not found.
func (api *assignmentApi) ownedAssignmentMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		a, err := api.repo.GetAssignmentByID(ctx.Param("id"))
		if err != nil {
			if err == inmemdb.ErrNotFound {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding assignment by ID")
		}
		if a.OwnerID != claims.Subject {
			return errHttpNotFound
		}
		ctx.Set(objectContextKey, a)
		return next(ctx)
	}
}
