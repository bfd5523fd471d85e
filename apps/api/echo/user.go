package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tailwebs/classwork/core"
	"github.com/tailwebs/classwork/core/session"
	inmemdb "github.com/tailwebs/classwork/storage/inmem"
)

type userApi struct {
	users *inmemdb.UserRepository
	auth  *jwtAuth
}

func registerUserAPI(g *echo.Group, users *inmemdb.UserRepository, auth *jwtAuth) {
	api := userApi{users: users, auth: auth}

	// un-authed endpoints
	ag := g.Group("/auth")
	ag.POST("/login", api.login)
	ag.POST("/register", api.register)
}

type LoginResponse struct {
	Token string           `json:"token"`
	User  session.Identity `json:"user"`
}

// Handlers

func (api *userApi) login(ctx echo.Context) error {
	var data session.Credentials
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Credentials")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	usr, err := api.users.GetUserByEmail(data.Email)
	if err != nil {
		if err == inmemdb.ErrNotFound {
			return errAuthenticationFailed
		}
		return errors.Wrap(err, "finding user by email")
	}
	if err := usr.CheckPassword(data.Password); err != nil {
		return errAuthenticationFailed
	}

	id := usr.Identity()
	token, err := api.auth.sign(api.auth.claimsFor(id))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: id})
}

func (api *userApi) register(ctx echo.Context) error {
	var data session.Profile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Profile")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	role, err := session.ParseRole(data.Role)
	if err != nil {
		return core.NewValidationError("", core.FieldError{Field: "role", Error: err.Error()})
	}

	usr := inmemdb.User{Name: data.Name, Email: data.Email, Role: role}
	if err := usr.SetPassword(data.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr, err = api.users.CreateUser(usr)
	if err != nil {
		if err == inmemdb.ErrEmailExists {
			return &core.Error{
				Kind:    core.KindConflict,
				Message: err.Error(),
				Fields:  []core.FieldError{{Field: "email", Error: err.Error()}},
			}
		}
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, usr.Identity())
}
