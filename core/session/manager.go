package session

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"github.com/tailwebs/classwork/core"
)

const (
	loginPath    = "/api/auth/login"
	registerPath = "/api/auth/register"

	loginFailedMsg    = "Login failed. Please try again."
	registerFailedMsg = "Registration failed. Please try again."
)

// Caller performs unauthenticated API calls.
type Caller interface {
	CallPublic(ctx context.Context, method, path string, body, out interface{}) error
}

// Manager owns login, registration and logout on top of the process-wide State.
type Manager struct {
	*State
	api    Caller
	logger core.Logger
}

func NewManager(state *State, api Caller, logger core.Logger) *Manager {
	return &Manager{State: state, api: api, logger: logger}
}

// Login exchanges creds for a Session, persists it and publishes it.
// A rejected login leaves any existing Session untouched.
func (m *Manager) Login(ctx context.Context, creds Credentials) (Session, error) {
	if err := creds.Validate(); err != nil {
		return Session{}, err
	}

	var resp loginResponse
	if err := m.api.CallPublic(ctx, http.MethodPost, loginPath, creds, &resp); err != nil {
		return Session{}, authError(err, loginFailedMsg)
	}
	sess := resp.session()
	if sess.Token == "" || sess.Identity.ID == "" || sess.Identity.Role == RoleUnknown {
		return Session{}, core.NewError(core.KindUnknown, loginFailedMsg)
	}
	if err := m.Set(sess); err != nil {
		return Session{}, errors.Wrap(err, "storing session")
	}
	m.logger.Info("logged in", sess.Identity.Person())
	return sess, nil
}

// Register creates a new Identity. It does not log in.
func (m *Manager) Register(ctx context.Context, p Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := m.api.CallPublic(ctx, http.MethodPost, registerPath, p, nil); err != nil {
		return authError(err, registerFailedMsg)
	}
	m.logger.Info("registered", map[string]interface{}{"email": p.Email, "role": p.Role})
	return nil
}

// Logout clears the Session. Idempotent.
func (m *Manager) Logout() {
	if err := m.Clear(); err != nil {
		m.logger.Error("logging out", err)
	}
}

// authError turns a server rejection into an AuthError carrying the server's message.
// Transport failures keep their kind.
func authError(err error, fallback string) error {
	e, ok := core.AsError(err)
	if !ok {
		return errors.Wrap(err, "calling auth endpoint")
	}
	if e.Kind == core.KindNetwork {
		return e
	}
	e = e.WithKind(core.KindAuth)
	if e.Message == "" || e.Message == core.DefaultMessage {
		e.Message = fallback
	}
	return e
}
