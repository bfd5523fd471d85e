package gateway

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailwebs/classwork/core"
	logsvc "github.com/tailwebs/classwork/services/logger"
)

type credMock struct {
	token       string
	invalidated int
}

func (c *credMock) Token() string { return c.token }
func (c *credMock) Invalidate()   { c.token = ""; c.invalidated++ }

type navMock struct {
	location  string
	redirects []string
}

func (n *navMock) Location() string { return n.location }
func (n *navMock) Redirect(path string) {
	n.location = path
	n.redirects = append(n.redirects, path)
}

type recorded struct {
	method, path, auth, reqID, contentType, body string
}

func setup(t *testing.T, status int, body string) (*Gateway, *credMock, *navMock, *recorded) {
	t.Helper()
	rec := new(recorded)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		*rec = recorded{
			method:      r.Method,
			path:        r.URL.RequestURI(),
			auth:        r.Header.Get("Authorization"),
			reqID:       r.Header.Get("X-Request-ID"),
			contentType: r.Header.Get("Content-Type"),
			body:        string(data),
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	cred := &credMock{token: "tok"}
	nav := &navMock{location: "/assignments"}
	return New(core.NewTestConfig(srv.URL+"/"), cred, nav, logsvc.NewNopLogger()), cred, nav, rec
}

func TestGateway_Call(t *testing.T) {
	orig := newRequestID
	newRequestID = func() string { return "req-1" }
	defer func() { newRequestID = orig }()

	g, cred, nav, rec := setup(t, http.StatusOK, `{"_id":"a1","title":"Essay 1"}`)

	var out struct {
		ID    string `json:"_id"`
		Title string `json:"title"`
	}
	err := g.Call(context.Background(), http.MethodPost, "/api/assignments", map[string]string{"title": "Essay 1"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "a1", out.ID)
	assert.Equal(t, "Essay 1", out.Title)

	assert.Equal(t, recorded{
		method:      http.MethodPost,
		path:        "/api/assignments",
		auth:        "Bearer tok",
		reqID:       "req-1",
		contentType: "application/json",
		body:        `{"title":"Essay 1"}`,
	}, *rec)
	assert.Zero(t, cred.invalidated)
	assert.Empty(t, nav.redirects)

	// no credentials on public calls
	require.NoError(t, g.CallPublic(context.Background(), http.MethodGet, "/api/assignments", nil, nil))
	assert.Empty(t, rec.auth)
	assert.Empty(t, rec.body)
}

func TestGateway_emptyBody(t *testing.T) {
	g, _, _, _ := setup(t, http.StatusNoContent, "")
	var out map[string]interface{}
	assert.NoError(t, g.Call(context.Background(), http.MethodDelete, "/api/assignments/a1", nil, &out))
	assert.Nil(t, out)
}

func TestGateway_badPayload(t *testing.T) {
	g, _, _, _ := setup(t, http.StatusOK, `<html>`)
	var out map[string]interface{}
	err := g.Call(context.Background(), http.MethodGet, "/api/assignments", nil, &out)
	assert.Equal(t, core.KindUnknown, core.KindOf(err))
	assert.Equal(t, msgBadPayload, err.Error())
}

func TestGateway_errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantKind   core.Kind
		wantMsg    string
		wantFields map[string]string
	}{
		{name: "message", status: 409, body: `{"message":" you have already submitted this assignment "}`, wantKind: core.KindConflict, wantMsg: "you have already submitted this assignment"},
		{name: "error key", status: 403, body: `{"error":"permission denied"}`, wantKind: core.KindForbidden, wantMsg: "permission denied"},
		{name: "no body", status: 404, wantKind: core.KindNotFound, wantMsg: core.DefaultMessage},
		{name: "not json", status: 500, body: "Internal Server Error", wantKind: core.KindUnknown, wantMsg: core.DefaultMessage},
		{
			name:       "fields",
			status:     400,
			body:       `{"message":"invalid input","fields":{"title":"Title is required","dueDate":"Due date is required"}}`,
			wantKind:   core.KindValidation,
			wantMsg:    "invalid input",
			wantFields: map[string]string{"title": "Title is required", "dueDate": "Due date is required"},
		},
		{name: "unprocessable", status: 422, body: `{"message":"bad"}`, wantKind: core.KindValidation, wantMsg: "bad"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, cred, _, _ := setup(t, tt.status, tt.body)
			err := g.Call(context.Background(), http.MethodGet, "/x", nil, nil)
			e, ok := core.AsError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, e.Kind)
			assert.Equal(t, tt.wantMsg, e.Message)
			assert.Equal(t, tt.status, e.Status)
			if tt.wantFields != nil {
				assert.Equal(t, tt.wantFields, e.FieldMap())
				assert.Equal(t, "dueDate", e.Fields[0].Field)
			}
			assert.Zero(t, cred.invalidated)
		})
	}
}

func TestGateway_unauthorized(t *testing.T) {
	g, cred, nav, _ := setup(t, http.StatusUnauthorized, `{"message":"invalid or expired jwt"}`)

	err := g.Call(context.Background(), http.MethodGet, "/api/assignments", nil, nil)
	assert.Equal(t, core.KindUnauthorized, core.KindOf(err))
	assert.Equal(t, msgExpired, err.Error())
	assert.Equal(t, 1, cred.invalidated)
	assert.Equal(t, []string{"/login"}, nav.redirects)

	// already on the login surface: no second redirect
	_ = g.Call(context.Background(), http.MethodGet, "/api/assignments", nil, nil)
	assert.Equal(t, 2, cred.invalidated)
	assert.Len(t, nav.redirects, 1)

	// a public 401 leaves the session alone
	err = g.CallPublic(context.Background(), http.MethodPost, "/api/auth/login", nil, nil)
	assert.Equal(t, core.KindUnauthorized, core.KindOf(err))
	assert.Equal(t, "invalid or expired jwt", err.Error())
	assert.Equal(t, 2, cred.invalidated)
}

func TestGateway_network(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	g := New(core.NewTestConfig(url), &credMock{}, &navMock{}, logsvc.NewNopLogger())
	err := g.Call(context.Background(), http.MethodGet, "/api/assignments", nil, nil)
	assert.Equal(t, core.KindNetwork, core.KindOf(err))
	assert.Equal(t, msgNetwork, err.Error())
}
