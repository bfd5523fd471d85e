package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/tailwebs/classwork/apps/api/echo"
	"github.com/tailwebs/classwork/core"
	"github.com/tailwebs/classwork/core/assignment"
	"github.com/tailwebs/classwork/core/session"
	logsvc "github.com/tailwebs/classwork/services/logger"
	inmemdb "github.com/tailwebs/classwork/storage/inmem"
)

const password = "s3cret"

var (
	errMissingToken = httpErr{Message: "missing or malformed jwt"}
	errInvalidToken = httpErr{Message: "invalid or expired jwt"}
	errForbidden    = httpErr{Message: "permission denied"}
	errNotFound     = httpErr{Message: "not found"}
)

type testEnv struct {
	conf        *core.Config
	app         Server
	users       *inmemdb.UserRepository
	assignments *inmemdb.AssignmentRepository
	submissions *inmemdb.SubmissionRepository
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	conf := core.NewTestConfig("http://localhost")
	db := inmemdb.Open()
	return &testEnv{
		conf: conf,
		app: NewServer(&Options{
			Conf:           conf,
			Logger:         logsvc.NewNopLogger(),
			DB:             db,
			DisableReqLogs: true,
		}),
		users:       inmemdb.NewUserRepository(db),
		assignments: inmemdb.NewAssignmentRepository(db),
		submissions: inmemdb.NewSubmissionRepository(db),
	}
}

func (env *testEnv) createUser(t *testing.T, name, email string, role session.Role) session.Identity {
	t.Helper()
	usr := inmemdb.User{Name: name, Email: email, Role: role}
	require.NoError(t, usr.SetPassword(password))
	usr, err := env.users.CreateUser(usr)
	require.NoError(t, err)
	return usr.Identity()
}

func (env *testEnv) createAssignment(t *testing.T, owner session.Identity, title string, status assignment.Status) assignment.Assignment {
	t.Helper()
	a := env.assignments.CreateAssignment(assignment.Assignment{
		Title:       title,
		Description: title + " description",
		DueDate:     "2030-01-31",
		Status:      status,
		OwnerID:     owner.ID,
	})
	return a
}

func (env *testEnv) token(t *testing.T, id session.Identity) string {
	t.Helper()
	token, err := GenerateToken(env.conf, id)
	if err != nil {
		t.Fatalf("GenerateToken(): %v", err)
	}
	return token
}

func (env *testEnv) serve(tt httpTest) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body...)
	env.app.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     [][]byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	if method == "" {
		method = http.MethodGet
	}
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj(): %v", err)
	}
	return data
}

func marshalList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	return marshalObj(t, objs)
}

func body(t *testing.T, obj interface{}) [][]byte {
	return [][]byte{marshalObj(t, obj)}
}

// checkCodeAndData compares the response with tt. A nil tt.wantData skips the body.
func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	wantCode := tt.wantCode
	if wantCode == 0 {
		wantCode = http.StatusOK
	}
	assert.Equal(t, wantCode, rec.Code, rec.Body.String())
	if tt.wantData != nil {
		assert.JSONEq(t, string(tt.wantData), rec.Body.String())
	}
}

func runHTTPTests(t *testing.T, env *testEnv, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, env.serve(tt))
		})
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
}
