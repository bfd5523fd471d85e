package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/tailwebs/classwork/apps/api/echo"
	"github.com/tailwebs/classwork/core"
	"github.com/tailwebs/classwork/core/assignment"
	"github.com/tailwebs/classwork/core/gateway"
	"github.com/tailwebs/classwork/core/session"
	"github.com/tailwebs/classwork/core/submission"
	logsvc "github.com/tailwebs/classwork/services/logger"
	inmemdb "github.com/tailwebs/classwork/storage/inmem"
)

const password = "s3cret"

type testCLI struct {
	*commandLine
	out    *bytes.Buffer
	state  *session.State
	server *apiServer
}

// apiServer counts the requests reaching the API and answers 401 to those reject matches.
type apiServer struct {
	next http.Handler

	mu       sync.Mutex
	requests int
	reject   func(r *http.Request) bool
}

func (s *apiServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests++
	reject := s.reject
	s.mu.Unlock()

	if reject != nil && reject(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"invalid or expired jwt"}`)
		return
	}
	s.next.ServeHTTP(w, r)
}

func (s *apiServer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

func (s *apiServer) rejectWhen(fn func(r *http.Request) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = 0
	s.reject = fn
}

func setup(t *testing.T) *testCLI {
	t.Helper()
	logger := logsvc.NewNopLogger()

	api := &apiServer{next: echoapi.NewServer(&echoapi.Options{
		Conf:           core.NewTestConfig(""),
		Logger:         logger,
		DB:             inmemdb.Open(),
		DisableReqLogs: true,
	})}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	conf := core.NewTestConfig(srv.URL)
	out := new(bytes.Buffer)
	state := session.NewState(session.NewMemoryStorage(), logger)
	nav := newNavigator(out, conf.API.LoginPath)
	gw := gateway.New(conf, state, nav, logger)

	readPasswordFunc = func(int) ([]byte, error) { return []byte(password), nil }

	return &testCLI{
		commandLine: &commandLine{
			conf:     conf,
			sessions: session.NewManager(state, gw, logger),
			store:    assignment.NewStore(gw, state, logger),
			work:     submission.NewWorkflow(gw, state, logger, conf),
			nav:      nav,
			out:      out,
		},
		out:    out,
		state:  state,
		server: api,
	}
}

// exec runs args (without program name) and returns the output.
func (cli *testCLI) exec(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cli.out.Reset()
	err := cli.run(context.Background(), append([]string{"classwork"}, args...))
	return cli.out.String(), err
}

func (cli *testCLI) mustExec(t *testing.T, args ...string) string {
	t.Helper()
	out, err := cli.exec(t, args...)
	require.NoError(t, err, out)
	return out
}

func (cli *testCLI) loginAs(t *testing.T, email string) {
	t.Helper()
	cli.mustExec(t, "logout")
	cli.mustExec(t, "login", "-email", email)
}

type cliTest struct {
	name     string
	args     []string // without program name
	wantErr  error
	wantKind core.Kind
}

func runCLITests(t *testing.T, cli *testCLI, tests []cliTest) {
	t.Helper()
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			out, err := cli.exec(t, tt.args...)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err, out)
			case tt.wantKind != core.KindUnknown:
				assert.Equal(t, tt.wantKind, core.KindOf(err), "err = %v", err)
			default:
				assert.NoError(t, err, out)
			}
		})
	}
}

func Test_commandLine_usage(t *testing.T) {
	cli := setup(t)

	runCLITests(t, cli, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "help flag", args: []string{"assignments", "-h"}, wantErr: errHelp},
		{name: "login: no email", args: []string{"login"}, wantErr: errHelp},
		{name: "register: no role", args: []string{"register", "-name", "Ann", "-email", "ann@x.io"}, wantErr: errHelp},
		{name: "publish: no id", args: []string{"publish"}, wantErr: errHelp},
		{name: "review: no id", args: []string{"review", "-mark", "50"}, wantErr: errHelp},
		{name: "not logged in", args: []string{"assignments"}, wantKind: core.KindUnauthorized},
		{name: "whoami", args: []string{"whoami"}},
	})

	t.Run("empty password", func(t *testing.T) {
		defer func() { readPasswordFunc = func(int) ([]byte, error) { return []byte(password), nil } }()
		readPasswordFunc = func(int) ([]byte, error) { return nil, nil }
		_, err := cli.exec(t, "login", "-email", "ann@x.io")
		assert.Equal(t, errHelp, err)
	})
}

func Test_commandLine_auth(t *testing.T) {
	cli := setup(t)

	cli.mustExec(t, "register", "-name", "Ann", "-email", "ann@x.io", "-role", "teacher")

	runCLITests(t, cli, []cliTest{
		{name: "register twice", args: []string{"register", "-name", "Ann", "-email", "ann@x.io", "-role", "teacher"}, wantKind: core.KindAuth},
		{name: "register: bad role", args: []string{"register", "-name", "Bob", "-email", "bob@x.io", "-role", "admin"}, wantKind: core.KindValidation},
		{name: "login: unknown", args: []string{"login", "-email", "who@x.io"}, wantKind: core.KindAuth},
	})
	_, ok := cli.sessions.Current()
	assert.False(t, ok)

	out := cli.mustExec(t, "login", "-email", "ANN@x.io")
	assert.Contains(t, out, "Logged in as Ann (Teacher).")
	assert.Contains(t, cli.mustExec(t, "whoami"), "Ann <ann@x.io> (Teacher)")

	// a rejected login leaves the session untouched
	readPasswordFunc = func(int) ([]byte, error) { return []byte("wrong"), nil }
	_, err := cli.exec(t, "login", "-email", "ann@x.io")
	assert.Equal(t, core.KindAuth, core.KindOf(err))
	sess, ok := cli.sessions.Current()
	assert.True(t, ok)
	assert.Equal(t, "Ann", sess.Identity.Name)
	readPasswordFunc = func(int) ([]byte, error) { return []byte(password), nil }

	assert.Contains(t, cli.mustExec(t, "logout"), "Logged out.")
	assert.Contains(t, cli.mustExec(t, "whoami"), "Not logged in.")
	cli.mustExec(t, "logout") // idempotent
}

// Scenario A, end to end.
func Test_commandLine_gradingFlow(t *testing.T) {
	cli := setup(t)
	cli.mustExec(t, "register", "-name", "Tom", "-email", "tom@x.io", "-role", "teacher")
	cli.mustExec(t, "register", "-name", "Sue", "-email", "sue@x.io", "-role", "student")

	// teacher creates and publishes
	cli.loginAs(t, "tom@x.io")
	out := cli.mustExec(t, "create", "-title", "Essay 1", "-description", "Write 500 words", "-due", "2024-05-01")
	assert.Contains(t, out, "(Draft)")
	items := cli.store.Items()
	require.Len(t, items, 1)
	id := items[0].ID
	assert.Equal(t, assignment.StatusDraft, items[0].Status)

	out = cli.mustExec(t, "publish", "-id", id)
	assert.Contains(t, out, "is now Published")
	out = cli.mustExec(t, "assignments")
	assert.Contains(t, out, "Essay 1")
	assert.Contains(t, out, "edit,complete,delete")

	// student submits
	cli.loginAs(t, "sue@x.io")
	out = cli.mustExec(t, "assignments")
	assert.Contains(t, out, "SUBMITTED")
	out = cli.mustExec(t, "show", "-id", id)
	assert.Contains(t, out, "Essay 1 (Published)")
	assert.Contains(t, out, "Write 500 words")
	assert.Contains(t, out, "Not submitted.")
	runCLITests(t, cli, []cliTest{
		{name: "blank answer", args: []string{"submit", "-assignment", id, "-answer", "  "}, wantKind: core.KindValidation},
		{name: "submit", args: []string{"submit", "-assignment", id, "-answer", "My essay text"}},
		{name: "submit twice", args: []string{"submit", "-assignment", id, "-answer", "again"}, wantKind: core.KindConflict},
		{name: "student cannot review", args: []string{"review", "-id", "x", "-mark", "10"}, wantKind: core.KindForbidden},
	})
	assert.False(t, cli.work.CanSubmit(id))
	out = cli.mustExec(t, "show", "-id", id)
	assert.Contains(t, out, "My essay text")
	assert.Contains(t, out, "Reviewed: no")

	// teacher grades
	cli.loginAs(t, "tom@x.io")
	out = cli.mustExec(t, "submissions", "-assignment", id)
	assert.Contains(t, out, "My essay text")
	assert.Contains(t, out, "Sue")
	subs := cli.work.ForAssignment(id)
	require.Len(t, subs, 1)
	subID := subs[0].ID

	runCLITests(t, cli, []cliTest{
		{name: "mark out of range", args: []string{"review", "-id", subID, "-mark", "150"}, wantKind: core.KindOutOfRange},
		{name: "mark not a number", args: []string{"review", "-id", subID, "-mark", "lol"}, wantKind: core.KindOutOfRange},
	})
	out = cli.mustExec(t, "review", "-id", subID, "-mark", "85")
	assert.Contains(t, out, "reviewed=yes mark=85")
	out = cli.mustExec(t, "submissions")
	assert.Contains(t, out, "Essay 1")
	out = cli.mustExec(t, "show", "-id", id)
	assert.Contains(t, out, "Actions: edit,complete,delete")
	assert.NotContains(t, out, "My essay text")

	// student sees the grade
	cli.loginAs(t, "sue@x.io")
	out = cli.mustExec(t, "mine")
	assert.Contains(t, out, "Essay 1")
	assert.Contains(t, out, "85")
	assert.Contains(t, out, "ANSWER")
	assert.Contains(t, out, "My essay text")
	out = cli.mustExec(t, "show", "-id", id)
	assert.Contains(t, out, "Reviewed: yes")
	assert.Contains(t, out, "Mark: 85")
	mine, ok := cli.work.Mine(id)
	require.True(t, ok)
	assert.True(t, mine.Reviewed)
	require.NotNil(t, mine.Mark)
	assert.Equal(t, 85.0, *mine.Mark)
}

func Test_commandLine_lifecycle(t *testing.T) {
	cli := setup(t)
	cli.mustExec(t, "register", "-name", "Tom", "-email", "tom@x.io", "-role", "teacher")
	cli.loginAs(t, "tom@x.io")
	cli.mustExec(t, "create", "-title", "Quiz", "-description", "Answer", "-due", "2030-01-01")
	id := cli.store.Items()[0].ID

	runCLITests(t, cli, []cliTest{
		{name: "invalid create", args: []string{"create", "-title", "x", "-description", "y", "-due", "tomorrow"}, wantKind: core.KindValidation},
		{name: "bad status filter", args: []string{"assignments", "-status", "lol"}, wantKind: core.KindValidation},
		{name: "complete a draft", args: []string{"complete", "-id", id}, wantKind: core.KindInvalidTransition},
		{name: "unknown id", args: []string{"publish", "-id", "nope"}, wantKind: core.KindNotFound},
		{name: "publish", args: []string{"publish", "-id", id}},
		{name: "publish twice", args: []string{"publish", "-id", id}, wantKind: core.KindInvalidTransition},
		{name: "edit", args: []string{"edit", "-id", id, "-title", "Quiz 2"}},
		{name: "complete", args: []string{"complete", "-id", id}},
		{name: "edit completed", args: []string{"edit", "-id", id, "-title", "Quiz 3"}, wantKind: core.KindInvalidState},
		{name: "filter", args: []string{"assignments", "-status", "completed"}},
	})
	a, ok := cli.store.Get(id)
	require.True(t, ok)
	assert.Equal(t, "Quiz 2", a.Title)
	assert.Equal(t, assignment.StatusCompleted, a.Status)

	out := cli.mustExec(t, "delete", "-id", id)
	assert.Contains(t, out, "Deleted")
	assert.Empty(t, cli.store.Items())
	assert.Contains(t, cli.mustExec(t, "assignments"), "No assignments.")
}

// Scenario E.
func Test_commandLine_rejectedCredential(t *testing.T) {
	cli := setup(t)
	cli.mustExec(t, "register", "-name", "Tom", "-email", "tom@x.io", "-role", "teacher")
	cli.loginAs(t, "tom@x.io")

	sess, ok := cli.sessions.Current()
	require.True(t, ok)
	sess.Token = "revoked"
	require.NoError(t, cli.state.Set(sess))

	out, err := cli.exec(t, "assignments")
	assert.Equal(t, core.KindUnauthorized, core.KindOf(err))
	assert.Contains(t, out, "Your session has ended.")
	assert.Equal(t, cli.conf.API.LoginPath, cli.nav.Location())

	_, ok = cli.sessions.Current()
	assert.False(t, ok)
}

func Test_commandLine_blankAnswerStaysLocal(t *testing.T) {
	cli := setup(t)
	cli.mustExec(t, "register", "-name", "Sue", "-email", "sue@x.io", "-role", "student")
	cli.loginAs(t, "sue@x.io")

	// even a credential the server would reject is never sent for a blank answer
	sess, ok := cli.sessions.Current()
	require.True(t, ok)
	sess.Token = "revoked"
	require.NoError(t, cli.state.Set(sess))
	cli.server.rejectWhen(func(*http.Request) bool { return true })

	out, err := cli.exec(t, "submit", "-assignment", "a1", "-answer", " \n ")
	assert.Equal(t, core.KindValidation, core.KindOf(err), out)
	assert.Equal(t, "answer cannot be empty", err.Error())
	assert.Zero(t, cli.server.count())
	_, ok = cli.sessions.Current()
	assert.True(t, ok)
	assert.NotEqual(t, cli.conf.API.LoginPath, cli.nav.Location())
}

func Test_commandLine_sessionEndsWhileListing(t *testing.T) {
	cli := setup(t)
	cli.mustExec(t, "register", "-name", "Tom", "-email", "tom@x.io", "-role", "teacher")
	cli.mustExec(t, "register", "-name", "Sue", "-email", "sue@x.io", "-role", "student")
	cli.loginAs(t, "tom@x.io")
	for _, title := range []string{"Essay 1", "Essay 2"} {
		cli.mustExec(t, "create", "-title", title, "-description", "Write", "-due", "2030-01-01")
	}
	for _, a := range cli.store.Items() {
		cli.mustExec(t, "publish", "-id", a.ID)
	}
	cli.loginAs(t, "sue@x.io")

	ownSubmission := func(r *http.Request) bool { return strings.HasPrefix(r.URL.Path, "/api/submissions/my/") }
	for _, cmd := range []string{"assignments", "mine"} {
		t.Run(cmd, func(t *testing.T) {
			cli.loginAs(t, "sue@x.io")
			cli.server.rejectWhen(ownSubmission)
			defer cli.server.rejectWhen(nil)

			out, err := cli.exec(t, cmd)
			assert.Equal(t, core.KindUnauthorized, core.KindOf(err), out)
			assert.Contains(t, out, "Your session has ended.")
			assert.NotContains(t, out, "SUBMITTED")
			assert.NotContains(t, out, "No submissions.")
			_, ok := cli.sessions.Current()
			assert.False(t, ok)
			assert.Empty(t, cli.store.Items())
		})
	}
}

func Test_printError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "plain", err: assert.AnError, want: "error: " + assert.AnError.Error() + "\n"},
		{name: "message", err: core.NewError(core.KindConflict, "already there"), want: "error: already there\n"},
		{
			name: "fields",
			err:  core.NewValidationError("", core.FieldError{Field: "title", Error: "Title is required"}),
			want: "error: invalid input\n  title: Title is required\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printError(&buf, tt.err)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}
