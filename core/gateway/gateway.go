package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/tailwebs/classwork/core"
)

const (
	maxBodySize = 4 << 20

	msgNetwork    = "could not reach the server"
	msgBadPayload = "unexpected response from the server"
	msgExpired    = "your session has expired, please log in again"
)

var newRequestID = uuid.NewString // mockable

type (
	// Credential is the source of the bearer token and the target of teardown.
	Credential interface {
		Token() string
		Invalidate()
	}

	// Navigator moves the user to another surface, eg. the login screen.
	Navigator interface {
		Location() string
		Redirect(path string)
	}
)

// Gateway is the single chokepoint for server calls.
type Gateway struct {
	baseURL   string
	loginPath string
	client    *http.Client
	cred      Credential
	nav       Navigator
	logger    core.Logger
}

// New returns a Gateway talking to conf.API.BaseURL. client defaults to an http.Client with conf.API.Timeout.
func New(conf *core.Config, cred Credential, nav Navigator, logger core.Logger, client ...*http.Client) *Gateway {
	c := &http.Client{Timeout: conf.API.Timeout}
	if len(client) > 0 && client[0] != nil {
		c = client[0]
	}
	return &Gateway{
		baseURL:   conf.API.BaseURL,
		loginPath: conf.API.LoginPath,
		client:    c,
		cred:      cred,
		nav:       nav,
		logger:    logger,
	}
}

// Call performs an authenticated request. body is JSON encoded when not nil; a JSON response is decoded
// into out when out is not nil and the body is not empty.
// A 401 tears the Session down and redirects to the login surface before the error is returned.
func (g *Gateway) Call(ctx context.Context, method, path string, body, out interface{}) error {
	return g.do(ctx, method, path, body, out, true)
}

// CallPublic performs a request without credentials. A 401 is a plain error here.
func (g *Gateway) CallPublic(ctx context.Context, method, path string, body, out interface{}) error {
	return g.do(ctx, method, path, body, out, false)
}

func (g *Gateway) do(ctx context.Context, method, path string, body, out interface{}, authed bool) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encoding request body")
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, rdr)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	reqID := newRequestID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if authed {
		if token := g.cred.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	res, err := g.client.Do(req)
	if err != nil {
		g.logger.Warn("request failed", map[string]interface{}{"method": method, "path": path, "requestId": reqID}, err)
		return &core.Error{Kind: core.KindNetwork, Message: msgNetwork, Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxBodySize))
	if err != nil {
		return &core.Error{Kind: core.KindNetwork, Message: msgNetwork, Status: res.StatusCode, Err: err}
	}
	g.logger.Debug("api call", map[string]interface{}{
		"method": method, "path": path, "status": res.StatusCode, "requestId": reqID,
	})

	if res.StatusCode < 200 || res.StatusCode > 299 {
		if res.StatusCode == http.StatusUnauthorized && authed {
			g.unauthorized()
			return &core.Error{Kind: core.KindUnauthorized, Message: msgExpired, Status: res.StatusCode}
		}
		return normalize(res.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &core.Error{Kind: core.KindUnknown, Message: msgBadPayload, Status: res.StatusCode, Err: err}
	}
	return nil
}

func (g *Gateway) unauthorized() {
	g.cred.Invalidate()
	if g.nav != nil && g.nav.Location() != g.loginPath {
		g.nav.Redirect(g.loginPath)
	}
}

// errorBody covers `{"message": ...}`, `{"error": ...}` and an optional field map.
type errorBody struct {
	Message string            `json:"message"`
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields"`
}

// normalize builds the typed error for a non-2xx response.
func normalize(status int, data []byte) *core.Error {
	e := &core.Error{Kind: kindForStatus(status), Status: status}

	var eb errorBody
	if err := json.Unmarshal(data, &eb); err == nil {
		e.Message = core.CleanString(eb.Message)
		if e.Message == "" {
			e.Message = core.CleanString(eb.Error)
		}
		if len(eb.Fields) > 0 {
			names := make([]string, 0, len(eb.Fields))
			for name := range eb.Fields {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				e.Fields = append(e.Fields, core.FieldError{Field: name, Error: eb.Fields[name]})
			}
		}
	}
	if e.Message == "" {
		e.Message = core.DefaultMessage
	}
	return e
}

func kindForStatus(status int) core.Kind {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return core.KindValidation
	case http.StatusUnauthorized:
		return core.KindUnauthorized
	case http.StatusForbidden:
		return core.KindForbidden
	case http.StatusNotFound:
		return core.KindNotFound
	case http.StatusConflict:
		return core.KindConflict
	default:
		return core.KindUnknown
	}
}
