package logsvc

import (
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/tailwebs/classwork/core"
)

// RollbarLogger reports to Rollbar and mirrors every entry to a std logger.
type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// expectedKinds are outcomes the user caused and was told about. They are not worth an error item.
var expectedKinds = map[core.Kind]bool{
	core.KindValidation:        true,
	core.KindAuth:              true,
	core.KindUnauthorized:      true,
	core.KindForbidden:         true,
	core.KindConflict:          true,
	core.KindInvalidTransition: true,
	core.KindInvalidState:      true,
	core.KindOutOfRange:        true,
	core.KindNotFound:          true,
}

// entry is what gets sent to Rollbar for one log call.
type entry struct {
	level  string
	person *core.Person
	err    error
	extras map[string]interface{}
}

// args returns the arguments rollbar.Log expects: at most one error and one custom data map.
func (e entry) args() []interface{} {
	args := []interface{}{e.extras}
	if e.err != nil {
		args = append(args, e.err)
	}
	return args
}

// newEntry sorts args into an entry.
// expected fmt: msg | error, map[string]interface{}, core.Person
// A *core.Error contributes its kind, status and field errors to the custom data,
// and an error level entry about an expected kind is lowered to a warning.
func newEntry(level, msg string, args []interface{}) entry {
	e := entry{level: level, extras: map[string]interface{}{"message": msg}}
	for _, arg := range args {
		switch v := arg.(type) {
		case core.Person:
			if e.person == nil { // only set one Person
				p := v
				e.person = &p
			}
		case map[string]interface{}:
			for k, val := range v {
				e.extras[k] = val
			}
		case error:
			if e.err == nil {
				e.err = v
			}
		default:
			e.extras["arg"] = v
		}
	}

	ce, ok := core.AsError(e.err)
	if !ok {
		return e
	}
	e.extras["kind"] = ce.Kind.String()
	if ce.Status != 0 {
		e.extras["status"] = ce.Status
	}
	if len(ce.Fields) > 0 {
		e.extras["fields"] = ce.FieldMap()
	}
	if e.level == rollbar.ERR && expectedKinds[ce.Kind] {
		e.level = rollbar.WARN
	}
	return e
}

func (l RollbarLogger) report(e entry) {
	if e.person != nil {
		rollbar.SetPerson(e.person.ID, e.person.Name, e.person.Email)
	} else {
		rollbar.ClearPerson()
	}
	rollbar.Log(e.level, e.args()...)
}

func (l RollbarLogger) print(msg string, args []interface{}) {
	l.std.Println(msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

func (l RollbarLogger) log(level, msg string, args []interface{}) {
	l.report(newEntry(level, msg, args))
	l.print(msg, args)
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) { l.log(rollbar.DEBUG, msg, args) }

func (l RollbarLogger) Info(msg string, args ...interface{}) { l.log(rollbar.INFO, msg, args) }

func (l RollbarLogger) Warn(msg string, args ...interface{}) { l.log(rollbar.WARN, msg, args) }

func (l RollbarLogger) Error(msg string, args ...interface{}) { l.log(rollbar.ERR, msg, args) }

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(rollbar.CRIT, msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}
