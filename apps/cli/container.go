package main

import (
	"io"
	"log"

	"github.com/pkg/errors"
	"go.uber.org/dig"

	"github.com/tailwebs/classwork/core"
	"github.com/tailwebs/classwork/core/assignment"
	"github.com/tailwebs/classwork/core/gateway"
	"github.com/tailwebs/classwork/core/session"
	"github.com/tailwebs/classwork/core/submission"
	logsvc "github.com/tailwebs/classwork/services/logger"
	"github.com/tailwebs/classwork/services/sessionstore"
)

func newLogger(conf *core.Config) (core.Logger, error) {
	logger, err := logsvc.NewZapLogger(conf)
	if err != nil {
		return nil, errors.Wrap(err, "building logger")
	}
	return logger, nil
}

func newState(storage *sessionstore.BoltStorage, logger core.Logger) *session.State {
	return session.NewState(storage, logger)
}

func newGateway(conf *core.Config, state *session.State, nav *navigator, logger core.Logger) *gateway.Gateway {
	return gateway.New(conf, state, nav, logger)
}

func newManager(state *session.State, gw *gateway.Gateway, logger core.Logger) *session.Manager {
	return session.NewManager(state, gw, logger)
}

func newStore(gw *gateway.Gateway, state *session.State, logger core.Logger) *assignment.Store {
	return assignment.NewStore(gw, state, logger)
}

func newWorkflow(gw *gateway.Gateway, state *session.State, logger core.Logger, conf *core.Config) *submission.Workflow {
	return submission.NewWorkflow(gw, state, logger, conf)
}

// newContainer wires the CLI. out receives everything printed for the user.
func newContainer(out io.Writer) *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(sessionstore.Open))
	must(c.Provide(newState))
	must(c.Provide(func(conf *core.Config) *navigator { return newNavigator(out, conf.API.LoginPath) }))
	must(c.Provide(newGateway))
	must(c.Provide(newManager))
	must(c.Provide(newStore))
	must(c.Provide(newWorkflow))
	must(c.Provide(func(
		conf *core.Config,
		sessions *session.Manager,
		store *assignment.Store,
		work *submission.Workflow,
		nav *navigator,
	) *commandLine {
		return &commandLine{conf: conf, sessions: sessions, store: store, work: work, nav: nav, out: out}
	}))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
