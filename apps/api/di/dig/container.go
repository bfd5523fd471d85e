package dig_container

import (
	"log"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/tailwebs/classwork/apps/api/echo"
	"github.com/tailwebs/classwork/core"
	logsvc "github.com/tailwebs/classwork/services/logger"
	inmemdb "github.com/tailwebs/classwork/storage/inmem"
)

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newServer(conf *core.Config, logger core.Logger, db *inmemdb.DB) echoapi.Server {
	return echoapi.NewServer(&echoapi.Options{
		Conf:   conf,
		Logger: logger,
		DB:     db,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(inmemdb.Open))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
