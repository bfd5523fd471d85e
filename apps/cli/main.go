package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/tailwebs/classwork/core"
	"github.com/tailwebs/classwork/services/sessionstore"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	code := 0
	c := newContainer(os.Stdout)
	err := c.Invoke(func(cli *commandLine, storage *sessionstore.BoltStorage, logger core.Logger) {
		defer func() {
			if err := storage.Close(); err != nil {
				logger.Error("closing session store", err)
			}
		}()

		if err := cli.run(ctx, os.Args); err != nil {
			if err != errHelp {
				printError(os.Stderr, err)
			}
			code = 1
		}
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return code
}
