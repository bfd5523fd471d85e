package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/tailwebs/classwork/core"
	"github.com/tailwebs/classwork/core/assignment"
	"github.com/tailwebs/classwork/core/session"
	"github.com/tailwebs/classwork/core/submission"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf     *core.Config
	sessions *session.Manager
	store    *assignment.Store
	work     *submission.Workflow
	nav      *navigator
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  login -email EMAIL                                  - log in (password prompted)")
	fmt.Fprintln(cli.out, "  register -name NAME -email EMAIL -role ROLE         - create an account (password prompted)")
	fmt.Fprintln(cli.out, "  logout                                              - end the session")
	fmt.Fprintln(cli.out, "  whoami                                              - show the logged in user")
	fmt.Fprintln(cli.out, "  assignments [-status STATUS]                        - list assignments")
	fmt.Fprintln(cli.out, "  show -id ID                                         - show an assignment in full")
	fmt.Fprintln(cli.out, "  create -title T -description D -due YYYY-MM-DD      - create a draft assignment")
	fmt.Fprintln(cli.out, "  edit -id ID [-title T] [-description D] [-due DATE] - edit an assignment")
	fmt.Fprintln(cli.out, "  publish -id ID                                      - publish a draft")
	fmt.Fprintln(cli.out, "  complete -id ID                                     - close a published assignment")
	fmt.Fprintln(cli.out, "  delete -id ID                                       - delete an assignment")
	fmt.Fprintln(cli.out, "  submit -assignment ID -answer TEXT                  - submit an answer")
	fmt.Fprintln(cli.out, "  mine                                                - list your submissions")
	fmt.Fprintln(cli.out, "  submissions [-assignment ID]                        - list submissions to review")
	fmt.Fprintln(cli.out, "  review -id ID [-mark MARK] [-reviewed=false]        - grade a submission")
}

type command func(ctx context.Context, args []string) error

func (cli *commandLine) commands() map[string]command {
	return map[string]command{
		"login":       cli.login,
		"register":    cli.register,
		"logout":      cli.logout,
		"whoami":      cli.whoami,
		"assignments": cli.listAssignments,
		"show":        cli.showAssignment,
		"create":      cli.createAssignment,
		"edit":        cli.editAssignment,
		"publish":     cli.publishAssignment,
		"complete":    cli.completeAssignment,
		"delete":      cli.deleteAssignment,
		"submit":      cli.submit,
		"mine":        cli.listMine,
		"submissions": cli.listSubmissions,
		"review":      cli.review,
	}
}

// run dispatches args (program name first) to a command, after restoring any persisted session.
func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	cmd, ok := cli.commands()[args[1]]
	if !ok {
		cli.printUsage()
		return errHelp
	}
	if _, err := cli.sessions.Restore(); err != nil {
		return err
	}
	cli.nav.visit("/" + args[1])
	return cmd(ctx, args[2:])
}

func (cli *commandLine) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return errHelp
		}
		return err
	}
	return nil
}

// required prints the usage of fs and returns errHelp when any of vals is empty.
func required(fs *flag.FlagSet, vals ...string) error {
	for _, v := range vals {
		if v == "" {
			fs.Usage()
			return errHelp
		}
	}
	return nil
}

func (cli *commandLine) promptPassword(fs *flag.FlagSet) (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		fs.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}

// printError renders err for the user, field errors one per line.
func printError(w io.Writer, err error) {
	e, ok := core.AsError(err)
	if !ok {
		fmt.Fprintf(w, "error: %v\n", err)
		return
	}
	msg := e.Message
	if msg == "" {
		if len(e.Fields) > 0 {
			msg = "invalid input"
		} else {
			msg = e.Error()
		}
	}
	fmt.Fprintf(w, "error: %s\n", msg)
	for _, f := range e.Fields {
		fmt.Fprintf(w, "  %s: %s\n", f.Field, f.Error)
	}
}
