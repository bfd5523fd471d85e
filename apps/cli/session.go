package main

import (
	"context"
	"fmt"

	"github.com/tailwebs/classwork/core/session"
)

func (cli *commandLine) login(ctx context.Context, args []string) error {
	fs := cli.flagSet("login")
	email := fs.String("email", "", "Your email. The password will be prompted next.")
	if err := cli.parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, *email); err != nil {
		return err
	}
	pwd, err := cli.promptPassword(fs)
	if err != nil {
		return err
	}

	sess, err := cli.sessions.Login(ctx, session.Credentials{Email: *email, Password: pwd})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Logged in as %s (%s).\n", sess.Identity.Name, sess.Identity.Role)
	return nil
}

func (cli *commandLine) register(ctx context.Context, args []string) error {
	fs := cli.flagSet("register")
	name := fs.String("name", "", "Your full name.")
	email := fs.String("email", "", "Your email. The password will be prompted next.")
	role := fs.String("role", "", "teacher or student.")
	if err := cli.parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, *name, *email, *role); err != nil {
		return err
	}
	pwd, err := cli.promptPassword(fs)
	if err != nil {
		return err
	}

	p := session.Profile{Name: *name, Email: *email, Password: pwd, Role: *role}
	if err := cli.sessions.Register(ctx, p); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "Registered. You can now log in.")
	return nil
}

func (cli *commandLine) logout(_ context.Context, args []string) error {
	if err := cli.parse(cli.flagSet("logout"), args); err != nil {
		return err
	}
	cli.sessions.Logout()
	fmt.Fprintln(cli.out, "Logged out.")
	return nil
}

func (cli *commandLine) whoami(_ context.Context, args []string) error {
	if err := cli.parse(cli.flagSet("whoami"), args); err != nil {
		return err
	}
	sess, ok := cli.sessions.Current()
	if !ok {
		fmt.Fprintln(cli.out, "Not logged in.")
		return nil
	}
	id := sess.Identity
	fmt.Fprintf(cli.out, "%s <%s> (%s)\n", id.Name, id.Email, id.Role)
	return nil
}
