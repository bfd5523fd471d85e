package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/tailwebs/classwork/core"
	"github.com/tailwebs/classwork/core/assignment"
	"github.com/tailwebs/classwork/core/submission"
)

var errUnknownAssignment = core.NewError(core.KindNotFound, "assignment not found")

func (cli *commandLine) listAssignments(ctx context.Context, args []string) error {
	fs := cli.flagSet("assignments")
	status := fs.String("status", "", "Only list Draft, Published or Completed assignments.")
	if err := cli.parse(fs, args); err != nil {
		return err
	}
	var filter []assignment.Status
	if *status != "" {
		st, err := assignment.ParseStatus(*status)
		if err != nil {
			return core.NewValidationError("", core.FieldError{Field: "status", Error: err.Error()})
		}
		filter = append(filter, st)
	}

	items, err := cli.store.List(ctx, filter...)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(cli.out, "No assignments.")
		return nil
	}

	sess, _ := cli.sessions.Current()
	tw := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	if sess.Identity.IsStudent() {
		mine, err := cli.work.ProbeMine(ctx, assignmentIDs(items))
		if err != nil {
			return err
		}
		fmt.Fprintln(tw, "ID\tTITLE\tDUE\tSTATUS\tSUBMITTED")
		for _, a := range items {
			_, done := mine[a.ID]
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", a.ID, a.Title, a.DueDate, a.Status, yesNo(done))
		}
		return tw.Flush()
	}

	fmt.Fprintln(tw, "ID\tTITLE\tDUE\tSTATUS\tACTIONS")
	for _, a := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", a.ID, a.Title, a.DueDate, a.Status, actionNames(a))
	}
	return tw.Flush()
}

// showAssignment prints one assignment in full. Students also see their own submission, teachers the legal actions.
func (cli *commandLine) showAssignment(ctx context.Context, args []string) error {
	fs := cli.flagSet("show")
	id := fs.String("id", "", "The assignment ID.")
	if err := cli.parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, *id); err != nil {
		return err
	}

	a, err := cli.load(ctx, *id)
	if err != nil {
		return err
	}
	sess, _ := cli.sessions.Current()
	var sub *submission.Submission
	if sess.Identity.IsStudent() {
		if sub, err = cli.work.MyOwn(ctx, a.ID); err != nil {
			return err
		}
	}

	fmt.Fprintf(cli.out, "%s (%s)\n", a.Title, a.Status)
	fmt.Fprintf(cli.out, "Due: %s\n\n%s\n\n", a.DueDate, a.Description)
	if !sess.Identity.IsStudent() {
		fmt.Fprintf(cli.out, "Actions: %s\n", actionNames(a))
		return nil
	}
	if sub == nil {
		fmt.Fprintln(cli.out, "Not submitted.")
		return nil
	}
	fmt.Fprintf(cli.out, "Submitted: %s\nReviewed: %s\nMark: %s\n\n%s\n",
		sub.SubmittedAt.Local().Format(timeFormat), yesNo(sub.Reviewed), sub.MarkString(), sub.Answer)
	return nil
}

func (cli *commandLine) createAssignment(ctx context.Context, args []string) error {
	fs := cli.flagSet("create")
	title := fs.String("title", "", "The title.")
	description := fs.String("description", "", "What the students have to do.")
	due := fs.String("due", "", "The due date (YYYY-MM-DD).")
	if err := cli.parse(fs, args); err != nil {
		return err
	}

	a, err := cli.store.Create(ctx, assignment.Fields{Title: *title, Description: *description, DueDate: *due})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Created assignment %s (%s).\n", a.ID, a.Status)
	return nil
}

func (cli *commandLine) editAssignment(ctx context.Context, args []string) error {
	fs := cli.flagSet("edit")
	id := fs.String("id", "", "The assignment ID.")
	title := fs.String("title", "", "The new title.")
	description := fs.String("description", "", "The new description.")
	due := fs.String("due", "", "The new due date (YYYY-MM-DD).")
	if err := cli.parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, *id); err != nil {
		return err
	}

	a, err := cli.load(ctx, *id)
	if err != nil {
		return err
	}
	f := assignment.FieldsOf(a)
	if *title != "" {
		f.Title = *title
	}
	if *description != "" {
		f.Description = *description
	}
	if *due != "" {
		f.DueDate = *due
	}

	a, err = cli.store.Update(ctx, *id, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Updated assignment %s.\n", a.ID)
	return nil
}

func (cli *commandLine) publishAssignment(ctx context.Context, args []string) error {
	return cli.transition(ctx, "publish", args, cli.store.Publish)
}

func (cli *commandLine) completeAssignment(ctx context.Context, args []string) error {
	return cli.transition(ctx, "complete", args, cli.store.Complete)
}

func (cli *commandLine) transition(
	ctx context.Context,
	name string,
	args []string,
	fn func(context.Context, string) (assignment.Assignment, error),
) error {
	fs := cli.flagSet(name)
	id := fs.String("id", "", "The assignment ID.")
	if err := cli.parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, *id); err != nil {
		return err
	}
	if _, err := cli.load(ctx, *id); err != nil {
		return err
	}

	a, err := fn(ctx, *id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Assignment %s is now %s.\n", a.ID, a.Status)
	return nil
}

func (cli *commandLine) deleteAssignment(ctx context.Context, args []string) error {
	fs := cli.flagSet("delete")
	id := fs.String("id", "", "The assignment ID.")
	if err := cli.parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, *id); err != nil {
		return err
	}

	if err := cli.store.Delete(ctx, *id); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Deleted assignment %s.\n", *id)
	return nil
}

// load fills the store so that the local lifecycle checks can run, and returns the assignment with id.
func (cli *commandLine) load(ctx context.Context, id string) (assignment.Assignment, error) {
	if _, err := cli.store.List(ctx); err != nil {
		return assignment.Assignment{}, err
	}
	a, ok := cli.store.Get(id)
	if !ok {
		return assignment.Assignment{}, errUnknownAssignment
	}
	return a, nil
}

func assignmentIDs(items []assignment.Assignment) []string {
	ids := make([]string, len(items))
	for i, a := range items {
		ids[i] = a.ID
	}
	return ids
}

func actionNames(a assignment.Assignment) string {
	actions := assignment.Actions(a)
	names := make([]string, len(actions))
	for i, act := range actions {
		names[i] = string(act)
	}
	return strings.Join(names, ",")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
