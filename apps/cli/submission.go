package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/tailwebs/classwork/core/submission"
)

const timeFormat = "2006-01-02 15:04"

func (cli *commandLine) submit(ctx context.Context, args []string) error {
	fs := cli.flagSet("submit")
	id := fs.String("assignment", "", "The assignment ID.")
	answer := fs.String("answer", "", "Your answer.")
	if err := cli.parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, *id); err != nil {
		return err
	}

	if _, err := submission.ValidateAnswer(*answer); err != nil {
		return err
	}
	// learn about an earlier submission first
	if _, err := cli.work.MyOwn(ctx, *id); err != nil {
		return err
	}
	sub, err := cli.work.Submit(ctx, *id, *answer)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Submitted %s at %s.\n", sub.ID, sub.SubmittedAt.Local().Format(timeFormat))
	return nil
}

func (cli *commandLine) listMine(ctx context.Context, args []string) error {
	if err := cli.parse(cli.flagSet("mine"), args); err != nil {
		return err
	}
	items, err := cli.store.List(ctx)
	if err != nil {
		return err
	}
	mine, err := cli.work.ProbeMine(ctx, assignmentIDs(items))
	if err != nil {
		return err
	}
	if len(mine) == 0 {
		fmt.Fprintln(cli.out, "No submissions.")
		return nil
	}

	tw := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ASSIGNMENT\tSTATUS\tSUBMITTED\tREVIEWED\tMARK\tANSWER")
	for _, a := range items {
		sub, ok := mine[a.ID]
		if !ok {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			a.Title, a.Status, sub.SubmittedAt.Local().Format(timeFormat), yesNo(sub.Reviewed), sub.MarkString(), sub.Answer)
	}
	return tw.Flush()
}

func (cli *commandLine) listSubmissions(ctx context.Context, args []string) error {
	fs := cli.flagSet("submissions")
	id := fs.String("assignment", "", "Only list the submissions of this assignment.")
	if err := cli.parse(fs, args); err != nil {
		return err
	}

	var (
		subs []submission.Submission
		err  error
	)
	if *id != "" {
		subs, err = cli.work.ListForAssignment(ctx, *id)
	} else {
		subs, err = cli.work.ListAll(ctx)
	}
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		fmt.Fprintln(cli.out, "No submissions.")
		return nil
	}

	tw := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tASSIGNMENT\tSTUDENT\tSUBMITTED\tREVIEWED\tMARK\tANSWER")
	for _, s := range subs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.ID, orDefault(s.AssignmentTitle, s.AssignmentID), orDefault(s.StudentName, s.StudentID),
			s.SubmittedAt.Local().Format(timeFormat), yesNo(s.Reviewed), s.MarkString(), s.Answer)
	}
	return tw.Flush()
}

func (cli *commandLine) review(ctx context.Context, args []string) error {
	fs := cli.flagSet("review")
	id := fs.String("id", "", "The submission ID.")
	mark := fs.String("mark", "", fmt.Sprintf("The mark, between %d and %d. Leave empty to review without a mark.",
		submission.MinMark, submission.MaxMark))
	reviewed := fs.Bool("reviewed", true, "Whether the submission has been reviewed.")
	if err := cli.parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, *id); err != nil {
		return err
	}

	sub, err := cli.work.SaveReview(ctx, *id, *mark, *reviewed)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Saved review of %s: reviewed=%s mark=%s.\n", sub.ID, yesNo(sub.Reviewed), sub.MarkString())
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
