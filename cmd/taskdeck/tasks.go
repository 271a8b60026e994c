package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/osvaldoandrade/taskdeck/pkg/codec"
	"github.com/osvaldoandrade/taskdeck/pkg/domain"
	"github.com/spf13/cobra"
)

func tasksCmd(s *session) *cobra.Command {
	tasks := &cobra.Command{
		Use:   "tasks",
		Short: "Task catalog",
	}

	var page, pageSize int
	list := &cobra.Command{
		Use:     "list",
		Short:   "List registered tasks",
		Example: "taskdeck tasks list --page 2 --page-size 50",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := s.client()
			if err != nil {
				return err
			}
			if pageSize == 0 {
				pageSize = s.pageSize
			}
			req := domain.PageRequest{Page: page, PageSize: pageSize}
			out, err := wait(cmd.ErrOrStderr(), "Fetching tasks...", func() (domain.Page[domain.Task], error) {
				return c.ListTasks(cmd.Context(), req)
			})
			if err != nil {
				return err
			}
			if len(out.Results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), s.ui.dim("no tasks"))
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tID\tJOB DEFINITION\tQUEUE")
			for _, t := range out.Results {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.Name, t.ID, t.JobDefinition, t.JobQueue)
			}
			return tw.Flush()
		},
	}
	list.Flags().IntVar(&page, "page", 0, "Page number (1-based)")
	list.Flags().IntVar(&pageSize, "page-size", 0, "Page size")

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a task and its argument schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := s.client()
			if err != nil {
				return err
			}
			task, err := wait(cmd.ErrOrStderr(), "Fetching task...", func() (domain.Task, error) {
				return c.GetTask(cmd.Context(), id)
			})
			if err != nil {
				return err
			}
			raw, err := codec.EncodeTask(task)
			if err != nil {
				return err
			}
			return printJSON(cmd, raw)
		},
	}

	tasks.AddCommand(list, get)
	return tasks
}

func parseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return id, nil
}

func printJSON(cmd *cobra.Command, raw []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		_, werr := cmd.OutOrStdout().Write(append(raw, '\n'))
		return werr
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(cmd.OutOrStdout())
	return err
}
