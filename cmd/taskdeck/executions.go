package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/osvaldoandrade/taskdeck/pkg/client"
	"github.com/osvaldoandrade/taskdeck/pkg/codec"
	"github.com/osvaldoandrade/taskdeck/pkg/domain"
	"github.com/osvaldoandrade/taskdeck/pkg/schema"
	"github.com/spf13/cobra"
)

var errArgumentsRejected = errors.New("arguments do not match the task schema")

func executionsCmd(s *session) *cobra.Command {
	execs := &cobra.Command{
		Use:     "executions",
		Aliases: []string{"exec"},
		Short:   "Executions of a task",
	}

	list := &cobra.Command{
		Use:   "list <taskId>",
		Short: "List executions of a task, most recent first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := s.client()
			if err != nil {
				return err
			}
			out, err := wait(cmd.ErrOrStderr(), "Fetching executions...", func() (domain.Page[domain.Execution], error) {
				return c.ListExecutions(cmd.Context(), taskID, domain.PageRequest{PageSize: s.pageSize})
			})
			if err != nil {
				return err
			}
			if len(out.Results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), s.ui.dim("no executions"))
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tINVOKED\tSTATUS\tRESULTS\tREASON")
			for _, e := range out.Results {
				reason := ""
				if e.StatusReason != nil {
					reason = *e.StatusReason
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
					e.ID, e.InvokedAt.Format("2006-01-02 15:04:05Z07:00"), s.ui.status(e.Status()), len(e.Results), reason)
			}
			return tw.Flush()
		},
	}

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one execution",
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
			exec, err := wait(cmd.ErrOrStderr(), "Fetching execution...", func() (domain.Execution, error) {
				return c.GetExecution(cmd.Context(), id)
			})
			if err != nil {
				return err
			}
			raw, err := codec.EncodeExecution(exec)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", s.ui.info("status:"), s.ui.status(exec.Status()))
			return printJSON(cmd, raw)
		},
	}

	arguments := &cobra.Command{
		Use:   "arguments <id>",
		Short: "Show the stored arguments of an execution",
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
			v, err := wait(cmd.ErrOrStderr(), "Fetching arguments...", func() (any, error) {
				return c.ExecutionArguments(cmd.Context(), id)
			})
			if err != nil {
				return err
			}
			raw, err := json.Marshal(v)
			if err != nil {
				return err
			}
			return printJSON(cmd, raw)
		},
	}

	var argsFlag string
	create := &cobra.Command{
		Use:     "create <taskId>",
		Short:   "Start an execution after validating its arguments locally",
		Example: "taskdeck executions create <taskId> --args '{\"frames\":24}'",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID(args[0])
			if err != nil {
				return err
			}
			raw, err := readArgs(argsFlag, cmd.InOrStdin())
			if err != nil {
				return err
			}
			c, err := s.client()
			if err != nil {
				return err
			}
			task, err := wait(cmd.ErrOrStderr(), "Fetching task...", func() (domain.Task, error) {
				return c.GetTask(cmd.Context(), taskID)
			})
			if err != nil {
				return err
			}
			res := schema.Validate(task.Validator, raw)
			if !res.OK() {
				printValidationErrors(cmd.ErrOrStderr(), s.ui, res.Errors)
				return errArgumentsRejected
			}
			exec, err := wait(cmd.ErrOrStderr(), "Creating execution...", func() (domain.Execution, error) {
				return c.CreateExecution(cmd.Context(), domain.ExecutionCreate{TaskID: taskID, Arguments: res.Value})
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Execution created: %s\n", s.ui.ok("[OK]"), exec.ID)
			return nil
		},
	}
	create.Flags().StringVar(&argsFlag, "args", "", "JSON arguments, @file or @- for stdin")
	_ = create.MarkFlagRequired("args")

	var (
		reason string
		hrefs  []string
		media  string
		title  string
	)
	complete := &cobra.Command{
		Use:   "complete <id>",
		Short: "Record the outcome of an execution (admin)",
		Example: "taskdeck executions complete <id> --result https://cdn.example/out.mp4 --type video/mp4\n" +
			"taskdeck executions complete <id> --reason 'render node lost'",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if strings.TrimSpace(reason) == "" && len(hrefs) == 0 {
				return errors.New("one of --reason or --result is required")
			}
			var statusReason *string
			if strings.TrimSpace(reason) != "" {
				statusReason = &reason
			}
			results := make([]domain.ResultAsset, 0, len(hrefs))
			for _, h := range hrefs {
				asset := domain.ResultAsset{Href: h, MediaType: media}
				if title != "" {
					t := title
					asset.Title = &t
				}
				results = append(results, asset)
			}
			c, err := s.client()
			if err != nil {
				return err
			}
			exec, err := wait(cmd.ErrOrStderr(), "Recording outcome...", func() (domain.Execution, error) {
				return c.CompleteExecution(cmd.Context(), id, statusReason, results)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Execution %s is %s\n", s.ui.ok("[OK]"), exec.ID, s.ui.status(exec.Status()))
			return nil
		},
	}
	complete.Flags().StringVar(&reason, "reason", "", "Failure reason")
	complete.Flags().StringSliceVar(&hrefs, "result", nil, "Result asset URL (repeatable)")
	complete.Flags().StringVar(&media, "type", "", "Media type of the result assets")
	complete.Flags().StringVar(&title, "title", "", "Title of the result assets")

	execs.AddCommand(list, get, arguments, create, complete)
	return execs
}

func validateCmd(s *session) *cobra.Command {
	var argsFlag, schemaFlag string
	cmd := &cobra.Command{
		Use:   "validate [taskId]",
		Short: "Check arguments against a task schema without creating anything",
		Example: "taskdeck validate <taskId> --args @args.json\n" +
			"taskdeck validate --schema @schema.json --args '{\"frames\":24}'",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if argsFlag == "@-" && schemaFlag == "@-" {
				return errors.New("only one of --args and --schema can read stdin")
			}
			raw, err := readArgs(argsFlag, cmd.InOrStdin())
			if err != nil {
				return err
			}

			var sch *schema.Schema
			switch {
			case schemaFlag != "":
				text, err := readArgs(schemaFlag, cmd.InOrStdin())
				if err != nil {
					return err
				}
				if sch, err = schema.Parse([]byte(text)); err != nil {
					return fmt.Errorf("invalid schema: %w", err)
				}
			case len(args) == 1:
				taskID, err := parseID(args[0])
				if err != nil {
					return err
				}
				c, err := s.client()
				if err != nil {
					return err
				}
				task, err := wait(cmd.ErrOrStderr(), "Fetching task...", func() (domain.Task, error) {
					return c.GetTask(cmd.Context(), taskID)
				})
				if err != nil {
					if errors.Is(err, client.ErrNotFound) {
						return fmt.Errorf("task %s not found", taskID)
					}
					return err
				}
				sch = task.Validator
			default:
				return errors.New("pass a task id or --schema")
			}

			res := schema.Validate(sch, raw)
			if !res.OK() {
				printValidationErrors(cmd.ErrOrStderr(), s.ui, res.Errors)
				return errArgumentsRejected
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s arguments are valid\n", s.ui.ok("[OK]"))
			out, err := json.Marshal(res.Value)
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
	cmd.Flags().StringVar(&argsFlag, "args", "", "JSON arguments, @file or @- for stdin")
	cmd.Flags().StringVar(&schemaFlag, "schema", "", "JSON schema, @file or @- for stdin, instead of a task id")
	_ = cmd.MarkFlagRequired("args")
	return cmd
}

// readArgs resolves an inline JSON value, "@path" or "@-" for stdin.
func readArgs(v string, stdin io.Reader) (string, error) {
	if !strings.HasPrefix(v, "@") {
		return v, nil
	}
	path := strings.TrimPrefix(v, "@")
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", v, err)
	}
	return string(b), nil
}

func printValidationErrors(w io.Writer, u *ui, errs []schema.Error) {
	for _, e := range errs {
		fmt.Fprintf(w, "  %s %s\n", u.err(e.Pointer()), e.Message())
	}
}
