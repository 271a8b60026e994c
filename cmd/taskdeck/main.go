package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/osvaldoandrade/taskdeck/internal/dashboard"
	"github.com/osvaldoandrade/taskdeck/internal/logging"
	"github.com/osvaldoandrade/taskdeck/internal/tui"
	"github.com/osvaldoandrade/taskdeck/pkg/client"
	"github.com/osvaldoandrade/taskdeck/pkg/config"
	"github.com/osvaldoandrade/taskdeck/pkg/domain"
	"github.com/spf13/cobra"
)

// session holds what every command resolves from flags, environment and the
// active profile.
type session struct {
	baseURL    string
	token      string
	profile    string
	configPath string
	pageSize   int
	logLevel   string
	logFile    string

	ui *ui
	// stdinTerminal decides whether a missing token is prompted for.
	stdinTerminal func() bool
	readSecret    func(label string) (string, error)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	s := newSession()
	err := newRootCmd(s).ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, s.ui.err("[ERROR]"), err.Error())
		os.Exit(1)
	}
}

func newSession() *session {
	return &session{
		baseURL:       getenv("TASKDECK_BASE_URL", ""),
		token:         getenv("TASKDECK_TOKEN", ""),
		ui:            newUI(),
		stdinTerminal: func() bool { return isTerminal(int(os.Stdin.Fd())) },
		readSecret:    promptSecret,
	}
}

func newRootCmd(s *session) *cobra.Command {
	root := &cobra.Command{
		Use:   "taskdeck",
		Short: "taskdeck dashboard and CLI",
		Long:  "Browse registered tasks, inspect their executions and start new ones.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.runDashboard(cmd.Context())
		},
	}
	root.SetHelpTemplate(helpTemplate(s.ui))
	root.SilenceUsage = true
	root.SilenceErrors = true

	root.PersistentFlags().StringVar(&s.baseURL, "base-url", s.baseURL, "API base URL")
	root.PersistentFlags().StringVar(&s.token, "token", s.token, "Bearer token (never saved)")
	root.PersistentFlags().StringVar(&s.profile, "profile", "", "Config profile")
	root.PersistentFlags().StringVar(&s.configPath, "config", "", "Profile file (default "+config.ProfilesPath()+")")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return s.resolve(cmd)
	}

	root.AddCommand(
		tasksCmd(s),
		executionsCmd(s),
		validateCmd(s),
		seedCmd(s),
		configCmd(s),
	)
	return root
}

// resolve fills unset values from the environment and the active profile.
func (s *session) resolve(cmd *cobra.Command) error {
	if s.configPath == "" {
		s.configPath = config.ProfilesPath()
	}
	profiles, err := config.LoadProfiles(s.configPath)
	if err != nil {
		return fmt.Errorf("load profiles: %w", err)
	}
	name, prof := profiles.Active(s.profile)
	s.profile = name

	if !cmd.Flags().Changed("base-url") {
		s.baseURL = firstNonEmpty(os.Getenv("TASKDECK_BASE_URL"), prof.BaseURL)
	}
	s.pageSize = prof.PageSize
	s.logLevel = firstNonEmpty(os.Getenv("TASKDECK_LOG_LEVEL"), prof.LogLevel)
	s.logFile = firstNonEmpty(os.Getenv("TASKDECK_LOG_FILE"), prof.LogFile)
	return nil
}

// client returns an API client bound to the session token. A missing token
// is prompted for on a terminal; otherwise no request is ever attempted.
func (s *session) client() (*client.Client, error) {
	token := strings.TrimSpace(s.token)
	if token == "" && s.stdinTerminal() {
		v, err := s.readSecret("Token")
		if err != nil {
			return nil, err
		}
		token = v
		s.token = v
	}
	if token == "" {
		return nil, errors.New("token is required (pass --token or set TASKDECK_TOKEN)")
	}
	return client.New(s.baseURL, client.WithToken(domain.Token(token)), client.WithUserAgent("taskdeck-cli")), nil
}

func (s *session) runDashboard(ctx context.Context) error {
	logger, closeLog, err := logging.OpenFile(s.logFile, s.logLevel)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer closeLog()

	base := client.New(s.baseURL, client.WithUserAgent("taskdeck"))
	api := func(t domain.Token) dashboard.API { return base.WithToken(t) }
	logger.Info("dashboard starting", "baseUrl", base.BaseURL(), "profile", s.profile)

	return tui.Run(ctx, tui.Options{
		API:      api,
		PageSize: s.pageSize,
		Token:    domain.Token(strings.TrimSpace(s.token)),
		BaseURL:  base.BaseURL(),
		Logger:   logger,
	})
}

// wait runs fn behind a spinner on w.
func wait[T any](w io.Writer, label string, fn func() (T, error)) (T, error) {
	spin := spinner.New(spinner.CharSets[14], 120*time.Millisecond, spinner.WithWriter(w))
	spin.Suffix = " " + label
	spin.Start()
	defer spin.Stop()
	return fn()
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
