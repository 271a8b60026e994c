package main

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/osvaldoandrade/taskdeck/pkg/config"
	"github.com/osvaldoandrade/taskdeck/pkg/domain"
	"github.com/spf13/cobra"
)

func configCmd(s *session) *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI profiles",
	}

	var (
		pageSize int
		logLevel string
		logFile  string
		noPrompt bool
	)
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create or update a profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles, err := config.LoadProfiles(s.configPath)
			if err != nil {
				return err
			}
			name := profiles.Resolve(s.profile)
			prof := profiles.Profiles[name]

			flags := cmd.Flags()
			baseURL := firstNonEmpty(prof.BaseURL, config.DefaultBaseURL)
			if flags.Changed("base-url") {
				baseURL = s.baseURL
			}
			if !flags.Changed("page-size") && prof.PageSize > 0 {
				pageSize = prof.PageSize
			}
			if !flags.Changed("log-level") {
				logLevel = firstNonEmpty(prof.LogLevel, "info")
			}
			if !flags.Changed("log-file") {
				logFile = prof.LogFile
			}

			if !noPrompt {
				reader := bufio.NewReader(cmd.InOrStdin())
				out := cmd.OutOrStdout()
				baseURL = prompt(reader, out, "Base URL", baseURL)
				if v := prompt(reader, out, "Page size", strconv.Itoa(pageSize)); v != "" {
					n, err := strconv.Atoi(v)
					if err != nil || n < 0 {
						return fmt.Errorf("invalid page size %q", v)
					}
					pageSize = n
				}
				logLevel = prompt(reader, out, "Log level", logLevel)
				logFile = prompt(reader, out, "Dashboard log file (optional)", logFile)
			}

			prof.BaseURL = strings.TrimSpace(baseURL)
			prof.PageSize = pageSize
			prof.LogLevel = strings.TrimSpace(logLevel)
			prof.LogFile = strings.TrimSpace(logFile)
			profiles.Set(name, prof, flags.Changed("profile"))

			if err := config.SaveProfiles(profiles, s.configPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Initialized profile '%s' at %s\n", s.ui.ok("[OK]"), name, s.configPath)
			return nil
		},
	}
	initCmd.Flags().IntVar(&pageSize, "page-size", 0, "Default page size (0 uses the server default)")
	initCmd.Flags().StringVar(&logLevel, "log-level", "", "Dashboard log level")
	initCmd.Flags().StringVar(&logFile, "log-file", "", "Dashboard log file")
	initCmd.Flags().BoolVar(&noPrompt, "no-prompt", false, "Use flags and current values without prompting")

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			pageSize := "server default"
			if s.pageSize > 0 {
				pageSize = strconv.Itoa(s.pageSize)
			}
			logFile := s.logFile
			if logFile == "" {
				logFile = "<discard>"
			}
			fmt.Fprintf(out, "%s %s\n", s.ui.title("profile:"), s.profile)
			fmt.Fprintf(out, "%s %s\n", s.ui.info("config:"), s.configPath)
			fmt.Fprintf(out, "%s %s\n", s.ui.info("base url:"), s.baseURL)
			fmt.Fprintf(out, "%s %s\n", s.ui.info("page size:"), pageSize)
			fmt.Fprintf(out, "%s %s\n", s.ui.info("log level:"), s.logLevel)
			fmt.Fprintf(out, "%s %s\n", s.ui.info("log file:"), logFile)
			fmt.Fprintf(out, "%s %s\n", s.ui.info("token:"), tokenDisplay(domain.Token(s.token)))
			return nil
		},
	}

	cfg.AddCommand(initCmd, show)
	return cfg
}

func tokenDisplay(t domain.Token) string {
	if !t.Present() {
		return "<unset>"
	}
	return t.String()
}
