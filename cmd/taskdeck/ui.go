package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/osvaldoandrade/taskdeck/pkg/config"
	"github.com/osvaldoandrade/taskdeck/pkg/domain"
	"golang.org/x/term"
)

type ui struct {
	title func(a ...any) string
	ok    func(a ...any) string
	info  func(a ...any) string
	warn  func(a ...any) string
	err   func(a ...any) string
	dim   func(a ...any) string
}

func newUI() *ui {
	return &ui{
		title: color.New(color.FgHiCyan, color.Bold).SprintFunc(),
		ok:    color.New(color.FgGreen, color.Bold).SprintFunc(),
		info:  color.New(color.FgCyan).SprintFunc(),
		warn:  color.New(color.FgYellow).SprintFunc(),
		err:   color.New(color.FgRed, color.Bold).SprintFunc(),
		dim:   color.New(color.FgHiBlack).SprintFunc(),
	}
}

func (u *ui) status(s domain.ExecutionStatus) string {
	switch s {
	case domain.StatusSucceeded:
		return u.ok(s.String())
	case domain.StatusFailed:
		return u.err(s.String())
	}
	return u.warn(s.String())
}

func helpTemplate(u *ui) string {
	title := u.title("taskdeck")
	return fmt.Sprintf(`%s - task catalog dashboard

Usage:
  {{.UseLine}}

Commands:
{{range .Commands}}{{if (or .IsAvailableCommand .IsAdditionalHelpTopicCommand)}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

Flags:
  {{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

Global Flags:
  {{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}

Config:
  %s

Examples:
  taskdeck --token $TASKDECK_TOKEN
  taskdeck tasks list --page-size 50
  taskdeck executions create 6f1c1a52-7f55-4d44-a5b4-2f4f0d1b8c11 --args '{"frames":24}'
  taskdeck validate 6f1c1a52-7f55-4d44-a5b4-2f4f0d1b8c11 --args @args.json
  taskdeck seed tasks.yaml

`, title, config.ProfilesPath())
}

func promptSecret(label string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", label)
	b, err := termReadPassword()
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func termReadPassword() ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !isTerminal(fd) {
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			err = nil
		}
		return []byte(strings.TrimSpace(line)), err
	}
	return term.ReadPassword(fd)
}

func isTerminal(fd int) bool {
	return term.IsTerminal(fd)
}

func prompt(r *bufio.Reader, w io.Writer, label, def string) string {
	if def != "" {
		fmt.Fprintf(w, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(w, "%s: ", label)
	}
	line, _ := r.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return def
	}
	return line
}
