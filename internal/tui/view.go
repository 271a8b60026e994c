package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/osvaldoandrade/taskdeck/internal/dashboard"
	"github.com/osvaldoandrade/taskdeck/pkg/domain"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("51")).Padding(0, 1)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	labelStyle = lipgloss.NewStyle().Bold(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	paneStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)

	badgeStyles = map[domain.ExecutionStatus]lipgloss.Style{
		domain.StatusInProgress: lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("220")).Padding(0, 1),
		domain.StatusSucceeded:  lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("78")).Padding(0, 1),
		domain.StatusFailed:     lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Background(lipgloss.Color("160")).Padding(0, 1),
	}
)

func (m *Model) View() string {
	var body string
	switch m.state.Mode() {
	case dashboard.AwaitingToken:
		body = m.viewToken()
	case dashboard.ListView:
		if m.loadingTask() {
			body = m.viewDetail()
		} else {
			body = m.viewList()
		}
	case dashboard.DetailView, dashboard.Composing:
		body = m.viewDetail()
	}

	keys := m.keys.forMode(m.state.Mode())
	keys.loading = m.loadingTask()
	footer := m.help.View(keys)
	if m.pending > 0 {
		footer = m.spin.View() + " loading  " + footer
	}
	parts := []string{body}
	if m.status != "" {
		parts = append(parts, dimStyle.Render(m.status))
	}
	parts = append(parts, footer)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *Model) viewToken() string {
	target := m.baseURL
	if target == "" {
		target = "the API"
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("taskdeck"),
		"",
		"Enter a bearer token for "+target+".",
		m.token.View(),
		"",
	)
}

func (m *Model) viewList() string {
	if len(m.state.TaskList) == 0 && m.pending == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("Tasks"), "", dimStyle.Render("no tasks registered"), "")
	}
	return m.tasks.View()
}

func (m *Model) viewDetail() string {
	d := m.state.TaskDetail
	if d == nil {
		return titleStyle.Render("Task") + "\n\n" + dimStyle.Render("loading task...") + "\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(d.Task.Name))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("id:"), d.Task.ID)
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("job definition:"), d.Task.JobDefinition)
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("job queue:"), d.Task.JobQueue)
	if req := d.Task.Validator.RequiredFields(); len(req) > 0 {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("required:"), strings.Join(req, ", "))
	}
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Executions"))
	b.WriteString("\n")
	b.WriteString(executionTable(d.Executions))

	if d.Composing {
		b.WriteString("\n")
		b.WriteString(paneStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
			labelStyle.Render("Arguments"),
			m.compose.View(),
			validationView(d.Validation),
		)))
	}
	b.WriteString("\n")
	return b.String()
}

func executionTable(execs []domain.Execution) string {
	if len(execs) == 0 {
		return dimStyle.Render("  none yet") + "\n"
	}
	var b strings.Builder
	for _, e := range execs {
		status := e.Status()
		badge := badgeStyles[status].Render(status.String())
		line := fmt.Sprintf("  %s  %s  %s", e.InvokedAt.Local().Format("2006-01-02 15:04:05"), badge, dimStyle.Render(e.ID.String()))
		if e.StatusReason != nil {
			line += "  " + errStyle.Render(*e.StatusReason)
		}
		if n := len(e.Results); n > 0 {
			line += "  " + dimStyle.Render(fmt.Sprintf("%d result(s)", n))
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func validationView(v dashboard.Validation) string {
	switch v.Outcome {
	case dashboard.Valid:
		return okStyle.Render("valid · ctrl+s to submit")
	case dashboard.Invalid:
		lines := make([]string, len(v.Errors))
		for i, e := range v.Errors {
			lines[i] = errStyle.Render(e.Pointer()) + " " + e.Message()
		}
		return strings.Join(lines, "\n")
	}
	return dimStyle.Render("type JSON arguments")
}
