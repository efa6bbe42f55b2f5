// portfolio-status is a terminal dashboard over a running portfolio
// server: connection state, subsystem health, per-service call metrics,
// and the recent operation history.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF")).
			MarginLeft(2).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FFFF")).
			Padding(0, 1).
			MarginRight(2)

	onlineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)

	degradedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFF00")).
			Bold(true)

	offlineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			MarginLeft(2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginLeft(2).
			MarginTop(1)
)

type keyMap struct {
	Refresh key.Binding
	Sync    key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Sync: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "sync queue"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Refresh, k.Sync, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Refresh, k.Sync, k.Quit}}
}

// Wire shapes, matching the server's JSON.

type connectionState struct {
	Status              string        `json:"status"`
	Quality             string        `json:"quality"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	Latency             time.Duration `json:"latency_ms"`
}

type statusResponse struct {
	Connection connectionState `json:"connection"`
	Version    string          `json:"version"`
	Uptime     string          `json:"uptime"`
}

type healthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type healthResponse struct {
	Status       string                 `json:"status"`
	HealthyRatio float64                `json:"healthy_ratio"`
	Checks       map[string]healthCheck `json:"checks"`
}

type serviceMetrics struct {
	Calls  int64 `json:"calls"`
	Errors int64 `json:"errors"`
}

type servicesResponse struct {
	Services []string                  `json:"services"`
	Metrics  map[string]serviceMetrics `json:"metrics"`
}

type historyEntry struct {
	Service   string `json:"service"`
	Method    string `json:"method"`
	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
}

type snapshot struct {
	status   statusResponse
	health   healthResponse
	services servicesResponse
	history  []historyEntry
}

type tickMsg time.Time
type dataMsg snapshot
type errMsg struct{ err error }
type syncedMsg int

type model struct {
	baseURL string
	client  *http.Client

	data    snapshot
	history table.Model
	help    help.Model

	lastSync *int
	err      error
	updated  time.Time
}

func newModel(baseURL string) model {
	columns := []table.Column{
		{Title: "Service", Width: 12},
		{Title: "Method", Width: 12},
		{Title: "Status", Width: 10},
		{Title: "Error", Width: 20},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithHeight(8),
	)

	return model{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
		history: t,
		help:    help.New(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.fetch, tick())
}

func tick() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) fetch() tea.Msg {
	var snap snapshot
	if err := m.getJSON("/v1/status", &snap.status); err != nil {
		return errMsg{err}
	}
	if err := m.getJSON("/health", &snap.health); err != nil {
		return errMsg{err}
	}
	if err := m.getJSON("/v1/services", &snap.services); err != nil {
		return errMsg{err}
	}
	if err := m.getJSON("/v1/history", &snap.history); err != nil {
		return errMsg{err}
	}
	return dataMsg(snap)
}

func (m model) sync() tea.Msg {
	resp, err := m.client.Post(m.baseURL+"/v1/sync", "application/json", nil)
	if err != nil {
		return errMsg{err}
	}
	defer resp.Body.Close()

	var body struct {
		Replayed int `json:"replayed"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return errMsg{err}
	}
	return syncedMsg(body.Replayed)
}

func (m model) getJSON(path string, v any) error {
	resp, err := m.client.Get(m.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(v)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Refresh):
			return m, m.fetch
		case key.Matches(msg, keys.Sync):
			return m, m.sync
		}

	case tickMsg:
		return m, tea.Batch(m.fetch, tick())

	case dataMsg:
		m.data = snapshot(msg)
		m.err = nil
		m.updated = time.Now()

		rows := make([]table.Row, 0, len(m.data.history))
		for _, entry := range m.data.history {
			rows = append(rows, table.Row{entry.Service, entry.Method, entry.Status, entry.ErrorCode})
		}
		m.history.SetRows(rows)

	case syncedMsg:
		replayed := int(msg)
		m.lastSync = &replayed
		return m, m.fetch

	case errMsg:
		m.err = msg.err
	}

	var cmd tea.Cmd
	m.history, cmd = m.history.Update(msg)
	return m, cmd
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Portfolio Core :: Status"))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("cannot reach server: %v", m.err)))
		b.WriteString("\n")
		b.WriteString(helpStyle.Render(m.help.View(keys)))
		return b.String()
	}

	connection := boxStyle.Render(fmt.Sprintf(
		"Connection\n  status:  %s\n  quality: %s\n  latency: %dms",
		styledStatus(m.data.status.Connection.Status),
		m.data.status.Connection.Quality,
		m.data.status.Connection.Latency.Milliseconds(),
	))

	var checks []string
	for name := range m.data.health.Checks {
		checks = append(checks, name)
	}
	sort.Strings(checks)
	healthLines := []string{fmt.Sprintf("Health: %s", styledStatus(m.data.health.Status))}
	for _, name := range checks {
		check := m.data.health.Checks[name]
		line := fmt.Sprintf("  %-12s %s", name, styledStatus(check.Status))
		if check.Message != "" {
			line += " (" + check.Message + ")"
		}
		healthLines = append(healthLines, line)
	}
	healthBox := boxStyle.Render(strings.Join(healthLines, "\n"))

	serviceLines := []string{"Services"}
	for _, name := range m.data.services.Services {
		sm := m.data.services.Metrics[name]
		serviceLines = append(serviceLines,
			fmt.Sprintf("  %-10s calls %-5d errors %d", name, sm.Calls, sm.Errors))
	}
	servicesBox := boxStyle.Render(strings.Join(serviceLines, "\n"))

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, connection, healthBox, servicesBox))
	b.WriteString("\n\n")
	b.WriteString(m.history.View())
	b.WriteString("\n")

	footer := fmt.Sprintf("updated %s", m.updated.Format("15:04:05"))
	if m.lastSync != nil {
		footer += fmt.Sprintf(" · last sync replayed %d", *m.lastSync)
	}
	b.WriteString(helpStyle.Render(footer))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help.View(keys)))
	return b.String()
}

func styledStatus(status string) string {
	switch status {
	case "online", "healthy", "excellent", "good":
		return onlineStyle.Render(status)
	case "unstable", "reconnecting", "degraded", "poor":
		return degradedStyle.Render(status)
	default:
		return offlineStyle.Render(status)
	}
}

func main() {
	baseURL := flag.String("server", "http://localhost:8090", "Portfolio server URL")
	flag.Parse()

	program := tea.NewProgram(newModel(*baseURL), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "portfolio-status: %v\n", err)
		os.Exit(1)
	}
}
