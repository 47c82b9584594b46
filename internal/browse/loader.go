package browse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nik45114/hhbot/internal/model"
)

// searchTimeout bounds the initial load; the rate gate may hold the call
// for a while before the provider request even starts.
const searchTimeout = 2 * time.Minute

var loaderFilterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

type searchDoneMsg struct {
	vacancies []model.Vacancy
	err       error
}

// filterSummary renders the subscriber's active search filters so the
// wait line says what is actually being asked for, not just the query.
func filterSummary(p model.Preferences) string {
	var parts []string
	if p.City != "" {
		parts = append(parts, p.City)
	}
	if p.RemoteOnly {
		parts = append(parts, "remote")
	} else if p.Schedule != "" {
		parts = append(parts, p.Schedule)
	}
	if p.SalaryMin > 0 {
		parts = append(parts, fmt.Sprintf("%d+", p.SalaryMin))
	}
	return strings.Join(parts, " / ")
}

type loaderModel struct {
	query    string
	filters  string
	searchFn func(ctx context.Context) ([]model.Vacancy, error)
	spin     spinner.Model
	started  time.Time
	result   []model.Vacancy
	err      error
	done     bool
}

func (m loaderModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.search())
}

func (m loaderModel) search() tea.Cmd {
	searchFn := m.searchFn
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), searchTimeout)
		defer cancel()
		vacancies, err := searchFn(ctx)
		return searchDoneMsg{vacancies: vacancies, err: err}
	}
}

func (m loaderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case searchDoneMsg:
		m.result = msg.vacancies
		m.err = msg.err
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.done = true
			m.err = fmt.Errorf("cancelled")
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m loaderModel) View() string {
	if m.done {
		if m.err != nil {
			return ""
		}
		return fmt.Sprintf("Found %d new vacancies for %q.\n", len(m.result), m.query)
	}

	line := fmt.Sprintf("%s Searching %q", m.spin.View(), m.query)
	if m.filters != "" {
		line += "  " + loaderFilterStyle.Render(m.filters)
	}
	line += loaderFilterStyle.Render(fmt.Sprintf("  %ds", int(time.Since(m.started).Seconds())))
	return line + "\n"
}

// RunLoader blocks on the initial search, drawing an inline wait line
// (no alt screen) with the subscriber's query and active filters. The
// final frame reports how many new vacancies survived dedup.
func RunLoader(s *Session, searchFn func(ctx context.Context) ([]model.Vacancy, error)) ([]model.Vacancy, error) {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))

	m := loaderModel{
		query:    s.Query(),
		filters:  filterSummary(s.prefs),
		searchFn: searchFn,
		spin:     sp,
		started:  time.Now(),
	}
	p := tea.NewProgram(m)
	result, err := p.Run()
	if err != nil {
		return nil, err
	}
	final := result.(loaderModel)
	return final.result, final.err
}
