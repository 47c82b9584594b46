package browse

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nik45114/hhbot/internal/model"
)

// Lines per vacancy item in the list view (title + subtitle + blank separator).
const itemHeight = 3

// applyTimeout bounds the detail fetch plus apply round trip.
const applyTimeout = 2 * time.Minute

type viewState int

const (
	viewList viewState = iota
	viewDetail
)

var (
	activeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("39")) // bright blue

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Foreground(lipgloss.Color("39"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	itemTitleStyle = lipgloss.NewStyle().
			Bold(true)

	itemSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245"))

	selectedTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")). // bright white
				Background(lipgloss.Color("24"))  // dark blue bg

	selectedSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("24"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Width(16)

	detailValueStyle = lipgloss.NewStyle()

	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				MarginBottom(1)

	dividerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	bodyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

// detailFetchedMsg is sent when an async detail fetch completes.
type detailFetchedMsg struct {
	vacancyID string
	detail    *model.VacancyDetail
}

// appliedMsg is sent when an async apply completes.
type appliedMsg struct {
	vacancyID string
	result    model.ApplyResult
	err       error
}

// skippedMsg is sent when an async skip completes.
type skippedMsg struct {
	vacancyID string
	err       error
}

type browseModel struct {
	session   *Session
	vacancies []model.Vacancy
	details   map[string]*model.VacancyDetail
	statuses  map[string]string // per-vacancy outcome line
	cursor    int
	width     int
	height    int
	ready     bool

	listViewport   viewport.Model
	detailViewport viewport.Model

	view            viewState
	detailID        string
	detailLoading   bool
	applying        bool
	showDescription bool
}

func (m browseModel) Init() tea.Cmd {
	return nil
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		if m.view == viewDetail {
			m.detailViewport.Width = m.width - 4
			m.detailViewport.Height = m.height - 4
			m.detailViewport.SetContent(m.renderDetail())
		}
		return m, nil

	case detailFetchedMsg:
		m.detailLoading = false
		m.details[msg.vacancyID] = msg.detail
		if m.view == viewDetail && m.detailID == msg.vacancyID {
			m.detailViewport.SetContent(m.renderDetail())
		}
		return m, nil

	case appliedMsg:
		m.applying = false
		if msg.err != nil {
			m.statuses[msg.vacancyID] = fmt.Sprintf("apply error: %v", msg.err)
		} else if msg.result.Outcome.OK() {
			m.statuses[msg.vacancyID] = "applied ✓"
		} else {
			m.statuses[msg.vacancyID] = fmt.Sprintf("apply failed (%s): %s", msg.result.Outcome, msg.result.Message)
		}
		if m.view == viewDetail && m.detailID == msg.vacancyID {
			m.detailViewport.SetContent(m.renderDetail())
		}
		m.recalcContent()
		return m, nil

	case skippedMsg:
		if msg.err != nil {
			m.statuses[msg.vacancyID] = fmt.Sprintf("skip error: %v", msg.err)
		} else {
			m.statuses[msg.vacancyID] = "skipped"
		}
		if m.view == viewDetail && m.detailID == msg.vacancyID {
			m.view = viewList
		}
		m.recalcContent()
		return m, nil

	case tea.KeyMsg:
		if m.view == viewDetail {
			return m.updateDetailView(msg)
		}
		return m.updateListView(msg)
	}

	return m, nil
}

func (m browseModel) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		m.moveCursor(-1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "down", "j":
		m.moveCursor(1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "a":
		return m.startApply(m.currentVacancy())
	case "s":
		return m.startSkip(m.currentVacancy())
	case "enter":
		return m.openDetailView()
	}

	// Forward other keys (pgup/pgdn/home/end) to the viewport.
	var cmd tea.Cmd
	m.listViewport, cmd = m.listViewport.Update(msg)
	return m, cmd
}

func (m browseModel) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewList
		m.recalcContent()
		return m, nil
	case "o":
		if v := m.vacancyByID(m.detailID); v != nil {
			openURL(v.URL)
		}
		return m, nil
	case "r":
		if d := m.details[m.detailID]; d != nil && d.Description != "" {
			m.showDescription = !m.showDescription
			m.detailViewport.SetContent(m.renderDetail())
			m.detailViewport.SetYOffset(0)
		}
		return m, nil
	case "a":
		if v := m.vacancyByID(m.detailID); v != nil {
			return m.startApply(v)
		}
		return m, nil
	case "s":
		if v := m.vacancyByID(m.detailID); v != nil {
			return m.startSkip(v)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

func (m browseModel) startApply(v *model.Vacancy) (tea.Model, tea.Cmd) {
	if v == nil || m.applying || m.statuses[v.ID] != "" {
		return m, nil
	}
	m.applying = true
	m.statuses[v.ID] = "applying..."
	m.recalcContent()
	if m.view == viewDetail {
		m.detailViewport.SetContent(m.renderDetail())
	}

	session := m.session
	vacancy := *v
	detail := m.details[v.ID]
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), applyTimeout)
		defer cancel()
		if detail == nil {
			detail = session.Detail(ctx, vacancy.ID)
		}
		res, err := session.Apply(ctx, vacancy, detail)
		return appliedMsg{vacancyID: vacancy.ID, result: res, err: err}
	}
}

func (m browseModel) startSkip(v *model.Vacancy) (tea.Model, tea.Cmd) {
	if v == nil || m.statuses[v.ID] != "" {
		return m, nil
	}
	session := m.session
	vacancy := *v
	return m, func() tea.Msg {
		return skippedMsg{vacancyID: vacancy.ID, err: session.Skip(vacancy)}
	}
}

func (m browseModel) openDetailView() (tea.Model, tea.Cmd) {
	v := m.currentVacancy()
	if v == nil {
		return m, nil
	}

	m.view = viewDetail
	m.detailID = v.ID
	m.showDescription = false
	m.detailViewport = viewport.New(m.width-4, m.height-4)
	m.detailViewport.SetContent(m.renderDetail())

	if _, fetched := m.details[v.ID]; !fetched {
		m.detailLoading = true
		session := m.session
		id := v.ID
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), applyTimeout)
			defer cancel()
			return detailFetchedMsg{vacancyID: id, detail: session.Detail(ctx, id)}
		}
	}

	return m, nil
}

func (m *browseModel) moveCursor(delta int) {
	m.cursor = clamp(m.cursor+delta, 0, max(len(m.vacancies)-1, 0))
}

func (m *browseModel) ensureCursorVisible() {
	cursorTop := m.cursor * itemHeight
	cursorBottom := cursorTop + itemHeight - 1

	if cursorTop < m.listViewport.YOffset {
		m.listViewport.SetYOffset(cursorTop)
	} else if cursorBottom >= m.listViewport.YOffset+m.listViewport.Height {
		m.listViewport.SetYOffset(cursorBottom - m.listViewport.Height + 1)
	}
}

func (m browseModel) currentVacancy() *model.Vacancy {
	if len(m.vacancies) == 0 {
		return nil
	}
	v := m.vacancies[m.cursor]
	return &v
}

func (m browseModel) vacancyByID(id string) *model.Vacancy {
	for i := range m.vacancies {
		if m.vacancies[i].ID == id {
			return &m.vacancies[i]
		}
	}
	return nil
}

func (m *browseModel) recalcLayout() {
	paneWidth := max(m.width-2, 20)
	// Header (1 line) + border top/bottom (2) + status bar (1) = 4 lines overhead.
	paneHeight := max(m.height-4, 5)

	if !m.ready {
		m.listViewport = viewport.New(paneWidth, paneHeight)
		m.ready = true
	} else {
		m.listViewport.Width = paneWidth
		m.listViewport.Height = paneHeight
	}

	m.recalcContent()
}

func (m *browseModel) recalcContent() {
	m.listViewport.SetContent(renderVacancies(m.vacancies, m.statuses, m.cursor))
}

func (m browseModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.view == viewDetail {
		return m.viewDetail()
	}

	return m.viewList()
}

func (m browseModel) viewList() string {
	header := headerStyle.Render(fmt.Sprintf(" New Vacancies (%d)", len(m.vacancies)))
	pane := activeBorderStyle.Width(m.listViewport.Width).Render(m.listViewport.View())

	statusText := " ↑/↓ cursor  Enter detail  a apply  s skip  q quit"
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return header + "\n" + pane + "\n" + statusBar
}

func (m browseModel) viewDetail() string {
	title := detailTitleStyle.Render("Vacancy Details")
	if m.detailLoading {
		title += "  (loading...)"
	}

	border := activeBorderStyle.Width(m.width - 2)
	content := border.Render(m.detailViewport.View())

	statusText := " a apply  s skip  o open URL  esc back  ↑/↓ scroll  q quit"
	if d := m.details[m.detailID]; d != nil && d.Description != "" {
		statusText = " a apply  s skip  o open URL  r desc  esc back  ↑/↓ scroll  q quit"
	}
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return title + "\n" + content + "\n" + statusBar
}

func (m browseModel) renderDetail() string {
	v := m.vacancyByID(m.detailID)
	if v == nil {
		return ""
	}
	var b strings.Builder

	addField := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(detailLabelStyle.Render(label))
		b.WriteString(detailValueStyle.Render(value))
		b.WriteByte('\n')
	}

	addField("Title", v.Title)
	addField("Employer", v.Employer)
	addField("Area", v.Area)
	addField("Vacancy ID", v.ID)
	addField("Salary", formatSalary(*v))
	if v.PublishedAt != nil {
		addField("Published", v.PublishedAt.Format("2006-01-02 15:04"))
	}

	d := m.details[m.detailID]
	if d != nil {
		addField("Experience", d.Experience)
		addField("Employment", d.Employment)
		if len(d.KeySkills) > 0 {
			addField("Key Skills", strings.Join(d.KeySkills, ", "))
		}
	}

	b.WriteByte('\n')
	addField("URL", v.URL)

	if status := m.statuses[v.ID]; status != "" {
		b.WriteByte('\n')
		st := successStyle
		if strings.Contains(status, "fail") || strings.Contains(status, "error") {
			st = errorStyle
		}
		b.WriteString(st.Render("  "+status) + "\n")
	}

	wrapWidth := max(m.width-8, 20)
	if d != nil && d.Description != "" {
		b.WriteByte('\n')
		if m.showDescription {
			fill := strings.Repeat("─", max(wrapWidth-len("── Description "), 3))
			b.WriteString(dividerStyle.Render("── Description "+fill) + "\n\n")
			b.WriteString(bodyStyle.Render(wordWrap(d.Description, wrapWidth)) + "\n")
		} else {
			b.WriteString(hintStyle.Render("  press r to read the description") + "\n")
		}
	} else if m.detailLoading {
		b.WriteByte('\n')
		b.WriteString(hintStyle.Render("  loading description...") + "\n")
	} else if fetched, ok := m.details[m.detailID]; ok && fetched == nil {
		b.WriteByte('\n')
		b.WriteString(hintStyle.Render("  description unavailable") + "\n")
	}

	return b.String()
}

func formatSalary(v model.Vacancy) string {
	switch {
	case v.SalaryFrom > 0 && v.SalaryTo > 0:
		return fmt.Sprintf("%d - %d %s", v.SalaryFrom, v.SalaryTo, v.Currency)
	case v.SalaryFrom > 0:
		return fmt.Sprintf("from %d %s", v.SalaryFrom, v.Currency)
	case v.SalaryTo > 0:
		return fmt.Sprintf("up to %d %s", v.SalaryTo, v.Currency)
	default:
		return ""
	}
}

func renderVacancies(vacancies []model.Vacancy, statuses map[string]string, cursor int) string {
	if len(vacancies) == 0 {
		return "  (no new vacancies)"
	}

	var b strings.Builder
	for i, v := range vacancies {
		isSelected := i == cursor

		titleSt := itemTitleStyle
		subtitleSt := itemSubtitleStyle
		prefix := "  "
		if isSelected {
			titleSt = selectedTitleStyle
			subtitleSt = selectedSubtitleStyle
			prefix = "> "
		}

		b.WriteString(prefix)
		b.WriteString(titleSt.Render(v.Title))
		b.WriteByte('\n')

		subtitle := v.Employer
		if v.Area != "" {
			subtitle += " · " + v.Area
		}
		if s := formatSalary(v); s != "" {
			subtitle += " · " + s
		}
		if status := statuses[v.ID]; status != "" {
			subtitle += " · " + status
		}
		b.WriteString(prefix)
		b.WriteString(subtitleSt.Render(subtitle))
		b.WriteByte('\n')

		if i < len(vacancies)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func sortByPublished(vacancies []model.Vacancy) {
	sort.Slice(vacancies, func(i, j int) bool {
		if vacancies[i].PublishedAt == nil && vacancies[j].PublishedAt == nil {
			return false
		}
		if vacancies[i].PublishedAt == nil {
			return false
		}
		if vacancies[j].PublishedAt == nil {
			return true
		}
		return vacancies[i].PublishedAt.After(*vacancies[j].PublishedAt)
	})
}

func wordWrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) <= width {
			line += " " + w
		} else {
			lines = append(lines, line)
			line = w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openURL opens url in the default system browser, fire-and-forget.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// RunTUI launches the interactive accept/skip TUI over the given
// vacancies. Returns when the user quits.
func RunTUI(session *Session, vacancies []model.Vacancy) error {
	sortByPublished(vacancies)

	m := browseModel{
		session:   session,
		vacancies: vacancies,
		details:   make(map[string]*model.VacancyDetail),
		statuses:  make(map[string]string),
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
