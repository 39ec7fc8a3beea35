// Package ui is the interactive terminal demo: paste an abstract, classify
// it, read it back grouped by rhetorical role.
package ui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/crimson-sun/skimmer/internal/device"
	"github.com/crimson-sun/skimmer/internal/engine/taxonomy"
	"github.com/crimson-sun/skimmer/internal/inference"
)

// NoTextMessage is shown when Classify is pressed on an empty input.
const NoTextMessage = "No text data given"

// Page is one screen of the demo.
type Page int

const (
	PageHome Page = iota
	PageArchitecture
	PageAbout
)

var pageTitles = []string{"Home", "Architecture and details", "About"}

func (p Page) String() string { return pageTitles[p] }

// Classifier classifies one abstract.
type Classifier interface {
	Classify(ctx context.Context, text string) (inference.Result, error)
}

// Info describes the loaded model for the architecture page.
type Info struct {
	Variant string
	RunID   string
	Summary string
}

type (
	classifiedMsg struct {
		res inference.Result
		err error
	}
	usageMsg      struct{ text string }
	hideNoticeMsg struct{}
)

// Model is the bubbletea model of the demo.
type Model struct {
	clf  Classifier
	info Info

	page    Page
	input   textarea.Model
	results viewport.Model

	result  *inference.Result
	errText string
	busy    bool

	usage      string
	copyNotice bool
	copyFn     func(string) error
	sample     func(context.Context) (device.Usage, error)

	width, height int
}

// New creates the demo model.
func New(clf Classifier, info Info) Model {
	input := textarea.New()
	input.Placeholder = "Paste an abstract here..."
	input.ShowLineNumbers = false
	input.CharLimit = 0
	input.SetWidth(76)
	input.SetHeight(8)
	input.Focus()

	return Model{
		clf:     clf,
		info:    info,
		input:   input,
		results: viewport.New(76, 12),
		copyFn:  clipboard.WriteAll,
		sample:  device.Sample,
	}
}

// Run starts the program and blocks until the user quits.
func Run(clf Classifier, info Info) error {
	_, err := tea.NewProgram(New(clf, info), tea.WithAltScreen()).Run()
	return err
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.updateUsage())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyTab:
			m.page = (m.page + 1) % Page(len(pageTitles))
			return m, nil
		case tea.KeyShiftTab:
			m.page = (m.page + Page(len(pageTitles)) - 1) % Page(len(pageTitles))
			return m, nil
		case tea.KeyCtrlS:
			if m.page == PageHome && !m.busy {
				return m.submit()
			}
			return m, nil
		case tea.KeyCtrlY:
			if m.result != nil {
				if err := m.copyFn(FormatResult(*m.result)); err == nil {
					m.copyNotice = true
					return m, hideNoticeAfter(2 * time.Second)
				}
			}
			return m, nil
		case tea.KeyCtrlL:
			m.input.Reset()
			m.result = nil
			m.errText = ""
			m.results.SetContent("")
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		w := max(msg.Width-4, 20)
		m.input.SetWidth(w)
		m.results.Width = w
		m.results.Height = max(msg.Height-m.input.Height()-10, 4)
		if m.result != nil {
			m.results.SetContent(renderSections(*m.result, w))
		}

	case classifiedMsg:
		m.busy = false
		if msg.err != nil {
			m.result = nil
			if errors.Is(msg.err, inference.ErrNoInput) {
				m.errText = NoTextMessage
			} else {
				m.errText = msg.err.Error()
			}
			return m, nil
		}
		m.errText = ""
		m.result = &msg.res
		m.results.SetContent(renderSections(msg.res, m.results.Width))
		m.results.GotoTop()
		return m, nil

	case usageMsg:
		m.usage = msg.text
		return m, m.updateUsage()

	case hideNoticeMsg:
		m.copyNotice = false
		return m, nil
	}

	if m.page == PageHome {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
		m.results, cmd = m.results.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	if strings.TrimSpace(text) == "" {
		m.result = nil
		m.errText = NoTextMessage
		return m, nil
	}
	m.busy = true
	m.errText = ""
	clf := m.clf
	return m, func() tea.Msg {
		res, err := clf.Classify(context.Background(), text)
		return classifiedMsg{res: res, err: err}
	}
}

func (m Model) updateUsage() tea.Cmd {
	sample := m.sample
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		u, err := sample(context.Background())
		if err != nil {
			return usageMsg{text: ""}
		}
		return usageMsg{text: u.String()}
	})
}

func hideNoticeAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return hideNoticeMsg{} })
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Skimmer: sequential sentence classification"))
	b.WriteString("\n")
	b.WriteString(m.tabs())
	b.WriteString("\n\n")

	switch m.page {
	case PageHome:
		b.WriteString(m.homeView())
	case PageArchitecture:
		b.WriteString(m.architectureView())
	case PageAbout:
		b.WriteString(aboutText)
	}

	b.WriteString("\n")
	b.WriteString(m.footer())
	return b.String()
}

func (m Model) tabs() string {
	parts := make([]string, len(pageTitles))
	for i, title := range pageTitles {
		if Page(i) == m.page {
			parts[i] = activeTabStyle.Render(title)
		} else {
			parts[i] = tabStyle.Render(title)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) homeView() string {
	var b strings.Builder
	b.WriteString(inputStyle.Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("ctrl+s classify | ctrl+y copy | ctrl+l clear | tab switch page | esc quit"))
	b.WriteString("\n")
	switch {
	case m.busy:
		b.WriteString("Classifying...")
	case m.errText != "":
		b.WriteString(errorStyle.Render(m.errText))
	case m.result != nil:
		b.WriteString(resultStyle.Render(m.results.View()))
	}
	return b.String()
}

func (m Model) architectureView() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Variant: %s\n", m.info.Variant)
	if m.info.RunID != "" {
		fmt.Fprintf(&b, "Run: %s\n", m.info.RunID)
	}
	b.WriteString("\n")
	b.WriteString(m.info.Summary)
	b.WriteString("\n\nRoles:\n")
	for _, r := range taxonomy.Default() {
		fmt.Fprintf(&b, "  %s  %s\n", roleStyle.Render(r.Name), r.Desc)
	}
	return b.String()
}

func (m Model) footer() string {
	text := m.usage
	if text == "" {
		text = "model: " + m.info.Variant
	}
	if m.copyNotice {
		text += " " + copyNoticeStyle.Render("Copied to clipboard")
	}
	return footerStyle.Render(text)
}

// FormatResult renders a classification as plain text, one role heading per
// non-empty section in reading order.
func FormatResult(res inference.Result) string {
	var b strings.Builder
	for _, role := range orderedRoles(res) {
		fmt.Fprintf(&b, "%s\n%s\n\n", role, strings.Join(res.Sections[role], " "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderSections(res inference.Result, width int) string {
	body := lipgloss.NewStyle().Width(max(width-2, 10))
	var b strings.Builder
	for _, role := range orderedRoles(res) {
		b.WriteString(roleStyle.Render(role))
		b.WriteString("\n")
		b.WriteString(body.Render(strings.Join(res.Sections[role], " ")))
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func orderedRoles(res inference.Result) []string {
	var roles []string
	for role, sents := range res.Sections {
		if len(sents) > 0 {
			roles = append(roles, role)
		}
	}
	slices.Sort(roles)
	return taxonomy.Order(roles)
}

const aboutText = `Skimmer classifies each sentence of a randomized controlled trial
abstract as BACKGROUND, OBJECTIVE, METHODS, RESULTS or CONCLUSIONS and
regroups the abstract by role, so it can be skimmed section by section.

The default model combines three views of every sentence: its words, its
characters and its position in the abstract. It is trained on the PubMed
200k RCT corpus of structured abstracts.
`
