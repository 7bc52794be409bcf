// Package tui is the terminal front end for a study session. It is a thin
// input adapter over the study controller: keys resolve through the
// declarative keymap and every state change is owned by the controller.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/PheelaV/kr-notebook-sub000/study"
)

// SyncPromptMsg asks the user whether to sync now. Reply goes back through
// the channel; y accepts, n defers.
type SyncPromptMsg struct {
	PendingCount int
	Reply        chan<- bool
}

// Model is the root bubbletea model for a study session.
type Model struct {
	controller *study.Controller
	keymap     study.Keymap

	// typed answer, preserved across store failures so a retry does not
	// lose input
	input string

	result       *study.ReviewResult
	hint         string
	errorMessage string

	prompt *SyncPromptMsg

	width  int
	height int
}

// New creates a model over an initialized controller.
func New(controller *study.Controller) Model {
	return Model{
		controller: controller,
		keymap:     study.DefaultKeymap(),
	}
}

func (m Model) Init() tea.Cmd {
	m.controller.Start()
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case SyncPromptMsg:
		m.prompt = &msg
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.prompt != nil {
		switch key {
		case "y", "Y":
			m.prompt.Reply <- true
			m.prompt = nil
		case "n", "N", "esc":
			m.prompt.Reply <- false
			m.prompt = nil
		}
		return m, nil
	}

	switch m.keymap.Resolve(m.controller.State(), key) {
	case study.ActionQuit:
		m.controller.Stop()
		return m, tea.Quit

	case study.ActionSubmit:
		result, err := m.controller.SubmitAnswer(context.Background(), m.input)
		if err != nil {
			// The typed answer stays put so a retry loses nothing.
			m.errorMessage = "could not save the review, press enter to retry"
			return m, nil
		}
		m.result = result
		m.errorMessage = ""
		return m, nil

	case study.ActionNext:
		if m.controller.Next() == nil {
			return m, tea.Quit
		}
		m.input = ""
		m.result = nil
		m.hint = ""
		return m, nil

	case study.ActionHint:
		m.hint = m.controller.ShowHint()
		return m, nil

	case study.ActionOverride:
		quality := int(key[0] - '0')
		result, err := m.controller.SubmitOverride(context.Background(), quality)
		if err != nil {
			m.errorMessage = "could not save the override, press the digit to retry"
			return m, nil
		}
		m.result = result
		m.errorMessage = ""
		return m, nil
	}

	// Unbound keys while a card is shown edit the answer.
	if m.controller.State() == study.StateActive {
		switch msg.Type {
		case tea.KeyRunes:
			m.input += string(msg.Runes)
		case tea.KeySpace:
			m.input += " "
		case tea.KeyBackspace:
			if len(m.input) > 0 {
				runes := []rune(m.input)
				m.input = string(runes[:len(runes)-1])
			}
		}
	}
	return m, nil
}

func (m Model) View() string {
	var sections []string

	sections = append(sections, titleStyle.Render("krnote study"))
	if m.controller.Stale() {
		sections = append(sections, staleStyle.Render("session is stale; it will refresh after the next sync"))
	}

	switch m.controller.State() {
	case study.StateActive:
		sections = append(sections, m.renderCard())
	case study.StateResultShown:
		sections = append(sections, m.renderCard(), m.renderResult())
	case study.StateComplete:
		sections = append(sections, m.renderSummary())
	}

	if m.errorMessage != "" {
		sections = append(sections, errorStyle.Render(m.errorMessage))
	}
	if m.prompt != nil {
		sections = append(sections, promptStyle.Render(
			fmt.Sprintf("back online with %d pending reviews, sync now? [y/n]", m.prompt.PendingCount)))
	}
	sections = append(sections, m.renderStatusBar())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderCard() string {
	card := m.controller.Current()
	if card == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(frontStyle.Render(card.Front))
	if card.Description != "" {
		b.WriteString("\n" + descriptionStyle.Render(card.Description))
	}
	if m.hint != "" {
		b.WriteString("\n" + hintStyle.Render("hint: "+m.hint))
	}
	b.WriteString("\n> " + inputStyle.Render(m.input))
	return b.String()
}

func (m Model) renderResult() string {
	if m.result == nil {
		return ""
	}
	if m.result.Validation.IsCorrect {
		line := correctStyle.Render("correct")
		if m.result.SuggestedAnswer != "" {
			line += statusStyle.Render("  (exactly: " + m.result.SuggestedAnswer + ")")
		}
		return line
	}
	return incorrectStyle.Render("incorrect") +
		statusStyle.Render("  answer: "+m.result.SuggestedAnswer) +
		"\n" + statusStyle.Render("enter for next, 0-5 to override the grade")
}

func (m Model) renderSummary() string {
	return fmt.Sprintf("session complete: %d/%d correct",
		m.controller.Correct(), m.controller.Answered())
}

func (m Model) renderStatusBar() string {
	return statusStyle.Render(fmt.Sprintf(
		"remaining %d · answered %d · correct %d · pending sync %d",
		m.controller.Remaining(), m.controller.Answered(),
		m.controller.Correct(), m.controller.Pending()))
}
