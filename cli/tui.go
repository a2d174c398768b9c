package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fahmaliyi/pwvault/vault"
)

type tuiState int

const (
	stateTable tuiState = iota
	stateAdd
	stateConfirm
)

type model struct {
	vault      *vault.Manager
	sess       *vault.Session
	master     []byte
	entries    []vault.EntryInfo
	cursor     int
	state      tuiState
	input      textinput.Model
	pending    func() string // runs on "y" in stateConfirm
	question   string
	msg        string
	copy       func(string) error
	clearAfter time.Duration
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Underline(true)
	msgStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	selectedStyle = lipgloss.NewStyle().Background(lipgloss.Color("57")).Foreground(lipgloss.Color("0"))
)

func newModel(m *vault.Manager, sess *vault.Session, master []byte, clearAfter time.Duration) model {
	ti := textinput.New()
	ti.Placeholder = "Service"
	ti.CharLimit = 128

	md := model{
		vault:      m,
		sess:       sess,
		master:     master,
		input:      ti,
		copy:       clipboard.WriteAll,
		clearAfter: clearAfter,
	}
	md.refresh()
	return md
}

// RunTUI starts the interactive TUI
func RunTUI(m *vault.Manager, sess *vault.Session, master []byte, clearAfter time.Duration) error {
	p := tea.NewProgram(newModel(m, sess, master, clearAfter))
	_, err := p.Run()
	return err
}

func (m *model) refresh() {
	entries, err := m.vault.List(m.sess)
	if err != nil {
		m.msg = describeError(err)
		return
	}
	m.entries = entries
	if m.cursor >= len(m.entries) && m.cursor > 0 {
		m.cursor = len(m.entries) - 1
	}
}

func (m model) selected() (string, bool) {
	if len(m.entries) == 0 {
		return "", false
	}
	return m.entries[m.cursor].Service, true
}

// --- Tea Model interface ---
func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m.state {
	case stateTable:
		return updateTable(m, msg)
	case stateAdd:
		return updateAdd(m, msg)
	case stateConfirm:
		return updateConfirm(m, msg)
	default:
		return m, nil
	}
}

func (m model) View() string {
	switch m.state {
	case stateAdd:
		return viewAdd(m)
	case stateConfirm:
		return viewConfirm(m)
	default:
		return viewTable(m)
	}
}

// --- Table ---
func updateTable(m model, msg tea.Msg) (model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "j", "down":
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "a":
		m.state = stateAdd
		m.input.SetValue("")
		m.msg = ""
		return m, m.input.Focus()
	case "c":
		if service, ok := m.selected(); ok {
			m.msg = m.copyStored(service)
			m.refresh()
		}
	case "u":
		if service, ok := m.selected(); ok {
			m = m.ask(fmt.Sprintf("Replace the secret for %q?", service), func() string {
				secret, err := m.vault.Update(service, m.master)
				if err != nil {
					return describeError(err)
				}
				return m.copyNew(service, secret)
			})
		}
	case "d":
		if service, ok := m.selected(); ok {
			m = m.ask(fmt.Sprintf("Delete the secret for %q?", service), func() string {
				if err := m.vault.Delete(service, m.master); err != nil {
					return describeError(err)
				}
				return fmt.Sprintf("Deleted %s", service)
			})
		}
	}
	return m, nil
}

func (m model) ask(question string, action func() string) model {
	m.state = stateConfirm
	m.question = question
	m.pending = action
	return m
}

func (m model) copyStored(service string) string {
	secret, err := m.vault.Get(service, m.master)
	if err != nil {
		return describeError(err)
	}
	if err := copySecret(m.copy, secret, m.clearAfter); err != nil {
		return "Clipboard unavailable: " + err.Error()
	}
	return fmt.Sprintf("Secret for %s copied! (clears in %s)", service, m.clearAfter)
}

func (m model) copyNew(service string, secret []byte) string {
	if err := copySecret(m.copy, secret, m.clearAfter); err != nil {
		return "Clipboard unavailable: " + err.Error()
	}
	return fmt.Sprintf("New secret for %s copied! (clears in %s)", service, m.clearAfter)
}

func viewTable(m model) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Vault Entries") + "\n\n")
	if len(m.entries) == 0 {
		b.WriteString("No secrets stored yet\n")
	}
	for i, e := range m.entries {
		line := fmt.Sprintf("%-30s  %-19s  %-19s", e.Service, formatTime(e.UpdatedAt), formatTime(e.LastAccessedAt))
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	if m.msg != "" {
		b.WriteString("\n" + msgStyle.Render(m.msg))
	}
	b.WriteString("\nCommands: j/k=move, a=add, c=copy, u=regenerate, d=delete, q=quit")
	return b.String()
}

// --- Add ---
func updateAdd(m model, msg tea.Msg) (model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc":
			m.input.Blur()
			m.state = stateTable
			return m, nil
		case "enter":
			service := strings.TrimSpace(m.input.Value())
			m.input.Blur()
			m.state = stateTable
			if service == "" {
				return m, nil
			}
			secret, err := m.vault.Add(service, m.master, false)
			switch {
			case err == nil:
				m.msg = m.copyNew(service, secret)
				m.refresh()
			case errors.Is(err, vault.ErrDuplicateKey):
				m = m.ask(fmt.Sprintf("An entry for %q exists. Overwrite?", service), func() string {
					secret, err := m.vault.Add(service, m.master, true)
					if err != nil {
						return describeError(err)
					}
					return m.copyNew(service, secret)
				})
			default:
				m.msg = describeError(err)
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func viewAdd(m model) string {
	s := titleStyle.Render("Add New Secret") + "\n\n"
	s += fmt.Sprintf("Service: %s\n", m.input.View())
	s += "\nPress Enter to generate, Esc to cancel"
	return s
}

// --- Confirm ---
func updateConfirm(m model, msg tea.Msg) (model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "y", "Y":
		m.msg = m.pending()
	case "n", "N", "esc":
		m.msg = ""
	default:
		return m, nil
	}
	m.pending = nil
	m.question = ""
	m.state = stateTable
	m.refresh()
	return m, nil
}

func viewConfirm(m model) string {
	return m.question + " [y/n]"
}
