// Package ui is the terminal front end: a card view that shows the current
// word and reacts to single key presses.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"vocabbar/internal/draw"
	"vocabbar/internal/memorized"
	"vocabbar/internal/sheets"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
)

type mode int

const (
	viewing mode = iota
	choosingLocation
	enteringLink
)

// ConfigureFunc validates and switches to the sheet behind a link.
type ConfigureFunc func(ctx context.Context, link string) (string, error)

type changedMsg struct{}

type memorizeDoneMsg struct{ err error }

type storageResetMsg struct {
	path string
	err  error
}

type configureDoneMsg struct {
	sheetID string
	err     error
}

type Model struct {
	ctx          context.Context
	orchestrator *draw.Orchestrator
	store        *memorized.Store
	configure    ConfigureFunc

	snapshot draw.Snapshot
	notice   string
	mode     mode
	input    string
	pending  chan<- promptReply
}

func NewModel(ctx context.Context, orchestrator *draw.Orchestrator, store *memorized.Store, configure ConfigureFunc) Model {
	return Model{
		ctx:          ctx,
		orchestrator: orchestrator,
		store:        store,
		configure:    configure,
		snapshot:     orchestrator.Snapshot(),
	}
}

func (m Model) Init() tea.Cmd {
	return func() tea.Msg {
		m.orchestrator.Start(m.ctx)
		return changedMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case changedMsg:
		m.snapshot = m.orchestrator.Snapshot()
		return m, nil

	case promptRequestMsg:
		if m.pending != nil {
			msg.reply <- promptReply{}
			return m, nil
		}
		m.mode = choosingLocation
		m.input = msg.suggested
		m.pending = msg.reply
		return m, nil

	case memorizeDoneMsg:
		m.snapshot = m.orchestrator.Snapshot()
		if msg.err == nil {
			m.notice = fmt.Sprintf("%d words memorized", m.store.Len())
		}
		return m, nil

	case storageResetMsg:
		switch {
		case errors.Is(msg.err, memorized.ErrStorageUnselected):
			m.notice = "Storage location unchanged"
		case msg.err != nil:
			m.notice = draw.StatusMessage(msg.err)
		default:
			m.notice = "Memorized words now saved to " + msg.path
		}
		return m, nil

	case configureDoneMsg:
		if msg.err != nil {
			m.notice = configureMessage(msg.err)
		} else {
			m.notice = "Now drawing words from sheet " + msg.sheetID
		}
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.cancelPrompt()
			return m, tea.Quit
		}
		if m.mode != viewing {
			return m.updateInput(msg)
		}
		return m.updateViewing(msg)
	}

	return m, nil
}

func (m Model) updateViewing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit

	case "n":
		m.notice = ""
		m.orchestrator.Request(m.ctx)
		m.snapshot = m.orchestrator.Snapshot()
		return m, nil

	case "m":
		if m.snapshot.State != draw.WordReady {
			m.notice = draw.StatusMessage(draw.ErrNotReady)
			return m, nil
		}
		m.notice = ""
		return m, func() tea.Msg {
			_, err := m.orchestrator.Memorize(m.ctx)
			return memorizeDoneMsg{err: err}
		}

	case "s":
		if m.snapshot.Entry.Word != "" {
			m.notice = sheets.SearchURL(m.snapshot.Entry.Word)
		}
		return m, nil

	case "r":
		m.notice = ""
		return m, func() tea.Msg {
			path, err := m.store.ResetStorageLocation(m.ctx)
			return storageResetMsg{path: path, err: err}
		}

	case "c":
		m.mode = enteringLink
		m.input = ""
		m.notice = ""
		return m, nil
	}

	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		if m.mode == choosingLocation {
			m.answerPrompt(promptReply{})
		}
		m.mode = viewing
		m.input = ""
		return m, nil

	case tea.KeyEnter:
		input := strings.TrimSpace(m.input)
		current := m.mode
		m.mode = viewing
		m.input = ""

		if current == choosingLocation {
			m.answerPrompt(promptReply{path: input, ok: input != ""})
			return m, nil
		}
		if input == "" {
			return m, nil
		}
		m.notice = "Checking sheet..."
		return m, func() tea.Msg {
			id, err := m.configure(m.ctx, input)
			return configureDoneMsg{sheetID: id, err: err}
		}

	case tea.KeyBackspace:
		if runes := []rune(m.input); len(runes) > 0 {
			m.input = string(runes[:len(runes)-1])
		}
		return m, nil

	case tea.KeySpace:
		m.input += " "
		return m, nil

	case tea.KeyRunes:
		m.input += string(msg.Runes)
		return m, nil
	}

	return m, nil
}

func (m *Model) answerPrompt(reply promptReply) {
	if m.pending == nil {
		return
	}
	m.pending <- reply
	m.pending = nil
}

func (m *Model) cancelPrompt() {
	m.answerPrompt(promptReply{})
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(RenderCard(m.snapshot))
	b.WriteString("\n")

	switch m.mode {
	case choosingLocation:
		b.WriteString("Select location for memorized words:\n> " + m.input + "\n")
		b.WriteString(RenderHelp("enter: save here • esc: cancel"))
	case enteringLink:
		b.WriteString("Google Sheet link (columns Word | Meaning | Example):\n> " + m.input + "\n")
		b.WriteString(RenderHelp("enter: use this sheet • esc: cancel"))
	default:
		if m.notice != "" {
			b.WriteString(RenderNotice(m.notice) + "\n")
		}
		b.WriteString(RenderHelp("m: memorized it • n: next word • s: search • c: change sheet • r: move storage • q: quit"))
	}

	return b.String() + "\n"
}

func configureMessage(err error) string {
	switch {
	case errors.Is(err, sheets.ErrInvalidLink):
		return "Invalid Google Sheet link. Please ensure the link is correct."
	case errors.Is(err, sheets.ErrInvalidHeader):
		return "Invalid sheet format. The sheet needs 'Word', 'Meaning', and 'Example' columns."
	case errors.Is(err, sheets.ErrFetchFailed), errors.Is(err, sheets.ErrDecodeFailed):
		return "Failed to fetch data. Check the link and that the sheet is shared with anyone who has it."
	default:
		return "Could not change sheet: " + err.Error()
	}
}

// Run shows the card view until the user quits.
func Run(ctx context.Context, orchestrator *draw.Orchestrator, store *memorized.Store, configure ConfigureFunc, prompter *Prompter) error {
	program := tea.NewProgram(NewModel(ctx, orchestrator, store, configure), tea.WithAltScreen(), tea.WithContext(ctx))
	prompter.Attach(program)

	// Update may itself trigger a change, so the notice is delivered from a
	// separate goroutine and the model reads the latest snapshot.
	orchestrator.OnChange(func(draw.Snapshot) {
		go program.Send(changedMsg{})
	})

	log.Debug().Msg("Starting card view")
	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
