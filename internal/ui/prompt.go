package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
)

// LinePrompter asks for the storage location on a plain terminal line. An
// empty answer accepts the suggestion; "q" or end of input cancels.
type LinePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{in: bufio.NewReader(in), out: out}
}

type lineResult struct {
	line string
	err  error
}

func (p *LinePrompter) PromptLocation(ctx context.Context, suggested string) (string, bool, error) {
	fmt.Fprintf(p.out, "Select location for memorized words [%s] (q to cancel): ", suggested)

	result := make(chan lineResult, 1)
	go func() {
		line, err := p.in.ReadString('\n')
		result <- lineResult{line: line, err: err}
	}()

	var r lineResult
	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case r = <-result:
	}

	answer := strings.TrimSpace(r.line)
	if r.err != nil && !errors.Is(r.err, io.EOF) {
		return "", false, r.err
	}
	if errors.Is(r.err, io.EOF) && answer == "" {
		return "", false, nil
	}
	if strings.EqualFold(answer, "q") {
		return "", false, nil
	}
	if answer == "" {
		answer = suggested
	}
	return ExpandPath(answer), true, nil
}

// ExpandPath resolves a leading ~ to the home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

type promptReply struct {
	path string
	ok   bool
}

type promptRequestMsg struct {
	suggested string
	reply     chan<- promptReply
}

// Prompter asks for the storage location inside the running card view.
type Prompter struct {
	mutex   sync.Mutex
	program *tea.Program
}

func NewPrompter() *Prompter {
	return &Prompter{}
}

func (p *Prompter) Attach(program *tea.Program) {
	p.mutex.Lock()
	p.program = program
	p.mutex.Unlock()
}

func (p *Prompter) PromptLocation(ctx context.Context, suggested string) (string, bool, error) {
	p.mutex.Lock()
	program := p.program
	p.mutex.Unlock()
	if program == nil {
		return "", false, errors.New("interactive view is not running")
	}

	reply := make(chan promptReply, 1)
	program.Send(promptRequestMsg{suggested: suggested, reply: reply})

	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case r := <-reply:
		log.Debug().Bool("selected", r.ok).Msg("Storage location prompt answered")
		if !r.ok {
			return "", false, nil
		}
		return ExpandPath(r.path), true, nil
	}
}
