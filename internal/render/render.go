// Package render formats transcript turns for a terminal.
package render

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/zhouzirui/science-tutor/backend/internal/model/chat"
	"github.com/zhouzirui/science-tutor/backend/internal/service/completion"
)

var (
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	hintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
)

// Renderer writes turns to a terminal. Markdown in assistant turns is rendered
// with glamour when Markdown is enabled; otherwise content is written verbatim.
type Renderer struct {
	out      io.Writer
	markdown *glamour.TermRenderer
}

// New creates a renderer. When markdown is false, or glamour cannot be
// initialized, assistant turns are printed as plain text.
func New(out io.Writer, markdown bool, wordWrap int) *Renderer {
	r := &Renderer{out: out}
	if !markdown {
		return r
	}

	tr, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wordWrap),
	)
	if err == nil {
		r.markdown = tr
	}
	return r
}

// Turn writes a single turn with its role label.
func (r *Renderer) Turn(turn chat.Turn) {
	switch turn.Role {
	case chat.RoleUser:
		fmt.Fprintf(r.out, "%s %s\n", userStyle.Render("You:"), turn.Content)
	case chat.RoleAssistant:
		fmt.Fprintln(r.out, assistantStyle.Render("Tutor:"))
		fmt.Fprintln(r.out, r.markdownOrPlain(turn.Content))
	}
}

// Transcript writes every turn in order.
func (r *Renderer) Transcript(turns []chat.Turn) {
	if len(turns) == 0 {
		fmt.Fprintln(r.out, hintStyle.Render("(no questions yet)"))
		return
	}
	for _, t := range turns {
		r.Turn(t)
	}
}

// Error writes err and, for upstream failures, the likely causes.
func (r *Renderer) Error(err error) {
	fmt.Fprintf(r.out, "%s %v\n", errorStyle.Render("Error generating response:"), err)

	var upstream *completion.UpstreamError
	if errors.As(err, &upstream) {
		fmt.Fprintln(r.out, hintStyle.Render(upstream.Hint()))
	}
}

func (r *Renderer) markdownOrPlain(content string) string {
	if r.markdown == nil {
		return content
	}
	rendered, err := r.markdown.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(rendered, "\n")
}
