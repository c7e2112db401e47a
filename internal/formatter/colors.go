package formatter

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/plsync/internal/models"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	muted lipgloss.Style
}

func NewPalette(t, s, e, w, m string) *Palette {
	return &Palette{
		title: NewBold(t),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		muted: NewEm(m),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

// Status paints a plan status: changes in green, rebuilds in orange, skips muted.
func (p *Palette) Status(s models.PlanStatus) string {
	switch s {
	case models.StatusPlanned:
		return p.ok.Render(string(s))
	case models.StatusClearAndRebuild:
		return p.warn.Render(string(s))
	default:
		return p.muted.Render(string(s))
	}
}

// Outcome paints the run outcome line.
func (p *Palette) Outcome(r *models.ExecutionResult) string {
	if r.Succeeded() {
		return p.ok.Render("ok")
	}
	return p.err.Render("failed: " + r.Error)
}

func (p *Palette) Title(s string) string {
	return p.title.Render(s)
}
