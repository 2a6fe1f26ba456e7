// Package render formats run history, readings and post previews for the
// terminal.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/hakyung/xbots/internal/calendar"
	"github.com/hakyung/xbots/internal/fortune"
	"github.com/hakyung/xbots/internal/persistence"
	"github.com/hakyung/xbots/internal/textbudget"
)

// Mode selects the table flavour.
type Mode int

const (
	ASCII    Mode = iota // box-drawn terminal tables
	Markdown             // GitHub-flavoured Markdown tables
)

func newTable(m Mode) table.Writer {
	w := table.NewWriter()
	if m == ASCII {
		w.SetStyle(table.StyleLight)
	}
	return w
}

func renderTable(w table.Writer, m Mode) string {
	if m == Markdown {
		return w.RenderMarkdown()
	}
	return w.Render()
}

// Outcome labels a run for display.
func Outcome(r persistence.Run) string {
	switch {
	case r.Skipped:
		return "skipped"
	case r.Success && r.DryRun:
		return "ok (dry)"
	case r.Success:
		return "ok"
	case r.DryRun:
		return "failed (dry)"
	default:
		return "failed"
	}
}

const errWidth = 40

// History renders journaled runs, newest first as given. Start times are
// relative to now.
func History(runs []persistence.Run, now time.Time, m Mode) string {
	w := newTable(m)
	w.AppendHeader(table.Row{"Started", "Bot", "Date", "Outcome", "Took", "Error"})
	for _, r := range runs {
		w.AppendRow(table.Row{
			humanize.RelTime(r.StartedAt(), now, "ago", "from now"),
			r.Bot,
			r.Date,
			Outcome(r),
			r.Duration().Round(time.Millisecond).String(),
			text.Trim(r.Error, errWidth),
		})
	}
	w.AppendFooter(table.Row{"", "", "", humanize.Comma(int64(len(runs))) + " runs", "", ""})
	w.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight},
	})
	return renderTable(w, m)
}

// Readings renders the relation of every persona to the day stem.
func Readings(day calendar.Day, readings []fortune.Reading, m Mode) string {
	w := newTable(m)
	w.SetTitle(fmt.Sprintf("%s %s (%s)", day.KoreanDate(), day.Pillar.Iljin(), day.Pillar.Hanja()))
	w.AppendHeader(table.Row{"Persona", "Stem", "Relation", "Default tier"})
	for _, r := range readings {
		t := r.DefaultTier()
		w.AppendRow(table.Row{
			r.Persona.Name,
			r.Persona.Stem.Korean(),
			fmt.Sprintf("%s (%s)", r.Relation.Korean(), r.Relation.Hanja()),
			fmt.Sprintf("%s (%s)", t.Korean(), t.Hanja()),
		})
	}
	return renderTable(w, m)
}

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5B8DEF")).
			Padding(0, 1)
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	overStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
)

// Preview boxes a post with its weighted length.
func Preview(title, post string) string {
	weight := textbudget.WeightedLength(post)
	gauge := okStyle.Render(fmt.Sprintf("%d/%d", weight, textbudget.MaxWeight))
	if weight > textbudget.MaxWeight {
		gauge = overStyle.Render(fmt.Sprintf("%d/%d over", weight, textbudget.MaxWeight))
	}
	body := strings.Join([]string{titleStyle.Render(title), post, gauge}, "\n\n")
	return boxStyle.Render(body)
}

// Thread previews a main post and its replies.
func Thread(bot, main string, replies []string) string {
	parts := []string{Preview(bot+" · main", main)}
	for i, r := range replies {
		parts = append(parts, Preview(fmt.Sprintf("%s · reply %d", bot, i+1), r))
	}
	return strings.Join(parts, "\n")
}
