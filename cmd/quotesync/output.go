package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jsamuelsen/quote-sync/internal/app"
	"github.com/jsamuelsen/quote-sync/internal/domain"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	dirtyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

func printQuote(w io.Writer, q domain.Quote) {
	marker := " "
	if q.Dirty {
		marker = dirtyStyle.Render("*")
	}

	fmt.Fprintf(w, "%s %s %s\n", marker, q.Text, mutedStyle.Render("["+q.Category+"] "+q.ID))
}

func printQuotes(w io.Writer, quotes []domain.Quote) {
	if len(quotes) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("no quotes"))
		return
	}

	for _, q := range quotes {
		printQuote(w, q)
	}
}

func printReport(w io.Writer, r *app.CycleReport) {
	fmt.Fprintln(w, headingStyle.Render("sync "+string(r.Outcome)))

	if r.Outcome == app.OutcomeCoalesced {
		return
	}

	fmt.Fprintf(w, "  pushed %d, pulled %d, added %d, updated %d\n", r.Pushed, r.Pulled, r.Added, r.Updated)

	if len(r.PushFailed) > 0 {
		fmt.Fprintf(w, "  push failed: %s\n", strings.Join(r.PushFailed, ", "))
	}

	if len(r.Conflicts) > 0 {
		fmt.Fprintf(w, "  conflicts %d, auto-resolved %d\n", len(r.Conflicts), r.AutoResolved)
	}

	if r.Error != "" {
		fmt.Fprintln(w, "  "+errorStyle.Render(r.Error))
	}
}

func printConflicts(w io.Writer, conflicts []domain.Conflict) {
	for _, cf := range conflicts {
		fmt.Fprintln(w, headingStyle.Render("conflict "+cf.ID))
		fmt.Fprintf(w, "  local:  %s [%s]\n", cf.Local.Text, cf.Local.Category)
		fmt.Fprintf(w, "  remote: %s [%s]\n", cf.Remote.Text, cf.Remote.Category)
	}
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "never"
	}

	return t.Local().Format(time.DateTime)
}
