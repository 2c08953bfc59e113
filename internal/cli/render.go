package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	pdfvec "github.com/nevindra/pdfvec"
	"github.com/nevindra/pdfvec/ingest"
)

type styles struct {
	title lipgloss.Style
	label lipgloss.Style
	score lipgloss.Style
	ok    lipgloss.Style
	fail  lipgloss.Style
	box   lipgloss.Style
}

// newStyles binds styles to w so colours are dropped when w is not a terminal.
func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title: r.NewStyle().Bold(true),
		label: r.NewStyle().Foreground(lipgloss.Color("8")),
		score: r.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		ok:    r.NewStyle().Foreground(lipgloss.Color("10")),
		fail:  r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		box:   r.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).Width(88),
	}
}

func renderSummary(w io.Writer, s ingest.Summary) {
	st := newStyles(w)
	row := func(k, v string) string { return st.label.Render(fmt.Sprintf("  %-10s", k)) + " " + v }

	lines := []string{
		st.title.Render(fmt.Sprintf("Ingested %s into %s (%s)", s.SourceID, s.Collection, s.Mode)),
		row("chunks", fmt.Sprint(s.TotalChunks)),
		row("stored", fmt.Sprintf("%d (%d inserted, %d replaced)", s.Stored(), s.Inserted, s.Replaced)),
	}
	batches := st.ok.Render(fmt.Sprintf("%d ok", s.SucceededBatches()))
	if n := s.FailedBatches(); n > 0 {
		batches += ", " + st.fail.Render(fmt.Sprintf("%d failed", n))
	} else {
		batches += ", 0 failed"
	}
	lines = append(lines,
		row("batches", batches),
		row("duration", s.Duration.Round(time.Millisecond).String()),
	)
	for _, f := range s.Failures() {
		lines = append(lines, st.fail.Render("  ! "+f.Error()))
	}
	fmt.Fprintln(w, strings.Join(lines, "\n"))
}

func renderResults(w io.Writer, query, collection string, results []pdfvec.ScoredResult) {
	st := newStyles(w)
	fmt.Fprintln(w, st.title.Render(fmt.Sprintf("%q in %s: %d result(s)", query, collection, len(results))))
	if len(results) == 0 {
		fmt.Fprintln(w, st.label.Render("No results."))
		return
	}
	for i, r := range results {
		header := fmt.Sprintf("[%d] %s chunk %d/%d", i+1, r.SourceID, r.SequenceIndex+1, r.TotalChunks)
		if r.HasSimilarity {
			header += "  " + st.score.Render(fmt.Sprintf("similarity %.4f", r.Similarity))
		}
		body := r.Preview
		if r.Truncated() {
			body += st.label.Render(fmt.Sprintf(" ... (%d characters)", r.TextLength))
		}
		fmt.Fprintln(w, header)
		fmt.Fprintln(w, st.box.Render(body))
	}
}

func renderCollections(w io.Writer, names []string) {
	st := newStyles(w)
	fmt.Fprintln(w, st.title.Render(fmt.Sprintf("%d collection(s)", len(names))))
	for _, n := range names {
		fmt.Fprintln(w, "  "+n)
	}
}

func renderPing(w io.Writer, backend string, names []string) {
	st := newStyles(w)
	fmt.Fprintln(w, st.ok.Render("ok")+fmt.Sprintf(" connected to %s (%d collections)", backend, len(names)))
	renderCollections(w, names)
}
