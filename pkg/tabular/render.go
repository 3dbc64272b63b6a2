package tabular

import (
	"encoding/csv"
	"fmt"
	"strings"
)

// Format selects the textual rendering of a [Result]. Structured (record)
// output is not a Format: callers who want records use the Result value
// directly.
type Format string

const (
	// FormatMarkdown renders a pipe table with "%" suffixes; absent cells
	// render as "-".
	FormatMarkdown Format = "markdown"

	// FormatCSV renders comma-separated values without suffixes; absent
	// cells render as empty fields.
	FormatCSV Format = "csv"

	// FormatTSV renders tab-separated values, otherwise like CSV.
	FormatTSV Format = "tsv"
)

// ParseFormat maps a user-supplied string onto a known [Format].
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatMarkdown:
		return FormatMarkdown, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatTSV:
		return FormatTSV, nil
	}
	return "", fmt.Errorf("tabular: unknown format %q (want markdown, csv, or tsv)", s)
}

// Render serializes the wide table in the given format. Rows and columns
// are emitted in the Result's fixed order.
func Render(res *Result, format Format) (string, error) {
	switch format {
	case FormatMarkdown:
		return renderMarkdown(res), nil
	case FormatCSV:
		return renderSeparated(res, ',')
	case FormatTSV:
		return renderSeparated(res, '\t')
	}
	return "", fmt.Errorf("tabular: unknown format %q", format)
}

// renderMarkdown writes the table as a GitHub-style pipe table. Scores are
// fixed to 2 decimals with a literal % suffix.
func renderMarkdown(res *Result) string {
	var b strings.Builder

	b.WriteString("| Date | Model |")
	for _, col := range res.Columns {
		b.WriteString(" ")
		b.WriteString(col)
		b.WriteString(" |")
	}
	b.WriteString("\n")

	b.WriteString("| --- | --- |")
	for range res.Columns {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")

	for _, row := range res.Rows {
		b.WriteString("| ")
		b.WriteString(row.Date)
		b.WriteString(" | ")
		b.WriteString(row.Model)
		b.WriteString(" |")
		for _, col := range res.Columns {
			v, ok := row.Cells[col]
			if !ok {
				b.WriteString(" - |")
				continue
			}
			fmt.Fprintf(&b, " %.2f%% |", v)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// renderSeparated writes the table through [csv.Writer] with the given
// separator, covering both CSV and TSV.
func renderSeparated(res *Result, sep rune) (string, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)
	w.Comma = sep

	header := append([]string{"Date", "Model"}, res.Columns...)
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("tabular: write header: %w", err)
	}

	record := make([]string, 0, len(header))
	for _, row := range res.Rows {
		record = record[:0]
		record = append(record, row.Date, row.Model)
		for _, col := range res.Columns {
			v, ok := row.Cells[col]
			if !ok {
				record = append(record, "")
				continue
			}
			record = append(record, fmt.Sprintf("%.2f", v))
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("tabular: write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("tabular: flush: %w", err)
	}
	return b.String(), nil
}

// RenderStats writes the per-entity statistics as a markdown pipe table,
// one row per column of the Result in column order.
func RenderStats(res *Result) string {
	var b strings.Builder

	b.WriteString("| Entity | Average | Min | Max | Samples |\n")
	b.WriteString("| --- | --- | --- | --- | --- |\n")

	for _, col := range res.Columns {
		st, ok := res.Stats[col]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "| %s | %.2f%% | %.2f%% | %.2f%% | %d |\n",
			st.Entity, st.Average, st.Min, st.Max, st.SampleCount)
	}

	return b.String()
}
