package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/thep200/github-stats-pipeline/internal/model"
)

// Render writes one table per section, top rows each, then warnings and
// skipped lines.
func Render(w io.Writer, report *Report, top int) {
	for _, section := range report.Sections {
		fmt.Fprintf(w, "\n%s\n", section.Title)
		total := section.Totals.Total()

		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"#", "Key", "Count", "Share"})
		for i, e := range section.Totals.Top(top) {
			share := 0.0
			if total > 0 {
				share = 100 * float64(e.Count) / float64(total)
			}
			table.Append([]string{strconv.Itoa(i + 1), e.Key, strconv.Itoa(e.Count), fmt.Sprintf("%.1f%%", share)})
		}
		table.Render()

		fmt.Fprintf(w, "records %d, duplicates %d, keys %d, mean %.1f, median %.1f, p90 %.1f\n",
			section.Records, section.Duplicates, len(section.Totals), section.Stats.Mean, section.Stats.Median, section.Stats.P90)
	}

	if len(report.Warnings) > 0 {
		fmt.Fprintln(w, "\nWarnings")
		for _, warning := range report.Warnings {
			fmt.Fprintf(w, "  %s\n", warning)
		}
	}
	if len(report.ParseErrors) > 0 {
		fmt.Fprintln(w, "\nSkipped lines")
		for _, pe := range report.ParseErrors {
			fmt.Fprintf(w, "  %v\n", pe)
		}
	}
}

// RenderStored lists the rows kept in the summaries table.
func RenderStored(w io.Writer, saved map[model.Kind][]model.Summary) {
	fmt.Fprintln(w, "\nStored summaries")
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Kind", "#", "Key", "Count", "Share"})
	for _, kind := range model.Kinds {
		for _, row := range saved[kind] {
			table.Append([]string{string(kind), strconv.Itoa(row.Rank), row.Key, strconv.Itoa(row.Count), fmt.Sprintf("%.1f%%", 100*row.Share)})
		}
	}
	table.Render()
}
