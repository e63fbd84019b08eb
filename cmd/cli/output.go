package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/kurihiro0119/github-mirror/internal/domain"
)

func printReport(w io.Writer, report *domain.Report) {
	fmt.Fprintf(w, "\nMirror run for %s\n", report.Account)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Outcome", "Repositories"})
	table.Append([]string{"Cloned", fmt.Sprintf("%d", report.Cloned)})
	table.Append([]string{"Updated", fmt.Sprintf("%d", report.Updated)})
	table.Append([]string{"Unchanged", fmt.Sprintf("%d", report.Unchanged)})
	table.Append([]string{"Skipped (too large)", fmt.Sprintf("%d", report.Skipped)})
	table.Append([]string{"Failed", fmt.Sprintf("%d", report.Failed)})
	table.SetFooter([]string{"Total", fmt.Sprintf("%d", report.Total())})
	table.Render()

	if len(report.Failures) == 0 {
		return
	}
	fmt.Fprintln(w, "\nFailures:")
	failures := tablewriter.NewWriter(w)
	failures.SetHeader([]string{"Repository", "Error"})
	failures.SetAutoWrapText(false)
	for _, f := range report.Failures {
		failures.Append([]string{f.Repo, fmt.Sprint(f.Err)})
	}
	failures.Render()
}

func printMirrors(w io.Writer, records []*domain.MirrorRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No mirrored repositories")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Repository", "Last push", "Last update", "Mirrored", "Path"})
	for _, r := range records {
		table.Append([]string{
			r.Name,
			formatTime(r.LastPushedAt),
			formatTime(r.LastUpdatedAt),
			relativeTime(r.MirroredAt),
			r.LocalPath,
		})
	}
	table.Render()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}

func relativeTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}
