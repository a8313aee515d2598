package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/RubachokBoss/plagiarism-checker/duplicate-service/internal/models"
)

var (
	header = color.New(color.FgCyan, color.Bold)
	label  = color.New(color.FgYellow)
	good   = color.New(color.FgGreen)
	bad    = color.New(color.FgRed)
	dim    = color.New(color.FgHiBlack)
)

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printCoverage(w io.Writer, title string, c models.CoverageCounts) {
	label.Fprintf(w, "%s\n", title)
	fmt.Fprintf(w, "  Total:        %d\n", c.Total)
	fmt.Fprintf(w, "  With hash:    %s\n", good.Sprint(c.WithHash))
	if c.WithoutHash > 0 {
		fmt.Fprintf(w, "  Without hash: %s\n", bad.Sprint(c.WithoutHash))
	} else {
		fmt.Fprintf(w, "  Without hash: %d\n", c.WithoutHash)
	}
	if c.Stale > 0 {
		fmt.Fprintf(w, "  Stale:        %s\n", label.Sprint(c.Stale))
	}
}

func printBackfillReport(w io.Writer, r *models.BackfillReport) {
	header.Fprintf(w, "\n=== Backfill (%s) ===\n\n", r.Algorithm)
	printCoverage(w, "Before:", r.Before)
	printCoverage(w, "After:", r.After)
	fmt.Fprintln(w)

	label.Fprintln(w, "Items:")
	for _, status := range []models.BackfillStatus{
		models.BackfillStatusComputed,
		models.BackfillStatusSkipped,
		models.BackfillStatusVerified,
		models.BackfillStatusRehashed,
		models.BackfillStatusFailedRetrieval,
		models.BackfillStatusFailedStore,
	} {
		if n := r.Counts[status]; n > 0 {
			fmt.Fprintf(w, "  %-24s %d\n", status, n)
		}
	}
	for _, item := range r.Items {
		if item.Error != "" {
			fmt.Fprintf(w, "  %s %s: %s\n", bad.Sprint("✗"), item.SubmissionID, dim.Sprint(item.Error))
		}
	}

	fmt.Fprintln(w)
	switch {
	case r.Cancelled:
		bad.Fprintf(w, "Cancelled, %d item(s) not started\n", r.NotStarted)
	case r.Complete:
		good.Fprintln(w, "Coverage complete")
	default:
		label.Fprintf(w, "%d submission(s) still without a fingerprint\n", r.After.WithoutHash)
	}
}

func printDetectionReport(w io.Writer, r *models.DetectionReport) {
	header.Fprintf(w, "\n=== Duplicate groups (%s, min similarity %.0f) ===\n\n", r.Algorithm, r.MinSimilarity)

	if len(r.Groups) == 0 {
		dim.Fprintln(w, "  No duplicate groups")
	}
	for i, g := range r.Groups {
		label.Fprintf(w, "Group %d  %s  (%d members, %d bytes)\n", i+1, g.Fingerprint.Hash, g.Size, g.Fingerprint.Size)
		for _, m := range g.Members {
			fmt.Fprintf(w, "  %s  %-20s %-24s %s\n",
				m.SubmittedAt.Format("2006-01-02 15:04:05"),
				m.SubmissionID, m.StudentName, dim.Sprint(m.FileName))
		}
		fmt.Fprintln(w)
	}

	cov := r.Coverage
	fmt.Fprintf(w, "Analyzed %d of %d submission(s)", cov.Analyzed, cov.Total)
	if cov.Excluded > 0 {
		fmt.Fprintf(w, ", %s excluded without a usable fingerprint", bad.Sprint(cov.Excluded))
	}
	fmt.Fprintln(w)
	if !cov.Complete {
		label.Fprintln(w, "Coverage incomplete, run `dupctl backfill` first")
	}
}

func printRemediation(w io.Writer, r *models.BatchRemediationResult) {
	for _, o := range r.Outcomes {
		switch o.Status {
		case models.RemediationStatusDeleted:
			fmt.Fprintf(w, "%s %s deleted\n", good.Sprint("✓"), o.SubmissionID)
		case models.RemediationStatusAlreadyDeleted:
			fmt.Fprintf(w, "%s %s already deleted\n", dim.Sprint("○"), o.SubmissionID)
		default:
			fmt.Fprintf(w, "%s %s failed: %s\n", bad.Sprint("✗"), o.SubmissionID, o.Error)
		}
	}
	for _, id := range r.NotStarted {
		fmt.Fprintf(w, "%s %s not attempted\n", label.Sprint("-"), id)
	}

	fmt.Fprintf(w, "\n%d requested, %d deleted, %d already deleted, %d failed\n",
		r.Total, r.Deleted, r.AlreadyDeleted, r.Failed)
}
