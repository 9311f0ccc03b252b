package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/verte-zerg/suitepractice/internal/model"
)

const maxTitleWidth = 40

// Options filters the rendered records.
type Options struct {
	// Last limits output to the newest N records when > 0.
	Last int
	// SuitesOnly skips single-part records.
	SuitesOnly bool
}

// Filter applies opts to records, which are expected newest first.
func Filter(records []model.PracticeRecord, opts Options) []model.PracticeRecord {
	out := make([]model.PracticeRecord, 0, len(records))
	for _, rec := range records {
		if opts.SuitesOnly && !rec.MultiSuite {
			continue
		}
		out = append(out, rec)
		if opts.Last > 0 && len(out) == opts.Last {
			break
		}
	}
	return out
}

// RenderRecords writes a summary table of records.
func RenderRecords(w io.Writer, records []model.PracticeRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No practice records yet.")
		return err
	}
	headers := []string{"Date", "Title", "Parts", "Score", "Accuracy", "Duration"}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		parts := "1"
		if rec.MultiSuite {
			parts = fmt.Sprintf("%d", len(rec.SuiteEntries))
		}
		rows = append(rows, []string{
			formatDate(rec),
			truncate(rec.Title, maxTitleWidth),
			parts,
			fmt.Sprintf("%d/%d", rec.ScoreInfo.Correct, rec.ScoreInfo.Total),
			fmt.Sprintf("%d%%", rec.ScoreInfo.Percentage),
			FormatDuration(rec.Duration),
		})
	}
	return writeLines(w, formatTable(headers, rows, map[int]bool{2: true, 3: true, 4: true, 5: true}))
}

// RenderSuite writes the per-part breakdown and spelling errors of rec.
func RenderSuite(w io.Writer, rec model.PracticeRecord) error {
	lines := []string{
		rec.Title,
		fmt.Sprintf("Score %d/%d (%d%%) in %s", rec.ScoreInfo.Correct, rec.ScoreInfo.Total, rec.ScoreInfo.Percentage, FormatDuration(rec.Duration)),
		"",
	}
	headers := []string{"Part", "Exam", "Score", "Accuracy", "Duration"}
	rows := make([][]string, 0, len(rec.SuiteEntries))
	for _, entry := range rec.SuiteEntries {
		rows = append(rows, []string{
			entry.SuiteID,
			truncate(firstNonEmpty(entry.Title, entry.ExamID), maxTitleWidth),
			fmt.Sprintf("%d/%d", entry.ScoreInfo.Correct, entry.ScoreInfo.Total),
			fmt.Sprintf("%d%%", entry.ScoreInfo.Percentage),
			FormatDuration(entry.Duration),
		})
	}
	lines = append(lines, formatTable(headers, rows, map[int]bool{2: true, 3: true, 4: true})...)

	if len(rec.SpellingErrors) > 0 {
		errs := append([]model.SpellingError(nil), rec.SpellingErrors...)
		sort.SliceStable(errs, func(i, j int) bool { return errs[i].ErrorCount > errs[j].ErrorCount })
		lines = append(lines, "", "Spelling errors")
		rows = rows[:0]
		for _, e := range errs {
			rows = append(rows, []string{e.Word, e.UserInput, fmt.Sprintf("%d", max(e.ErrorCount, 1))})
		}
		lines = append(lines, formatTable([]string{"Word", "Typed", "Count"}, rows, map[int]bool{2: true})...)
	}
	return writeLines(w, lines)
}

// FormatDuration renders seconds as m:ss or h:mm:ss.
func FormatDuration(seconds float64) string {
	total := int(seconds + 0.5)
	if total < 0 {
		total = 0
	}
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func formatDate(rec model.PracticeRecord) string {
	t := rec.StartTime
	if t.IsZero() {
		t = rec.Date
	}
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}
