package ui

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"shopscraper/pkg/models"
)

// RenderSummary renders the end-of-run panel: run totals followed by one
// row per category. Aborted categories are listed after the scraped ones.
// A negative images count hides the images row.
func RenderSummary(report *models.Report, images int, reportPath, archivePath string) string {
	meta := report.Metadata

	stats := []string{
		statRow("Run", meta.RunID),
		statRow("Started", meta.Datetime),
		statRow("Duration", strconv.FormatFloat(meta.DurationSeconds, 'f', 2, 64)+"s"),
		statRow("Products", strconv.Itoa(meta.TotalProducts)),
		statRow("Failed items", strconv.Itoa(meta.TotalFailed)),
		statRow("Duplicates", strconv.Itoa(meta.TotalDuplicates)),
		statRow("Categories", fmt.Sprintf("%d scraped, %d aborted", meta.CategoriesScraped, len(meta.CategoriesAborted))),
	}
	if images >= 0 {
		stats = append(stats, statRow("Images", strconv.Itoa(images)))
	}
	if reportPath != "" {
		stats = append(stats, statRow("Report", reportPath))
	}
	if archivePath != "" {
		stats = append(stats, statRow("Archive", archivePath))
	}

	sections := []string{
		titleStyle.Render("RUN SUMMARY"),
		lipgloss.JoinVertical(lipgloss.Left, stats...),
	}
	if table := categoryTable(report); table != "" {
		sections = append(sections, "", table)
	}

	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func statRow(label, value string) string {
	return labelStyle.Width(14).Render(label) + valueStyle.Render(value)
}

// categoryTable lays out category, product count and status columns
func categoryTable(report *models.Report) string {
	keys := make([]string, 0, len(report.Products))
	for key := range report.Products {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	aborted := report.Metadata.CategoriesAborted
	if len(keys) == 0 && len(aborted) == 0 {
		return ""
	}

	width := len("category")
	for _, key := range append(append([]string(nil), keys...), aborted...) {
		if w := lipgloss.Width(key); w > width {
			width = w
		}
	}
	keyCol := lipgloss.NewStyle().Width(width + 2)
	numCol := lipgloss.NewStyle().Width(10).Align(lipgloss.Right).PaddingRight(2)

	rows := []string{
		lipgloss.JoinHorizontal(lipgloss.Top,
			headerStyle.Inherit(keyCol).Render("category"),
			headerStyle.Inherit(numCol).Render("products"),
			headerStyle.Render("status"),
		),
	}
	for _, key := range keys {
		n := len(report.Products[key])
		status := okStyle.Render("ok")
		if n == 0 {
			status = warnStyle.Render("empty")
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
			keyCol.Render(key),
			numCol.Render(strconv.Itoa(n)),
			status,
		))
	}
	for _, key := range aborted {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
			keyCol.Render(key),
			numCol.Render("-"),
			errStyle.Render("aborted"),
		))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
