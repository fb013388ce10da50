package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"iapdcli/internal/batch"
)

// console prints batch progress for a human at a terminal
type console struct {
	out     io.Writer
	errLine lipgloss.Style
	detail  lipgloss.Style
	done    lipgloss.Style
}

func newConsole(out io.Writer) *console {
	r := lipgloss.NewRenderer(out)
	return &console{
		out:     out,
		errLine: r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		detail:  r.NewStyle().Foreground(lipgloss.Color("8")),
		done:    r.NewStyle().Foreground(lipgloss.Color("10")),
	}
}

func (c *console) FileStarted(index, total int, name string) {
	fmt.Fprintf(c.out, "Processing file %d of %d: %s\n", index, total, name)
}

func (c *console) FileFinished(_, _ int, result batch.FileResult) {
	switch result.Status {
	case batch.StatusParseFailed:
		fmt.Fprintln(c.out, c.errLine.Render("Error parsing XML file: "+result.Name))
		fmt.Fprintln(c.out, c.detail.Render("Error details: "+result.Err.Error()))
	case batch.StatusFailed:
		fmt.Fprintln(c.out, c.errLine.Render("Error processing XML file: "+result.Name))
		fmt.Fprintln(c.out, c.detail.Render("Error details: "+result.Err.Error()))
	}
}

func (c *console) BatchFinished(report *batch.Report) {
	fmt.Fprintln(c.out, c.done.Render(fmt.Sprintf("CSV file '%s' created successfully.", report.OutputPath)))
	if report.XLSXPath != "" {
		fmt.Fprintln(c.out, c.done.Render(fmt.Sprintf("Workbook '%s' created successfully.", report.XLSXPath)))
	}
	if failed := len(report.Failed()); failed > 0 {
		fmt.Fprintln(c.out, c.detail.Render(fmt.Sprintf("%d of %d files skipped.", failed, len(report.Files))))
	}
}
