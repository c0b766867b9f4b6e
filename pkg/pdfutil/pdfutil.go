// Package pdfutil prepares submitted solution PDFs for printing: each
// page gets a solver label, and the duplex variant is padded to an
// even page count so back-to-back printing never bleeds into the next
// solution.
package pdfutil

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// watermarkDesc places the label at the bottom center of each page.
const watermarkDesc = "font:Helvetica, points:9, pos:bc, off:0 6, scale:1 abs, rot:0, fillcolor:#404040"

// ExportLabel renders the line stamped on every page of an exported
// solution.
func ExportLabel(solver, school, task string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{solver, school, task} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " | ")
}

// DuplexPadPages returns the page selection after which a blank page
// must be inserted to even out the count, or nil when none is needed.
func DuplexPadPages(pageCount int) []string {
	if pageCount <= 0 || pageCount%2 == 0 {
		return nil
	}
	return []string{strconv.Itoa(pageCount)}
}

// StampLabel writes a copy of the PDF with the label on every page.
func StampLabel(inPath, outPath, label string) error {
	conf := model.NewDefaultConfiguration()
	if err := api.AddTextWatermarksFile(inPath, outPath, nil, true, label, watermarkDesc, conf); err != nil {
		return fmt.Errorf("%w: stamp %s: %w", ErrExportFailed, inPath, err)
	}
	return nil
}

// PadToEvenPages writes a copy of the PDF padded with a trailing blank
// page when the page count is odd.
func PadToEvenPages(inPath, outPath string) error {
	conf := model.NewDefaultConfiguration()
	count, err := api.PageCountFile(inPath)
	if err != nil {
		return fmt.Errorf("%w: page count %s: %w", ErrExportFailed, inPath, err)
	}
	pages := DuplexPadPages(count)
	if pages == nil {
		if err := copyFile(inPath, outPath); err != nil {
			return fmt.Errorf("%w: copy %s: %w", ErrExportFailed, inPath, err)
		}
		return nil
	}
	if err := api.InsertPagesFile(inPath, outPath, pages, false, conf); err != nil {
		return fmt.Errorf("%w: pad %s: %w", ErrExportFailed, inPath, err)
	}
	return nil
}

// PrepareExport produces both print variants from a submitted PDF.
func PrepareExport(inPath, normalPath, duplexPath, label string) error {
	if err := StampLabel(inPath, normalPath, label); err != nil {
		return err
	}
	return PadToEvenPages(normalPath, duplexPath)
}
