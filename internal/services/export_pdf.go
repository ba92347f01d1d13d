package services

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfFontSize   = 9.0
	pdfLineHeight = 5.0
	pdfBottom     = 12.0
	// mm per character of a column width hint
	pdfCharWidth = 1.9
)

// PDFOptions control the print sink. FontPath points at a UTF-8 TrueType font; without
// it the core Helvetica font is used with cp1252 translation.
type PDFOptions struct {
	Title    string
	FontPath string
}

// ExportTablePDF renders the table on landscape A4 pages, repeating the header on each
// page. Cell text is identical to the other sinks; long cells wrap onto extra lines and
// the row grows to fit.
func ExportTablePDF(t Table, opts PDFOptions) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	family := "Helvetica"
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if opts.FontPath != "" {
		family = "Report"
		pdf.AddUTF8Font(family, "", opts.FontPath)
		pdf.AddUTF8Font(family, "B", opts.FontPath)
		tr = func(s string) string { return s }
	}
	// rows break pages themselves so a wrapped row is never split
	pdf.SetAutoPageBreak(false, pdfBottom)
	pdf.AddPage()

	if opts.Title != "" {
		pdf.SetFont(family, "B", 14)
		pdf.MultiCell(0, 8, tr(opts.Title), "", "L", false)
		pdf.Ln(2)
	}

	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	widths := pdfColumnWidths(ColumnWidths(t), pageW-left-right)

	header := func() {
		pdf.SetFont(family, "B", pdfFontSize)
		pdf.SetFillColor(230, 230, 230)
		drawPDFRow(pdf, tr, t.Header, widths, true)
		pdf.SetFont(family, "", pdfFontSize)
	}
	pdf.SetHeaderFunc(func() {
		if pdf.PageNo() > 1 {
			header()
		}
	})
	header()

	for _, row := range t.Rows {
		drawPDFRow(pdf, tr, row, widths, false)
	}
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// drawPDFRow draws one bordered row whose height is the tallest wrapped cell. A row that
// does not fit on the current page starts a new one.
func drawPDFRow(pdf *gofpdf.Fpdf, tr func(string) string, cells []string, widths []float64, fill bool) {
	lines := pdfRowLines(pdf, tr, cells, widths)
	n := 1
	for _, l := range lines {
		if len(l) > n {
			n = len(l)
		}
	}
	h := float64(n) * pdfLineHeight
	if fill {
		h++
	}
	_, pageH := pdf.GetPageSize()
	if pdf.GetY()+h > pageH-pdfBottom && !fill {
		pdf.AddPage()
	}
	x, y := pdf.GetXY()
	left := x
	style := "D"
	if fill {
		style = "FD"
	}
	for i, cell := range lines {
		pdf.Rect(x, y, widths[i], h, style)
		for k, line := range cell {
			pdf.SetXY(x, y+float64(k)*pdfLineHeight)
			pdf.CellFormat(widths[i], pdfLineHeight, tr(strings.TrimRight(line, "\r\n")), "", 0, "L", false, 0, "")
		}
		x += widths[i]
	}
	pdf.SetXY(left, y+h)
}

// pdfRowLines wraps every cell of a row to its column width in the current font.
// Cells beyond the known columns are dropped.
func pdfRowLines(pdf *gofpdf.Fpdf, tr func(string) string, cells []string, widths []float64) [][]string {
	measure := func(s string) float64 { return pdf.GetStringWidth(tr(s)) }
	margin := 2 * pdf.GetCellMargin()
	out := make([][]string, 0, len(cells))
	for i, c := range cells {
		if i >= len(widths) {
			break
		}
		out = append(out, wrapCellText(measure, c, widths[i]-margin))
	}
	return out
}

// wrapCellText splits s into lines no wider than limit, breaking after whitespace when
// possible and mid-word otherwise. Separators stay on the line they end, so joining the
// lines yields s unchanged.
func wrapCellText(measure func(string) float64, s string, limit float64) []string {
	r := []rune(s)
	if len(r) == 0 {
		return []string{""}
	}
	var lines []string
	start := 0
	for start < len(r) {
		end := start
		brk := -1
		forced := false
		for end < len(r) {
			if r[end] == '\n' {
				end++
				forced = true
				break
			}
			if unicode.IsSpace(r[end]) {
				// trailing whitespace may overhang the cell
				brk = end + 1
			} else if end > start && measure(string(r[start:end+1])) > limit {
				break
			}
			end++
		}
		if !forced && end < len(r) && brk > start {
			end = brk
		}
		lines = append(lines, string(r[start:end]))
		start = end
	}
	return lines
}

// pdfColumnWidths scales character hints to millimetres, shrinking proportionally when
// the table is wider than the printable area.
func pdfColumnWidths(chars []int, avail float64) []float64 {
	out := make([]float64, len(chars))
	total := 0.0
	for i, c := range chars {
		out[i] = float64(c) * pdfCharWidth
		total += out[i]
	}
	if total > avail && total > 0 {
		scale := avail / total
		for i := range out {
			out[i] *= scale
		}
	}
	return out
}
