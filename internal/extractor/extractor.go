package extractor

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
)

var (
	// ErrUnsupportedFormat is returned for formats outside the dispatch table.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrEmptyContent is returned when extraction yields no usable text,
	// e.g. a scanned image-only PDF.
	ErrEmptyContent = errors.New("no extractable text content")
)

type extractFunc func(raw []byte) (string, error)

// Extractor converts raw document bytes into a single normalized text
// string. The format dispatch table is closed: unknown formats fail with
// ErrUnsupportedFormat instead of a best-effort parse.
type Extractor struct {
	minChars int
	formats  map[string]extractFunc
}

const defaultMinChars = 10

// New builds an extractor. minChars is the minimal extracted-text length
// below which the result is treated as empty.
func New(minChars int) *Extractor {
	if minChars <= 0 {
		minChars = defaultMinChars
	}
	e := &Extractor{minChars: minChars}
	e.formats = map[string]extractFunc{
		"pdf":  extractPDF,
		"docx": extractDOCX,
		"pptx": extractPPTX,
		"xlsx": extractXLSX,
		"ods":  extractODS,
		"md":   extractMarkdown,
		"txt":  extractText,
	}
	// Code and data files are read as plain text.
	for _, f := range []string{"markdown", "json", "js", "jsx", "ts", "tsx", "py", "go", "csv", "log", "yaml", "yml"} {
		if f == "markdown" {
			e.formats[f] = extractMarkdown
			continue
		}
		e.formats[f] = extractText
	}
	return e
}

// Supported reports whether the declared format has an extractor.
func (e *Extractor) Supported(format string) bool {
	_, ok := e.formats[normalizeFormat(format)]
	return ok
}

// Formats returns the supported format names, for introspection.
func (e *Extractor) Formats() []string {
	out := make([]string, 0, len(e.formats))
	for f := range e.formats {
		out = append(out, f)
	}
	return out
}

// Extract converts raw bytes of the declared format into normalized text.
func (e *Extractor) Extract(raw []byte, format string) (string, error) {
	fn, ok := e.formats[normalizeFormat(format)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	text, err := fn(raw)
	if err != nil {
		return "", err
	}
	text = normalize(text)
	if len(text) < e.minChars {
		return "", ErrEmptyContent
	}
	return text, nil
}

// normalizeFormat accepts "pdf", ".pdf" and "PDF" alike.
func normalizeFormat(format string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
}

var blankLines = regexp.MustCompile(`\n{3,}`)

// normalize unifies line endings, collapses runs of blank lines and trims
// surrounding whitespace so chunk offsets are stable across platforms.
func normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func extractPDF(raw []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}

	var pages []string
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to read pdf page %d: %w", i, err)
		}
		if strings.TrimSpace(pageText) != "" {
			pages = append(pages, pageText)
		}
	}
	// Page breaks become paragraph breaks.
	return strings.Join(pages, "\n\n"), nil
}

func extractDOCX(raw []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("failed to read docx: %w", err)
	}
	defer r.Close()

	content := r.Editable().GetContent()
	paragraphs := splitXMLText(content, "w:p")
	var parts []string
	for _, p := range paragraphs {
		text := strings.TrimSpace(xmlTagText(p, "w:t"))
		if text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		// Some producers omit paragraph wrappers; fall back to all text runs.
		if text := strings.TrimSpace(xmlTagText(content, "w:t")); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

func extractPPTX(raw []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("failed to read pptx: %w", err)
	}

	var slides []string
	for _, file := range zr.File {
		if !strings.HasPrefix(file.Name, "ppt/slides/slide") {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		slideText := strings.TrimSpace(xmlTagText(string(data), "a:t"))
		if slideText != "" {
			slides = append(slides, slideText)
		}
	}
	return strings.Join(slides, "\n\n"), nil
}

func extractXLSX(raw []byte) (string, error) {
	f, err := xlsx.OpenBinary(raw)
	if err != nil {
		return "", fmt.Errorf("failed to read xlsx: %w", err)
	}

	var sheets []string
	for _, sheet := range f.Sheets {
		var text strings.Builder
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			var cells []string
			for _, cell := range row.Cells {
				cells = append(cells, cell.String())
			}
			line := strings.TrimSpace(strings.Join(cells, "\t"))
			if line != "" {
				text.WriteString(line + "\n")
			}
		}
		sheets = append(sheets, strings.TrimSpace(text.String()))
	}
	return strings.Join(sheets, "\n\n"), nil
}

func extractODS(raw []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("failed to read spreadsheet: %w", err)
	}
	defer f.Close()

	var sheets []string
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		var text strings.Builder
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheetName))
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, "\t"))
			if line != "" {
				text.WriteString(line + "\n")
			}
		}
		sheets = append(sheets, strings.TrimSpace(text.String()))
	}
	return strings.Join(sheets, "\n\n"), nil
}

func extractText(raw []byte) (string, error) {
	return string(raw), nil
}

// xmlTagText collects the inner text of every <tag>...</tag> occurrence,
// joined by spaces. Good enough for the office XML text runs we care about.
func xmlTagText(xmlContent, tag string) string {
	var text strings.Builder
	open := "<" + tag + ">"
	openAttr := "<" + tag + " "
	closeTag := "</" + tag + ">"

	rest := xmlContent
	for {
		idx := strings.Index(rest, open)
		attrIdx := strings.Index(rest, openAttr)
		if idx < 0 || (attrIdx >= 0 && attrIdx < idx) {
			idx = attrIdx
		}
		if idx < 0 {
			break
		}
		rest = rest[idx:]
		gt := strings.Index(rest, ">")
		if gt < 0 {
			break
		}
		rest = rest[gt+1:]
		end := strings.Index(rest, closeTag)
		if end < 0 {
			break
		}
		if text.Len() > 0 {
			text.WriteString(" ")
		}
		text.WriteString(rest[:end])
		rest = rest[end+len(closeTag):]
	}
	return text.String()
}

// splitXMLText splits xmlContent into the bodies of repeated <tag> elements.
func splitXMLText(xmlContent, tag string) []string {
	var parts []string
	closeTag := "</" + tag + ">"
	for _, seg := range strings.Split(xmlContent, closeTag) {
		if strings.Contains(seg, "<"+tag) {
			parts = append(parts, seg)
		}
	}
	return parts
}
