package parser

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// Document is an input file with its extracted plain text.
type Document struct {
	Name   string // display name, e.g. the uploaded file name
	Path   string
	Digest string // sha256 of the raw file bytes
	Text   string
	Pages  int
}

var ErrUnsupportedFormat = errors.New("unsupported file format")

type extractor func(filePath string) (string, int, error)

var extractors = map[string]extractor{
	".pdf":      parsePDF,
	".docx":     parseDOCX,
	".pptx":     parsePPTX,
	".xlsx":     parseXLSX,
	".xlsm":     parseWorkbook,
	".xltx":     parseWorkbook,
	".txt":      parseText,
	".md":       parseMarkdown,
	".markdown": parseMarkdown,
}

// Supported reports whether the file extension has an extractor.
func Supported(filePath string) bool {
	_, ok := extractors[strings.ToLower(filepath.Ext(filePath))]
	return ok
}

// Load reads filePath and extracts its text. name is the display name; when
// empty the base name of filePath is used. The format is picked from the
// extension of name first, then of filePath, so uploads saved under a
// temporary name keep their real type.
func Load(filePath, name string) (*Document, error) {
	if name == "" {
		name = filepath.Base(filePath)
	}

	ext := strings.ToLower(filepath.Ext(name))
	fn, ok := extractors[ext]
	if !ok {
		ext = strings.ToLower(filepath.Ext(filePath))
		if fn, ok = extractors[ext]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
		}
	}

	digest, err := fileDigest(filePath)
	if err != nil {
		return nil, err
	}

	content, pages, err := fn(filePath)
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", name, err)
	}
	if strings.TrimSpace(content) == "" {
		log.Warn().Str("document", name).Msg("No extractable text")
	}

	return &Document{
		Name:   name,
		Path:   filePath,
		Digest: digest,
		Text:   content,
		Pages:  pages,
	}, nil
}

func fileDigest(filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", filePath, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// pages are joined with a newline; a page without text contributes an empty line
func parsePDF(filePath string) (string, int, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", 0, err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return "", 0, err
	}

	numPages := reader.NumPage()
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			log.Debug().Err(err).Int("page", i).Msg("Skipping unreadable page")
			pageText = ""
		}
		pages = append(pages, pageText)
	}
	return strings.Join(pages, "\n"), numPages, nil
}

func parseDOCX(filePath string) (string, int, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return "", 0, err
	}
	defer r.Close()

	// GetContent returns the raw document.xml
	content := extractTextFromXML(r.Editable().GetContent(), "w:t", "w:p")
	return content, 1, nil
}

func parsePPTX(filePath string) (string, int, error) {
	f, err := zip.OpenReader(filePath)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	var slides []*zip.File
	for _, file := range f.File {
		if strings.HasPrefix(file.Name, "ppt/slides/slide") && strings.HasSuffix(file.Name, ".xml") {
			slides = append(slides, file)
		}
	}
	sort.Slice(slides, func(i, j int) bool {
		return slideNumber(slides[i].Name) < slideNumber(slides[j].Name)
	})

	var parts []string
	for _, file := range slides {
		rc, err := file.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		parts = append(parts, extractTextFromXML(string(data), "a:t", "a:p"))
	}
	return strings.Join(parts, "\n"), len(slides), nil
}

func slideNumber(name string) int {
	var n int
	fmt.Sscanf(strings.TrimPrefix(name, "ppt/slides/slide"), "%d.xml", &n)
	return n
}

func parseXLSX(filePath string) (string, int, error) {
	f, err := xlsx.OpenFile(filePath)
	if err != nil {
		return "", 0, err
	}

	var text strings.Builder
	for _, sheet := range f.Sheets {
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				cells = append(cells, cell.String())
			}
			text.WriteString(strings.Join(cells, "\t"))
			text.WriteString("\n")
		}
	}
	return text.String(), len(f.Sheets), nil
}

// macro-enabled workbooks and templates tealeg/xlsx refuses
func parseWorkbook(filePath string) (string, int, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	var text strings.Builder
	for _, sheetName := range sheets {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheetName))
		for _, row := range rows {
			text.WriteString(strings.Join(row, "\t"))
			text.WriteString("\n")
		}
	}
	return text.String(), len(sheets), nil
}

func parseText(filePath string) (string, int, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", 0, err
	}
	return string(data), 1, nil
}

func parseMarkdown(filePath string) (string, int, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", 0, err
	}
	content, err := markdownToText(data)
	if err != nil {
		return "", 0, err
	}
	return content, 1, nil
}

// markdownToText walks the goldmark AST and keeps only the readable text.
func markdownToText(source []byte) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(text.NewReader(source))

	var buf bytes.Buffer
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock && buf.Len() > 0 && !bytes.HasSuffix(buf.Bytes(), []byte("\n")) {
				buf.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Text:
			buf.Write(v.Segment.Value(source))
			if v.SoftLineBreak() || v.HardLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(v.Value)
		case *ast.AutoLink:
			buf.Write(v.Label(source))
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				buf.Write(seg.Value(source))
			}
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML, *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// extractTextFromXML keeps the character data of every textTag element and
// ends a line at every closing paraTag.
func extractTextFromXML(xmlContent, textTag, paraTag string) string {
	var text strings.Builder
	open := "<" + textTag
	closeText := "</" + textTag + ">"
	closePara := "</" + paraTag + ">"

	rest := xmlContent
	for {
		o := strings.Index(rest, open)
		p := strings.Index(rest, closePara)
		if o < 0 && p < 0 {
			break
		}
		if p >= 0 && (o < 0 || p < o) {
			if text.Len() > 0 && !strings.HasSuffix(text.String(), "\n") {
				text.WriteString("\n")
			}
			rest = rest[p+len(closePara):]
			continue
		}
		rest = rest[o+len(open):]
		// skip sibling tags sharing the prefix, e.g. <w:tab> or <w:tbl>
		if len(rest) == 0 || (rest[0] != '>' && rest[0] != ' ') {
			continue
		}
		gt := strings.Index(rest, ">")
		end := strings.Index(rest, closeText)
		if gt < 0 || end < 0 || end < gt {
			continue
		}
		text.WriteString(unescapeXML(rest[gt+1 : end]))
		rest = rest[end+len(closeText):]
	}
	return strings.TrimSpace(text.String())
}

var xmlEntities = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'", "&amp;", "&")

func unescapeXML(s string) string {
	return xmlEntities.Replace(s)
}
