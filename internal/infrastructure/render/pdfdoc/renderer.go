// Package pdfdoc renders a study guide as a PDF with a summary section and a
// numbered flashcard list.
package pdfdoc

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/kirillkom/study-assistant/internal/core/domain"
)

const (
	fontFamily = "Helvetica"
	lineHeight = 6.0
)

type Renderer struct{}

func New() *Renderer {
	return &Renderer{}
}

func (r *Renderer) Kind() domain.ArtifactKind { return domain.ArtifactPDF }

func (r *Renderer) Render(_ context.Context, title string, content domain.StudyContent, w io.Writer) error {
	if strings.TrimSpace(title) == "" {
		title = "Study Guide"
	}

	doc := fpdf.New("P", "mm", "Letter", "")
	doc.SetTitle(title, true)
	doc.SetMargins(20, 20, 20)
	doc.SetAutoPageBreak(true, 20)
	// Core fonts are cp1252; translate so accented text survives.
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.AddPage()

	doc.SetFont(fontFamily, "B", 24)
	doc.MultiCell(0, 12, tr(title), "", "L", false)
	doc.Ln(8)

	heading(doc, tr, "Summary")
	doc.SetFont(fontFamily, "", 11)
	for _, paragraph := range paragraphs(content.Summary) {
		doc.MultiCell(0, lineHeight, tr(paragraph), "", "L", false)
		doc.Ln(2)
	}
	doc.Ln(6)

	heading(doc, tr, "Flashcards")
	if len(content.Flashcards) == 0 {
		doc.SetFont(fontFamily, "I", 11)
		doc.MultiCell(0, lineHeight, "No flashcards were generated.", "", "L", false)
	}
	for i, card := range content.Flashcards {
		doc.SetFont(fontFamily, "B", 11)
		doc.MultiCell(0, lineHeight, tr(fmt.Sprintf("Q%d: %s", i+1, card.Question)), "", "L", false)
		doc.SetFont(fontFamily, "", 11)
		doc.MultiCell(0, lineHeight, tr(fmt.Sprintf("A%d: %s", i+1, card.Answer)), "", "L", false)
		doc.Ln(3)
	}

	if err := doc.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func heading(doc *fpdf.Fpdf, tr func(string) string, text string) {
	doc.SetFont(fontFamily, "B", 16)
	doc.CellFormat(0, 10, tr(text), "B", 1, "L", false, 0, "")
	doc.Ln(3)
}

func paragraphs(text string) []string {
	var out []string
	for _, block := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(block); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
