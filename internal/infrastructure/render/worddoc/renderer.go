// Package worddoc renders a study guide as a Word document.
package worddoc

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"

	"github.com/kirillkom/study-assistant/internal/core/domain"
)

const (
	fontName = "Times New Roman"
	fontSize = 12
)

type Renderer struct {
	tempDir string
}

// New returns a renderer that stages documents under tempDir, or the OS
// temp directory when empty. godocx only saves to paths.
func New(tempDir string) *Renderer {
	return &Renderer{tempDir: tempDir}
}

func (r *Renderer) Kind() domain.ArtifactKind { return domain.ArtifactDOCX }

func (r *Renderer) Render(_ context.Context, title string, content domain.StudyContent, w io.Writer) error {
	if strings.TrimSpace(title) == "" {
		title = "Study Guide"
	}

	doc, err := godocx.NewDocument()
	if err != nil {
		return fmt.Errorf("create docx: %w", err)
	}

	styledRun(doc.AddParagraph(""), title, true, 20)
	doc.AddParagraph("")

	styledRun(doc.AddParagraph(""), "Summary", true, 16)
	for _, line := range strings.Split(content.Summary, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			styledRun(doc.AddParagraph(""), trimmed, false, fontSize)
		}
	}
	doc.AddParagraph("")

	styledRun(doc.AddParagraph(""), "Flashcards", true, 16)
	for i, card := range content.Flashcards {
		styledRun(doc.AddParagraph(""), fmt.Sprintf("Q%d: %s", i+1, card.Question), true, fontSize)
		styledRun(doc.AddParagraph(""), fmt.Sprintf("A%d: %s", i+1, card.Answer), false, fontSize)
	}

	dir, err := os.MkdirTemp(r.tempDir, "studyguide-docx-*")
	if err != nil {
		return fmt.Errorf("create docx staging dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "study_guide.docx")
	if err := doc.SaveTo(path); err != nil {
		return fmt.Errorf("save docx: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open staged docx: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("write docx: %w", err)
	}
	return nil
}

func styledRun(p *docx.Paragraph, text string, bold bool, size uint64) {
	run := p.AddText(text).Font(fontName).Size(size).Color("000000")
	if bold {
		run.Bold(true)
	}
}
