// Package xlsx exports flashcards as a spreadsheet deck that imports cleanly
// into spaced-repetition tools.
package xlsx

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/study-assistant/internal/core/domain"
)

const (
	SheetFlashcards = "Flashcards"
	SheetSummary    = "Summary"
)

type Renderer struct{}

func New() *Renderer {
	return &Renderer{}
}

func (r *Renderer) Kind() domain.ArtifactKind { return domain.ArtifactXLSX }

func (r *Renderer) Render(_ context.Context, _ string, content domain.StudyContent, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetFlashcards); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	wrap, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return fmt.Errorf("create body style: %w", err)
	}

	rows := [][]any{{"#", "Question", "Answer"}}
	for i, card := range content.Flashcards {
		rows = append(rows, []any{i + 1, card.Question, card.Answer})
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetFlashcards, cell, &row); err != nil {
			return fmt.Errorf("write flashcard row %d: %w", i, err)
		}
	}

	if err := f.SetCellStyle(SheetFlashcards, "A1", "C1", header); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	if len(content.Flashcards) > 0 {
		last, err := excelize.CoordinatesToCellName(3, len(rows))
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(SheetFlashcards, "A2", last, wrap); err != nil {
			return fmt.Errorf("style rows: %w", err)
		}
	}
	if err := f.SetColWidth(SheetFlashcards, "A", "A", 5); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetFlashcards, "B", "C", 60); err != nil {
		return err
	}

	if _, err := f.NewSheet(SheetSummary); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	if err := f.SetCellValue(SheetSummary, "A1", content.Summary); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	if err := f.SetCellStyle(SheetSummary, "A1", "A1", wrap); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetSummary, "A", "A", 100); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
