package xlsx

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/study-assistant/internal/core/domain"
)

func TestRenderWritesFlashcardDeck(t *testing.T) {
	content := domain.StudyContent{
		Summary: "Vectors have magnitude and direction.",
		Flashcards: []domain.Flashcard{
			{Question: "What is a vector?", Answer: "A quantity with magnitude and direction."},
			{Question: "What is a scalar?", Answer: "A quantity with magnitude only."},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, New().Render(context.Background(), "Physics", content, &buf))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetFlashcards, SheetSummary}, f.GetSheetList())

	rows, err := f.GetRows(SheetFlashcards)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"#", "Question", "Answer"}, rows[0])
	assert.Equal(t, []string{"2", "What is a scalar?", "A quantity with magnitude only."}, rows[2])

	summary, err := f.GetCellValue(SheetSummary, "A1")
	require.NoError(t, err)
	assert.Equal(t, content.Summary, summary)
}

func TestRenderEmptyDeckKeepsHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New().Render(context.Background(), "", domain.StudyContent{}, &buf))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetFlashcards)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
