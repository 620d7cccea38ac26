package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/study-assistant/internal/core/domain"
	"github.com/kirillkom/study-assistant/internal/core/ports"
)

const (
	analysisSystemPrompt = `You are an expert tutor using the Feynman Technique to help students learn.
Analyze the student's explanation of a topic and identify:
1. Any misconceptions or errors
2. Gaps in understanding
3. Areas where the explanation could be clearer
4. Whether they truly understand the concept

Provide specific, constructive feedback that will help them improve their understanding.`

	reviewFlashcardsSystemPrompt = `Based on the student's explanation and the gaps in their understanding,
create targeted flashcards that will help them better understand the concept.
Format each flashcard as a question and answer pair, one per line, as "Q: ..." followed by "A: ...".`

	suggestionsSystemPrompt = `Based on the analysis, provide specific suggestions for how the student
can improve their explanation next time. Focus on actionable steps they can take.`
)

// understandingMarkers in the analysis mean the learner got it.
var understandingMarkers = []string{"good understanding", "well explained"}

// ReviewUseCase grades an explanation with three completions: an analysis,
// flashcards targeting the gaps it found, and improvement suggestions.
type ReviewUseCase struct {
	completer     ports.Completer
	maxInputChars int
}

func NewReviewUseCase(completer ports.Completer, maxInputChars int) *ReviewUseCase {
	if maxInputChars <= 0 {
		maxInputChars = DefaultMaxInputChars
	}
	return &ReviewUseCase{completer: completer, maxInputChars: maxInputChars}
}

func (uc *ReviewUseCase) Review(ctx context.Context, req domain.ExplanationRequest) (*domain.ExplanationReview, error) {
	subject := strings.TrimSpace(req.Topic)
	if subject == "" {
		subject = truncateRunes(strings.TrimSpace(req.StudyMaterial), uc.maxInputChars)
	}
	explanation := truncateRunes(strings.TrimSpace(req.Explanation), uc.maxInputChars)
	if subject == "" || explanation == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "review explanation", errors.New("missing topic or explanation"))
	}

	base := fmt.Sprintf("Topic: %s\n\nStudent's Explanation: %s", subject, explanation)
	analysis, err := uc.completer.Complete(ctx, ports.CompletionRequest{
		System: analysisSystemPrompt,
		Prompt: base,
	})
	if err != nil {
		return nil, fmt.Errorf("analyze explanation: %w", err)
	}

	cardsRaw, err := uc.completer.Complete(ctx, ports.CompletionRequest{
		System: reviewFlashcardsSystemPrompt,
		Prompt: base + "\n\nAnalysis: " + analysis,
	})
	if err != nil {
		return nil, fmt.Errorf("generate review flashcards: %w", err)
	}

	suggestionsRaw, err := uc.completer.Complete(ctx, ports.CompletionRequest{
		System: suggestionsSystemPrompt,
		Prompt: "Analysis: " + analysis,
	})
	if err != nil {
		return nil, fmt.Errorf("generate suggestions: %w", err)
	}

	return &domain.ExplanationReview{
		Feedback:    strings.TrimSpace(analysis),
		Corrections: nonEmptyLines(analysis, nil),
		Flashcards:  parseLineFlashcards(cardsRaw),
		Suggestions: nonEmptyLines(suggestionsRaw, isQALine),
		Understood:  mentionsUnderstanding(analysis),
	}, nil
}

func nonEmptyLines(text string, skip func(string) bool) []string {
	out := []string{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || (skip != nil && skip(line)) {
			continue
		}
		out = append(out, line)
	}
	return out
}

func isQALine(line string) bool {
	return strings.HasPrefix(line, "Q:") || strings.HasPrefix(line, "A:")
}

// parseLineFlashcards pairs each "Q:" line with the next "A:" line.
func parseLineFlashcards(text string) []domain.Flashcard {
	cards := []domain.Flashcard{}
	question := ""
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Q:"):
			question = strings.TrimSpace(line[2:])
		case strings.HasPrefix(line, "A:") && question != "":
			cards = append(cards, domain.Flashcard{Question: question, Answer: strings.TrimSpace(line[2:])})
			question = ""
		}
	}
	return cards
}

func mentionsUnderstanding(analysis string) bool {
	lower := strings.ToLower(analysis)
	for _, marker := range understandingMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
