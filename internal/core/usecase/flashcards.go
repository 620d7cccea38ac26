package usecase

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kirillkom/study-assistant/internal/core/domain"
)

// qaMarker matches "Q:", "Q1:", "A 3:" and similar labels when they open a
// line, follow a sentence break or follow a run of spaces. Group 1 spans the
// label itself, so text before it stays with the previous field.
var qaMarker = regexp.MustCompile(`(?m)(?:^\s*|[.?!)]\s+|\s{2,})((?:[-•]\s*)?[*_]*([QA])\s*(\d*)\s*:)`)

// ParseFlashcards reads flashcards from an LLM reply. It accepts a JSON object
// with a "flashcards" array, a bare JSON array, or numbered "Q1: ... A1: ..."
// text where pairs may share a line.
func ParseFlashcards(raw string) []domain.Flashcard {
	raw = strings.TrimSpace(stripCodeFence(raw))
	if raw == "" {
		return []domain.Flashcard{}
	}
	if cards, ok := parseJSONFlashcards(raw); ok {
		return cards
	}
	return parseLabelledFlashcards(raw)
}

func parseJSONFlashcards(raw string) ([]domain.Flashcard, bool) {
	var wrapped struct {
		Flashcards []domain.Flashcard `json:"flashcards"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &wrapped); err == nil && wrapped.Flashcards != nil {
		return cleanCards(wrapped.Flashcards), true
	}
	var bare []domain.Flashcard
	if err := json.Unmarshal([]byte(raw), &bare); err == nil {
		return cleanCards(bare), true
	}
	return nil, false
}

type qaLabel struct {
	start, end int
	kind       string
}

// qaLabels keeps the markers that can open a field. An answer numbered
// differently from the open question is treated as text.
func qaLabels(raw string) []qaLabel {
	var labels []qaLabel
	openNumber := ""
	for _, m := range qaMarker.FindAllStringSubmatchIndex(raw, -1) {
		kind, number := raw[m[4]:m[5]], raw[m[6]:m[7]]
		if kind == "A" && number != "" && openNumber != "" && number != openNumber {
			continue
		}
		if kind == "Q" {
			openNumber = number
		}
		labels = append(labels, qaLabel{start: m[2], end: m[1], kind: kind})
	}
	return labels
}

func parseLabelledFlashcards(raw string) []domain.Flashcard {
	labels := qaLabels(raw)
	cards := []domain.Flashcard{}

	var question string
	haveQuestion := false
	for i, l := range labels {
		end := len(raw)
		if i+1 < len(labels) {
			end = labels[i+1].start
		}
		body := cleanField(raw[l.end:end])

		switch l.kind {
		case "Q":
			question, haveQuestion = body, true
		case "A":
			if haveQuestion && question != "" && body != "" {
				cards = append(cards, domain.Flashcard{Question: question, Answer: body})
			}
			haveQuestion = false
		}
	}
	return cards
}

func cleanCards(in []domain.Flashcard) []domain.Flashcard {
	out := make([]domain.Flashcard, 0, len(in))
	for _, c := range in {
		q, a := cleanField(c.Question), cleanField(c.Answer)
		if q == "" || a == "" {
			continue
		}
		out = append(out, domain.Flashcard{Question: q, Answer: a})
	}
	return out
}

func cleanField(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "*_ \t\r\n")
	s = strings.TrimLeft(s, "-• ")
	return strings.Join(strings.Fields(s), " ")
}

func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return raw
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if nl := strings.IndexByte(trimmed, '\n'); nl >= 0 {
		trimmed = trimmed[nl+1:]
	}
	return strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
