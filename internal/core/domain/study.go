package domain

import "time"

type GuideStatus string

const (
	GuideUploaded   GuideStatus = "uploaded"
	GuideProcessing GuideStatus = "processing"
	GuideReady      GuideStatus = "ready"
	GuideFailed     GuideStatus = "failed"
)

type ArtifactKind string

const (
	ArtifactPDF   ArtifactKind = "pdf"
	ArtifactAudio ArtifactKind = "audio"
	ArtifactDOCX  ArtifactKind = "docx"
	ArtifactXLSX  ArtifactKind = "xlsx"
)

// Filename is the download name used for an artifact of this kind.
func (k ArtifactKind) Filename() string {
	switch k {
	case ArtifactPDF:
		return "study_guide.pdf"
	case ArtifactAudio:
		return "summary_audio.mp3"
	case ArtifactDOCX:
		return "study_guide.docx"
	case ArtifactXLSX:
		return "flashcards.xlsx"
	default:
		return string(k)
	}
}

func (k ArtifactKind) ContentType() string {
	switch k {
	case ArtifactPDF:
		return "application/pdf"
	case ArtifactAudio:
		return "audio/mpeg"
	case ArtifactDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ArtifactXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}

func ParseArtifactKind(raw string) (ArtifactKind, bool) {
	switch kind := ArtifactKind(raw); kind {
	case ArtifactPDF, ArtifactAudio, ArtifactDOCX, ArtifactXLSX:
		return kind, true
	default:
		return "", false
	}
}

type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type StudyContent struct {
	Summary    string      `json:"summary"`
	Flashcards []Flashcard `json:"flashcards"`
}

type StudyGuide struct {
	ID         string                  `json:"id"`
	Filename   string                  `json:"filename"`
	MimeType   string                  `json:"mime_type"`
	SourceKey  string                  `json:"source_key"`
	Summary    string                  `json:"summary,omitempty"`
	Flashcards []Flashcard             `json:"flashcards,omitempty"`
	Artifacts  map[ArtifactKind]string `json:"artifacts,omitempty"`
	Status     GuideStatus             `json:"status"`
	Error      string                  `json:"error,omitempty"`
	CreatedAt  time.Time               `json:"created_at"`
	UpdatedAt  time.Time               `json:"updated_at"`
}

func (g *StudyGuide) Content() StudyContent {
	return StudyContent{Summary: g.Summary, Flashcards: g.Flashcards}
}

// Artifact is an opened rendered file ready to be streamed to a client.
type Artifact struct {
	Kind        ArtifactKind
	Filename    string
	ContentType string
	Size        int64
}
