package domain

type ExplanationRequest struct {
	Topic         string `json:"topic"`
	StudyMaterial string `json:"study_material"`
	Explanation   string `json:"explanation"`
}

type ExplanationReview struct {
	Feedback    string      `json:"feedback"`
	Corrections []string    `json:"corrections"`
	Flashcards  []Flashcard `json:"flashcards"`
	Suggestions []string    `json:"suggestions"`
	Understood  bool        `json:"understood"`
}
