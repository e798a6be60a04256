package models

// Question is static configuration presented to the user.
// Label is the phrase used when the answer is rendered into a query.
// A question with FreeText set accepts arbitrary text and has no Choices.
type Question struct {
	ID       string
	Prompt   string
	Label    string
	Choices  []string
	FreeText bool
}

// AnswerSet maps question ids to the selected choices.
type AnswerSet map[string][]string

// QuestionSchema bundles an ordered question list with its rule table and
// the embedding dimensionality it was designed for.
type QuestionSchema struct {
	Name               string
	Questions          []Question
	Rules              []Rule
	EmbeddingDimension int
}

// Question returns the question with the given id.
func (s *QuestionSchema) Question(id string) (Question, bool) {
	for _, q := range s.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}
