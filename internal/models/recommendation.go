package models

// Recommendation is the final output unit. Score is the adjusted score.
type Recommendation struct {
	Name        string  `json:"name"`
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
}

// RecommendationResult is a full response for one AnswerSet.
type RecommendationResult struct {
	Recommendations []Recommendation
	QuerySummary    string
}

// Rule adds Bonus to Target's score when Choice is selected under QuestionID.
type Rule struct {
	QuestionID string
	Choice     string
	Target     string
	Bonus      float64
}

// Matches reports whether answers select the rule's choice.
func (r Rule) Matches(answers AnswerSet) bool {
	for _, selected := range answers[r.QuestionID] {
		if selected == r.Choice {
			return true
		}
	}
	return false
}
