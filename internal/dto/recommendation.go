package dto

// RecommendRequest is the body of POST /recommend.
type RecommendRequest struct {
	Answers map[string][]string `json:"answers"`
}

type RecommendationResponse struct {
	Name        string  `json:"name"`
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
}

type RecommendResponse struct {
	Recommendations []RecommendationResponse `json:"recommendations"`
	QuerySummary    string                   `json:"query_summary"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
