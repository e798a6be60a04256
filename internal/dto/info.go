package dto

type FeaturesResponse struct {
	VectorSearch    string `json:"vector_search"`
	LLMExplanations bool   `json:"llm_explanations"`
	LLMModel        string `json:"llm_model"`
}

type RootResponse struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Features  FeaturesResponse  `json:"features"`
	Endpoints map[string]string `json:"endpoints"`
}

type QuestionsResponse struct {
	Questions     map[string]string   `json:"questions"`
	AnswerChoices map[string][]string `json:"answer_choices"`
	Description   string              `json:"description"`
}

type HealthResponse struct {
	Status           string `json:"status"`
	KnowledgeEntries int    `json:"knowledge_entries"`
	IndexPoints      int    `json:"index_points"`
}
