package service

import (
	"fmt"

	"db-advisor/internal/models"
)

const (
	SchemaGuided  = "guided"
	SchemaClassic = "classic"
)

// KnowledgeBaseNames is the canonical corpus order.
var KnowledgeBaseNames = []string{
	"PostgreSQL",
	"HBase",
	"MongoDB",
	"CouchDB",
	"Neo4j",
	"DynamoDB",
	"Redis",
}

// SchemaByName returns the question schema for a deployment. bonus is the
// magnitude applied by every rule of the schema.
func SchemaByName(name string, bonus float64) (*models.QuestionSchema, error) {
	switch name {
	case SchemaGuided:
		return GuidedSchema(bonus), nil
	case SchemaClassic:
		return ClassicSchema(), nil
	default:
		return nil, fmt.Errorf("unknown question schema %q", name)
	}
}

// ClassicSchema has short choice keywords and no rule table.
func ClassicSchema() *models.QuestionSchema {
	return &models.QuestionSchema{
		Name:               SchemaClassic,
		EmbeddingDimension: 768,
		Questions: []models.Question{
			{ID: "q1", Label: "data type", Prompt: "What type of data are you primarily working with?",
				Choices: []string{"structured", "unstructured", "semi-structured", "graph", "time-series"}},
			{ID: "q2", Label: "performance requirements", Prompt: "What are your performance requirements?",
				Choices: []string{"high-speed", "moderate", "high-throughput", "real-time", "batch"}},
			{ID: "q3", Label: "data volume", Prompt: "What is your expected data volume?",
				Choices: []string{"small", "medium", "large", "massive", "growing"}},
			{ID: "q4", Label: "consistency needs", Prompt: "What consistency guarantees do you need?",
				Choices: []string{"strong", "eventual", "weak", "custom", "none"}},
			{ID: "q5", Label: "deployment environment", Prompt: "What is your deployment environment?",
				Choices: []string{"cloud", "on-premise", "hybrid", "edge", "distributed"}},
			{ID: "q6", Label: "expertise level", Prompt: "What is your team's expertise level?",
				Choices: []string{"beginner", "intermediate", "expert", "mixed", "consulting"}},
			{ID: "q7", Label: "budget constraints", Prompt: "What is your budget constraint?",
				Choices: []string{"low", "medium", "high", "enterprise", "open-source"}},
			{ID: "q8", Label: "time requirements", Prompt: "What is your time-to-market requirement?",
				Choices: []string{"immediate", "quick", "moderate", "planned", "flexible"}},
			{ID: "q9", Label: "integration needs", Prompt: "What integration requirements do you have?",
				Choices: []string{"simple", "moderate", "complex", "legacy", "modern"}},
			{ID: "q10", Label: "scaling approach", Prompt: "What is your scaling strategy?",
				Choices: []string{"vertical", "horizontal", "auto", "manual", "hybrid"}},
		},
	}
}

// Choices of the guided schema referenced by its rule table.
const (
	ChoiceStructured     = "Structured (tables, rows, columns)"
	ChoiceSemiStructured = "Semi-structured (JSON, flexible fields)"
	ChoiceGraph          = "Graph-like (networks, relationships)"
	ChoiceKeyValue       = "Key-value or cache style"
	ChoiceColumnFamily   = "Column-family (huge sparse tables)"
	ChoiceOffline        = "Yes, the app must work offline and sync later"
	ChoiceTransactional  = "Transactional systems (banking, payments)"
	ChoiceWebMobile      = "Web/mobile apps with flexible data"
	ChoiceSocial         = "Social networks / recommendation engines"
	ChoiceHighScale      = "Gaming leaderboards / IoT / high-scale apps"
	ChoiceBigData        = "Big data logs / time-series / sensors"
	ChoiceCaching        = "Caching / real-time analytics / sessions"
)

// GuidedSchema has descriptive choices, a free-text last question and a rule table.
func GuidedSchema(bonus float64) *models.QuestionSchema {
	return &models.QuestionSchema{
		Name:               SchemaGuided,
		EmbeddingDimension: 1024,
		Questions: []models.Question{
			{ID: "q1", Label: "data model", Prompt: "What does your data look like?",
				Choices: []string{ChoiceStructured, ChoiceSemiStructured, ChoiceGraph, ChoiceKeyValue, ChoiceColumnFamily}},
			{ID: "q2", Label: "relationship queries", Prompt: "How important is querying relationships between records?",
				Choices: []string{"Very important (e.g., social networks, fraud detection)", "Somewhat important", "Not important"}},
			{ID: "q3", Label: "data volume", Prompt: "Do you expect very large amounts of data?",
				Choices: []string{"Yes, I expect petabytes of data", "Yes, but more like terabytes", "No, only gigabytes or less"}},
			{ID: "q4", Label: "consistency", Prompt: "How strict must data consistency be?",
				Choices: []string{"Must always be consistent (banking, financial apps)", "Can tolerate some delays (eventual consistency is fine)", "Not important for my case"}},
			{ID: "q5", Label: "availability", Prompt: "How critical is availability?",
				Choices: []string{"Always available is critical (uptime must not drop)", "Availability is important, but consistency is more important", "I don't really care much"}},
			{ID: "q6", Label: "schema flexibility", Prompt: "Will your data structures change often?",
				Choices: []string{"Yes, data structures will change often", "No, fixed schema is fine"}},
			{ID: "q7", Label: "latency", Prompt: "How fast must reads and writes be?",
				Choices: []string{"Yes, I need sub-millisecond performance", "Fast but not ultra-critical", "Speed is not my top concern"}},
			{ID: "q8", Label: "offline support", Prompt: "Must the application work offline?",
				Choices: []string{ChoiceOffline, "No, always online access is expected"}},
			{ID: "q9", Label: "use case", Prompt: "Which use case describes your application best?",
				Choices: []string{ChoiceTransactional, ChoiceWebMobile, ChoiceSocial, ChoiceHighScale, ChoiceBigData, ChoiceCaching}},
			{ID: "q10", Label: "additional requirements", Prompt: "Anything else we should know? (free text)",
				FreeText: true},
		},
		Rules: []models.Rule{
			{QuestionID: "q1", Choice: ChoiceGraph, Target: "Neo4j", Bonus: bonus},
			{QuestionID: "q1", Choice: ChoiceKeyValue, Target: "Redis", Bonus: bonus},
			{QuestionID: "q1", Choice: ChoiceColumnFamily, Target: "HBase", Bonus: bonus},
			{QuestionID: "q1", Choice: ChoiceStructured, Target: "PostgreSQL", Bonus: bonus},
			{QuestionID: "q1", Choice: ChoiceSemiStructured, Target: "MongoDB", Bonus: bonus},
			{QuestionID: "q8", Choice: ChoiceOffline, Target: "CouchDB", Bonus: bonus},
			{QuestionID: "q9", Choice: ChoiceHighScale, Target: "DynamoDB", Bonus: bonus},
			{QuestionID: "q9", Choice: ChoiceCaching, Target: "Redis", Bonus: bonus},
			{QuestionID: "q9", Choice: ChoiceTransactional, Target: "PostgreSQL", Bonus: bonus},
			{QuestionID: "q9", Choice: ChoiceSocial, Target: "Neo4j", Bonus: bonus},
		},
	}
}
