package service

import (
	"strings"

	"db-advisor/internal/models"
)

const (
	queryPrefix = "I need a database for an application with "
	querySuffix = "The database should be well-suited for these requirements and provide good performance and reliability."
)

// QueryBuilder turns an AnswerSet into a natural-language search query.
type QueryBuilder struct {
	schema *models.QuestionSchema
}

func NewQueryBuilder(schema *models.QuestionSchema) *QueryBuilder {
	return &QueryBuilder{schema: schema}
}

// Build renders one "<label>: <choices>" clause per answered question in
// schema order. Question ids the schema does not know are dropped.
func (b *QueryBuilder) Build(answers models.AnswerSet) string {
	var clauses []string
	for _, q := range b.schema.Questions {
		selected, ok := answers[q.ID]
		if !ok {
			continue
		}
		clauses = append(clauses, q.Label+": "+strings.Join(selected, ", "))
	}

	var builder strings.Builder
	builder.WriteString(queryPrefix)
	builder.WriteString(strings.Join(clauses, "; "))
	builder.WriteString(". ")
	builder.WriteString(querySuffix)
	return sanitizeUTF8(builder.String())
}
