package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"db-advisor/internal/models"

	"go.uber.org/zap"
)

// KnowledgeLoader reads one markdown description per known database.
type KnowledgeLoader struct {
	dir    string
	logger *zap.Logger
}

func NewKnowledgeLoader(dir string, logger *zap.Logger) *KnowledgeLoader {
	return &KnowledgeLoader{dir: dir, logger: logger}
}

// DescriptionFile returns the file name holding the description of the
// database at position i of the canonical list, e.g. "5-Neo4j.md".
func DescriptionFile(i int, name string) string {
	return fmt.Sprintf("%d-%s.md", i+1, name)
}

// Load returns entries in the order of names. Entries whose description is
// missing, unreadable or empty are skipped with a warning.
func (l *KnowledgeLoader) Load(names []string) []models.KnowledgeEntry {
	entries := make([]models.KnowledgeEntry, 0, len(names))
	seen := make(map[string]bool, len(names))

	for i, name := range names {
		if seen[name] {
			l.logger.Warn("Duplicate knowledge base name skipped", zap.String("name", name))
			continue
		}
		seen[name] = true

		path := filepath.Join(l.dir, DescriptionFile(i, name))
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				l.logger.Warn("Description file not found", zap.String("name", name), zap.String("path", path))
			} else {
				l.logger.Warn("Failed to read description", zap.String("name", name), zap.String("path", path), zap.Error(err))
			}
			continue
		}

		description := strings.TrimSpace(sanitizeUTF8(string(data)))
		if description == "" {
			l.logger.Warn("Description file is empty", zap.String("name", name), zap.String("path", path))
			continue
		}

		entries = append(entries, models.KnowledgeEntry{Name: name, Description: description})
		l.logger.Debug("Loaded description", zap.String("name", name), zap.Int("length", len(description)))
	}

	l.logger.Info("Knowledge base loaded",
		zap.Int("entries", len(entries)),
		zap.Int("expected", len(names)),
	)
	return entries
}
