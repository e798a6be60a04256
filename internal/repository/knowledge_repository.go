package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"db-advisor/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var collectionNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// PostgresIndex stores collections as pgvector tables, one table per collection.
type PostgresIndex struct {
	db     *pgxpool.Pool
	logger *zap.Logger

	mu         sync.RWMutex
	dimensions map[string]int
}

func NewPostgresIndex(db *pgxpool.Pool, logger *zap.Logger) *PostgresIndex {
	return &PostgresIndex{
		db:         db,
		logger:     logger,
		dimensions: make(map[string]int),
	}
}

func (r *PostgresIndex) CreateCollection(ctx context.Context, name string, dimension int) error {
	if err := validateCollectionName(name); err != nil {
		return err
	}
	if dimension <= 0 {
		return fmt.Errorf("invalid vector dimension %d", dimension)
	}

	existing, err := r.storedDimension(ctx, name)
	if err != nil {
		return err
	}
	if existing > 0 {
		r.setDimension(name, existing)
		if existing != dimension {
			return fmt.Errorf("%w: collection %s stores %d values, configured %d",
				models.ErrDimensionMismatch, name, existing, dimension)
		}
		return fmt.Errorf("%w: %s", models.ErrCollectionExists, name)
	}

	if _, err := r.db.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to enable pgvector: %w", err)
	}
	if _, err := r.db.Exec(ctx, createTableSQL(name, dimension)); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}

	r.setDimension(name, dimension)
	r.logger.Info("Collection created",
		zap.String("collection", name),
		zap.Int("dimension", dimension),
	)
	return nil
}

// Upsert writes the batch in one transaction so a failure leaves nothing behind.
func (r *PostgresIndex) Upsert(ctx context.Context, collection string, points []models.IndexedPoint) error {
	if len(points) == 0 {
		return nil
	}
	dimension, err := r.dimension(ctx, collection)
	if err != nil {
		return err
	}
	for _, p := range points {
		if len(p.Vector) != dimension {
			return fmt.Errorf("%w: point %s has %d values, collection expects %d",
				models.ErrDimensionMismatch, p.Payload.Name, len(p.Vector), dimension)
		}
	}

	sql, args, err := upsertQuery(collection, points).ToSql()
	if err != nil {
		return err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return tx.Commit(ctx)
}

func (r *PostgresIndex) Search(ctx context.Context, collection string, vector []float32, limit int) ([]models.SearchCandidate, error) {
	dimension, err := r.dimension(ctx, collection)
	if err != nil {
		return nil, err
	}
	if len(vector) != dimension {
		return nil, fmt.Errorf("%w: query has %d values, collection expects %d",
			models.ErrDimensionMismatch, len(vector), dimension)
	}

	sql, args, err := searchQuery(collection, vector, limit).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search collection %s: %w", collection, err)
	}
	defer rows.Close()

	var results []models.SearchCandidate
	for rows.Next() {
		var c models.SearchCandidate
		if err := rows.Scan(&c.Name, &c.Description, &c.Similarity); err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

func (r *PostgresIndex) Clear(ctx context.Context, collection string) error {
	if err := validateCollectionName(collection); err != nil {
		return err
	}
	sql, args, err := squirrel.Delete(collection).PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to clear collection %s: %w", collection, err)
	}
	return nil
}

func (r *PostgresIndex) Count(ctx context.Context, collection string) (int, error) {
	if err := validateCollectionName(collection); err != nil {
		return 0, err
	}
	sql, args, err := squirrel.Select("count(*)").From(collection).PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return 0, err
	}
	var count int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count collection %s: %w", collection, err)
	}
	return count, nil
}

func (r *PostgresIndex) dimension(ctx context.Context, collection string) (int, error) {
	if err := validateCollectionName(collection); err != nil {
		return 0, err
	}
	r.mu.RLock()
	dim, ok := r.dimensions[collection]
	r.mu.RUnlock()
	if ok {
		return dim, nil
	}

	dim, err := r.storedDimension(ctx, collection)
	if err != nil {
		return 0, err
	}
	if dim == 0 {
		return 0, fmt.Errorf("%w: %s", models.ErrCollectionNotFound, collection)
	}
	r.setDimension(collection, dim)
	return dim, nil
}

// storedDimension reads the vector(N) modifier of the embedding column, 0 when the table is absent.
func (r *PostgresIndex) storedDimension(ctx context.Context, collection string) (int, error) {
	sql, args, err := squirrel.Select("atttypmod").
		From("pg_attribute").
		Where("attrelid = to_regclass(?)", collection).
		Where(squirrel.Eq{"attname": "embedding"}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}

	var dim int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&dim); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to inspect collection %s: %w", collection, err)
	}
	return dim, nil
}

func (r *PostgresIndex) setDimension(collection string, dim int) {
	r.mu.Lock()
	r.dimensions[collection] = dim
	r.mu.Unlock()
}

func validateCollectionName(name string) error {
	if !collectionNamePattern.MatchString(name) {
		return fmt.Errorf("invalid collection name %q", name)
	}
	return nil
}

func createTableSQL(name string, dimension int) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id UUID PRIMARY KEY,
	seq BIGSERIAL,
	name TEXT NOT NULL,
	description TEXT NOT NULL,
	embedding vector(%d) NOT NULL
)`, name, dimension)
}

func upsertQuery(collection string, points []models.IndexedPoint) squirrel.InsertBuilder {
	query := squirrel.Insert(collection).
		Columns("id", "name", "description", "embedding").
		Suffix("ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description, embedding = EXCLUDED.embedding").
		PlaceholderFormat(squirrel.Dollar)

	for _, p := range points {
		query = query.Values(p.ID, p.Payload.Name, p.Payload.Description, squirrel.Expr("?::vector", vectorLiteral(p.Vector)))
	}
	return query
}

// searchQuery orders by cosine distance; seq keeps ties in insertion order.
func searchQuery(collection string, vector []float32, limit int) squirrel.SelectBuilder {
	literal := vectorLiteral(vector)
	query := squirrel.Select("name", "description").
		Column(squirrel.Expr("1 - (embedding <=> ?::vector) AS similarity", literal)).
		From(collection).
		OrderByClause("embedding <=> ?::vector ASC, seq ASC", literal).
		PlaceholderFormat(squirrel.Dollar)

	if limit > 0 {
		query = query.Limit(uint64(limit))
	}
	return query
}

// vectorLiteral renders v in pgvector text form, e.g. [0.1,0.2].
func vectorLiteral(v []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(x), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
