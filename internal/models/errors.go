package models

import "errors"

var (
	ErrEmbeddingNotConfigured = errors.New("embedding provider is not configured")
	ErrDimensionMismatch      = errors.New("embedding dimension mismatch")
	ErrEmptyIndex             = errors.New("similarity index is empty")
	ErrEmptyCorpus            = errors.New("knowledge base is empty")
	ErrCollectionExists       = errors.New("collection already exists")
	ErrCollectionNotFound     = errors.New("collection not found")
)
