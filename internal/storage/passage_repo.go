package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_passage_store.go -package=mocks github.com/abch2309-ux/azure-openai-rag-workshop/internal/storage PassageStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a passage does not exist.
var ErrNotFound = errors.New("passage not found")

// PassageStore looks up passage text for vector points whose payload omits it.
type PassageStore interface {
	// GetByID returns the passage for a point id, or ErrNotFound.
	GetByID(ctx context.Context, id string) (*PassageRecord, error)
}

// PassageRepo implements PassageStore on SQLite. Rows are written by the
// ingestion job that fills the vector collection; the service only reads them.
type PassageRepo struct {
	db *sql.DB
}

// NewPassageRepo creates a new PassageRepo.
func NewPassageRepo(db *sql.DB) *PassageRepo {
	return &PassageRepo{db: db}
}

// GetByID gets a passage by its point id.
func (r *PassageRepo) GetByID(ctx context.Context, id string) (*PassageRecord, error) {
	var p PassageRecord
	err := r.db.QueryRowContext(ctx,
		"SELECT id, source, content, updated_at FROM passages WHERE id = ?", id,
	).Scan(&p.ID, &p.Source, &p.Content, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get passage: %w", err)
	}
	return &p, nil
}
