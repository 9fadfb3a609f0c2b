package prediction

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists prediction history.
type Repository interface {
	Create(ctx context.Context, r *Record) error
	// Update writes the mutable fields of r. ErrRecordNotFound when absent.
	Update(ctx context.Context, r *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	// List returns records newest first and the total count.
	List(ctx context.Context, limit, offset int) ([]*Record, int64, error)
}
