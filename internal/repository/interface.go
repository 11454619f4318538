package repository

import (
	"context"
	"errors"

	"github.com/top3hunter/recommend-service/internal/domain"
)

// ErrConfigNotFound is returned when no row exists for a key.
var ErrConfigNotFound = errors.New("configuration not found")

// ConfigurationRepository defines the interface for configuration persistence.
type ConfigurationRepository interface {
	GetByKey(ctx context.Context, key string) (*domain.Configuration, error)
	GetByGroup(ctx context.Context, group string) ([]domain.Configuration, error)
	List(ctx context.Context) ([]domain.Configuration, error)
	// Upsert updates the value for key, creating the row with the given group
	// when it does not exist yet.
	Upsert(ctx context.Context, cfg *domain.Configuration) error
	Delete(ctx context.Context, key string) error
	Count(ctx context.Context) (int64, error)
}
