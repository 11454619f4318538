package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/top3hunter/recommend-service/internal/domain"
)

// GormConfigurationRepository implements ConfigurationRepository using GORM.
type GormConfigurationRepository struct {
	db *gorm.DB
}

// NewGormConfigurationRepository creates a new GORM-based configuration repository.
func NewGormConfigurationRepository(db *gorm.DB) *GormConfigurationRepository {
	return &GormConfigurationRepository{db: db}
}

// GetByKey retrieves a configuration entry by key.
func (r *GormConfigurationRepository) GetByKey(ctx context.Context, key string) (*domain.Configuration, error) {
	var model domain.ConfigurationModel
	result := r.db.WithContext(ctx).First(&model, "key = ?", key)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrConfigNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// GetByGroup retrieves all configuration entries for a group.
func (r *GormConfigurationRepository) GetByGroup(ctx context.Context, group string) ([]domain.Configuration, error) {
	var models []domain.ConfigurationModel
	result := r.db.WithContext(ctx).Where("group_name = ?", group).Order("key").Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}
	return toDomainList(models), nil
}

// List retrieves all configuration entries.
func (r *GormConfigurationRepository) List(ctx context.Context) ([]domain.Configuration, error) {
	var models []domain.ConfigurationModel
	result := r.db.WithContext(ctx).Order("group_name, key").Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}
	return toDomainList(models), nil
}

// Upsert writes a configuration value, creating the row when absent.
// Last write wins for concurrent updates to the same key; value and group both
// follow the write.
func (r *GormConfigurationRepository) Upsert(ctx context.Context, cfg *domain.Configuration) error {
	model := domain.ConfigurationToModel(cfg)
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "group_name", "updated_at"}),
	}).Create(model)
	if result.Error != nil {
		return result.Error
	}
	cfg.CreatedAt = model.CreatedAt
	cfg.UpdatedAt = model.UpdatedAt
	return nil
}

// Delete removes a configuration entry.
func (r *GormConfigurationRepository) Delete(ctx context.Context, key string) error {
	result := r.db.WithContext(ctx).Delete(&domain.ConfigurationModel{}, "key = ?", key)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConfigNotFound
	}
	return nil
}

// Count returns the number of configuration entries.
func (r *GormConfigurationRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&domain.ConfigurationModel{}).Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}
	return count, nil
}

func toDomainList(models []domain.ConfigurationModel) []domain.Configuration {
	configs := make([]domain.Configuration, 0, len(models))
	for i := range models {
		configs = append(configs, *models[i].ToDomain())
	}
	return configs
}
