package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/kdimtricp/otoscan/internal/models"
	"gorm.io/gorm"
)

const defaultListLimit = 50

type ClassificationRepository struct {
	db *DB
}

func NewClassificationRepository(db *DB) *ClassificationRepository {
	return &ClassificationRepository{db: db}
}

func (r *ClassificationRepository) Insert(ctx context.Context, run *models.Classification) error {
	result := r.db.GORM().WithContext(ctx).Create(run)
	if result.Error != nil {
		return fmt.Errorf("failed to insert classification: %w", result.Error)
	}
	return nil
}

func (r *ClassificationRepository) GetByID(ctx context.Context, id string) (*models.Classification, error) {
	var run models.Classification
	result := r.db.GORM().WithContext(ctx).First(&run, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get classification: %w", result.Error)
	}
	return &run, nil
}

// List returns the most recent runs first. A non-positive limit uses the
// default page size.
func (r *ClassificationRepository) List(ctx context.Context, limit int) ([]models.Classification, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	runs := []models.Classification{}
	result := r.db.GORM().WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&runs)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list classifications: %w", result.Error)
	}
	return runs, nil
}
