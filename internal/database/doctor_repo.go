package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kdimtricp/otoscan/internal/models"
	"gorm.io/gorm"
)

type DoctorRepository struct {
	db *DB
}

func NewDoctorRepository(db *DB) *DoctorRepository {
	return &DoctorRepository{db: db}
}

func (r *DoctorRepository) Insert(ctx context.Context, doctor *models.Doctor) error {
	result := r.db.GORM().WithContext(ctx).Create(doctor)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return fmt.Errorf("failed to insert doctor: %w", ErrDuplicate)
		}
		return fmt.Errorf("failed to insert doctor: %w", result.Error)
	}
	return nil
}

func (r *DoctorRepository) GetByID(ctx context.Context, id uint) (*models.Doctor, error) {
	var doctor models.Doctor
	result := r.db.GORM().WithContext(ctx).First(&doctor, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get doctor: %w", result.Error)
	}
	return &doctor, nil
}

func (r *DoctorRepository) GetByMobileNumber(ctx context.Context, mobileNumber string) (*models.Doctor, error) {
	var doctor models.Doctor
	result := r.db.GORM().WithContext(ctx).First(&doctor, "mobile_number = ?", mobileNumber)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get doctor: %w", result.Error)
	}
	return &doctor, nil
}

func (r *DoctorRepository) List(ctx context.Context) ([]models.Doctor, error) {
	doctors := []models.Doctor{}
	result := r.db.GORM().WithContext(ctx).Order("id").Find(&doctors)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", result.Error)
	}
	return doctors, nil
}

func (r *DoctorRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.GORM().WithContext(ctx).Delete(&models.Doctor{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete doctor: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
