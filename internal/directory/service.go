package directory

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kdimtricp/otoscan/internal/database"
	"github.com/kdimtricp/otoscan/internal/metrics"
	"github.com/kdimtricp/otoscan/internal/models"
	"go.uber.org/zap"
)

type Repository interface {
	Insert(ctx context.Context, doctor *models.Doctor) error
	GetByMobileNumber(ctx context.Context, mobileNumber string) (*models.Doctor, error)
	List(ctx context.Context) ([]models.Doctor, error)
	Delete(ctx context.Context, id uint) error
}

type SignupRequest struct {
	Name           string `json:"name" form:"name" validate:"required,max=255"`
	MobileNumber   string `json:"mobile_number" form:"mobile_number" validate:"required,e164"`
	Password       string `json:"password" form:"password" validate:"required,max=255"`
	Email          string `json:"email" form:"email" validate:"required,email,max=255"`
	HospitalName   string `json:"hospital_name" form:"hospital_name" validate:"required,max=255"`
	DoctorIDNumber string `json:"doctor_id_number" form:"doctor_id_number" validate:"required,max=255"`
}

type Service struct {
	repo      Repository
	passwords PasswordScheme
	validate  *validator.Validate
	logger    *zap.Logger
}

func NewService(repo Repository, passwords PasswordScheme, logger *zap.Logger) *Service {
	if passwords == nil {
		passwords = PlainPasswords{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &Service{
		repo:      repo,
		passwords: passwords,
		validate:  validate,
		logger:    logger,
	}
}

// Create validates and stores a new doctor, returning it with its assigned id.
func (s *Service) Create(ctx context.Context, req SignupRequest) (*models.Doctor, error) {
	req = trimSignup(req)

	if err := s.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return nil, fmt.Errorf("validate signup: %w", err)
		}
		observe("create", "invalid")
		return nil, toValidationError(fieldErrs)
	}

	password, err := s.passwords.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	doctor := &models.Doctor{
		Name:           req.Name,
		MobileNumber:   req.MobileNumber,
		Password:       password,
		Email:          req.Email,
		HospitalName:   req.HospitalName,
		DoctorIDNumber: req.DoctorIDNumber,
	}

	if err := s.repo.Insert(ctx, doctor); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			observe("create", "invalid")
			verr := &ValidationError{}
			verr.add("mobile_number", "doctor with this mobile number already exists.")
			return nil, verr
		}
		observe("create", "error")
		return nil, err
	}

	observe("create", "ok")
	s.logger.Info("doctor created", zap.Uint("doctor_id", doctor.ID))
	return doctor, nil
}

// Login returns the doctor whose mobile number and password both match.
func (s *Service) Login(ctx context.Context, mobileNumber, password string) (*models.Doctor, error) {
	mobileNumber = strings.TrimSpace(mobileNumber)
	if mobileNumber == "" || password == "" {
		observe("login", "invalid")
		verr := &ValidationError{}
		if mobileNumber == "" {
			verr.add("mobile_number", "This field is required.")
		}
		if password == "" {
			verr.add("password", "This field is required.")
		}
		return nil, verr
	}

	doctor, err := s.repo.GetByMobileNumber(ctx, mobileNumber)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			observe("login", "denied")
			return nil, ErrInvalidCredentials
		}
		observe("login", "error")
		return nil, err
	}

	if !s.passwords.Matches(doctor.Password, password) {
		observe("login", "denied")
		return nil, ErrInvalidCredentials
	}

	observe("login", "ok")
	return doctor, nil
}

func (s *Service) List(ctx context.Context) ([]models.Doctor, error) {
	doctors, err := s.repo.List(ctx)
	if err != nil {
		observe("list", "error")
		return nil, err
	}
	observe("list", "ok")
	return doctors, nil
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			observe("delete", "not_found")
			return ErrNotFound
		}
		observe("delete", "error")
		return err
	}

	observe("delete", "ok")
	s.logger.Info("doctor deleted", zap.Uint("doctor_id", id))
	return nil
}

func trimSignup(req SignupRequest) SignupRequest {
	req.Name = strings.TrimSpace(req.Name)
	req.MobileNumber = strings.TrimSpace(req.MobileNumber)
	req.Email = strings.TrimSpace(req.Email)
	req.HospitalName = strings.TrimSpace(req.HospitalName)
	req.DoctorIDNumber = strings.TrimSpace(req.DoctorIDNumber)
	return req
}

func toValidationError(fieldErrs validator.ValidationErrors) *ValidationError {
	verr := &ValidationError{}
	for _, fe := range fieldErrs {
		verr.add(fe.Field(), fieldMessage(fe))
	}
	return verr
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "e164":
		return "Enter a valid phone number."
	case "email":
		return "Enter a valid email address."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	default:
		return "Invalid value."
	}
}

func observe(operation, result string) {
	metrics.DirectoryOperationsTotal.WithLabelValues(operation, result).Inc()
}
