package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cardauth/internal/models"

	"gorm.io/gorm"
)

// RequestRepository persists authorization requests keyed by requestId.
type RequestRepository interface {
	Create(ctx context.Context, request *models.AuthorizationRequest) error
	GetByRequestID(ctx context.Context, requestID int64) (*models.AuthorizationRequest, error)
	ExistsByRequestID(ctx context.Context, requestID int64) (bool, error)
	MarkProcessed(ctx context.Context, requestID int64, at time.Time) error
	// WithTx returns a repository bound to the given transaction handle.
	WithTx(tx *gorm.DB) RequestRepository
}

type requestRepository struct {
	db *gorm.DB
}

// NewRequestRepository creates a request repository backed by GORM.
func NewRequestRepository(db *gorm.DB) RequestRepository {
	if db == nil {
		panic("db is required")
	}
	return &requestRepository{db: db}
}

func (r *requestRepository) WithTx(tx *gorm.DB) RequestRepository {
	return &requestRepository{db: tx}
}

func (r *requestRepository) Create(ctx context.Context, request *models.AuthorizationRequest) error {
	if err := r.db.WithContext(ctx).Create(request).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to create request: %w", err)
	}
	return nil
}

func (r *requestRepository) GetByRequestID(ctx context.Context, requestID int64) (*models.AuthorizationRequest, error) {
	var request models.AuthorizationRequest
	err := r.db.WithContext(ctx).Where("request_id = ?", requestID).First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return &request, nil
}

func (r *requestRepository) ExistsByRequestID(ctx context.Context, requestID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.AuthorizationRequest{}).
		Where("request_id = ?", requestID).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check request existence: %w", err)
	}
	return count > 0, nil
}

func (r *requestRepository) MarkProcessed(ctx context.Context, requestID int64, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.AuthorizationRequest{}).
		Where("request_id = ?", requestID).
		Updates(map[string]interface{}{"processed": true, "processed_at": at}).Error
}

// isUniqueViolation detects a unique constraint failure without depending on
// the driver's error type.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "23505")
}
