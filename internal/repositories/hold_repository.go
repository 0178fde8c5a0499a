package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cardauth/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HoldRepository persists authorization holds. Status/expiry queries are
// backed by a composite index for the sweeper.
type HoldRepository interface {
	Create(ctx context.Context, hold *models.AuthorizationHold) error
	Update(ctx context.Context, hold *models.AuthorizationHold) error
	GetByHoldID(ctx context.Context, holdID int64) (*models.AuthorizationHold, error)
	// GetByHoldIDForUpdate loads the hold under a row lock; must run inside a
	// transaction.
	GetByHoldIDForUpdate(ctx context.Context, tx *gorm.DB, holdID int64) (*models.AuthorizationHold, error)
	GetByRequestID(ctx context.Context, requestID int64) (*models.AuthorizationHold, error)
	ListByAccountID(ctx context.Context, accountID int64, status string) ([]models.AuthorizationHold, error)
	ListByCardID(ctx context.Context, cardID int64) ([]models.AuthorizationHold, error)
	ListExpired(ctx context.Context, asOf time.Time, limit int) ([]models.AuthorizationHold, error)
	// WithTx returns a repository bound to the given transaction handle.
	WithTx(tx *gorm.DB) HoldRepository
}

type holdRepository struct {
	db *gorm.DB
}

// NewHoldRepository creates a hold repository backed by GORM.
func NewHoldRepository(db *gorm.DB) HoldRepository {
	if db == nil {
		panic("db is required")
	}
	return &holdRepository{db: db}
}

func (r *holdRepository) WithTx(tx *gorm.DB) HoldRepository {
	return &holdRepository{db: tx}
}

func (r *holdRepository) Create(ctx context.Context, hold *models.AuthorizationHold) error {
	if err := r.db.WithContext(ctx).Create(hold).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to create hold: %w", err)
	}
	return nil
}

func (r *holdRepository) Update(ctx context.Context, hold *models.AuthorizationHold) error {
	if err := r.db.WithContext(ctx).Save(hold).Error; err != nil {
		return fmt.Errorf("failed to update hold: %w", err)
	}
	return nil
}

func (r *holdRepository) GetByHoldID(ctx context.Context, holdID int64) (*models.AuthorizationHold, error) {
	var hold models.AuthorizationHold
	err := r.db.WithContext(ctx).Where("hold_id = ?", holdID).First(&hold).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHoldNotFound
		}
		return nil, fmt.Errorf("failed to get hold: %w", err)
	}
	return &hold, nil
}

func (r *holdRepository) GetByHoldIDForUpdate(ctx context.Context, tx *gorm.DB, holdID int64) (*models.AuthorizationHold, error) {
	var hold models.AuthorizationHold
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("hold_id = ?", holdID).First(&hold).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHoldNotFound
		}
		return nil, fmt.Errorf("failed to lock hold: %w", err)
	}
	return &hold, nil
}

func (r *holdRepository) GetByRequestID(ctx context.Context, requestID int64) (*models.AuthorizationHold, error) {
	var hold models.AuthorizationHold
	err := r.db.WithContext(ctx).Where("request_id = ?", requestID).First(&hold).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHoldNotFound
		}
		return nil, fmt.Errorf("failed to get hold: %w", err)
	}
	return &hold, nil
}

func (r *holdRepository) ListByAccountID(ctx context.Context, accountID int64, status string) ([]models.AuthorizationHold, error) {
	query := r.db.WithContext(ctx).Where("account_id = ?", accountID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var holds []models.AuthorizationHold
	if err := query.Order("created_at DESC").Find(&holds).Error; err != nil {
		return nil, fmt.Errorf("failed to list holds: %w", err)
	}
	return holds, nil
}

func (r *holdRepository) ListByCardID(ctx context.Context, cardID int64) ([]models.AuthorizationHold, error) {
	var holds []models.AuthorizationHold
	err := r.db.WithContext(ctx).Where("card_id = ?", cardID).
		Order("created_at DESC").Find(&holds).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list holds: %w", err)
	}
	return holds, nil
}

func (r *holdRepository) ListExpired(ctx context.Context, asOf time.Time, limit int) ([]models.AuthorizationHold, error) {
	query := r.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", models.HoldStatusActive, asOf).
		Order("expires_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var holds []models.AuthorizationHold
	if err := query.Find(&holds).Error; err != nil {
		return nil, fmt.Errorf("failed to list expired holds: %w", err)
	}
	return holds, nil
}
