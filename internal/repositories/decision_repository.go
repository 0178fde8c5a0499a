package repositories

import (
	"context"
	"errors"
	"fmt"

	"cardauth/internal/models"

	"gorm.io/gorm"
)

// DecisionRepository persists authorization decisions. A decision row is
// unique per requestId as well as per decisionId.
type DecisionRepository interface {
	Create(ctx context.Context, decision *models.AuthorizationDecision) error
	Update(ctx context.Context, decision *models.AuthorizationDecision) error
	GetByDecisionID(ctx context.Context, decisionID int64) (*models.AuthorizationDecision, error)
	GetByRequestID(ctx context.Context, requestID int64) (*models.AuthorizationDecision, error)
	// WithTx returns a repository bound to the given transaction handle.
	WithTx(tx *gorm.DB) DecisionRepository
}

type decisionRepository struct {
	db *gorm.DB
}

// NewDecisionRepository creates a decision repository backed by GORM.
func NewDecisionRepository(db *gorm.DB) DecisionRepository {
	if db == nil {
		panic("db is required")
	}
	return &decisionRepository{db: db}
}

func (r *decisionRepository) WithTx(tx *gorm.DB) DecisionRepository {
	return &decisionRepository{db: tx}
}

func (r *decisionRepository) Create(ctx context.Context, decision *models.AuthorizationDecision) error {
	if err := r.db.WithContext(ctx).Create(decision).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to create decision: %w", err)
	}
	return nil
}

func (r *decisionRepository) Update(ctx context.Context, decision *models.AuthorizationDecision) error {
	if err := r.db.WithContext(ctx).Save(decision).Error; err != nil {
		return fmt.Errorf("failed to update decision: %w", err)
	}
	return nil
}

func (r *decisionRepository) GetByDecisionID(ctx context.Context, decisionID int64) (*models.AuthorizationDecision, error) {
	var decision models.AuthorizationDecision
	err := r.db.WithContext(ctx).Where("decision_id = ?", decisionID).First(&decision).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDecisionNotFound
		}
		return nil, fmt.Errorf("failed to get decision: %w", err)
	}
	return &decision, nil
}

func (r *decisionRepository) GetByRequestID(ctx context.Context, requestID int64) (*models.AuthorizationDecision, error) {
	var decision models.AuthorizationDecision
	err := r.db.WithContext(ctx).Where("request_id = ?", requestID).First(&decision).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDecisionNotFound
		}
		return nil, fmt.Errorf("failed to get decision: %w", err)
	}
	return &decision, nil
}
