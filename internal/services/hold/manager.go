// Package hold owns the authorization hold state machine: create, capture,
// release and expire, each paired with the matching ledger movement.
package hold

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"cardauth/internal/models"
	"cardauth/internal/repositories"
	"cardauth/internal/services/ledger"
	"cardauth/internal/telemetry"
	"cardauth/internal/utils/ids"
	"cardauth/internal/utils/locks"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateParams carries everything needed to reserve funds and persist a hold.
type CreateParams struct {
	Request        *models.AuthorizationRequest
	AccountID      int64
	AccountSpaceID *int64
	CardID         int64
	Amount         decimal.Decimal
	Currency       string
	AuthorizationCode string
	DecisionID     int64
	ExpiresAt      time.Time
}

// Manager is the hold state machine. Every mutation of a single hold is
// serialized on an in-process keyed mutex plus a row lock.
type Manager interface {
	// Create reserves funds at the ledger and persists an ACTIVE hold. No
	// hold row is written when the reservation fails.
	Create(ctx context.Context, params CreateParams) (*models.AuthorizationHold, error)
	// Capture settles up to the full hold amount. A partial capture releases
	// the remainder at the ledger. operationKey makes retries idempotent.
	Capture(ctx context.Context, holdID int64, amount decimal.Decimal, operationKey string) (*models.AuthorizationHold, error)
	// Release returns the full amount to the available balance.
	Release(ctx context.Context, holdID int64, operationKey string) (*models.AuthorizationHold, error)
	// SweepExpired expires every ACTIVE hold past its expiry, releasing funds.
	// Failures are isolated per hold.
	SweepExpired(ctx context.Context) (processed, failed int, err error)

	GetByHoldID(ctx context.Context, holdID int64) (*models.AuthorizationHold, error)
	GetByRequestID(ctx context.Context, requestID int64) (*models.AuthorizationHold, error)
	ListByAccountID(ctx context.Context, accountID int64, status string) ([]models.AuthorizationHold, error)
	ListByCardID(ctx context.Context, cardID int64) ([]models.AuthorizationHold, error)
}

const sweepBatchSize = 100

type manager struct {
	db      repositories.TxRunner
	holds   repositories.HoldRepository
	ledger  ledger.Ledger
	metrics telemetry.MetricsCollector
	logger  *zap.Logger
	locks   *locks.KeyedMutex
	clock   func() time.Time
}

// NewManager creates a new hold manager.
func NewManager(db repositories.TxRunner, holds repositories.HoldRepository, ledgerClient ledger.Ledger, metrics telemetry.MetricsCollector, logger *zap.Logger) Manager {
	if db == nil {
		panic("db is required")
	}
	if holds == nil {
		panic("hold repository is required")
	}
	if ledgerClient == nil {
		panic("ledger client is required")
	}
	if metrics == nil {
		metrics = &telemetry.NoopMetricsCollector{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &manager{
		db:      db,
		holds:   holds,
		ledger:  ledgerClient,
		metrics: metrics,
		logger:  logger,
		locks:   locks.NewKeyedMutex(),
		clock:   time.Now,
	}
}

// NewManagerWithClock is used by tests to pin the expiry instant.
func NewManagerWithClock(db repositories.TxRunner, holds repositories.HoldRepository, ledgerClient ledger.Ledger, metrics telemetry.MetricsCollector, logger *zap.Logger, clock func() time.Time) Manager {
	m := NewManager(db, holds, ledgerClient, metrics, logger).(*manager)
	m.clock = clock
	return m
}

func (m *manager) Create(ctx context.Context, params CreateParams) (*models.AuthorizationHold, error) {
	snapshot, err := m.ledger.ReserveFunds(ctx, params.AccountID, params.AccountSpaceID, params.Amount, params.Currency)
	if err != nil {
		return nil, err
	}

	now := m.clock()
	hold := &models.AuthorizationHold{
		HoldID:            ids.New(),
		RequestID:         params.Request.RequestID,
		DecisionID:        params.DecisionID,
		AccountID:         params.AccountID,
		AccountSpaceID:    params.AccountSpaceID,
		CardID:            params.CardID,
		MerchantID:        params.Request.MerchantID,
		MerchantName:      params.Request.MerchantName,
		Amount:            params.Amount,
		Currency:          params.Currency,
		OriginalAmount:    snapshot.OriginalAmount,
		OriginalCurrency:  snapshot.OriginalCurrency,
		ExchangeRate:      snapshot.ExchangeRate,
		AuthorizationCode: params.AuthorizationCode,
		Status:            models.HoldStatusActive,
		CapturedAmount:    decimal.Zero,
		CreatedAt:         now,
		UpdatedAt:         now,
		ExpiresAt:         params.ExpiresAt,
	}

	if err := m.holds.Create(ctx, hold); err != nil {
		// The reservation already happened; give the money back before
		// failing the authorization.
		compensateRef := "compensate:" + strconv.FormatInt(params.Request.RequestID, 10)
		if _, relErr := m.ledger.ReleaseFunds(ctx, params.AccountID, params.AccountSpaceID, params.Amount, params.Currency, compensateRef); relErr != nil {
			m.logger.Error("compensating release failed after hold persist error",
				zap.Int64("request_id", params.Request.RequestID),
				zap.Error(relErr),
			)
		}
		return nil, err
	}

	m.metrics.RecordHoldTransition(models.HoldStatusActive)
	return hold, nil
}

func (m *manager) Capture(ctx context.Context, holdID int64, amount decimal.Decimal, operationKey string) (*models.AuthorizationHold, error) {
	unlock := m.locks.Lock(lockKey(holdID))
	defer unlock()

	if operationKey == "" {
		operationKey = ids.OperationKey()
	}

	// Phase 1: record the attempt on the row before touching the ledger. A
	// retry after a partial failure finds the stamped key and resumes the
	// same attempt, so the deduped ledger calls below cannot move funds
	// twice.
	var hold *models.AuthorizationHold
	err := m.db.Transaction(func(tx *gorm.DB) error {
		h, err := m.holds.GetByHoldIDForUpdate(ctx, tx, holdID)
		if err != nil {
			if errors.Is(err, repositories.ErrHoldNotFound) {
				return ErrHoldNotFound
			}
			return err
		}

		if h.Terminal() {
			// A retry of the transition that already happened returns the
			// current row; anything else is a state conflict.
			if h.OperationKey != "" && h.OperationKey == operationKey {
				hold = h
				return nil
			}
			return fmt.Errorf("%w: status %s", ErrInvalidState, h.Status)
		}

		if h.OperationKey != "" {
			// A prior attempt stamped this hold; resume it with its own key
			// and figures. A recorded release attempt cannot be turned into
			// a capture.
			if !h.PendingAmount.Valid {
				return fmt.Errorf("%w: release in progress", ErrInvalidState)
			}
			operationKey = h.OperationKey
			amount = h.PendingAmount.Decimal
			hold = h
			return nil
		}

		if !amount.IsPositive() || amount.GreaterThan(h.Amount) {
			return fmt.Errorf("%w: %s against hold of %s", ErrInvalidAmount,
				amount.StringFixed(4), h.Amount.StringFixed(4))
		}

		h.OperationKey = operationKey
		h.PendingAmount = decimal.NewNullDecimal(amount)
		h.UpdatedAt = m.clock()
		if err := m.holds.WithTx(tx).Update(ctx, h); err != nil {
			return err
		}
		hold = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	if hold.Terminal() {
		return hold, nil
	}

	// Phase 2: ledger movements, deduped by the stamped key. Partial capture
	// returns the remainder to the available balance.
	if amount.LessThan(hold.Amount) {
		remainder := hold.Amount.Sub(amount)
		if _, err := m.ledger.ReleaseFunds(ctx, hold.AccountID, hold.AccountSpaceID, remainder, hold.Currency, operationKey+":remainder"); err != nil {
			return nil, err
		}
	}
	if err := m.ledger.PostCapture(ctx, hold.AccountID, hold.AccountSpaceID, amount, hold.Currency, operationKey); err != nil {
		return nil, err
	}

	// Phase 3: terminal commit. If it fails the hold stays ACTIVE with the
	// stamped key and the operation is safe to retry.
	err = m.db.Transaction(func(tx *gorm.DB) error {
		h, err := m.holds.GetByHoldIDForUpdate(ctx, tx, holdID)
		if err != nil {
			if errors.Is(err, repositories.ErrHoldNotFound) {
				return ErrHoldNotFound
			}
			return err
		}
		if h.Terminal() {
			hold = h
			return nil
		}

		now := m.clock()
		h.Status = models.HoldStatusCaptured
		h.CapturedAmount = amount
		h.CapturedAt = &now
		h.UpdatedAt = now
		h.OperationKey = operationKey
		h.PendingAmount = decimal.NullDecimal{}
		if err := m.holds.WithTx(tx).Update(ctx, h); err != nil {
			return err
		}
		hold = h
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.metrics.RecordHoldTransition(models.HoldStatusCaptured)
	return hold, nil
}

func (m *manager) Release(ctx context.Context, holdID int64, operationKey string) (*models.AuthorizationHold, error) {
	return m.terminate(ctx, holdID, models.HoldStatusReleased, operationKey)
}

func (m *manager) SweepExpired(ctx context.Context) (int, int, error) {
	now := m.clock()
	expired, err := m.holds.ListExpired(ctx, now, sweepBatchSize)
	if err != nil {
		return 0, 0, err
	}

	processed, failed := 0, 0
	for i := range expired {
		h := &expired[i]
		if _, err := m.terminate(ctx, h.HoldID, models.HoldStatusExpired, ""); err != nil {
			failed++
			m.logger.Error("failed to expire hold",
				zap.Int64("hold_id", h.HoldID),
				zap.Error(err),
			)
			continue
		}
		processed++
		m.logger.Info("expired hold released", zap.Int64("hold_id", h.HoldID))
	}

	m.metrics.RecordSweep(processed, failed)
	return processed, failed, nil
}

// terminate moves an ACTIVE hold into a fund-returning terminal state. A hold
// already in RELEASED or EXPIRED is a no-op (the funds are back either way);
// a CAPTURED hold conflicts. Like Capture, the attempt is stamped on the row
// before the deduped ledger release, so a failed commit leaves the hold
// ACTIVE and safe to retry.
func (m *manager) terminate(ctx context.Context, holdID int64, target, operationKey string) (*models.AuthorizationHold, error) {
	unlock := m.locks.Lock(lockKey(holdID))
	defer unlock()

	if operationKey == "" {
		operationKey = ids.OperationKey()
	}

	// Phase 1: stamp the attempt.
	var hold *models.AuthorizationHold
	err := m.db.Transaction(func(tx *gorm.DB) error {
		h, err := m.holds.GetByHoldIDForUpdate(ctx, tx, holdID)
		if err != nil {
			if errors.Is(err, repositories.ErrHoldNotFound) {
				return ErrHoldNotFound
			}
			return err
		}

		switch h.Status {
		case models.HoldStatusActive:
			// fall through to the transition
		case models.HoldStatusReleased, models.HoldStatusExpired:
			hold = h
			return nil
		default:
			return fmt.Errorf("%w: status %s", ErrInvalidState, h.Status)
		}

		if h.OperationKey != "" {
			// Resume the recorded attempt. A stamped capture must be
			// completed by a capture retry, not turned into a release.
			if h.PendingAmount.Valid {
				return fmt.Errorf("%w: capture in progress", ErrInvalidState)
			}
			operationKey = h.OperationKey
			hold = h
			return nil
		}

		h.OperationKey = operationKey
		h.UpdatedAt = m.clock()
		if err := m.holds.WithTx(tx).Update(ctx, h); err != nil {
			return err
		}
		hold = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	if hold.Terminal() {
		return hold, nil
	}

	// Phase 2: deduped ledger release of the full amount.
	if _, err := m.ledger.ReleaseFunds(ctx, hold.AccountID, hold.AccountSpaceID, hold.Amount, hold.Currency, operationKey+":release"); err != nil {
		return nil, err
	}

	// Phase 3: terminal commit; on failure the hold stays ACTIVE with the
	// stamped key and the operation is safe to retry.
	transitioned := false
	err = m.db.Transaction(func(tx *gorm.DB) error {
		h, err := m.holds.GetByHoldIDForUpdate(ctx, tx, holdID)
		if err != nil {
			if errors.Is(err, repositories.ErrHoldNotFound) {
				return ErrHoldNotFound
			}
			return err
		}
		if h.Terminal() {
			hold = h
			return nil
		}

		h.Status = target
		h.UpdatedAt = m.clock()
		h.OperationKey = operationKey
		if err := m.holds.WithTx(tx).Update(ctx, h); err != nil {
			return err
		}
		hold = h
		transitioned = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if transitioned {
		m.metrics.RecordHoldTransition(target)
	}
	return hold, nil
}

func (m *manager) GetByHoldID(ctx context.Context, holdID int64) (*models.AuthorizationHold, error) {
	hold, err := m.holds.GetByHoldID(ctx, holdID)
	if err != nil {
		if errors.Is(err, repositories.ErrHoldNotFound) {
			return nil, ErrHoldNotFound
		}
		return nil, err
	}
	return hold, nil
}

func (m *manager) GetByRequestID(ctx context.Context, requestID int64) (*models.AuthorizationHold, error) {
	hold, err := m.holds.GetByRequestID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repositories.ErrHoldNotFound) {
			return nil, ErrHoldNotFound
		}
		return nil, err
	}
	return hold, nil
}

func (m *manager) ListByAccountID(ctx context.Context, accountID int64, status string) ([]models.AuthorizationHold, error) {
	return m.holds.ListByAccountID(ctx, accountID, status)
}

func (m *manager) ListByCardID(ctx context.Context, cardID int64) ([]models.AuthorizationHold, error) {
	return m.holds.ListByCardID(ctx, cardID)
}

func lockKey(holdID int64) string {
	return "hold:" + strconv.FormatInt(holdID, 10)
}
