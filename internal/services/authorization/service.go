// Package authorization orchestrates the validate, limit, risk, balance and
// hold pipeline and owns the request-to-decision mapping.
package authorization

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"cardauth/internal/config"
	"cardauth/internal/models"
	"cardauth/internal/repositories"
	"cardauth/internal/repositories/cache"
	"cardauth/internal/services/balance"
	"cardauth/internal/services/card"
	"cardauth/internal/services/hold"
	"cardauth/internal/services/ledger"
	"cardauth/internal/services/limits"
	"cardauth/internal/services/risk"
	"cardauth/internal/telemetry"
	"cardauth/internal/upstream"
	"cardauth/internal/utils/ids"
	"cardauth/internal/utils/locks"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service is the single entry point for authorization decisions and their
// later lifecycle events.
type Service interface {
	// Authorize drives the pipeline and returns the binding decision. A
	// repeated call for the same requestId or idempotency key returns the
	// stored decision with no further side effects.
	Authorize(ctx context.Context, request *models.AuthorizationRequest, idempotencyKey string) (*models.AuthorizationDecision, error)
	GetDecisionByID(ctx context.Context, decisionID int64) (*models.AuthorizationDecision, error)
	GetDecisionByRequestID(ctx context.Context, requestID int64) (*models.AuthorizationDecision, error)
	// ReverseAuthorization turns an approved decision into a declined one,
	// releasing the hold and reversing the spending counters.
	ReverseAuthorization(ctx context.Context, requestID int64, reason string) (*models.AuthorizationDecision, error)
	// CompleteChallenge finishes a pending challenge. On SUCCESS the
	// remainder of the pipeline runs; anything else declines.
	CompleteChallenge(ctx context.Context, requestID int64, challengeResult string) (*models.AuthorizationDecision, error)
}

type service struct {
	db        repositories.TxRunner
	requests  repositories.RequestRepository
	decisions repositories.DecisionRepository
	cards     card.Service
	limits    limits.Service
	risk      *risk.Engine
	balance   balance.Service
	holds     hold.Manager
	cache     *cache.CacheService
	cfg       config.AuthorizationConfig
	metrics   telemetry.MetricsCollector
	logger    *zap.Logger
	locks     *locks.KeyedMutex
	clock     func() time.Time
}

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	DB        repositories.TxRunner
	Requests  repositories.RequestRepository
	Decisions repositories.DecisionRepository
	Cards     card.Service
	Limits    limits.Service
	Risk      *risk.Engine
	Balance   balance.Service
	Holds     hold.Manager
	Cache     *cache.CacheService
	Config    config.AuthorizationConfig
	Metrics   telemetry.MetricsCollector
	Logger    *zap.Logger
}

// NewService creates the authorization orchestrator.
func NewService(deps Deps) Service {
	if deps.DB == nil {
		panic("db is required")
	}
	if deps.Requests == nil || deps.Decisions == nil {
		panic("repositories are required")
	}
	if deps.Cards == nil || deps.Limits == nil || deps.Risk == nil || deps.Balance == nil || deps.Holds == nil {
		panic("pipeline services are required")
	}
	if deps.Metrics == nil {
		deps.Metrics = &telemetry.NoopMetricsCollector{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &service{
		db:        deps.DB,
		requests:  deps.Requests,
		decisions: deps.Decisions,
		cards:     deps.Cards,
		limits:    deps.Limits,
		risk:      deps.Risk,
		balance:   deps.Balance,
		holds:     deps.Holds,
		cache:     deps.Cache,
		cfg:       deps.Config,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		locks:     locks.NewKeyedMutex(),
		clock:     time.Now,
	}
}

// NewServiceWithClock is used by tests to pin decision timestamps.
func NewServiceWithClock(deps Deps, clock func() time.Time) Service {
	svc := NewService(deps).(*service)
	svc.clock = clock
	return svc
}

func (s *service) Authorize(ctx context.Context, request *models.AuthorizationRequest, idempotencyKey string) (*models.AuthorizationDecision, error) {
	if s.cfg.RequestDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestDeadline)
		defer cancel()
	}

	if err := validateRequest(request); err != nil {
		return nil, err
	}

	// Derive the requestId from the idempotency key when the caller did not
	// supply one.
	if request.RequestID == 0 {
		if idempotencyKey != "" {
			request.RequestID = ids.FromKey(idempotencyKey)
		} else {
			request.RequestID = ids.New()
		}
	}

	s.logger.Info("processing authorization request", zap.Int64("request_id", request.RequestID))

	// Fast path: a decision already cached under the full idempotency key.
	if idempotencyKey != "" && s.cache != nil {
		if decisionID, err := s.cache.GetIdempotentDecision(ctx, idempotencyKey); err == nil {
			if decision, err := s.decisions.GetByDecisionID(ctx, decisionID); err == nil {
				return decision, nil
			}
		}
	}

	// Concurrent submissions of the same requestId linearize here: one
	// processes, the rest read its committed decision.
	unlock := s.locks.Lock(requestLockKey(request.RequestID))
	defer unlock()

	if decision, err := s.decisions.GetByRequestID(ctx, request.RequestID); err == nil {
		s.logger.Info("duplicate request detected", zap.Int64("request_id", request.RequestID))
		s.rememberIdempotent(ctx, idempotencyKey, decision)
		return decision, nil
	} else if !errors.Is(err, repositories.ErrDecisionNotFound) {
		return nil, err
	}

	if request.Timestamp.IsZero() {
		request.Timestamp = s.clock()
	}
	if err := s.requests.Create(ctx, request); err != nil {
		// A request row without a decision is a prior partial failure;
		// continue processing it.
		if !errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, err
		}
	}

	decision, err := s.runPipeline(ctx, request)
	if err != nil {
		return nil, err
	}

	s.rememberIdempotent(ctx, idempotencyKey, decision)
	s.metrics.RecordDecision(decision.Decision, string(decision.ReasonCode))
	return decision, nil
}

// runPipeline executes validate -> limits -> risk -> balance -> hold,
// short-circuiting to a declined or challenge decision on the way.
func (s *service) runPipeline(ctx context.Context, request *models.AuthorizationRequest) (*models.AuthorizationDecision, error) {
	path := []string{fmt.Sprintf("Request received: %d", request.RequestID)}

	// Step 1: card validation.
	cardDetails, err := s.cards.ValidateCard(ctx, request)
	if err != nil {
		if transient(err) {
			return nil, err
		}
		path = append(path, "Card validation failed: "+err.Error())
		return s.persistDeclined(ctx, request, mapCardError(err), err.Error(), nil, nil, nil, path)
	}
	path = append(path, "Card validation successful")

	// Step 2: limit validation.
	snapshot, err := s.limits.ValidateLimits(ctx, request, cardDetails)
	if err != nil {
		if transient(err) {
			return nil, err
		}
		path = append(path, "Limit validation failed: "+err.Error())
		return s.persistDeclined(ctx, request, mapLimitError(err), err.Error(), nil, snapshot, nil, path)
	}
	path = append(path, "Limit validation successful")

	// Step 3: risk assessment.
	assessment := s.risk.Assess(request, cardDetails)
	path = append(path, fmt.Sprintf("Risk assessment completed: score=%d", assessment.RiskScore))

	if s.risk.ShouldDecline(assessment) {
		path = append(path, "Transaction declined due to high risk")
		return s.persistDeclined(ctx, request, models.ReasonSuspectedFraud,
			"High risk transaction", &assessment.RiskScore, snapshot, nil, path)
	}
	if s.risk.ShouldChallenge(assessment) {
		path = append(path, "Transaction requires additional verification")
		return s.persistChallenge(ctx, request, assessment, snapshot, path)
	}

	// Step 4 onwards is shared with challenge completion.
	return s.approve(ctx, request, cardDetails, &assessment.RiskScore, snapshot, path, nil)
}

// approve runs balance check and hold creation, then commits the decision,
// the processed flag and the spending counters atomically. When existing is
// non-nil the committed decision updates that row (challenge completion).
func (s *service) approve(ctx context.Context, request *models.AuthorizationRequest, cardDetails *models.CardDetails, riskScore *int, snapshot *models.LimitSnapshot, path []string, existing *models.AuthorizationDecision) (*models.AuthorizationDecision, error) {
	balanceSnapshot, err := s.balance.CheckSufficientFunds(ctx, request, cardDetails)
	if err != nil {
		if transient(err) {
			return nil, err
		}
		path = append(path, "Insufficient funds: "+err.Error())
		if existing != nil {
			return s.declineExisting(ctx, existing, models.ReasonInsufficientFunds, err.Error())
		}
		return s.persistDeclined(ctx, request, models.ReasonInsufficientFunds, err.Error(), riskScore, snapshot, nil, path)
	}
	path = append(path, "Sufficient funds available")

	authorizationCode := ids.AuthorizationCode()
	decisionID := ids.New()
	if existing != nil {
		decisionID = existing.DecisionID
	}

	now := s.clock()
	newHold, err := s.holds.Create(ctx, hold.CreateParams{
		Request:           request,
		AccountID:         cardDetails.AccountID,
		AccountSpaceID:    cardDetails.AccountSpaceID,
		CardID:            cardDetails.CardID,
		Amount:            request.Amount,
		Currency:          request.Currency,
		AuthorizationCode: authorizationCode,
		DecisionID:        decisionID,
		ExpiresAt:         now.Add(s.cfg.HoldExpiry),
	})
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			path = append(path, "Insufficient funds: "+err.Error())
			if existing != nil {
				return s.declineExisting(ctx, existing, models.ReasonInsufficientFunds, err.Error())
			}
			return s.persistDeclined(ctx, request, models.ReasonInsufficientFunds, err.Error(), riskScore, snapshot, balanceSnapshot, path)
		}
		return nil, err
	}
	path = append(path, fmt.Sprintf("Authorization hold created: %d", newHold.HoldID))

	decision := existing
	if decision == nil {
		decision = &models.AuthorizationDecision{
			DecisionID: decisionID,
			RequestID:  request.RequestID,
			CreatedAt:  now,
		}
	}
	decision.Decision = models.DecisionApproved
	decision.ReasonCode = models.ReasonApprovedTransaction
	decision.ReasonMessage = "Transaction approved"
	decision.ApprovedAmount = request.Amount
	decision.Currency = request.Currency
	decision.AuthorizationCode = authorizationCode
	decision.RiskScore = riskScore
	decision.HoldID = &newHold.HoldID
	decision.DecisionPath = path
	decision.Timestamp = now
	expiresAt := now.Add(s.cfg.DecisionTTL)
	decision.ExpiresAt = &expiresAt
	decision.UpdatedAt = now
	applyLimitSnapshot(decision, snapshot)
	applyBalanceSnapshot(decision, balanceSnapshot)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		txDecisions := s.decisions.WithTx(tx)
		if existing == nil {
			if err := txDecisions.Create(ctx, decision); err != nil {
				return err
			}
		} else {
			if err := txDecisions.Update(ctx, decision); err != nil {
				return err
			}
		}
		if err := s.limits.CommitSpending(ctx, tx, cardDetails, request.Amount, request.Channel, request.RequestID); err != nil {
			return err
		}
		return s.requests.WithTx(tx).MarkProcessed(ctx, request.RequestID, now)
	})
	if err != nil {
		// The reservation is already durable at the ledger; compensate
		// before surfacing the failure.
		if _, relErr := s.holds.Release(ctx, newHold.HoldID, ""); relErr != nil {
			s.logger.Error("compensating hold release failed",
				zap.Int64("hold_id", newHold.HoldID),
				zap.Error(relErr),
			)
		}
		if errors.Is(err, limits.ErrExceedsDailyLimit) || errors.Is(err, limits.ErrExceedsMonthlyLimit) {
			path = append(path, "Limit crossed during commit: "+err.Error())
			if existing != nil {
				return s.declineExisting(ctx, existing, mapLimitError(err), err.Error())
			}
			return s.persistDeclined(ctx, request, mapLimitError(err), err.Error(), riskScore, snapshot, balanceSnapshot, path)
		}
		return nil, err
	}

	return decision, nil
}

func (s *service) GetDecisionByID(ctx context.Context, decisionID int64) (*models.AuthorizationDecision, error) {
	decision, err := s.decisions.GetByDecisionID(ctx, decisionID)
	if err != nil {
		if errors.Is(err, repositories.ErrDecisionNotFound) {
			return nil, ErrDecisionNotFound
		}
		return nil, err
	}
	return decision, nil
}

func (s *service) GetDecisionByRequestID(ctx context.Context, requestID int64) (*models.AuthorizationDecision, error) {
	decision, err := s.decisions.GetByRequestID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repositories.ErrDecisionNotFound) {
			return nil, ErrDecisionNotFound
		}
		return nil, err
	}
	return decision, nil
}

func (s *service) ReverseAuthorization(ctx context.Context, requestID int64, reason string) (*models.AuthorizationDecision, error) {
	s.logger.Info("reversing authorization",
		zap.Int64("request_id", requestID),
		zap.String("reason", reason),
	)

	unlock := s.locks.Lock(requestLockKey(requestID))
	defer unlock()

	decision, err := s.GetDecisionByRequestID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !decision.Approved() {
		return nil, ErrNotReversible
	}

	cardDetails := s.cardForReversal(ctx, requestID, decision)

	// The hold release is idempotent, so it can safely precede the decision
	// flip and be retried if the commit below fails.
	if decision.HoldID != nil {
		if _, err := s.holds.Release(ctx, *decision.HoldID, reverseOpKey(requestID)); err != nil &&
			!errors.Is(err, hold.ErrInvalidState) {
			return nil, err
		}
	}

	now := s.clock()
	amount := decision.ApprovedAmount
	request, reqErr := s.requests.GetByRequestID(ctx, requestID)

	decision.Decision = models.DecisionDeclined
	decision.ReasonCode = models.ReasonDuplicateTransaction
	decision.ReasonMessage = "Authorization reversed: " + reason
	decision.ApprovedAmount = decimal.Zero
	decision.DecisionPath = append(decision.DecisionPath, "Authorization reversed: "+reason)
	decision.UpdatedAt = now

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.decisions.WithTx(tx).Update(ctx, decision); err != nil {
			return err
		}
		if cardDetails != nil && reqErr == nil {
			return s.limits.ReverseSpending(ctx, tx, cardDetails, amount, request.Channel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordDecision(decision.Decision, string(decision.ReasonCode))
	return decision, nil
}

func (s *service) CompleteChallenge(ctx context.Context, requestID int64, challengeResult string) (*models.AuthorizationDecision, error) {
	s.logger.Info("handling challenge completion",
		zap.Int64("request_id", requestID),
		zap.String("result", challengeResult),
	)

	unlock := s.locks.Lock(requestLockKey(requestID))
	defer unlock()

	decision, err := s.GetDecisionByRequestID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if decision.Decision != models.DecisionChallenge {
		return nil, ErrNotInChallenge
	}
	if decision.ExpiresAt != nil && s.clock().After(*decision.ExpiresAt) {
		return nil, ErrChallengeExpired
	}

	if challengeResult != "SUCCESS" {
		now := s.clock()
		decision.Decision = models.DecisionDeclined
		decision.ReasonCode = models.ReasonSecurityViolation
		decision.ReasonMessage = "Challenge failed: " + challengeResult
		decision.ApprovedAmount = decimal.Zero
		decision.DecisionPath = append(decision.DecisionPath, "Challenge failed: "+challengeResult)
		decision.UpdatedAt = now
		if err := s.decisions.Update(ctx, decision); err != nil {
			return nil, err
		}
		s.markProcessed(ctx, requestID)
		s.metrics.RecordDecision(decision.Decision, string(decision.ReasonCode))
		return decision, nil
	}

	request, err := s.requests.GetByRequestID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repositories.ErrRequestNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	cardDetails, err := s.cards.ValidateCard(ctx, request)
	if err != nil {
		if transient(err) {
			return nil, err
		}
		return s.declineExisting(ctx, decision, mapCardError(err), err.Error())
	}

	path := append(decision.DecisionPath, "Challenge completed successfully")
	snapshot, err := s.limits.GetLimitSnapshot(ctx, cardDetails)
	if err != nil {
		return nil, err
	}

	completed, err := s.approve(ctx, request, cardDetails, decision.RiskScore, snapshot, path, decision)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordDecision(completed.Decision, string(completed.ReasonCode))
	return completed, nil
}

// persistDeclined writes a declined decision and marks the request processed.
func (s *service) persistDeclined(ctx context.Context, request *models.AuthorizationRequest, reason models.ReasonCode, message string, riskScore *int, snapshot *models.LimitSnapshot, balanceSnapshot *models.BalanceSnapshot, path []string) (*models.AuthorizationDecision, error) {
	now := s.clock()
	decision := &models.AuthorizationDecision{
		DecisionID:     ids.New(),
		RequestID:      request.RequestID,
		Decision:       models.DecisionDeclined,
		ReasonCode:     reason,
		ReasonMessage:  message,
		ApprovedAmount: decimal.Zero,
		Currency:       request.Currency,
		RiskScore:      riskScore,
		DecisionPath:   path,
		Timestamp:      now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	applyLimitSnapshot(decision, snapshot)
	applyBalanceSnapshot(decision, balanceSnapshot)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.decisions.WithTx(tx).Create(ctx, decision); err != nil {
			return err
		}
		return s.requests.WithTx(tx).MarkProcessed(ctx, request.RequestID, now)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordDecision(decision.Decision, string(decision.ReasonCode))
	return decision, nil
}

// persistChallenge writes a challenge decision. The request stays
// unprocessed until the challenge resolves.
func (s *service) persistChallenge(ctx context.Context, request *models.AuthorizationRequest, assessment *models.RiskAssessment, snapshot *models.LimitSnapshot, path []string) (*models.AuthorizationDecision, error) {
	now := s.clock()
	expiresAt := now.Add(s.cfg.ChallengeTTL)
	decision := &models.AuthorizationDecision{
		DecisionID:     ids.New(),
		RequestID:      request.RequestID,
		Decision:       models.DecisionChallenge,
		ReasonCode:     models.ReasonAdditionalAuthRequired,
		ReasonMessage:  "Additional verification required",
		ApprovedAmount: request.Amount,
		Currency:       request.Currency,
		RiskScore:      &assessment.RiskScore,
		DecisionPath:   path,
		ChallengeData: models.JSON{
			"risk_level":      assessment.RiskLevel,
			"triggered_rules": assessment.TriggeredRules,
		},
		Timestamp: now,
		ExpiresAt: &expiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyLimitSnapshot(decision, snapshot)

	if err := s.decisions.Create(ctx, decision); err != nil {
		return nil, err
	}
	s.metrics.RecordDecision(decision.Decision, string(decision.ReasonCode))
	return decision, nil
}

func (s *service) declineExisting(ctx context.Context, decision *models.AuthorizationDecision, reason models.ReasonCode, message string) (*models.AuthorizationDecision, error) {
	now := s.clock()
	decision.Decision = models.DecisionDeclined
	decision.ReasonCode = reason
	decision.ReasonMessage = message
	decision.ApprovedAmount = decimal.Zero
	decision.DecisionPath = append(decision.DecisionPath, "Declined: "+message)
	decision.UpdatedAt = now
	if err := s.decisions.Update(ctx, decision); err != nil {
		return nil, err
	}
	s.markProcessed(ctx, decision.RequestID)
	s.metrics.RecordDecision(decision.Decision, string(decision.ReasonCode))
	return decision, nil
}

func (s *service) markProcessed(ctx context.Context, requestID int64) {
	if err := s.requests.MarkProcessed(ctx, requestID, s.clock()); err != nil {
		s.logger.Warn("failed to mark request processed",
			zap.Int64("request_id", requestID),
			zap.Error(err),
		)
	}
}

func (s *service) rememberIdempotent(ctx context.Context, idempotencyKey string, decision *models.AuthorizationDecision) {
	if idempotencyKey == "" || s.cache == nil {
		return
	}
	if err := s.cache.CacheIdempotentDecision(ctx, idempotencyKey, decision.DecisionID, s.cfg.DecisionTTL); err != nil {
		s.logger.Warn("failed to cache idempotent decision", zap.Error(err))
	}
}

// cardForReversal resolves the card behind a reversal; counter reversal only
// needs the card id, so a minimal value is used when the directory lookup is
// unavailable.
func (s *service) cardForReversal(ctx context.Context, requestID int64, decision *models.AuthorizationDecision) *models.CardDetails {
	if request, err := s.requests.GetByRequestID(ctx, requestID); err == nil && request.PanHash != "" {
		if details, err := s.cards.GetCardDetails(ctx, request.PanHash); err == nil {
			return details
		}
	}
	if h, err := s.holds.GetByRequestID(ctx, requestID); err == nil {
		return &models.CardDetails{CardID: h.CardID, AccountID: h.AccountID}
	}
	return nil
}

func validateRequest(request *models.AuthorizationRequest) error {
	if request == nil {
		return fmt.Errorf("%w: empty body", ErrInvalidRequest)
	}
	if request.PanHash == "" && request.Token == "" {
		return fmt.Errorf("%w: neither PAN hash nor token provided", ErrInvalidRequest)
	}
	if request.Currency == "" || len(request.Currency) != 3 {
		return fmt.Errorf("%w: currency must be an ISO-4217 code", ErrInvalidRequest)
	}
	if !models.KnownChannel(request.Channel) {
		return fmt.Errorf("%w: unknown channel %q", ErrInvalidRequest, request.Channel)
	}
	if models.ValueBearing(request.TransactionType) && !request.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}
	return nil
}

func mapCardError(err error) models.ReasonCode {
	switch {
	case errors.Is(err, card.ErrCardExpired):
		return models.ReasonExpiredCard
	case errors.Is(err, card.ErrCardNotActive):
		return models.ReasonCardNotActive
	case errors.Is(err, card.ErrCardLostStolen):
		return models.ReasonCardLostStolen
	default:
		return models.ReasonInvalidCard
	}
}

func mapLimitError(err error) models.ReasonCode {
	switch {
	case errors.Is(err, limits.ErrExceedsDailyLimit):
		return models.ReasonExceedsDailyLimit
	case errors.Is(err, limits.ErrExceedsMonthlyLimit):
		return models.ReasonExceedsMonthlyLimit
	default:
		return models.ReasonExceedsTransactionLimit
	}
}

func transient(err error) bool {
	return errors.Is(err, upstream.ErrUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}

func applyLimitSnapshot(decision *models.AuthorizationDecision, snapshot *models.LimitSnapshot) {
	if snapshot == nil {
		return
	}
	decision.DailyLimit = snapshot.DailyLimit
	decision.DailySpent = snapshot.DailySpent
	decision.DailyRemaining = snapshot.DailyRemaining
	decision.MonthlyLimit = snapshot.MonthlyLimit
	decision.MonthlySpent = snapshot.MonthlySpent
	decision.MonthlyRemaining = snapshot.MonthlyRemaining
}

func applyBalanceSnapshot(decision *models.AuthorizationDecision, snapshot *models.BalanceSnapshot) {
	if snapshot == nil {
		return
	}
	decision.AccountID = snapshot.AccountID
	decision.AccountSpaceID = snapshot.AccountSpaceID
	decision.AvailableBalanceBefore = snapshot.AvailableBalanceBefore
	decision.AvailableBalanceAfter = snapshot.AvailableBalanceAfter
}

func requestLockKey(requestID int64) string {
	return "request:" + strconv.FormatInt(requestID, 10)
}

func reverseOpKey(requestID int64) string {
	return "reverse:" + strconv.FormatInt(requestID, 10)
}
