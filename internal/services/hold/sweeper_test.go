package hold

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"cardauth/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type stubManager struct {
	sweeps    int32
	processed int
	failed    int
}

func (s *stubManager) Create(ctx context.Context, params CreateParams) (*models.AuthorizationHold, error) {
	return nil, nil
}

func (s *stubManager) Capture(ctx context.Context, holdID int64, amount decimal.Decimal, operationKey string) (*models.AuthorizationHold, error) {
	return nil, nil
}

func (s *stubManager) Release(ctx context.Context, holdID int64, operationKey string) (*models.AuthorizationHold, error) {
	return nil, nil
}

func (s *stubManager) SweepExpired(ctx context.Context) (int, int, error) {
	atomic.AddInt32(&s.sweeps, 1)
	return s.processed, s.failed, nil
}

func (s *stubManager) GetByHoldID(ctx context.Context, holdID int64) (*models.AuthorizationHold, error) {
	return nil, ErrHoldNotFound
}

func (s *stubManager) GetByRequestID(ctx context.Context, requestID int64) (*models.AuthorizationHold, error) {
	return nil, ErrHoldNotFound
}

func (s *stubManager) ListByAccountID(ctx context.Context, accountID int64, status string) ([]models.AuthorizationHold, error) {
	return nil, nil
}

func (s *stubManager) ListByCardID(ctx context.Context, cardID int64) ([]models.AuthorizationHold, error) {
	return nil, nil
}

func TestSweeper_RunOnce(t *testing.T) {
	manager := &stubManager{processed: 3, failed: 1}
	sweeper := NewSweeper(manager, time.Hour, nil)

	processed, failed := sweeper.RunOnce(context.Background())

	assert.Equal(t, 3, processed)
	assert.Equal(t, 1, failed)
	assert.Equal(t, int32(1), atomic.LoadInt32(&manager.sweeps))
}

func TestSweeper_RunsOnCadence(t *testing.T) {
	manager := &stubManager{}
	sweeper := NewSweeper(manager, 10*time.Millisecond, nil)

	sweeper.Start(context.Background())
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&manager.sweeps) >= 2
	}, time.Second, 5*time.Millisecond)
	sweeper.Stop()
}

func TestSweeper_StopTerminatesLoop(t *testing.T) {
	manager := &stubManager{}
	sweeper := NewSweeper(manager, time.Hour, nil)

	sweeper.Start(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
