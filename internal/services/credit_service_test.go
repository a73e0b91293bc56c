// internal/services/credit_service_test.go
package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/alhadicyber42/Affiliate-AI/internal/events"
	"github.com/alhadicyber42/Affiliate-AI/internal/models"
	"github.com/alhadicyber42/Affiliate-AI/internal/tests"
)

type CreditTestSuite struct {
	suite.Suite
	db      *gorm.DB
	credits *CreditService
	ctx     context.Context
}

func (suite *CreditTestSuite) SetupTest() {
	suite.db = tests.NewTestDB(suite.T())
	suite.credits = NewCreditService(suite.db, tests.CreditsConfig(100), events.NoopPublisher{})
	suite.ctx = context.Background()
}

func (suite *CreditTestSuite) TestSignupBonusOnFirstTouch() {
	balance, err := suite.credits.Balance(suite.ctx, testUser)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 100, balance)

	// The bonus is granted once.
	balance, err = suite.credits.Balance(suite.ctx, testUser)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 100, balance)

	history, err := suite.credits.History(suite.ctx, testUser, 10)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), history, 1)
	assert.Equal(suite.T(), models.CreditTransactionGrant, history[0].Type)
}

func (suite *CreditTestSuite) TestReserveCommit() {
	reservation, err := suite.credits.Reserve(suite.ctx, testUser, models.CreditOperationScript)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 20, reservation.Cost)
	assert.Equal(suite.T(), models.ReservationStatusPending, reservation.Status)

	balance, _ := suite.credits.Balance(suite.ctx, testUser)
	assert.Equal(suite.T(), 80, balance)

	require.NoError(suite.T(), suite.credits.Commit(suite.ctx, reservation))
	assert.Equal(suite.T(), models.ReservationStatusCommitted, reservation.Status)

	// Settled reservations cannot be committed twice or released.
	assert.ErrorIs(suite.T(), suite.credits.Commit(suite.ctx, reservation), ErrReservationNotPending)
	require.NoError(suite.T(), suite.credits.Release(suite.ctx, reservation))

	balance, _ = suite.credits.Balance(suite.ctx, testUser)
	assert.Equal(suite.T(), 80, balance)

	spent, err := suite.credits.Spent(suite.ctx, testUser)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 20, spent)
}

func (suite *CreditTestSuite) TestReserveRelease() {
	reservation, err := suite.credits.Reserve(suite.ctx, testUser, models.CreditOperationVideo)
	require.NoError(suite.T(), err)

	require.NoError(suite.T(), suite.credits.Release(suite.ctx, reservation))
	require.NoError(suite.T(), suite.credits.Release(suite.ctx, reservation))
	assert.Equal(suite.T(), models.ReservationStatusReleased, reservation.Status)

	balance, _ := suite.credits.Balance(suite.ctx, testUser)
	assert.Equal(suite.T(), 100, balance)

	spent, _ := suite.credits.Spent(suite.ctx, testUser)
	assert.Equal(suite.T(), 0, spent)
}

func (suite *CreditTestSuite) TestInsufficientCredits() {
	_, err := suite.credits.Grant(suite.ctx, testUser, -95, models.CreditTransactionGrant, "", "adjustment")
	require.NoError(suite.T(), err)

	_, err = suite.credits.Reserve(suite.ctx, testUser, models.CreditOperationScript)

	var insufficient *InsufficientCreditsError
	require.True(suite.T(), errors.As(err, &insufficient))
	assert.Equal(suite.T(), 20, insufficient.Required)
	assert.Equal(suite.T(), 5, insufficient.Available)

	balance, _ := suite.credits.Balance(suite.ctx, testUser)
	assert.Equal(suite.T(), 5, balance)
}

// A spend landing between the account lookup and the debit must not let the
// balance go negative.
func (suite *CreditTestSuite) TestReserveDebitsConditionally() {
	_, err := suite.credits.Balance(suite.ctx, testUser)
	require.NoError(suite.T(), err)

	var interleaved sync.Once
	var debits []string
	callbacks := suite.db.Callback().Update()
	require.NoError(suite.T(), callbacks.Before("gorm:update").Register("test:concurrent_spend", func(db *gorm.DB) {
		if db.Statement.Table != "credit_accounts" {
			return
		}
		interleaved.Do(func() {
			db.AddError(db.Session(&gorm.Session{NewDB: true}).
				Exec("UPDATE credit_accounts SET balance = 5 WHERE user_id = ?", testUser).Error)
		})
	}))
	require.NoError(suite.T(), callbacks.After("gorm:update").Register("test:capture_debit", func(db *gorm.DB) {
		if db.Statement.Table == "credit_accounts" {
			debits = append(debits, db.Statement.SQL.String())
		}
	}))

	_, err = suite.credits.Reserve(suite.ctx, testUser, models.CreditOperationVideo)

	var insufficient *InsufficientCreditsError
	require.ErrorAs(suite.T(), err, &insufficient)
	assert.Equal(suite.T(), 50, insufficient.Required)
	assert.Equal(suite.T(), 5, insufficient.Available)

	require.NotEmpty(suite.T(), debits)
	assert.Contains(suite.T(), debits[len(debits)-1], "balance >= ")

	balance, _ := suite.credits.Balance(suite.ctx, testUser)
	assert.Equal(suite.T(), 5, balance)
}

func (suite *CreditTestSuite) TestConcurrentReservationsNeverOverspend() {
	var wg sync.WaitGroup
	var mu sync.Mutex
	granted, refused := 0, 0

	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := suite.credits.Reserve(suite.ctx, testUser, models.CreditOperationExtraction)

			mu.Lock()
			defer mu.Unlock()
			var insufficient *InsufficientCreditsError
			switch {
			case err == nil:
				granted++
			case errors.As(err, &insufficient):
				refused++
			default:
				suite.T().Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(suite.T(), 10, granted)
	assert.Equal(suite.T(), 2, refused)

	balance, _ := suite.credits.Balance(suite.ctx, testUser)
	assert.Equal(suite.T(), 0, balance)
}

func (suite *CreditTestSuite) TestGrantIsIdempotentPerReference() {
	balance, err := suite.credits.Grant(suite.ctx, testUser, 500, models.CreditTransactionTopUp, "pi_123", "top-up starter")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 600, balance)

	balance, err = suite.credits.Grant(suite.ctx, testUser, 500, models.CreditTransactionTopUp, "pi_123", "top-up starter")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 600, balance)
}

func (suite *CreditTestSuite) TestRefundOnce() {
	reservation, err := suite.credits.Reserve(suite.ctx, testUser, models.CreditOperationVideo)
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), suite.credits.Commit(suite.ctx, reservation))

	balance, err := suite.credits.Refund(suite.ctx, reservation, "render queue unavailable")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 100, balance)

	balance, err = suite.credits.Refund(suite.ctx, reservation, "render queue unavailable")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 100, balance)
}

func (suite *CreditTestSuite) TestReleaseExpired() {
	stale, err := suite.credits.Reserve(suite.ctx, testUser, models.CreditOperationScript)
	require.NoError(suite.T(), err)
	fresh, err := suite.credits.Reserve(suite.ctx, testUser, models.CreditOperationScript)
	require.NoError(suite.T(), err)

	require.NoError(suite.T(), suite.credits.db.Model(&models.CreditReservation{}).
		Where("id = ?", stale.ID).
		Update("created_at", time.Now().Add(-time.Hour)).Error)

	released, err := suite.credits.ReleaseExpired(suite.ctx, 10*time.Minute)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, released)

	balance, _ := suite.credits.Balance(suite.ctx, testUser)
	assert.Equal(suite.T(), 80, balance)

	require.NoError(suite.T(), suite.credits.Commit(suite.ctx, fresh))
}

func (suite *CreditTestSuite) TestSummaryListsCosts() {
	summary, err := suite.credits.Summary(suite.ctx, testUser)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 100, summary.Balance)
	assert.Equal(suite.T(), CreditCosts{Extraction: 10, Script: 20, Video: 50, Regeneration: 0}, summary.Costs)
}

func TestCreditSuite(t *testing.T) {
	suite.Run(t, new(CreditTestSuite))
}
