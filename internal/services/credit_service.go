// internal/services/credit_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/alhadicyber42/Affiliate-AI/internal/config"
	"github.com/alhadicyber42/Affiliate-AI/internal/events"
	"github.com/alhadicyber42/Affiliate-AI/internal/models"
)

// CreditService is the ledger every billable operation goes through.
//
// Reserve takes the cost off the balance in a single conditional UPDATE,
// so two concurrent reservations for the same user can never both pass
// the balance check. The held credits come back on Release; Commit is the
// only way they are consumed.
type CreditService struct {
	db     *gorm.DB
	config config.CreditsConfig
	events events.Publisher
}

type CreditCosts struct {
	Extraction   int `json:"extraction"`
	Script       int `json:"script"`
	Video        int `json:"video"`
	Regeneration int `json:"regeneration"`
}

type CreditSummary struct {
	Balance int         `json:"balance"`
	Costs   CreditCosts `json:"costs"`
}

func NewCreditService(db *gorm.DB, cfg config.CreditsConfig, publisher events.Publisher) *CreditService {
	return &CreditService{
		db:     db,
		config: cfg,
		events: publisher,
	}
}

func (s *CreditService) Cost(op models.CreditOperation) int {
	switch op {
	case models.CreditOperationExtraction:
		return s.config.ExtractionCost
	case models.CreditOperationScript:
		return s.config.ScriptCost
	case models.CreditOperationVideo:
		return s.config.VideoCost
	case models.CreditOperationRegeneration:
		return s.config.RegenerationCost
	}
	return 0
}

func (s *CreditService) Costs() CreditCosts {
	return CreditCosts{
		Extraction:   s.config.ExtractionCost,
		Script:       s.config.ScriptCost,
		Video:        s.config.VideoCost,
		Regeneration: s.config.RegenerationCost,
	}
}

// ensureAccount creates the account with the signup bonus on first touch.
func (s *CreditService) ensureAccount(tx *gorm.DB, userID string) error {
	account := models.CreditAccount{UserID: userID, Balance: s.config.SignupBonus}
	result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&account)
	if result.Error != nil {
		return fmt.Errorf("failed to create credit account: %w", result.Error)
	}
	if result.RowsAffected == 0 || s.config.SignupBonus == 0 {
		return nil
	}

	grant := models.CreditTransaction{
		UserID:       userID,
		Type:         models.CreditTransactionGrant,
		Amount:       s.config.SignupBonus,
		BalanceAfter: s.config.SignupBonus,
		Description:  "signup bonus",
	}
	if err := tx.Create(&grant).Error; err != nil {
		return fmt.Errorf("failed to record signup bonus: %w", err)
	}
	return nil
}

func (s *CreditService) Balance(ctx context.Context, userID string) (int, error) {
	var account models.CreditAccount
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ensureAccount(tx, userID); err != nil {
			return err
		}
		return tx.First(&account, "user_id = ?", userID).Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to load credit balance: %w", err)
	}
	return account.Balance, nil
}

func (s *CreditService) Summary(ctx context.Context, userID string) (*CreditSummary, error) {
	balance, err := s.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &CreditSummary{Balance: balance, Costs: s.Costs()}, nil
}

// Reserve holds the cost of op against the user's balance. It returns an
// *InsufficientCreditsError when the balance is too low.
func (s *CreditService) Reserve(ctx context.Context, userID string, op models.CreditOperation) (*models.CreditReservation, error) {
	cost := s.Cost(op)
	var reservation *models.CreditReservation

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ensureAccount(tx, userID); err != nil {
			return err
		}

		result := tx.Model(&models.CreditAccount{}).
			Where("user_id = ? AND balance >= ?", userID, cost).
			Update("balance", gorm.Expr("balance - ?", cost))
		if result.Error != nil {
			return fmt.Errorf("failed to debit credits: %w", result.Error)
		}

		if result.RowsAffected == 0 {
			available, err := s.balanceTx(tx, userID)
			if err != nil {
				return err
			}
			return &InsufficientCreditsError{Required: cost, Available: available}
		}

		reservation = &models.CreditReservation{
			UserID:    userID,
			Operation: op,
			Cost:      cost,
			Status:    models.ReservationStatusPending,
		}
		if err := tx.Create(reservation).Error; err != nil {
			return fmt.Errorf("failed to create reservation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":        userID,
		"operation":      op,
		"cost":           cost,
		"reservation_id": reservation.ID,
	}).Debug("Credits reserved")
	return reservation, nil
}

func (s *CreditService) Commit(ctx context.Context, reservation *models.CreditReservation) error {
	return s.CommitTx(s.db.WithContext(ctx), reservation)
}

// CommitTx settles the reservation on tx so it lands or rolls back together
// with the work it paid for.
func (s *CreditService) CommitTx(tx *gorm.DB, reservation *models.CreditReservation) error {
	now := time.Now()
	result := tx.Model(&models.CreditReservation{}).
		Where("id = ? AND status = ?", reservation.ID, models.ReservationStatusPending).
		Updates(map[string]interface{}{
			"status":     models.ReservationStatusCommitted,
			"settled_at": now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to commit reservation: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrReservationNotPending
	}

	balance, err := s.balanceTx(tx, reservation.UserID)
	if err != nil {
		return err
	}

	rid := reservation.ID
	usage := models.CreditTransaction{
		UserID:        reservation.UserID,
		Type:          models.CreditTransactionUsage,
		Amount:        -reservation.Cost,
		BalanceAfter:  balance,
		ReservationID: &rid,
		Description:   string(reservation.Operation),
	}
	if err := tx.Create(&usage).Error; err != nil {
		return fmt.Errorf("failed to record credit usage: %w", err)
	}

	reservation.Status = models.ReservationStatusCommitted
	reservation.SettledAt = &now
	return nil
}

// Release returns held credits. Releasing a settled reservation is a no-op.
func (s *CreditService) Release(ctx context.Context, reservation *models.CreditReservation) error {
	if reservation == nil {
		return nil
	}

	released := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		result := tx.Model(&models.CreditReservation{}).
			Where("id = ? AND status = ?", reservation.ID, models.ReservationStatusPending).
			Updates(map[string]interface{}{
				"status":     models.ReservationStatusReleased,
				"settled_at": now,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to release reservation: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil
		}

		if err := tx.Model(&models.CreditAccount{}).
			Where("user_id = ?", reservation.UserID).
			Update("balance", gorm.Expr("balance + ?", reservation.Cost)).Error; err != nil {
			return fmt.Errorf("failed to restore credits: %w", err)
		}
		released = true
		return nil
	})
	if err != nil {
		return err
	}

	if released {
		reservation.Status = models.ReservationStatusReleased
		logrus.WithFields(logrus.Fields{
			"user_id":        reservation.UserID,
			"operation":      reservation.Operation,
			"cost":           reservation.Cost,
			"reservation_id": reservation.ID,
		}).Info("Credits released")
	}
	return nil
}

// releaseQuietly is used on failure paths where the original error is the
// one worth returning. It runs on a fresh context so a cancelled request
// still gets its credits back.
func (s *CreditService) releaseQuietly(reservation *models.CreditReservation) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Release(ctx, reservation); err != nil {
		logrus.WithError(err).WithField("reservation_id", reservation.ID).Error("Failed to release credits")
	}
}

// ReleaseExpired releases pending reservations older than ttl, which only
// happens when a request died between reserve and settle.
func (s *CreditService) ReleaseExpired(ctx context.Context, ttl time.Duration) (int, error) {
	var stale []models.CreditReservation
	cutoff := time.Now().Add(-ttl)
	if err := s.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.ReservationStatusPending, cutoff).
		Find(&stale).Error; err != nil {
		return 0, fmt.Errorf("failed to load stale reservations: %w", err)
	}

	released := 0
	for i := range stale {
		if err := s.Release(ctx, &stale[i]); err != nil {
			return released, err
		}
		if stale[i].Status == models.ReservationStatusReleased {
			released++
		}
	}
	return released, nil
}

// StartJanitor runs ReleaseExpired until ctx is cancelled.
func (s *CreditService) StartJanitor(ctx context.Context) {
	if s.config.ReservationTTL <= 0 || s.config.JanitorInterval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(s.config.JanitorInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := s.ReleaseExpired(ctx, s.config.ReservationTTL)
				if err != nil && !errors.Is(err, context.Canceled) {
					logrus.WithError(err).Error("Credit janitor failed")
					continue
				}
				if n > 0 {
					logrus.WithField("released", n).Warn("Released stale credit reservations")
				}
			}
		}
	}()
}

// Grant adds credits once per payment reference.
func (s *CreditService) Grant(ctx context.Context, userID string, amount int, txType models.CreditTransactionType, reference, description string) (int, error) {
	balance, err := s.addCredits(ctx, userID, amount, txType, reference, description)
	if err != nil {
		return 0, err
	}

	events.Emit(ctx, s.events, events.Event{
		Type:    events.CreditsToppedUp,
		UserID:  userID,
		Payload: map[string]interface{}{"amount": amount, "balance": balance, "reference": reference},
	})
	return balance, nil
}

// Refund gives back credits for a committed operation that could not be
// delivered at all.
func (s *CreditService) Refund(ctx context.Context, reservation *models.CreditReservation, reason string) (int, error) {
	return s.addCredits(ctx, reservation.UserID, reservation.Cost, models.CreditTransactionRefund,
		"refund:"+reservation.ID.String(), reason)
}

func (s *CreditService) addCredits(ctx context.Context, userID string, amount int, txType models.CreditTransactionType, reference, description string) (int, error) {
	var balance int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ensureAccount(tx, userID); err != nil {
			return err
		}

		if reference != "" {
			var existing int64
			if err := tx.Model(&models.CreditTransaction{}).
				Where("payment_reference = ?", reference).
				Count(&existing).Error; err != nil {
				return fmt.Errorf("failed to check payment reference: %w", err)
			}
			if existing > 0 {
				var err error
				balance, err = s.balanceTx(tx, userID)
				return err
			}
		}

		if err := tx.Model(&models.CreditAccount{}).
			Where("user_id = ?", userID).
			Update("balance", gorm.Expr("balance + ?", amount)).Error; err != nil {
			return fmt.Errorf("failed to add credits: %w", err)
		}

		var err error
		if balance, err = s.balanceTx(tx, userID); err != nil {
			return err
		}

		entry := models.CreditTransaction{
			UserID:       userID,
			Type:         txType,
			Amount:       amount,
			BalanceAfter: balance,
			Description:  description,
		}
		if reference != "" {
			entry.PaymentReference = &reference
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (s *CreditService) balanceTx(tx *gorm.DB, userID string) (int, error) {
	var account models.CreditAccount
	if err := tx.First(&account, "user_id = ?", userID).Error; err != nil {
		return 0, fmt.Errorf("failed to load credit account: %w", err)
	}
	return account.Balance, nil
}

func (s *CreditService) History(ctx context.Context, userID string, limit int) ([]models.CreditTransaction, error) {
	var entries []models.CreditTransaction
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to load credit history: %w", err)
	}
	return entries, nil
}

// Spent is the total consumed by committed operations.
func (s *CreditService) Spent(ctx context.Context, userID string) (int, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.CreditTransaction{}).
		Where("user_id = ? AND type = ?", userID, models.CreditTransactionUsage).
		Select("COALESCE(SUM(-amount), 0)").
		Scan(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to sum credit usage: %w", err)
	}
	return int(total), nil
}

func (s *CreditService) emitCommitted(ctx context.Context, reservation *models.CreditReservation, subjectID string) {
	events.Emit(ctx, s.events, events.Event{
		Type:      events.CreditsCommitted,
		UserID:    reservation.UserID,
		SubjectID: subjectID,
		Payload: map[string]interface{}{
			"operation": reservation.Operation,
			"cost":      reservation.Cost,
		},
	})
}
