// internal/models/credit.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type CreditOperation string

const (
	CreditOperationExtraction   CreditOperation = "extraction"
	CreditOperationScript       CreditOperation = "script_generation"
	CreditOperationVideo        CreditOperation = "video_generation"
	CreditOperationRegeneration CreditOperation = "module_regeneration"
)

type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusCommitted ReservationStatus = "committed"
	ReservationStatusReleased  ReservationStatus = "released"
)

type CreditTransactionType string

const (
	CreditTransactionUsage  CreditTransactionType = "usage"
	CreditTransactionRefund CreditTransactionType = "refund"
	CreditTransactionTopUp  CreditTransactionType = "topup"
	CreditTransactionGrant  CreditTransactionType = "grant"
)

// CreditAccount is the single row per user that admission control runs against.
type CreditAccount struct {
	UserID    string    `json:"userId" gorm:"primaryKey;size:128"`
	Balance   int       `json:"balance" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreditReservation holds credits taken from the balance until the work is
// either persisted (committed) or abandoned (released).
type CreditReservation struct {
	BaseModel
	UserID    string            `json:"userId" gorm:"size:128;not null;index"`
	Operation CreditOperation   `json:"operation" gorm:"type:varchar(30);not null"`
	Cost      int               `json:"cost" gorm:"not null"`
	Status    ReservationStatus `json:"status" gorm:"type:varchar(20);not null;index"`
	SettledAt *time.Time        `json:"settledAt,omitempty"`
}

// CreditTransaction is the append-only audit trail of balance movements.
type CreditTransaction struct {
	BaseModel
	UserID           string                `json:"userId" gorm:"size:128;not null;index"`
	Type             CreditTransactionType `json:"type" gorm:"type:varchar(20);not null;index"`
	Amount           int                   `json:"amount" gorm:"not null"` // positive credit, negative debit
	BalanceAfter     int                   `json:"balanceAfter"`
	ReservationID    *uuid.UUID            `json:"reservationId,omitempty" gorm:"type:uuid;index"`
	PaymentReference *string               `json:"paymentReference,omitempty" gorm:"size:255;uniqueIndex"`
	Description      string                `json:"description" gorm:"type:text"`
}
