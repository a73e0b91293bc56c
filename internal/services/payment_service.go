// internal/services/payment_service.go
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"

	"github.com/alhadicyber42/Affiliate-AI/internal/config"
	"github.com/alhadicyber42/Affiliate-AI/internal/models"
)

// CreditPackage is a purchasable bundle of credits. Price is in whole units
// of the configured currency.
type CreditPackage struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Credits int    `json:"credits"`
	Price   int64  `json:"price"`
}

var creditPackages = []CreditPackage{
	{ID: "starter", Name: "Starter", Credits: 500, Price: 99000},
	{ID: "pro", Name: "Pro", Credits: 2000, Price: 299000},
	{ID: "agency", Name: "Agency", Credits: 6000, Price: 799000},
}

func findPackage(id string) (CreditPackage, bool) {
	for _, p := range creditPackages {
		if p.ID == id {
			return p, true
		}
	}
	return CreditPackage{}, false
}

// PaymentIntent is the gateway-neutral view of a payment.
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       string
	Metadata     map[string]string
}

const paymentSucceeded = "succeeded"

// PaymentGateway is the card processor. StripeGateway is the production
// implementation.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*PaymentIntent, error)
	GetIntent(ctx context.Context, id string) (*PaymentIntent, error)
}

type StripeGateway struct{}

func NewStripeGateway(secretKey string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{}
}

func (g *StripeGateway) CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(stripeAmount(amount, currency)),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}
	return fromStripe(pi), nil
}

func (g *StripeGateway) GetIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := paymentintent.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment intent: %w", err)
	}
	return fromStripe(pi), nil
}

func fromStripe(pi *stripe.PaymentIntent) *PaymentIntent {
	return &PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Metadata:     pi.Metadata,
	}
}

// Stripe takes amounts in the smallest currency unit.
func stripeAmount(amount int64, currency string) int64 {
	switch strings.ToLower(currency) {
	case "jpy", "krw", "vnd", "clp", "pyg", "xof", "xaf":
		return amount
	}
	return amount * 100
}

type PaymentService struct {
	credits  *CreditService
	gateway  PaymentGateway
	currency string
}

type TopUpRequest struct {
	UserID    string `json:"userId" validate:"required,user_id"`
	PackageID string `json:"packageId" validate:"required,oneof=starter pro agency"`
}

type TopUpResponse struct {
	ClientSecret    string        `json:"clientSecret"`
	PaymentIntentID string        `json:"paymentIntentId"`
	Status          string        `json:"status"`
	Package         CreditPackage `json:"package"`
	Currency        string        `json:"currency"`
}

type ConfirmTopUpRequest struct {
	UserID          string `json:"userId" validate:"required,user_id"`
	PaymentIntentID string `json:"paymentIntentId" validate:"required"`
}

type ConfirmTopUpResponse struct {
	Credits int `json:"credits"`
	Balance int `json:"balance"`
}

// NewPaymentService returns a service whose top-ups fail with
// ErrPaymentsDisabled when gateway is nil.
func NewPaymentService(credits *CreditService, gateway PaymentGateway, cfg config.PaymentConfig) *PaymentService {
	currency := cfg.Currency
	if currency == "" {
		currency = "idr"
	}
	return &PaymentService{
		credits:  credits,
		gateway:  gateway,
		currency: currency,
	}
}

func (s *PaymentService) Packages() []CreditPackage {
	out := make([]CreditPackage, len(creditPackages))
	copy(out, creditPackages)
	return out
}

func (s *PaymentService) CreateTopUp(ctx context.Context, req *TopUpRequest) (*TopUpResponse, error) {
	if s.gateway == nil {
		return nil, ErrPaymentsDisabled
	}
	pkg, ok := findPackage(req.PackageID)
	if !ok {
		return nil, ErrUnknownPackage
	}

	intent, err := s.gateway.CreateIntent(ctx, pkg.Price, s.currency, map[string]string{
		"user_id":    req.UserID,
		"package_id": pkg.ID,
		"credits":    fmt.Sprint(pkg.Credits),
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":        req.UserID,
		"package_id":     pkg.ID,
		"payment_intent": intent.ID,
	}).Info("Credit top-up started")

	return &TopUpResponse{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		Status:          intent.Status,
		Package:         pkg,
		Currency:        s.currency,
	}, nil
}

// ConfirmTopUp grants the package credits once the payment has succeeded.
// Confirming the same payment again returns the current balance without
// granting twice.
func (s *PaymentService) ConfirmTopUp(ctx context.Context, req *ConfirmTopUpRequest) (*ConfirmTopUpResponse, error) {
	if s.gateway == nil {
		return nil, ErrPaymentsDisabled
	}

	intent, err := s.gateway.GetIntent(ctx, req.PaymentIntentID)
	if err != nil {
		return nil, err
	}
	if intent.Metadata["user_id"] != req.UserID {
		return nil, notFound("payment", req.PaymentIntentID)
	}
	if intent.Status != paymentSucceeded {
		return nil, ErrPaymentNotSucceeded
	}

	pkg, ok := findPackage(intent.Metadata["package_id"])
	if !ok {
		return nil, ErrUnknownPackage
	}

	balance, err := s.credits.Grant(ctx, req.UserID, pkg.Credits, models.CreditTransactionTopUp,
		intent.ID, "top-up "+pkg.ID)
	if err != nil {
		return nil, err
	}

	return &ConfirmTopUpResponse{Credits: pkg.Credits, Balance: balance}, nil
}
