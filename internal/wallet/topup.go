package wallet

import (
	"context"
	"regexp"
	"strings"

	"github.com/brandotp/numberdesk/internal/gateway"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	MinTopUpAmount = 50
	MaxTopUpAmount = 5000
)

var mobilePattern = regexp.MustCompile(`^[0-9]{10}$`)

// PaymentGateway is the slice of the API client the wallet needs.
type PaymentGateway interface {
	GetBalance(ctx context.Context) (*gateway.WalletBalance, error)
	CreateTopUpOrder(ctx context.Context, mobile string, amount float64) (*gateway.TopUpOrder, error)
	CheckPaymentStatus(ctx context.Context, orderID string) (*gateway.PaymentStatus, error)
}

// Service handles wallet balance and Pay0 top-up orders. Input validation
// happens before any network call so obviously bad orders never reach the
// payment gateway.
type Service struct {
	gw     PaymentGateway
	logger *logrus.Logger
}

func NewService(gw PaymentGateway, logger *logrus.Logger) *Service {
	return &Service{gw: gw, logger: logger}
}

func (s *Service) Balance(ctx context.Context) (float64, error) {
	balance, err := s.gw.GetBalance(ctx)
	if err != nil {
		return 0, err
	}
	return balance.Balance, nil
}

// CreateTopUp validates and opens a payment order. If the gateway does not
// assign an order id, a local reference is generated so status checks still
// have something to key on.
func (s *Service) CreateTopUp(ctx context.Context, mobile string, amount float64) (*gateway.TopUpOrder, error) {
	if amount < MinTopUpAmount || amount > MaxTopUpAmount {
		return nil, &gateway.ValidationError{
			Field:  "amount",
			Reason: "amount must be between 50 and 5000",
		}
	}
	if !mobilePattern.MatchString(mobile) {
		return nil, &gateway.ValidationError{
			Field:  "mobile",
			Reason: "mobile must be a 10-digit number",
		}
	}

	order, err := s.gw.CreateTopUpOrder(ctx, mobile, amount)
	if err != nil {
		return nil, err
	}

	if order.OrderID == "" {
		order.OrderID = newOrderReference()
		s.logger.Warnf("Top-up order carried no id, assigned local reference %s", order.OrderID)
	}

	s.logger.Infof("Opened top-up order %s for %.2f", order.OrderID, amount)
	return order, nil
}

// CheckPayment returns the current state of an order.
func (s *Service) CheckPayment(ctx context.Context, orderID string) (*gateway.PaymentStatus, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, &gateway.ValidationError{Field: "order_id", Reason: "order_id is required"}
	}
	return s.gw.CheckPaymentStatus(ctx, orderID)
}

func newOrderReference() string {
	id := uuid.New()
	return "ORD_" + strings.ReplaceAll(id.String(), "-", "")
}
