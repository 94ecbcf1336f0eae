package session

import (
	"errors"
	"time"
)

// Status is the lifecycle state of a purchase session. SmsReceived,
// Cancelled and TimedOut are terminal: no further transitions happen.
type Status string

const (
	StatusIdle        Status = "idle"
	StatusAwaitingSms Status = "awaiting_sms"
	StatusSmsReceived Status = "sms_received"
	StatusCancelled   Status = "cancelled"
	StatusTimedOut    Status = "timed_out"
)

func (s Status) Terminal() bool {
	switch s {
	case StatusSmsReceived, StatusCancelled, StatusTimedOut:
		return true
	}
	return false
}

// ErrNoActiveSession is returned when an operation needs a live session and
// none exists.
var ErrNoActiveSession = errors.New("no active purchase session")

// ErrAlreadyFinalized is the local refusal to cancel a terminal session.
// No network call is made when the local state already knows the answer.
var ErrAlreadyFinalized = errors.New("session already finalized, cannot cancel")

// PurchaseSession is one rented virtual number instance. It is in-memory
// derived state on top of the durable server record; it is not persisted.
type PurchaseSession struct {
	RequestID     string
	PhoneNumber   string
	DisplayNumber string
	ServiceID     int
	CountryID     int
	ChargedAmount float64
	Status        Status
	SmsCode       string
	SmsText       string
	SmsSender     string
	RefundAmount  float64
	CreatedAt     time.Time
}

// Snapshot is the read-only view handed to presenters and the HTTP facade.
// The presentation layer only ever sees copies; it never mutates session
// state.
type Snapshot struct {
	Status        Status    `json:"status"`
	RequestID     string    `json:"request_id,omitempty"`
	PhoneNumber   string    `json:"phone_number,omitempty"`
	DisplayNumber string    `json:"display_number,omitempty"`
	ServiceID     int       `json:"service_id,omitempty"`
	CountryID     int       `json:"country_id,omitempty"`
	ChargedAmount float64   `json:"charged_amount,omitempty"`
	SmsCode       string    `json:"sms_code,omitempty"`
	SmsText       string    `json:"sms_text,omitempty"`
	SmsSender     string    `json:"sender,omitempty"`
	RefundAmount  float64   `json:"refund_amount,omitempty"`
	Balance       float64   `json:"balance,omitempty"`
	BalanceKnown  bool      `json:"balance_known"`
	CanCancel     bool      `json:"can_cancel"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
	Message       string    `json:"message,omitempty"`
}

// Presenter receives a snapshot on every observable state transition. The
// controller never touches rendering directly.
type Presenter interface {
	SessionUpdated(snap Snapshot)
}
