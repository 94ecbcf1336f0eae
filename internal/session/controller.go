package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/brandotp/numberdesk/internal/gateway"

	"github.com/sirupsen/logrus"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultSmsTimeout   = 5 * time.Minute
)

// Gateway is the slice of the API client the controller needs.
type Gateway interface {
	PurchaseNumber(ctx context.Context, serviceID, countryID int) (*gateway.PurchaseResult, error)
	PollSMS(ctx context.Context, requestID string) (*gateway.SMSResult, error)
	CancelPurchase(ctx context.Context, requestID string) (*gateway.CancelResult, error)
	GetBalance(ctx context.Context) (*gateway.WalletBalance, error)
}

type Config struct {
	PollInterval time.Duration
	SmsTimeout   time.Duration
}

// Controller owns at most one live PurchaseSession and drives its full
// lifecycle: purchase, time-driven polling, hard timeout, cancellation.
// The polling loop and the timeout countdown are torn down together on any
// terminal transition, so nothing can act on a finalized session. A
// generation counter discards results that belong to a superseded session.
type Controller struct {
	gw      Gateway
	metrics *Metrics
	logger  *logrus.Logger

	pollInterval time.Duration
	smsTimeout   time.Duration

	mu           sync.Mutex
	sess         *PurchaseSession
	gen          uint64
	stopPolling  context.CancelFunc
	presenters   []Presenter
	balance      float64
	balanceKnown bool
}

func NewController(gw Gateway, cfg Config, metrics *Metrics, logger *logrus.Logger) *Controller {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.SmsTimeout <= 0 {
		cfg.SmsTimeout = defaultSmsTimeout
	}

	return &Controller{
		gw:           gw,
		metrics:      metrics,
		logger:       logger,
		pollInterval: cfg.PollInterval,
		smsTimeout:   cfg.SmsTimeout,
	}
}

// AddPresenter registers a presenter for state transition notifications.
// Not safe to call concurrently with a running session; register everything
// at wiring time.
func (c *Controller) AddPresenter(p Presenter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.presenters = append(c.presenters, p)
}

// Purchase buys a number and, on success, moves the controller into
// AwaitingSms: the polling loop starts with an immediate poll and the
// timeout countdown begins. A failed purchase never creates a session.
// Starting a new purchase tears down the prior session's timers first.
func (c *Controller) Purchase(ctx context.Context, serviceID, countryID int) (Snapshot, error) {
	c.mu.Lock()
	// A new purchase supersedes whatever came before: tear down the prior
	// session's timers and discard its in-memory record.
	c.teardownLocked()
	c.sess = nil
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	result, err := c.gw.PurchaseNumber(ctx, serviceID, countryID)
	if err != nil {
		if c.metrics != nil {
			c.metrics.IncPurchaseFailed()
		}
		c.logger.Errorf("Purchase failed for service %d country %d: %v", serviceID, countryID, err)
		return c.Snapshot(), err
	}

	c.mu.Lock()
	if gen != c.gen {
		// Another purchase superseded this one while the call was in flight.
		c.mu.Unlock()
		return c.Snapshot(), fmt.Errorf("purchase superseded by a newer session")
	}

	c.sess = &PurchaseSession{
		RequestID:     result.RequestID,
		PhoneNumber:   result.Number,
		DisplayNumber: displayNumber(result),
		ServiceID:     serviceID,
		CountryID:     countryID,
		ChargedAmount: result.ChargedAmount,
		Status:        StatusAwaitingSms,
		CreatedAt:     time.Now(),
	}
	c.balance = result.NewBalance
	c.balanceKnown = true

	pollCtx, cancel := context.WithCancel(context.Background())
	c.stopPolling = cancel
	go c.runPolling(pollCtx, gen, result.RequestID)

	snap := c.snapshotLocked("number active, waiting for SMS")
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.IncPurchaseSuccess()
	}
	c.logger.Infof("Purchased number %s (request %s)", result.Number, result.RequestID)
	c.notify(snap)

	return snap, nil
}

// Cancel releases the active session. Cancellation of a terminal session is
// refused locally without issuing a network call. A remote refusal leaves
// the session in its prior state.
func (c *Controller) Cancel(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	if c.sess == nil {
		c.mu.Unlock()
		return Snapshot{Status: StatusIdle}, ErrNoActiveSession
	}
	if c.sess.Status.Terminal() {
		snap := c.snapshotLocked("cannot cancel: session already finalized")
		c.mu.Unlock()
		return snap, ErrAlreadyFinalized
	}
	gen := c.gen
	requestID := c.sess.RequestID
	c.mu.Unlock()

	result, err := c.gw.CancelPurchase(ctx, requestID)
	if err != nil {
		c.logger.Errorf("Cancel failed for request %s: %v", requestID, err)
		return c.Snapshot(), err
	}

	c.mu.Lock()
	if gen != c.gen || c.sess == nil || c.sess.Status != StatusAwaitingSms {
		// The SMS landed (or the session was finalized) while the cancel
		// call was in flight. The first terminal transition wins.
		snap := c.snapshotLocked("cannot cancel: session already finalized")
		c.mu.Unlock()
		return snap, ErrAlreadyFinalized
	}

	c.sess.Status = StatusCancelled
	c.sess.RefundAmount = result.RefundAmount
	c.balance = result.NewBalance
	c.balanceKnown = true
	c.teardownLocked()

	snap := c.snapshotLocked(fmt.Sprintf("cancelled, refunded %.2f", result.RefundAmount))
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.IncCancellation()
	}
	c.logger.Infof("Cancelled request %s, refunded %.2f", requestID, result.RefundAmount)
	c.notify(snap)

	return snap, nil
}

// RefreshBalance updates the cached wallet balance for display. Best
// effort: a failure degrades to "balance unknown" and is never fatal.
func (c *Controller) RefreshBalance(ctx context.Context) {
	balance, err := c.gw.GetBalance(ctx)
	if err != nil {
		c.logger.Warnf("Balance refresh failed: %v", err)
		return
	}

	c.mu.Lock()
	c.balance = balance.Balance
	c.balanceKnown = true
	c.mu.Unlock()
}

// Snapshot returns the current read-only session view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked("")
}

// Close stops any running polling loop. The session record itself is
// discarded with the controller; the durable purchase record lives on the
// remote service.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
}

func (c *Controller) runPolling(ctx context.Context, gen uint64, requestID string) {
	// First poll fires immediately.
	if c.pollOnce(ctx, gen, requestID) {
		return
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	deadline := time.NewTimer(c.smsTimeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			c.applyTimeout(gen)
			return
		case <-ticker.C:
			if c.pollOnce(ctx, gen, requestID) {
				return
			}
		}
	}
}

// pollOnce issues one poll and applies the result if it is still relevant.
// Returns true once the loop should stop. Transport and gateway errors are
// transient: they are logged and polling continues on the next tick.
func (c *Controller) pollOnce(ctx context.Context, gen uint64, requestID string) bool {
	result, err := c.gw.PollSMS(ctx, requestID)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		if c.metrics != nil {
			c.metrics.IncPollError()
		}
		c.logger.Warnf("Poll failed for request %s: %v", requestID, err)
		return false
	}

	if !result.SmsReceived {
		return false
	}

	c.mu.Lock()
	if gen != c.gen || c.sess == nil || c.sess.Status != StatusAwaitingSms {
		// Stale poll: the session was cancelled or superseded while this
		// request was in flight. Discard, never apply.
		c.mu.Unlock()
		return true
	}

	c.sess.Status = StatusSmsReceived
	c.sess.SmsCode = result.SmsCode
	c.sess.SmsText = result.SmsText
	c.sess.SmsSender = result.Sender
	waited := time.Since(c.sess.CreatedAt)
	c.teardownLocked()

	snap := c.snapshotLocked("SMS received")
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.IncSMSReceived()
		c.metrics.ObserveSMSWait(waited.Seconds())
	}
	c.logger.Infof("SMS received for request %s after %s", requestID, waited.Round(time.Second))
	c.notify(snap)

	return true
}

// applyTimeout moves the session to TimedOut once the deadline elapses with
// no SMS. No cancel call is issued; the remote reservation is left
// unresolved and a presenter may trigger cancellation explicitly.
func (c *Controller) applyTimeout(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.sess == nil || c.sess.Status != StatusAwaitingSms {
		c.mu.Unlock()
		return
	}

	c.sess.Status = StatusTimedOut
	c.teardownLocked()

	snap := c.snapshotLocked("timed out waiting for SMS")
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.IncTimeout()
	}
	c.logger.Warnf("Request %s timed out waiting for SMS", snap.RequestID)
	c.notify(snap)
}

// teardownLocked releases the timer resources of the current session. Both
// the polling loop and the timeout countdown hang off the same context, so
// they stop together.
func (c *Controller) teardownLocked() {
	if c.stopPolling != nil {
		c.stopPolling()
		c.stopPolling = nil
	}
}

func (c *Controller) snapshotLocked(message string) Snapshot {
	snap := Snapshot{
		Status:       StatusIdle,
		Balance:      c.balance,
		BalanceKnown: c.balanceKnown,
		Message:      message,
	}
	if c.sess == nil {
		return snap
	}

	snap.Status = c.sess.Status
	snap.RequestID = c.sess.RequestID
	snap.PhoneNumber = c.sess.PhoneNumber
	snap.DisplayNumber = c.sess.DisplayNumber
	snap.ServiceID = c.sess.ServiceID
	snap.CountryID = c.sess.CountryID
	snap.ChargedAmount = c.sess.ChargedAmount
	snap.SmsCode = c.sess.SmsCode
	snap.SmsText = c.sess.SmsText
	snap.SmsSender = c.sess.SmsSender
	snap.RefundAmount = c.sess.RefundAmount
	snap.CreatedAt = c.sess.CreatedAt
	snap.CanCancel = c.sess.Status == StatusAwaitingSms
	return snap
}

// notify fans the snapshot out to presenters outside the lock, so a slow
// presenter cannot stall a transition.
func (c *Controller) notify(snap Snapshot) {
	c.mu.Lock()
	presenters := make([]Presenter, len(c.presenters))
	copy(presenters, c.presenters)
	c.mu.Unlock()

	for _, p := range presenters {
		p.SessionUpdated(snap)
	}
}

func displayNumber(result *gateway.PurchaseResult) string {
	if result.DisplayNumber != "" {
		return result.DisplayNumber
	}
	if result.CountryCode != "" {
		return result.CountryCode + " " + result.Number
	}
	return result.Number
}
