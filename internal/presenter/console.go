package presenter

import (
	"github.com/brandotp/numberdesk/internal/session"

	"github.com/sirupsen/logrus"
)

// Console renders session transitions to the process log. It stands in for
// the page the browser client re-rendered on every status change.
type Console struct {
	logger *logrus.Logger
}

func NewConsole(logger *logrus.Logger) *Console {
	return &Console{logger: logger}
}

// SessionUpdated implements session.Presenter.
func (c *Console) SessionUpdated(snap session.Snapshot) {
	entry := c.logger.WithFields(logrus.Fields{
		"request_id": snap.RequestID,
		"status":     snap.Status,
	})

	switch snap.Status {
	case session.StatusAwaitingSms:
		entry.Infof("Number %s active, waiting for SMS", snap.DisplayNumber)
	case session.StatusSmsReceived:
		entry.Infof("SMS code %s received from %s", snap.SmsCode, snap.SmsSender)
	case session.StatusCancelled:
		entry.Infof("Session cancelled, refunded %.2f", snap.RefundAmount)
	case session.StatusTimedOut:
		entry.Warn("Timed out waiting for SMS")
	default:
		entry.Debug("Session updated")
	}
}
