package history

import (
	"sync"
	"time"

	"github.com/brandotp/numberdesk/internal/session"

	"gonum.org/v1/gonum/stat"
)

// Record is one finished purchase session.
type Record struct {
	RequestID     string         `json:"request_id"`
	PhoneNumber   string         `json:"phone_number"`
	ServiceID     int            `json:"service_id"`
	CountryID     int            `json:"country_id"`
	Status        session.Status `json:"status"`
	ChargedAmount float64        `json:"charged_amount"`
	RefundAmount  float64        `json:"refund_amount"`
	SmsCode       string         `json:"sms_code,omitempty"`
	FinishedAt    time.Time      `json:"finished_at"`
}

// Summary aggregates spend over the recorded sessions. NetSpend is charges
// minus refunds; the mean and standard deviation describe per-session net
// spend.
type Summary struct {
	Sessions     int     `json:"sessions"`
	SmsReceived  int     `json:"sms_received"`
	Cancelled    int     `json:"cancelled"`
	TimedOut     int     `json:"timed_out"`
	NetSpend     float64 `json:"net_spend"`
	MeanSpend    float64 `json:"mean_spend"`
	SpendStdDev  float64 `json:"spend_std_dev"`
	TotalRefunds float64 `json:"total_refunds"`
}

// Log keeps finished sessions in memory for the lifetime of the process.
// It implements session.Presenter and records only terminal transitions.
type Log struct {
	mu      sync.RWMutex
	records []Record
}

func NewLog() *Log {
	return &Log{}
}

// SessionUpdated implements session.Presenter.
func (l *Log) SessionUpdated(snap session.Snapshot) {
	if !snap.Status.Terminal() {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, Record{
		RequestID:     snap.RequestID,
		PhoneNumber:   snap.PhoneNumber,
		ServiceID:     snap.ServiceID,
		CountryID:     snap.CountryID,
		Status:        snap.Status,
		ChargedAmount: snap.ChargedAmount,
		RefundAmount:  snap.RefundAmount,
		SmsCode:       snap.SmsCode,
		FinishedAt:    time.Now(),
	})
}

// Records returns finished sessions, newest first.
func (l *Log) Records() []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Record, len(l.records))
	for i, r := range l.records {
		out[len(l.records)-1-i] = r
	}
	return out
}

// Summarize computes spend statistics over everything recorded so far.
func (l *Log) Summarize() Summary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	summary := Summary{Sessions: len(l.records)}
	if len(l.records) == 0 {
		return summary
	}

	spends := make([]float64, 0, len(l.records))
	for _, r := range l.records {
		switch r.Status {
		case session.StatusSmsReceived:
			summary.SmsReceived++
		case session.StatusCancelled:
			summary.Cancelled++
		case session.StatusTimedOut:
			summary.TimedOut++
		}

		net := r.ChargedAmount - r.RefundAmount
		summary.NetSpend += net
		summary.TotalRefunds += r.RefundAmount
		spends = append(spends, net)
	}

	summary.MeanSpend = stat.Mean(spends, nil)
	if len(spends) > 1 {
		summary.SpendStdDev = stat.StdDev(spends, nil)
	}
	return summary
}
