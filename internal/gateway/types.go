package gateway

// PurchaseResult is the successful response of POST /api/smsman/buy.
type PurchaseResult struct {
	Success       bool    `json:"success"`
	Number        string  `json:"number"`
	RequestID     string  `json:"request_id"`
	DisplayNumber string  `json:"display_number,omitempty"`
	CountryCode   string  `json:"country_code,omitempty"`
	ChargedAmount float64 `json:"charged_amount"`
	NewBalance    float64 `json:"new_balance"`
}

// SMSResult is the response of GET /api/smsman/sms/{request_id}.
// SmsReceived=false means the provider has not delivered anything yet;
// that is a normal answer, not an error.
type SMSResult struct {
	Success     bool   `json:"success"`
	SmsReceived bool   `json:"sms_received"`
	SmsCode     string `json:"sms_code,omitempty"`
	SmsText     string `json:"sms_text,omitempty"`
	Sender      string `json:"sender,omitempty"`
}

// CancelResult is the successful response of POST /api/smsman/cancel/{request_id}.
type CancelResult struct {
	Success      bool    `json:"success"`
	Message      string  `json:"message"`
	RefundAmount float64 `json:"refund_amount"`
	NewBalance   float64 `json:"new_balance"`
}

// WalletBalance is owned by the remote service and cached locally only for
// display.
type WalletBalance struct {
	Balance float64 `json:"balance"`
}

type Country struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Code  string `json:"code"`
}

type Service struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	DisplayPrice string `json:"display_price"`
}

// TopUpOrder is the normalized response of a Pay0 order creation. The
// gateway accepts both the payment_url and paymenturl spellings, flat or
// nested under result.
type TopUpOrder struct {
	OrderID    string  `json:"order_id"`
	Amount     float64 `json:"amount"`
	PaymentURL string  `json:"payment_url"`
	Message    string  `json:"message,omitempty"`
}

// PaymentStatus is the response of GET /api/payments/check-status.
type PaymentStatus struct {
	Status  string  `json:"status"`
	Amount  float64 `json:"amount,omitempty"`
	UTR     string  `json:"utr,omitempty"`
	Message string  `json:"message,omitempty"`
}

const (
	PaymentStatusSuccess = "SUCCESS"
	PaymentStatusPending = "PENDING"
	PaymentStatusFailed  = "FAILED"
)
