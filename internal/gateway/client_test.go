package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (t staticToken) Token() string { return string(t) }

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)
	return logger
}

func TestPurchaseNumberWithoutTokenFailsFast(t *testing.T) {
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
	}))
	defer server.Close()

	client := NewClient(server.URL, staticToken(""), newTestLogger())

	_, err := client.PurchaseNumber(context.Background(), 5, 91)
	require.ErrorIs(t, err, ErrUnauthenticated)
	assert.Equal(t, int64(0), atomic.LoadInt64(&hits), "no request may be issued without a token")
}

func TestPurchaseNumberSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/smsman/buy", r.URL.Path)
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"number":"917000000001","request_id":"abc123","display_number":"+91 70000 00001","charged_amount":10,"new_balance":70}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, staticToken("tok-1"), newTestLogger())

	result, err := client.PurchaseNumber(context.Background(), 5, 91)
	require.NoError(t, err)
	assert.Equal(t, "917000000001", result.Number)
	assert.Equal(t, "abc123", result.RequestID)
	assert.Equal(t, "+91 70000 00001", result.DisplayNumber)
	assert.Equal(t, float64(10), result.ChargedAmount)
	assert.Equal(t, float64(70), result.NewBalance)
}

func TestPurchaseNumberRemoteRefusal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"Insufficient balance"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, staticToken("tok-1"), newTestLogger())

	_, err := client.PurchaseNumber(context.Background(), 5, 91)
	require.Error(t, err)

	var purchaseErr *PurchaseError
	require.ErrorAs(t, err, &purchaseErr)
	assert.Equal(t, "Insufficient balance", purchaseErr.Reason)

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, http.StatusBadRequest, gwErr.StatusCode)
}

func TestPollSMSWaitingIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/smsman/sms/abc123", r.URL.Path)
		w.Write([]byte(`{"success":true,"sms_received":false}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, staticToken("tok-1"), newTestLogger())

	result, err := client.PollSMS(context.Background(), "abc123")
	require.NoError(t, err)
	assert.False(t, result.SmsReceived)
}

func TestPollSMSReceived(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"sms_received":true,"sms_code":"482913","sms_text":"Your code: 482913","sender":"Service"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, staticToken("tok-1"), newTestLogger())

	result, err := client.PollSMS(context.Background(), "abc123")
	require.NoError(t, err)
	assert.True(t, result.SmsReceived)
	assert.Equal(t, "482913", result.SmsCode)
	assert.Equal(t, "Service", result.Sender)
}

func TestCancelPurchaseSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/smsman/cancel/abc123", r.URL.Path)
		w.Write([]byte(`{"success":true,"message":"Cancelled successfully","refund_amount":10,"new_balance":60}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, staticToken("tok-1"), newTestLogger())

	result, err := client.CancelPurchase(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, float64(10), result.RefundAmount)
	assert.Equal(t, float64(60), result.NewBalance)
}

func TestCancelPurchaseAlreadyFinalized(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"detail mentions already", http.StatusBadRequest, `{"detail":"Cannot cancel - SMS already received"}`},
		{"conflict status", http.StatusConflict, `{"detail":"Activation finished"}`},
		{"already cancelled", http.StatusBadRequest, `{"detail":"Number already cancelled"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.URL, staticToken("tok-1"), newTestLogger())

			_, err := client.CancelPurchase(context.Background(), "abc123")
			var finalized *AlreadyFinalizedError
			require.ErrorAs(t, err, &finalized)
		})
	}
}

func TestGetBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/wallet/balance", r.URL.Path)
		w.Write([]byte(`{"balance":42.5}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, staticToken("tok-1"), newTestLogger())

	balance, err := client.GetBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42.5, balance.Balance)
}

func TestCatalogEndpointsAreAnonymous(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/api/smsman/countries":
			w.Write([]byte(`{"success":true,"countries":[{"id":91,"title":"India","code":"IN"}]}`))
		case "/api/smsman/services":
			require.Equal(t, "91", r.URL.Query().Get("country_id"))
			w.Write([]byte(`{"success":true,"services":[{"id":5,"name":"Telegram","display_price":"₹17.00"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, staticToken(""), newTestLogger())

	countries, err := client.GetCountries(context.Background())
	require.NoError(t, err)
	require.Len(t, countries, 1)
	assert.Equal(t, "India", countries[0].Title)

	services, err := client.GetServices(context.Background(), 91)
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, "Telegram", services[0].Name)
}

func TestTransportErrorWrapping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse all connections

	client := NewClient(server.URL, staticToken("tok-1"), newTestLogger())

	_, err := client.PollSMS(context.Background(), "abc123")
	var transport *TransportError
	require.ErrorAs(t, err, &transport)
}

func TestErrorDetailSurfacedVerbatim(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Could not validate credentials"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, staticToken("expired"), newTestLogger())

	_, err := client.GetBalance(context.Background())
	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, "Could not validate credentials", gwErr.Detail)
}

func TestErrorDetailFallsBackToStatusText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`<html>upstream exploded</html>`))
	}))
	defer server.Close()

	client := NewClient(server.URL, staticToken("tok-1"), newTestLogger())

	_, err := client.GetBalance(context.Background())
	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, http.StatusText(http.StatusBadGateway), gwErr.Detail)
}

func TestCreateTopUpOrderPaymentURLSpellings(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"flat payment_url", `{"success":true,"order_id":"ORD_1","amount":100,"payment_url":"https://pay.example/1"}`},
		{"flat paymenturl", `{"success":true,"order_id":"ORD_1","amount":100,"paymenturl":"https://pay.example/1"}`},
		{"nested payment_url", `{"success":true,"order_id":"ORD_1","amount":100,"result":{"payment_url":"https://pay.example/1"}}`},
		{"nested paymenturl", `{"success":true,"order_id":"ORD_1","amount":100,"result":{"paymenturl":"https://pay.example/1"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/api/payments/pay0/order", r.URL.Path)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.URL, staticToken("tok-1"), newTestLogger())

			order, err := client.CreateTopUpOrder(context.Background(), "9876543210", 100)
			require.NoError(t, err)
			assert.Equal(t, "https://pay.example/1", order.PaymentURL)
			assert.Equal(t, "ORD_1", order.OrderID)
		})
	}
}

func TestCreateTopUpOrderMissingPaymentURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"order_id":"ORD_1","amount":100}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, staticToken("tok-1"), newTestLogger())

	_, err := client.CreateTopUpOrder(context.Background(), "9876543210", 100)
	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
}

func TestCheckPaymentStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "ORD_1", r.URL.Query().Get("order_id"))
		w.Write([]byte(`{"status":"SUCCESS","amount":100,"utr":"UTR123"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, staticToken("tok-1"), newTestLogger())

	status, err := client.CheckPaymentStatus(context.Background(), "ORD_1")
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusSuccess, status.Status)
	assert.Equal(t, "UTR123", status.UTR)
}

func TestLogin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/auth/login", r.URL.Path)
		w.Write([]byte(`{"access_token":"tok-new"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, staticToken(""), newTestLogger())

	token, err := client.Login(context.Background(), "user@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-new", token)
}

func TestLoginBadCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Invalid email or password"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, staticToken(""), newTestLogger())

	_, err := client.Login(context.Background(), "user@example.com", "wrong")
	var gwErr *GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, "Invalid email or password", gwErr.Detail)
}
