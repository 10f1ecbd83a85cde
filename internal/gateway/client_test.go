package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 2*time.Second, zap.NewNop())
}

func TestCreatePreference(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/checkout/preferences" {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Expected bearer token, got %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotBody)
		w.Write([]byte(`{"id":"pref-1","init_point":"https://pay.example/pref-1"}`))
	})

	item := PreferenceItem{Title: "Session", Quantity: 1, UnitPrice: decimal.RequireFromString("50.00"), CurrencyID: "BRL"}
	pref, err := c.CreatePreference(context.Background(), "tok", &PreferenceRequest{
		Items:             []PreferenceItem{item},
		ExternalReference: "booking-1",
	})
	if err != nil {
		t.Fatalf("CreatePreference failed: %v", err)
	}
	if pref.ID != "pref-1" || pref.InitPoint != "https://pay.example/pref-1" {
		t.Errorf("Unexpected preference %+v", pref)
	}

	if gotBody["external_reference"] != "booking-1" {
		t.Errorf("Expected external_reference booking-1, got %v", gotBody["external_reference"])
	}
	items, _ := gotBody["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %v", gotBody["items"])
	}
	if price, ok := items[0].(map[string]any)["unit_price"].(float64); !ok || price != 50 {
		t.Errorf("Expected numeric unit_price 50, got %v", items[0].(map[string]any)["unit_price"])
	}
}

func TestGetPaymentKeepsRawAndParsesStatus(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payments/123" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"id":123,"status":"approved","external_reference":"b-1","transaction_amount":50.5}`))
	})

	p, err := c.GetPayment(context.Background(), "tok", "123")
	if err != nil {
		t.Fatalf("GetPayment failed: %v", err)
	}
	if p.ID != "123" || p.Status != StatusApproved || p.ExternalReference != "b-1" {
		t.Errorf("Unexpected payment %+v", p)
	}
	if !p.TransactionAmount.Equal(decimal.RequireFromString("50.5")) {
		t.Errorf("Expected amount 50.5, got %s", p.TransactionAmount)
	}
	if !strings.Contains(string(p.Raw), `"external_reference":"b-1"`) {
		t.Errorf("Expected raw payload to be kept, got %s", p.Raw)
	}
}

func TestGetPaymentKeepsUnknownStatusText(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":124,"status":"charged_back","external_reference":"b-2"}`))
	})

	p, err := c.GetPayment(context.Background(), "tok", "124")
	if err != nil {
		t.Fatalf("GetPayment failed: %v", err)
	}
	if p.Status != StatusUnknown {
		t.Errorf("Expected StatusUnknown, got %s", p.Status)
	}
	if p.StatusText() != "charged_back" {
		t.Errorf("Expected status text charged_back, got %q", p.StatusText())
	}
}

func TestSearchPayments(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("external_reference"); got != "b-1" {
			t.Errorf("Expected external_reference b-1, got %q", got)
		}
		w.Write([]byte(`{"results":[{"id":1,"status":"rejected"},{"id":2,"status":"approved"},{"id":3,"status":"approved"}]}`))
	})

	payments, err := c.SearchPayments(context.Background(), "tok", "b-1")
	if err != nil {
		t.Fatalf("SearchPayments failed: %v", err)
	}
	if len(payments) != 3 {
		t.Fatalf("Expected 3 payments, got %d", len(payments))
	}

	approved := FirstApproved(payments)
	if approved == nil || approved.ID != "2" {
		t.Errorf("Expected first approved payment 2, got %+v", approved)
	}
}

func TestAPIError(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"invalid access token"}`))
	})

	_, err := c.GetPayment(context.Background(), "bad", "1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Message != "invalid access token" {
		t.Errorf("Unexpected APIError %+v", apiErr)
	}
}

func TestParseStatus(t *testing.T) {
	t.Parallel()

	tests := map[string]Status{
		"approved":     StatusApproved,
		"APPROVED":     StatusApproved,
		"in_process":   StatusInProcess,
		"cancelled":    StatusCancelled,
		"charged_back": StatusUnknown,
		"":             StatusUnknown,
	}
	for raw, want := range tests {
		if got := ParseStatus(raw); got != want {
			t.Errorf("ParseStatus(%q) = %s, want %s", raw, got, want)
		}
	}
}

func TestIDAcceptsNumberAndString(t *testing.T) {
	t.Parallel()

	var v struct {
		A ID `json:"a"`
		B ID `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a":987654321012,"b":" 42 "}`), &v); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if v.A != "987654321012" || v.B != "42" {
		t.Errorf("Unexpected ids %q %q", v.A, v.B)
	}
}

func TestVerifySignature(t *testing.T) {
	t.Parallel()

	body := []byte(`{"data":{"id":"1"}}`)
	sig := Sign(body, "secret")

	tests := []struct {
		name   string
		header string
		secret string
		want   bool
	}{
		{"bare hex", sig, "secret", true},
		{"ts v1 form", "ts=1700000000,v1=" + sig, "secret", true},
		{"wrong secret", sig, "other", false},
		{"tampered", Sign([]byte("x"), "secret"), "secret", false},
		{"missing header", "", "secret", false},
		{"missing secret", sig, "", false},
		{"not hex", "zzzz", "secret", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifySignature(body, tt.header, tt.secret); got != tt.want {
				t.Errorf("VerifySignature = %v, want %v", got, tt.want)
			}
		})
	}
}
