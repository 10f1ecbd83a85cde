package gateway

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the gateway payment status. Values outside the known set decode
// to StatusUnknown so callers always switch over a closed set.
type Status string

const (
	StatusApproved   Status = "approved"
	StatusPending    Status = "pending"
	StatusInProcess  Status = "in_process"
	StatusAuthorized Status = "authorized"
	StatusRejected   Status = "rejected"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
	StatusUnknown    Status = "unknown"
)

func ParseStatus(raw string) Status {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusApproved, StatusPending, StatusInProcess, StatusAuthorized,
		StatusRejected, StatusCancelled, StatusRefunded:
		return s
	}
	return StatusUnknown
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode status: %w", err)
	}
	*s = ParseStatus(raw)
	return nil
}

// ID is a gateway identifier that may arrive as a JSON number or string.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("decode id %s: %w", n, err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

type PreferenceItem struct {
	ID         string          `json:"id,omitempty"`
	Title      string          `json:"title"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	CurrencyID string          `json:"currency_id,omitempty"`
}

// MarshalJSON sends unit_price as a JSON number, the gateway rejects strings.
func (i PreferenceItem) MarshalJSON() ([]byte, error) {
	type alias PreferenceItem
	return json.Marshal(struct {
		alias
		UnitPrice json.Number `json:"unit_price"`
	}{alias(i), json.Number(i.UnitPrice.String())})
}

type BackURLs struct {
	Success string `json:"success,omitempty"`
	Pending string `json:"pending,omitempty"`
	Failure string `json:"failure,omitempty"`
}

type PreferenceRequest struct {
	Items             []PreferenceItem `json:"items"`
	ExternalReference string           `json:"external_reference"`
	NotificationURL   string           `json:"notification_url,omitempty"`
	BackURLs          *BackURLs        `json:"back_urls,omitempty"`
	AutoReturn        string           `json:"auto_return,omitempty"`
	Expires           bool             `json:"expires"`
	ExpirationDateTo  *time.Time       `json:"expiration_date_to,omitempty"`
}

type Preference struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// Payment is a gateway payment. Raw keeps the undecoded body for audit and
// RawStatus the status string as sent, including values outside Status.
type Payment struct {
	ID                ID              `json:"id"`
	Status            Status          `json:"status"`
	RawStatus         string          `json:"-"`
	StatusDetail      string          `json:"status_detail"`
	ExternalReference string          `json:"external_reference"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	CurrencyID        string          `json:"currency_id"`
	DateCreated       *time.Time      `json:"date_created"`
	DateApproved      *time.Time      `json:"date_approved"`
	Raw               json.RawMessage `json:"-"`
}

func decodePayment(raw []byte) (*Payment, error) {
	var p Payment
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode payment: %w", err)
	}
	var head struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(raw, &head); err == nil {
		p.RawStatus = strings.ToLower(strings.TrimSpace(head.Status))
	}
	p.Raw = append(json.RawMessage(nil), raw...)
	return &p, nil
}

// StatusText is the status to store and report: the gateway's own string
// when known, else the parsed Status.
func (p *Payment) StatusText() string {
	if p.RawStatus != "" {
		return p.RawStatus
	}
	return string(p.Status)
}

// FirstApproved returns the first approved payment in gateway order.
func FirstApproved(payments []*Payment) *Payment {
	for _, p := range payments {
		if p.Status == StatusApproved {
			return p
		}
	}
	return nil
}
