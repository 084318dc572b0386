// Accounting sink grounded on the original source's OdooClient: an
// XML-RPC-ish client that authenticates once and then dispatches method
// calls. Here it's reshaped as a small JSON-RPC client interface so the
// sink itself stays transport-agnostic and testable with a fake.
package sink

import (
	"context"
	"strconv"
	"strings"

	"github.com/digitalfte/fte/internal/retry"
	"github.com/digitalfte/fte/internal/vault"
)

// InvoiceRequest is the payload passed to CreateInvoice.
type InvoiceRequest struct {
	PartnerName string
	Amount      float64
	Description string
}

// AccountingClient is the black-box accounting backend (Odoo-shaped
// JSON-RPC: create_invoice / get_balance / search_partners).
type AccountingClient interface {
	CreateInvoice(ctx context.Context, req InvoiceRequest) (invoiceID string, err error)
}

// Accounting dispatches an "invoice" plan to the accounting backend.
type Accounting struct {
	Client AccountingClient
}

func NewAccounting(client AccountingClient) *Accounting {
	return &Accounting{Client: client}
}

func (a *Accounting) Kind() string { return "invoice" }

// Execute creates an invoice described by the plan's header fields.
// Connection-refused/timeout failures are Transient; malformed payloads
// and remote-rejected invoices are Permanent (§4.O).
func (a *Accounting) Execute(ctx context.Context, plan *vault.Header, body string) error {
	partner, _ := plan.Get("partner")
	if strings.TrimSpace(partner) == "" {
		return retry.Permanentf("accounting sink: missing partner")
	}
	amountStr, _ := plan.Get("amount")
	amount, ok := parseAmount(amountStr)
	if !ok {
		return retry.Permanentf("accounting sink: invalid amount %q", amountStr)
	}

	_, err := a.Client.CreateInvoice(ctx, InvoiceRequest{
		PartnerName: partner,
		Amount:      amount,
		Description: body,
	})
	if err != nil {
		return classifyAccountingError(err)
	}
	return nil
}

func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func classifyAccountingError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"):
		return retry.Transient(err)
	case strings.Contains(msg, "malformed"), strings.Contains(msg, "rejected"), strings.Contains(msg, "invalid"):
		return retry.Permanent(err)
	default:
		return retry.Transient(err)
	}
}
