package sink

import (
	"context"
	"strings"

	"github.com/digitalfte/fte/internal/retry"
	"github.com/digitalfte/fte/internal/vault"
)

// MailProvider is the black-box mail transport the mail sink dispatches
// to (§1 out-of-scope collaborator). A real implementation wraps the
// Gmail-shaped API; tests use a fake.
type MailProvider interface {
	SendReply(ctx context.Context, providerID, to, subject, body string) error
}

// Mail sends the reply body extracted from a plan's header/body back to
// the original sender.
type Mail struct {
	Provider MailProvider
}

func NewMail(provider MailProvider) *Mail {
	return &Mail{Provider: provider}
}

func (m *Mail) Kind() string { return "reply" }

// Execute sends the reply. A missing or malformed reply target is a
// Permanent failure (§4.G.2: "missing/malformed reply block"); anything
// the provider itself reports is classified by classifyMailError.
func (m *Mail) Execute(ctx context.Context, plan *vault.Header, body string) error {
	to, _ := plan.Get("to")
	subject, _ := plan.Get("subject")
	gmailID, _ := plan.Get("gmail_id")

	if strings.TrimSpace(to) == "" || strings.TrimSpace(body) == "" {
		return retry.Permanentf("mail sink: missing recipient or reply body")
	}

	if err := m.Provider.SendReply(ctx, gmailID, to, subject, body); err != nil {
		return classifyMailError(err)
	}
	return nil
}

// classifyMailError maps a provider error to the Transient/Permanent
// taxonomy. Providers are expected to surface auth and recipient
// failures distinctly; anything else (network, 5xx, rate limit) is
// treated as worth retrying.
func classifyMailError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "auth") && strings.Contains(msg, "revoked"):
		return retry.Permanent(err)
	case strings.Contains(msg, "recipient") && (strings.Contains(msg, "rejected") || strings.Contains(msg, "invalid")):
		return retry.Permanent(err)
	case strings.Contains(msg, "unauthorized") || strings.Contains(msg, "forbidden"):
		return retry.Permanent(err)
	default:
		return retry.Transient(err)
	}
}
