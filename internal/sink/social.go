// Poster implementations grounded on the original source's
// SocialPoster/LinkedInPoster/FacebookPoster/TwitterPoster hierarchy —
// each platform gets its own shaping rule before the shared HTTP-shaped
// post call.
package sink

import (
	"context"
	"strings"

	"github.com/digitalfte/fte/internal/retry"
	"github.com/digitalfte/fte/internal/vault"
)

// twitterMaxLength is Twitter/X's character limit; content longer than
// this is truncated to twitterTruncateAt characters plus an ellipsis.
const twitterMaxLength = 280
const twitterTruncateAt = 277

// Platform posts pre-shaped content to one social network.
type Platform interface {
	Name() string
	Post(ctx context.Context, content string) error
}

// HTTPPoster is a minimal shape shared by the LinkedIn and Facebook posters: a
// post function supplied by the caller, standing in for the real
// provider SDK/HTTP client.
type HTTPPoster struct {
	PlatformName string
	PostFunc     func(ctx context.Context, content string) error
}

func (p *HTTPPoster) Name() string { return p.PlatformName }

func (p *HTTPPoster) Post(ctx context.Context, content string) error {
	return p.PostFunc(ctx, content)
}

// NewLinkedIn returns a LinkedIn poster; LinkedIn has no length-shaping rule.
func NewLinkedIn(postFunc func(ctx context.Context, content string) error) Platform {
	return &HTTPPoster{PlatformName: "linkedin", PostFunc: postFunc}
}

// NewFacebook returns a Facebook poster; Facebook has no length-shaping rule.
func NewFacebook(postFunc func(ctx context.Context, content string) error) Platform {
	return &HTTPPoster{PlatformName: "facebook", PostFunc: postFunc}
}

// twitterPoster applies the 280-character truncation rule before calling
// its caller-supplied post function.
type twitterPoster struct {
	postFunc func(ctx context.Context, content string) error
}

func (t *twitterPoster) Name() string { return "twitter" }

func (t *twitterPoster) Post(ctx context.Context, content string) error {
	return t.postFunc(ctx, TruncateForTwitter(content))
}

// NewTwitter returns a Twitter/X poster that truncates content to fit
// the platform limit before posting.
func NewTwitter(postFunc func(ctx context.Context, content string) error) Platform {
	return &twitterPoster{postFunc: postFunc}
}

// TruncateForTwitter shortens content to twitterMaxLength characters,
// appending "..." when it would otherwise overflow.
func TruncateForTwitter(content string) string {
	if len(content) <= twitterMaxLength {
		return content
	}
	return content[:twitterTruncateAt] + "..."
}

// Social dispatches a "social_post" plan to the platform named in its
// header.
type Social struct {
	Platforms map[string]Platform
}

// NewSocial builds a Social sink from the given platforms, keyed by Name().
func NewSocial(platforms ...Platform) *Social {
	s := &Social{Platforms: make(map[string]Platform, len(platforms))}
	for _, p := range platforms {
		s.Platforms[p.Name()] = p
	}
	return s
}

func (s *Social) Kind() string { return "social_post" }

// Execute posts the plan body to the platform named in the plan's
// "platform" header field. An unknown or missing platform, or missing
// credentials, is a Permanent failure — no retry can fix a
// misconfigured plan (§4.O).
func (s *Social) Execute(ctx context.Context, plan *vault.Header, body string) error {
	platformName, _ := plan.Get("platform")
	platformName = strings.ToLower(strings.TrimSpace(platformName))

	p, ok := s.Platforms[platformName]
	if !ok {
		return retry.Permanentf("social sink: unknown or unconfigured platform %q", platformName)
	}
	if strings.TrimSpace(body) == "" {
		return retry.Permanentf("social sink: empty post content")
	}

	if err := p.Post(ctx, body); err != nil {
		return classifySocialError(err)
	}
	return nil
}

func classifySocialError(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "credential") || strings.Contains(msg, "unauthorized") || strings.Contains(msg, "forbidden") {
		return retry.Permanent(err)
	}
	return retry.Transient(err)
}

// GenerateSocialSummary builds a short social-post draft from a plan's
// analysis text, mirroring the original source's summary generator: it
// takes the first non-empty line as the hook.
func GenerateSocialSummary(analysis string) string {
	for _, line := range strings.Split(analysis, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}
