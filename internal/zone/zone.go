// Package zone implements the two-zone capability model (§4.I): a
// single process-wide policy, seeded once at startup, that every
// privileged operation consults before acting.
package zone

import "strings"

// Zone is the deployment mode a process runs in.
type Zone string

const (
	Cloud Zone = "cloud"
	Local Zone = "local"
)

// Parse normalizes a configuration value to a Zone, defaulting to Local
// (§6: WORK_ZONE default local) for anything unrecognized.
func Parse(v string) Zone {
	if strings.EqualFold(strings.TrimSpace(v), string(Cloud)) {
		return Cloud
	}
	return Local
}

// Capability names one gated operation.
type Capability string

const (
	ReadExternalEvents Capability = "read_external_events"
	DraftPlan          Capability = "draft_plan"
	ExecuteSideEffect  Capability = "execute_side_effect"
	AutoApprove        Capability = "auto_approve"
	ApproveReject      Capability = "approve_reject"
	WriteDashboard     Capability = "write_dashboard"
)

var table = map[Capability]map[Zone]bool{
	ReadExternalEvents: {Cloud: true, Local: true},
	DraftPlan:          {Cloud: true, Local: true},
	ExecuteSideEffect:  {Cloud: false, Local: true},
	AutoApprove:        {Cloud: false, Local: true},
	ApproveReject:      {Cloud: false, Local: true},
	WriteDashboard:     {Cloud: false, Local: true},
}

// Policy is the seeded, process-wide zone gate.
type Policy struct {
	Zone Zone
}

// New returns a policy for the given zone.
func New(z Zone) *Policy {
	return &Policy{Zone: z}
}

// Allows reports whether this process's zone may perform cap.
func (p *Policy) Allows(cap Capability) bool {
	allowed, ok := table[cap]
	if !ok {
		return false
	}
	return allowed[p.Zone]
}

// Credentials describes which execution-side secrets this process holds,
// used only for the startup misplaced-credential check.
type Credentials struct {
	HasExecutionSecrets bool // mail send / sink credentials
	HasGmailCreds       bool
}

// CheckMisplacedCredentials returns human-readable warnings (never
// errors — §4.I: "produces a warning, not an error") about credentials
// that don't belong in this zone.
func CheckMisplacedCredentials(z Zone, creds Credentials) []string {
	var warnings []string
	if z == Cloud && creds.HasExecutionSecrets {
		warnings = append(warnings, "cloud zone holds execution-only secrets; these will never be used here")
	}
	if z == Local && !creds.HasGmailCreds {
		warnings = append(warnings, "local zone is missing Gmail credentials; mail watcher will be unable to run")
	}
	return warnings
}
