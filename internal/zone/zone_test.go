package zone

import "testing"

func TestParse_DefaultsToLocal(t *testing.T) {
	if Parse("") != Local {
		t.Fatalf("expected empty string to default to local")
	}
	if Parse("bogus") != Local {
		t.Fatalf("expected unrecognized value to default to local")
	}
	if Parse("Cloud") != Cloud {
		t.Fatalf("expected case-insensitive cloud match")
	}
}

func TestPolicy_CloudCannotExecuteOrAutoApprove(t *testing.T) {
	p := New(Cloud)
	if p.Allows(ExecuteSideEffect) {
		t.Fatalf("cloud must not execute side effects")
	}
	if p.Allows(AutoApprove) {
		t.Fatalf("cloud must never auto-approve")
	}
	if !p.Allows(DraftPlan) {
		t.Fatalf("cloud should be able to draft plans")
	}
}

func TestPolicy_LocalHasFullCapability(t *testing.T) {
	p := New(Local)
	for _, cap := range []Capability{ReadExternalEvents, DraftPlan, ExecuteSideEffect, AutoApprove, ApproveReject, WriteDashboard} {
		if !p.Allows(cap) {
			t.Fatalf("local zone should allow %s", cap)
		}
	}
}

func TestCheckMisplacedCredentials(t *testing.T) {
	warnings := CheckMisplacedCredentials(Cloud, Credentials{HasExecutionSecrets: true})
	if len(warnings) != 1 {
		t.Fatalf("expected one warning for cloud holding execution secrets, got %v", warnings)
	}

	warnings = CheckMisplacedCredentials(Local, Credentials{HasGmailCreds: false})
	if len(warnings) != 1 {
		t.Fatalf("expected one warning for local missing gmail creds, got %v", warnings)
	}

	warnings = CheckMisplacedCredentials(Local, Credentials{HasGmailCreds: true})
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
}
