package priority

import "testing"

func TestClassify_UrgencyKeywordFromNonVIPSender(t *testing.T) {
	c := New([]string{"boss@example.com"})
	lvl := c.Classify("someone-else@example.com", "This is urgent, please review ASAP")
	if lvl != High {
		t.Fatalf("got %s, want high", lvl)
	}
}

func TestClassify_VIPSenderExactMatch(t *testing.T) {
	c := New([]string{"boss@example.com"})
	lvl := c.Classify("Boss@Example.com", "can you take a look at this")
	if lvl != High {
		t.Fatalf("got %s, want high (case-insensitive VIP match)", lvl)
	}
}

func TestClassify_VIPRequiresExactAddress(t *testing.T) {
	c := New([]string{"boss@example.com"})
	lvl := c.Classify("not-boss@example.com", "just checking in")
	if lvl != Normal {
		t.Fatalf("got %s, want normal for non-VIP sender", lvl)
	}
}

func TestClassify_NewsletterPattern(t *testing.T) {
	c := New(nil)
	lvl := c.Classify("news@newsletter.example.com", "Check out this week's deals")
	if lvl != Low {
		t.Fatalf("got %s, want low", lvl)
	}
}

func TestClassify_Normal(t *testing.T) {
	c := New(nil)
	lvl := c.Classify("someone@example.com", "Following up on our chat yesterday")
	if lvl != Normal {
		t.Fatalf("got %s, want normal", lvl)
	}
}

func TestNormalize_UnknownValueIsNormal(t *testing.T) {
	if Normalize("urgent") != Normal {
		t.Fatalf("expected unknown value to normalize to normal")
	}
	if Normalize("high") != High {
		t.Fatalf("expected high to pass through")
	}
	if Normalize("") != Normal {
		t.Fatalf("expected empty value to normalize to normal")
	}
}

func TestRank_Ordering(t *testing.T) {
	if Rank(High) <= Rank(Normal) || Rank(Normal) <= Rank(Low) {
		t.Fatalf("rank ordering violated: high=%d normal=%d low=%d", Rank(High), Rank(Normal), Rank(Low))
	}
}
