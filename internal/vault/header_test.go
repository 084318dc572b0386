package vault

import "testing"

func TestParseArtifact_RoundTrip(t *testing.T) {
	h := NewHeader()
	h.Set("type", "email")
	h.Set("source", "email-1.md")
	h.SetConfidence(0.5)

	content := RenderArtifact(h, "hello world")
	got, body := ParseArtifact(content)

	if body != "hello world" {
		t.Fatalf("body = %q, want %q", body, "hello world")
	}
	if v, _ := got.Get("type"); v != "email" {
		t.Fatalf("type = %q", v)
	}
	if v, _ := got.Get("source"); v != "email-1.md" {
		t.Fatalf("source = %q", v)
	}
	if v, ok := got.Confidence(); !ok || v != 0.5 {
		t.Fatalf("confidence = %v, %v", v, ok)
	}
}

func TestParseArtifact_MissingHeader(t *testing.T) {
	h, body := ParseArtifact("just a plain body\nwith no header\n")
	if len(h.Keys()) != 0 {
		t.Fatalf("expected empty header, got %v", h.Keys())
	}
	if body != "just a plain body\nwith no header\n" {
		t.Fatalf("body mismatch: %q", body)
	}
}

func TestParseArtifact_UnterminatedHeader(t *testing.T) {
	h, body := ParseArtifact("---\nfoo: bar\nno closing delimiter\n")
	if len(h.Keys()) != 0 {
		t.Fatalf("expected empty header for unterminated block, got %v", h.Keys())
	}
	if body == "" {
		t.Fatalf("expected original content preserved as body")
	}
}

func TestHeader_QuotedValue(t *testing.T) {
	content := "---\nsubject: \"Re: Hi there\"\n---\nbody\n"
	h, _ := ParseArtifact(content)
	v, ok := h.Get("subject")
	if !ok || v != "Re: Hi there" {
		t.Fatalf("subject = %q, %v", v, ok)
	}
}

func TestHeader_OrderPreserved(t *testing.T) {
	h := NewHeader()
	h.Set("b", "2")
	h.Set("a", "1")
	h.Set("c", "3")
	keys := h.Keys()
	if keys[0] != "b" || keys[1] != "a" || keys[2] != "c" {
		t.Fatalf("order not preserved: %v", keys)
	}
}

func TestHeader_ConfidenceUnparseable(t *testing.T) {
	h := NewHeader()
	h.Set("confidence", "not-a-number")
	if _, ok := h.Confidence(); ok {
		t.Fatalf("expected unparseable confidence to report ok=false")
	}
}

func TestHeader_DelRemovesOrderEntry(t *testing.T) {
	h := NewHeader()
	h.Set("a", "1")
	h.Set("b", "2")
	h.Del("a")
	if h.Has("a") {
		t.Fatalf("expected a removed")
	}
	if len(h.Keys()) != 1 || h.Keys()[0] != "b" {
		t.Fatalf("unexpected keys: %v", h.Keys())
	}
}
