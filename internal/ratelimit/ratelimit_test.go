package ratelimit

import "testing"

func TestCounter_IncrementAccumulates(t *testing.T) {
	root := t.TempDir()
	c := New(root)

	for i := 1; i <= 3; i++ {
		n, err := c.Increment("mail")
		if err != nil {
			t.Fatalf("increment: %v", err)
		}
		if n != i {
			t.Fatalf("increment %d: got %d", i, n)
		}
	}
	n, err := c.Check("mail")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if n != 3 {
		t.Fatalf("check = %d, want 3", n)
	}
}

func TestCounter_KindsAreIndependent(t *testing.T) {
	root := t.TempDir()
	c := New(root)

	if _, err := c.Increment("mail"); err != nil {
		t.Fatalf("increment mail: %v", err)
	}
	n, err := c.Check("social")
	if err != nil {
		t.Fatalf("check social: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected social counter untouched, got %d", n)
	}
}

func TestCounter_AllowRespectsLimit(t *testing.T) {
	root := t.TempDir()
	c := New(root)

	for i := 0; i < 5; i++ {
		if _, err := c.Increment("mail"); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}
	ok, err := c.Allow("mail", 5)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if ok {
		t.Fatalf("expected limit reached to disallow further sends")
	}
	ok, err = c.Allow("mail", 10)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if !ok {
		t.Fatalf("expected headroom under higher limit")
	}
}

func TestCounter_CheckMissingIsZero(t *testing.T) {
	root := t.TempDir()
	c := New(root)
	n, err := c.Check("unused")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 for unused kind, got %d", n)
	}
}
