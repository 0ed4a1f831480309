package ratelimit

import "testing"

func TestAllowExhaustsBucket(t *testing.T) {
	l := New()
	for i := 0; i < 3; i++ {
		if !l.Allow("client-a", 3, 0) {
			t.Fatalf("request %d should pass", i)
		}
	}
	if l.Allow("client-a", 3, 0) {
		t.Fatalf("bucket should be empty")
	}
}

func TestAllowKeysAreIndependent(t *testing.T) {
	l := New()
	if !l.Allow("client-a", 1, 0) {
		t.Fatalf("first request should pass")
	}
	if l.Allow("client-a", 1, 0) {
		t.Fatalf("client-a exhausted")
	}
	if !l.Allow("client-b", 1, 0) {
		t.Fatalf("client-b has its own bucket")
	}
}
