package cache

import (
	"testing"
	"time"

	pkgcache "FlareScope/pkg/cache"
)

func TestBytesRoundTrip(t *testing.T) {
	c := New(pkgcache.NewMemoryCache())

	if err := c.SetBytes("job-1", []byte(`{"success":true}`), time.Minute); err != nil {
		t.Fatal(err)
	}
	b, ok, err := c.GetBytes("job-1")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || string(b) != `{"success":true}` {
		t.Fatalf("got ok=%v b=%q", ok, b)
	}
}

func TestBytesMissIsNotAnError(t *testing.T) {
	c := New(pkgcache.NewMemoryCache())

	b, ok, err := c.GetBytes("absent")
	if err != nil {
		t.Fatalf("miss must not error: %v", err)
	}
	if ok || b != nil {
		t.Fatalf("got ok=%v b=%q", ok, b)
	}
}
