package caching

import (
	"testing"
	"time"
)

func TestCache_SetGet(t *testing.T) {
	c, err := NewCache(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}

	if _, ok := c.Get("https://maps.app.goo.gl/abc"); ok {
		t.Fatal("expected miss on empty cache")
	}
	if err := c.Set("https://maps.app.goo.gl/abc", "https://www.google.com/maps/place/X"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, ok := c.Get("https://maps.app.goo.gl/abc")
	if !ok || got != "https://www.google.com/maps/place/X" {
		t.Errorf("Get() = %q, %v", got, ok)
	}

	if err := c.Delete("https://maps.app.goo.gl/abc"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok := c.Get("https://maps.app.goo.gl/abc"); ok {
		t.Error("expected miss after delete")
	}
	if err := c.Delete("https://maps.app.goo.gl/abc"); err != nil {
		t.Errorf("Delete() of missing key error = %v", err)
	}
}

func TestCache_Expiry(t *testing.T) {
	c, err := NewCache(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}
	if err := c.Set("k", "v"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, ok := c.Get("k"); ok {
		t.Error("expected expired entry to miss")
	}

	removed, err := c.Prune()
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("Prune() removed %d, want 1", removed)
	}
}
