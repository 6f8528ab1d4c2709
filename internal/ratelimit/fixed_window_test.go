package ratelimit

import (
	"testing"
	"time"
)

func TestFixedWindowLimitsPerKey(t *testing.T) {
	fw := NewFixedWindow(2, time.Minute)

	for i := 0; i < 2; i++ {
		if ok, _ := fw.Allow("1.2.3.4"); !ok {
			t.Fatalf("request %d under the limit was denied", i+1)
		}
	}

	ok, retry := fw.Allow("1.2.3.4")
	if ok {
		t.Fatal("request over the limit was allowed")
	}
	if retry <= 0 || retry > time.Minute {
		t.Fatalf("retry = %v, want within the remaining window", retry)
	}

	// other keys are unaffected
	if ok, _ := fw.Allow("5.6.7.8"); !ok {
		t.Fatal("separate key was denied")
	}
}

func TestFixedWindowResets(t *testing.T) {
	fw := NewFixedWindow(1, 50*time.Millisecond)

	if ok, _ := fw.Allow("1.2.3.4"); !ok {
		t.Fatal("first request denied")
	}
	if ok, _ := fw.Allow("1.2.3.4"); ok {
		t.Fatal("second request in the same window allowed")
	}

	time.Sleep(120 * time.Millisecond)

	if ok, _ := fw.Allow("1.2.3.4"); !ok {
		t.Fatal("request after the window reset was denied")
	}
}
