package clocks

import (
	"testing"
	"time"
)

func TestMonotonicClockHost_Now(t *testing.T) {
	host := NewMonotonicClockHost()

	r1, err := host.now(nil)
	if err != nil {
		t.Fatalf("now: %v", err)
	}
	time.Sleep(1 * time.Millisecond)
	r2, err := host.now(nil)
	if err != nil {
		t.Fatalf("now: %v", err)
	}

	now1, now2 := r1[0], r2[0]
	if now2 <= now1 {
		t.Errorf("monotonic clock not monotonic: %d <= %d", now2, now1)
	}
	if now2-now1 < 1_000_000 {
		t.Errorf("expected at least 1ms elapsed, got %dns", now2-now1)
	}
}

func TestMonotonicClockHost_Resolution(t *testing.T) {
	host := NewMonotonicClockHost()
	res, err := host.resolution(nil)
	if err != nil {
		t.Fatalf("resolution: %v", err)
	}
	if res[0] != 1 {
		t.Errorf("expected resolution 1 (nanosecond), got %d", res[0])
	}
}

func TestMonotonicClockHost_HostFuncs(t *testing.T) {
	host := NewMonotonicClockHost()
	funcs := host.HostFuncs()
	if len(funcs) != 2 {
		t.Fatalf("expected 2 host funcs, got %d", len(funcs))
	}
	for _, f := range funcs {
		if f.Module != "wasi:clocks/monotonic-clock" {
			t.Errorf("unexpected module %q", f.Module)
		}
	}
}

func TestWallClockHost_Now(t *testing.T) {
	host := NewWallClockHost()

	before := time.Now()
	res, err := host.now(nil)
	if err != nil {
		t.Fatalf("now: %v", err)
	}
	after := time.Now()

	seconds, nanos := res[0], uint32(res[1])
	if seconds < uint64(before.Unix()) || seconds > uint64(after.Unix()) {
		t.Errorf("wall clock seconds (%d) outside expected range [%d, %d]",
			seconds, before.Unix(), after.Unix())
	}
	if nanos >= 1000000000 {
		t.Errorf("wall clock nanoseconds (%d) should be < 1000000000", nanos)
	}
}

func TestWallClockHost_Resolution(t *testing.T) {
	host := NewWallClockHost()
	res, err := host.resolution(nil)
	if err != nil {
		t.Fatalf("resolution: %v", err)
	}
	if res[0] != 1 || res[1] != 0 {
		t.Errorf("expected resolution (1s, 0ns), got (%ds, %dns)", res[0], res[1])
	}
}

func TestWallClockHost_HostFuncs(t *testing.T) {
	host := NewWallClockHost()
	funcs := host.HostFuncs()
	if len(funcs) != 2 {
		t.Fatalf("expected 2 host funcs, got %d", len(funcs))
	}
	for _, f := range funcs {
		if f.Module != "wasi:clocks/wall-clock" {
			t.Errorf("unexpected module %q", f.Module)
		}
	}
}
