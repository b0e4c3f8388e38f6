package kms

import (
	"syscall"
	"testing"
	"time"

	"github.com/NeowayLabs/kmspost/gralloc"
)

func signalDisplay(t *testing.T) (*Display, *fakeDevice, *int, *[]time.Duration) {
	t.Helper()
	d, dev, _ := newTestDisplay(gralloc.SwapFlip, 1)

	code := new(int)
	*code = 1
	var slept []time.Duration
	d.exit = func(c int) {
		*code = c
	}
	d.sleep = func(dur time.Duration) {
		slept = append(slept, dur)
	}

	a, b := scanout(d, 0), scanout(d, 0)
	for _, bo := range []*gralloc.Buffer{a, b} {
		if err := d.Post(bo); err != nil {
			t.Fatal(err)
		}
	}
	dev.reset()
	return d, dev, code, &slept
}

func TestSignalDrainsPendingFlip(t *testing.T) {
	d, dev, code, slept := signalDisplay(t)

	d.onSignal(syscall.SIGTERM)

	checkCalls(t, dev, "HandleEvent")
	if *code != -1 {
		t.Errorf("exit code %d, want -1", *code)
	}
	if len(*slept) != 0 {
		t.Errorf("slept %v while nobody was draining", *slept)
	}
}

func TestSignalDuringDrain(t *testing.T) {
	d, dev, code, slept := signalDisplay(t)
	d.waitingFlip.Store(true)

	d.onSignal(syscall.SIGINT)

	checkCalls(t, dev)
	if *code != -1 {
		t.Errorf("exit code %d, want -1", *code)
	}
	if len(*slept) != 1 || (*slept)[0] != 100*time.Millisecond {
		t.Errorf("slept %v, want a single 100ms nap", *slept)
	}
}

func TestSignalWithoutPendingFlip(t *testing.T) {
	d, dev, code, slept := signalDisplay(t)
	if err := d.pageFlip(nil); err != nil {
		t.Fatal(err)
	}
	dev.reset()

	d.onSignal(syscall.SIGTERM)

	checkCalls(t, dev)
	if *code != -1 || len(*slept) != 0 {
		t.Errorf("exit code %d slept %v", *code, *slept)
	}
}

func TestHandleSignalsFlipOnly(t *testing.T) {
	d, _, _ := newTestDisplay(gralloc.SwapSetCrtc, 1)
	d.HandleSignals()
	if d.stopSignals != nil {
		t.Error("signal hook installed outside flip mode")
	}

	d, _, _ = newTestDisplay(gralloc.SwapFlip, 1)
	d.HandleSignals()
	if d.stopSignals == nil {
		t.Fatal("signal hook not installed in flip mode")
	}
	d.HandleSignals()
	if d.stopSignals == nil {
		t.Fatal("second install removed the hook")
	}

	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if d.stopSignals != nil {
		t.Error("close kept the signal hook")
	}
}
