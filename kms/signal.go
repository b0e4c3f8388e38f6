package kms

import (
	"os"
	"os/signal"
	"time"

	"golang.org/x/sys/unix"

	"github.com/NeowayLabs/kmspost/gralloc"
)

// HandleSignals installs the shutdown hook for SIGINT and SIGTERM. The
// GPU tends to freeze when the process dies with a flip pending, so on
// delivery the hook lets the pending flip land before exiting. It only
// applies to flip mode; Close removes it.
//
// The hook runs on its own goroutine. If a post is blocked draining
// events at that moment the hook cannot safely drain too, so it sleeps
// 100ms and hopes the flip lands. This race is known and accepted.
func (d *Display) HandleSignals() {
	if d.features.SwapMode != gralloc.SwapFlip || d.stopSignals != nil {
		return
	}

	sigs := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sigs, unix.SIGINT, unix.SIGTERM)

	go func() {
		select {
		case sig := <-sigs:
			d.onSignal(sig)
		case <-done:
		}
	}()

	d.stopSignals = func() {
		signal.Stop(sigs)
		close(done)
	}
}

func (d *Display) onSignal(sig os.Signal) {
	d.log.Warn("terminating", "signal", sig.String(), "flip_pending", d.flipPending.Load())

	if d.features.SwapMode == gralloc.SwapFlip && d.flipPending.Load() {
		if d.waitingFlip.Load() {
			d.sleep(100 * time.Millisecond)
		} else {
			d.pageFlip(nil)
		}
	}

	d.exit(-1)
}
