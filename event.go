package drm

import (
	"encoding/binary"
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// Event types delivered on the card file descriptor.
const (
	EventVBlank       = 0x01
	EventFlipComplete = 0x02

	eventHeaderLen = 8
	eventVBlankLen = 32
	eventBufLen    = 1024
)

// ErrShortEvent is returned when the kernel hands back a truncated event.
var ErrShortEvent = errors.New("drm: short event read")

type (
	// EventHandler receives the vblank sequence, the timestamp of the
	// event and the user data given when the event was requested.
	EventHandler func(sequence, sec, usec uint32, data uint64)

	// EventContext selects the callbacks HandleEvent dispatches to.
	// A nil handler drops its events.
	EventContext struct {
		VBlankHandler   EventHandler
		PageFlipHandler EventHandler
	}
)

// HandleEvent reads the pending events of the card and runs their
// handlers before returning. It blocks until at least one event is
// available unless the descriptor is non-blocking.
func HandleEvent(file *os.File, ctx *EventContext) error {
	return HandleEventFd(int(file.Fd()), ctx)
}

func HandleEventFd(fd int, ctx *EventContext) error {
	buf := make([]byte, eventBufLen)
	var (
		n   int
		err error
	)
	for {
		n, err = unix.Read(fd, buf)
		if err != unix.EINTR {
			break
		}
	}
	if err != nil {
		return err
	}
	_, err = DispatchEvents(buf[:n], ctx)
	return err
}

// DispatchEvents decodes a buffer of struct drm_event records and runs
// the matching handlers in order. It returns how many events were
// dispatched to a handler.
func DispatchEvents(buf []byte, ctx *EventContext) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	if len(buf) < eventHeaderLen {
		return 0, ErrShortEvent
	}

	handled := 0
	for off := 0; off+eventHeaderLen <= len(buf); {
		typ := binary.NativeEndian.Uint32(buf[off:])
		length := int(binary.NativeEndian.Uint32(buf[off+4:]))
		if length < eventHeaderLen || off+length > len(buf) {
			return handled, ErrShortEvent
		}

		var handler EventHandler
		switch typ {
		case EventVBlank:
			handler = ctx.VBlankHandler
		case EventFlipComplete:
			handler = ctx.PageFlipHandler
		}

		if handler != nil && length >= eventVBlankLen {
			ev := buf[off : off+length]
			data := binary.NativeEndian.Uint64(ev[8:])
			sec := binary.NativeEndian.Uint32(ev[16:])
			usec := binary.NativeEndian.Uint32(ev[20:])
			seq := binary.NativeEndian.Uint32(ev[24:])
			handler(seq, sec, usec, data)
			handled++
		}

		off += length
	}

	return handled, nil
}
