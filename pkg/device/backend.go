package device

import "github.com/ratchov/midish-sub000/pkg/errs"

// PollFd is one entry of the poll set a Backend registers itself into,
// mirroring the C vtable's pollfd/revents pair (§6.1) with Go's
// slice-of-structs idiom instead of a raw array the backend mutates in
// place.
type PollFd struct {
	Fd     int
	Events int
}

// Poll event bits, matching the subset the mux actually asks for.
const (
	PollIn  = 1 << iota // ready for read
	PollOut             // ready for write
)

// Backend is the uniform device vtable (§6.1): raw MIDI ports and
// sequencer-port backends both implement it, and the mux never
// special-cases either. open/close/delete map to Open/Close/Delete;
// nfds/pollfd/revents map to Nfds/Pollfd/Revents.
type Backend interface {
	// Open acquires the underlying resource (port, socket, synth).
	Open() error
	// Close releases it but keeps the Backend value reusable via Open.
	Close() error
	// Read fills buf with however many bytes are immediately available
	// and returns the count; 0, nil means "nothing ready right now".
	Read(buf []byte) (int, error)
	// Write sends buf in full or returns an error; backends that cannot
	// buffer return errs.IOErr on a short write.
	Write(buf []byte) (int, error)
	// Nfds reports how many poll slots this backend needs (0 for
	// backends with no waitable descriptor, e.g. an in-process synth).
	Nfds() int
	// Pollfd fills in up to Nfds() entries of pfds starting at pfds[0]
	// with the events this backend wants polled, returning how many it
	// filled in.
	Pollfd(pfds []PollFd, events int) int
	// Revents reports which of the events requested in Pollfd actually
	// fired, given the post-poll state of the same slice.
	Revents(pfds []PollFd) int
	// Delete releases all resources permanently; the Backend must not be
	// reused afterward.
	Delete()
}

// NullBackend discards everything written to it and never has input
// ready. It backs headless devices and tests that need a Backend without
// wiring real I/O.
type NullBackend struct {
	open bool
}

// NewNullBackend returns a closed NullBackend.
func NewNullBackend() *NullBackend { return &NullBackend{} }

func (b *NullBackend) Open() error {
	b.open = true
	return nil
}

func (b *NullBackend) Close() error {
	b.open = false
	return nil
}

func (b *NullBackend) Read(buf []byte) (int, error) {
	if !b.open {
		return 0, errs.IOErr("device.read", errClosed)
	}
	return 0, nil
}

func (b *NullBackend) Write(buf []byte) (int, error) {
	if !b.open {
		return 0, errs.IOErr("device.write", errClosed)
	}
	return len(buf), nil
}

func (b *NullBackend) Nfds() int                          { return 0 }
func (b *NullBackend) Pollfd(pfds []PollFd, events int) int { return 0 }
func (b *NullBackend) Revents(pfds []PollFd) int           { return 0 }
func (b *NullBackend) Delete()                             { b.open = false }

type closedError struct{}

func (closedError) Error() string { return "device not open" }

var errClosed = closedError{}
