package editor

import (
	"sync"

	"github.com/google/uuid"
)

// TransferState describes where an upload transfer stands.
type TransferState int

const (
	TransferPending TransferState = iota
	TransferSucceeded
	TransferFailed
)

func (s TransferState) String() string {
	switch s {
	case TransferSucceeded:
		return "succeeded"
	case TransferFailed:
		return "failed"
	default:
		return "pending"
	}
}

type transferHandlers struct {
	progress func(fraction *float64)
	success  func(url string)
	failure  func(err error)
}

// Transfer is the handle an upload function receives for one upload attempt.
// It carries three observable events: Progress, Succeed and Fail. Exactly one
// of Succeed or Fail takes effect; later calls return ErrTransferResolved.
// Events are delivered to the control through the host scheduler. Once the
// control supersedes a transfer (new selection, URL edit, reset) its events
// become no-ops, although the upload itself keeps running.
//
// Transfer methods are safe to call from any goroutine.
type Transfer struct {
	id        string
	scheduler Scheduler
	handlers  transferHandlers

	mu         sync.Mutex
	state      TransferState
	url        string
	err        error
	superseded bool
}

func newTransfer(scheduler Scheduler, handlers transferHandlers) *Transfer {
	return &Transfer{
		id:        uuid.NewString(),
		scheduler: scheduler,
		handlers:  handlers,
	}
}

// NewTransfer creates a transfer outside an upload control, for driving an
// UploadFunc directly. Nil callbacks are skipped.
func NewTransfer(scheduler Scheduler, onProgress func(*float64), onSuccess func(string), onFailure func(error)) *Transfer {
	return newTransfer(scheduler, transferHandlers{
		progress: onProgress,
		success:  onSuccess,
		failure:  onFailure,
	})
}

// ID identifies the transfer in logs.
func (t *Transfer) ID() string {
	return t.id
}

// State reports the resolution state.
func (t *Transfer) State() TransferState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// URL returns the URL passed to Succeed.
func (t *Transfer) URL() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.url
}

// Err returns the error passed to Fail.
func (t *Transfer) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Superseded reports whether the control has moved on from this transfer.
func (t *Transfer) Superseded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.superseded
}

// Progress reports a completion fraction in [0, 1]; nil means indeterminate.
// Progress after resolution is ignored.
func (t *Transfer) Progress(fraction *float64) {
	t.mu.Lock()
	if t.state != TransferPending || t.superseded {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	var value *float64
	if fraction != nil {
		v := *fraction
		value = &v
	}
	t.dispatch(func() {
		if t.handlers.progress != nil {
			t.handlers.progress(value)
		}
	})
}

// Succeed resolves the transfer with the uploaded URL.
func (t *Transfer) Succeed(url string) error {
	t.mu.Lock()
	if t.state != TransferPending {
		t.mu.Unlock()
		return ErrTransferResolved
	}
	t.state = TransferSucceeded
	t.url = url
	t.mu.Unlock()

	t.dispatch(func() {
		if t.handlers.success != nil {
			t.handlers.success(url)
		}
	})
	return nil
}

// Fail resolves the transfer with an error.
func (t *Transfer) Fail(err error) error {
	t.mu.Lock()
	if t.state != TransferPending {
		t.mu.Unlock()
		return ErrTransferResolved
	}
	t.state = TransferFailed
	t.err = err
	t.mu.Unlock()

	t.dispatch(func() {
		if t.handlers.failure != nil {
			t.handlers.failure(err)
		}
	})
	return nil
}

func (t *Transfer) supersede() {
	t.mu.Lock()
	t.superseded = true
	t.mu.Unlock()
}

// dispatch posts fn to the scheduler; superseded transfers drop the event at
// delivery time as well, since supersession may land between post and run.
func (t *Transfer) dispatch(fn func()) {
	deliver := func() {
		if t.Superseded() {
			return
		}
		fn()
	}
	if t.scheduler == nil {
		deliver()
		return
	}
	t.scheduler.Post(deliver)
}
