package writepolicy

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jmgilman/go/errors"

	"github.com/krisalay/minicache/types"
)

// ErrQueueFull is returned when the write-back queue cannot take another write.
var ErrQueueFull = errors.New(errors.CodeUnavailable, "write-back queue is full")

// ErrClosed is returned by OnWrite and OnDelete after Close.
var ErrClosed = errors.New(errors.CodeUnavailable, "write policy is closed")

// writeReq represents one pending write or delete that needs to be sent to the durable store.
type writeReq struct {
	ctx     context.Context
	name    string
	payload []byte
	delete  bool
}

/*
WriteBackPolicy persists uploads asynchronously through one background worker.
*/
type WriteBackPolicy struct {
	store types.Loader
	log   *slog.Logger

	// ch is a buffered channel that holds pending writes.
	// Buffering absorbs bursts of uploads without blocking the handler.
	ch chan writeReq

	// mu guards closed so enqueue never sends on a closed channel.
	mu     sync.RWMutex
	closed bool

	// wg is used to wait for the worker to finish during shutdown.
	wg sync.WaitGroup
}

// NewWriteBackPolicy creates a new write-back policy with a queue of buffer writes.
func NewWriteBackPolicy(store types.Loader, buffer int, log *slog.Logger) *WriteBackPolicy {
	if log == nil {
		log = slog.Default()
	}
	w := &WriteBackPolicy{
		store: store,
		log:   log,
		ch:    make(chan writeReq, buffer),
	}

	w.wg.Add(1)
	go w.worker()

	return w
}

/*
OnWrite queues the write and returns immediately.

If the queue is full the write is refused with ErrQueueFull instead of blocking: the upload
handler reports the failure and the client can retry. The request context is detached from
cancellation, because the worker runs after the request has finished.
*/
func (w *WriteBackPolicy) OnWrite(ctx context.Context, name string, payload []byte) error {
	return w.enqueue(writeReq{ctx: context.WithoutCancel(ctx), name: name, payload: payload}, "write")
}

// OnDelete queues the delete behind every write already queued, so an upload still in the
// queue cannot bring the file back after it.
func (w *WriteBackPolicy) OnDelete(ctx context.Context, name string) error {
	return w.enqueue(writeReq{ctx: context.WithoutCancel(ctx), name: name, delete: true}, "delete")
}

func (w *WriteBackPolicy) enqueue(req writeReq, op string) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return ErrClosed
	}

	select {
	case w.ch <- req:
		return nil
	default:
		w.log.Warn("write-back queue full, dropping "+op, "name", req.name, "bytes", len(req.payload))
		err := errors.Wrap(ErrQueueFull, errors.CodeUnavailable, op+" dropped")
		return errors.WithContext(err, "name", req.name)
	}
}

// worker drains the queue into the durable store. Failures are logged; nothing retries them.
func (w *WriteBackPolicy) worker() {
	defer w.wg.Done()

	for req := range w.ch {
		if req.delete {
			if err := w.store.Delete(req.ctx, req.name); err != nil {
				w.log.Error("write-back delete failed", "name", req.name, "error", err)
			}
			continue
		}
		if err := w.store.Put(req.ctx, req.name, req.payload); err != nil {
			w.log.Error("write-back failed", "name", req.name, "error", err)
		}
	}
}

/*
Close shuts the policy down gracefully.
1. Refuse new writes
2. Close the channel
3. Wait for the worker to persist everything already queued

Close is safe to call more than once.
*/
func (w *WriteBackPolicy) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.ch)
	w.mu.Unlock()

	w.wg.Wait()
	return nil
}
