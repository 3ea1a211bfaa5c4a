package audit

import (
	"context"
	"sync"
	"time"
)

// AsyncOptions tunes AsyncWriter batching.
type AsyncOptions struct {
	BufferSize     int           // entries queued before writes fall back to synchronous
	BatchSize      int           // entries per flush
	BatchTimeout   time.Duration // max wait before a partial batch is flushed
	StorageTimeout time.Duration // per-flush deadline
	// OnError receives flush failures, which have no caller left to return to.
	OnError func(err error, dropped int)
}

// AsyncWriter queues entries and flushes them to the wrapped storage in
// batches from a single goroutine. Reads pass straight through.
type AsyncWriter struct {
	next  Storage
	queue chan Entry
	done  chan struct{}
	wg    sync.WaitGroup
	opts  AsyncOptions

	mu     sync.RWMutex
	closed bool
}

var _ Storage = (*AsyncWriter)(nil)

// NewAsyncWriter starts the flush goroutine. The returned func stops it after
// draining the queue.
func NewAsyncWriter(next Storage, opts AsyncOptions) (*AsyncWriter, func(context.Context) error) {
	if next == nil {
		panic("audit: storage cannot be nil")
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 1000
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.BatchTimeout <= 0 {
		opts.BatchTimeout = 100 * time.Millisecond
	}
	if opts.StorageTimeout <= 0 {
		opts.StorageTimeout = 5 * time.Second
	}

	aw := &AsyncWriter{
		next:  next,
		queue: make(chan Entry, opts.BufferSize),
		done:  make(chan struct{}),
		opts:  opts,
	}
	aw.wg.Add(1)
	go aw.worker()

	return aw, aw.Close
}

// Store enqueues entries. When the buffer is full the remainder is written
// synchronously so nothing is silently dropped.
func (aw *AsyncWriter) Store(ctx context.Context, entries ...Entry) error {
	aw.mu.RLock()
	defer aw.mu.RUnlock()
	if aw.closed {
		return ErrStorageNotAvailable
	}
	for i, e := range entries {
		select {
		case aw.queue <- e:
		default:
			return aw.next.Store(ctx, entries[i:]...)
		}
	}
	return nil
}

func (aw *AsyncWriter) Query(ctx context.Context, c Criteria) ([]Entry, error) {
	return aw.next.Query(ctx, c)
}

func (aw *AsyncWriter) worker() {
	defer aw.wg.Done()

	batch := make([]Entry, 0, aw.opts.BatchSize)
	ticker := time.NewTicker(aw.opts.BatchTimeout)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), aw.opts.StorageTimeout)
		defer cancel()
		if err := aw.next.Store(ctx, batch...); err != nil && aw.opts.OnError != nil {
			aw.opts.OnError(err, len(batch))
		}
		clear(batch)
		batch = batch[:0]
	}

	for {
		select {
		case e := <-aw.queue:
			batch = append(batch, e)
			if len(batch) >= aw.opts.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-aw.done:
			for {
				select {
				case e := <-aw.queue:
					batch = append(batch, e)
					if len(batch) >= aw.opts.BatchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

// Close stops accepting entries and waits for the queue to drain or ctx to end.
func (aw *AsyncWriter) Close(ctx context.Context) error {
	aw.mu.Lock()
	if aw.closed {
		aw.mu.Unlock()
		return nil
	}
	aw.closed = true
	close(aw.done)
	aw.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		aw.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
