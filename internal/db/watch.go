package db

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces bursts of file writes from other processes
const watchDebounce = 150 * time.Millisecond

// SnapshotFunc receives the complete matching set of a subscription. Every
// call replaces the previous view; it is never a diff.
type SnapshotFunc func(docs []Document)

type subscription struct {
	id         uint64
	collection string
	query      Query
	fn         SnapshotFunc
	dirty      chan struct{}
	ctx        context.Context
	cancel     context.CancelFunc
	last       []byte

	// held for the duration of every asynchronous delivery
	deliver sync.Mutex
}

// hub fans write notifications out to subscriptions
type hub struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]*subscription
	closed bool
}

func newHub() *hub {
	return &hub{subs: make(map[uint64]*subscription)}
}

func (h *hub) add(s *subscription) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.nextID++
	s.id = h.nextID
	h.subs[s.id] = s
	return true
}

func (h *hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, id)
}

// notify marks subscriptions on collection dirty. An empty collection
// marks every subscription.
func (h *hub) notify(collection string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.subs {
		if collection != "" && s.collection != collection {
			continue
		}
		select {
		case s.dirty <- struct{}{}:
		default:
		}
	}
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, s := range h.subs {
		s.cancel()
		delete(h.subs, id)
	}
}

// Subscribe delivers the current matching set of collection to fn
// immediately, then again after every write that changes that set.
// Deliveries for one subscription are sequential and in write order.
// The returned function cancels the subscription and waits for a delivery
// in progress, so fn is never called after it returns. It must not be
// called from inside fn. Cancelling ctx also stops deliveries, without
// waiting.
func (db *DB) Subscribe(ctx context.Context, collection string, q Query, fn SnapshotFunc) (func(), error) {
	if _, _, err := buildQuery(collection, q); err != nil {
		return nil, wrapDBError("subscribe "+collection, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	s := &subscription{
		collection: collection,
		query:      q,
		fn:         fn,
		dirty:      make(chan struct{}, 1),
		ctx:        subCtx,
		cancel:     cancel,
	}

	// Register before the first read so no write between the read and the
	// goroutine start goes unnoticed.
	if !db.hub.add(s) {
		cancel()
		return nil, wrapDBError("subscribe "+collection, errors.New("store closed"))
	}

	docs, err := db.Query(subCtx, collection, q)
	if err != nil {
		db.hub.remove(s.id)
		cancel()
		return nil, err
	}
	s.last = fingerprint(docs)
	fn(docs)

	go db.runSubscription(s)

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			db.hub.remove(s.id)
			s.deliver.Lock()
			s.deliver.Unlock()
		})
	}, nil
}

func (db *DB) runSubscription(s *subscription) {
	defer db.hub.remove(s.id)
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.dirty:
		}

		docs, err := db.Query(s.ctx, s.collection, s.query)
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			db.logger.Warn("subscription refresh failed", "collection", s.collection, "error", err)
			continue
		}
		fp := fingerprint(docs)
		if bytes.Equal(fp, s.last) {
			continue
		}
		s.last = fp
		if !s.emit(docs) {
			return
		}
	}
}

// emit delivers docs unless the subscription was cancelled first
func (s *subscription) emit(docs []Document) bool {
	s.deliver.Lock()
	defer s.deliver.Unlock()
	if s.ctx.Err() != nil {
		return false
	}
	s.fn(docs)
	return true
}

func fingerprint(docs []Document) []byte {
	h := sha256.New()
	for _, d := range docs {
		h.Write([]byte(d.ID))
		h.Write([]byte{0})
		h.Write(d.Data)
		h.Write([]byte{0})
	}
	return h.Sum(nil)
}

// startWatcher refreshes every subscription when another process writes to
// the database or its WAL file
func (db *DB) startWatcher() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(db.path)); err != nil {
		_ = w.Close()
		return err
	}
	db.watcher = w
	go db.watchLoop(w)
	return nil
}

func (db *DB) watchLoop(w *fsnotify.Watcher) {
	base := filepath.Base(db.path)
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			name := filepath.Base(event.Name)
			if name != base && name != base+"-wal" {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, func() {
				db.hub.notify("")
			})
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			db.logger.Warn("store watcher error", "error", err)
		}
	}
}
