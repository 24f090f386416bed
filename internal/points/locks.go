package points

import (
	"context"
	"strconv"
	"sync"
)

// keyedLocker serializes work per entity key inside one process.
// Row locks (SELECT ... FOR UPDATE) cover other processes on Postgres; this covers SQLite,
// which has no row locks, and keeps same-account requests from queuing on the database.
type keyedLocker struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

func newKeyedLocker() *keyedLocker {
	return &keyedLocker{slots: make(map[string]*lockSlot)}
}

// Lock blocks until key is free or ctx is done. The returned func releases the key.
func (l *keyedLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, slot, false)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(key, slot, true) })
	}, nil
}

func (l *keyedLocker) release(key string, slot *lockSlot, held bool) {
	if held {
		<-slot.ch
	}
	l.mu.Lock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, key)
	}
	l.mu.Unlock()
}

// size returns the number of keys currently tracked.
func (l *keyedLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

func accountKey(studentID uint64) string {
	return "account:" + strconv.FormatUint(studentID, 10)
}

func productKey(productID uint64) string {
	return "product:" + strconv.FormatUint(productID, 10)
}

func exchangeKey(exchangeID uint64) string {
	return "exchange:" + strconv.FormatUint(exchangeID, 10)
}
