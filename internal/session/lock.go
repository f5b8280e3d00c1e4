package session

import (
	"context"
	"sync"
)

// keyedLock serializes work per key. Slots are dropped once nobody holds or
// waits on them.
type keyedLock struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

func newKeyedLock() *keyedLock {
	return &keyedLock{slots: make(map[string]*lockSlot)}
}

func (k *keyedLock) ref(key string) *lockSlot {
	k.mu.Lock()
	defer k.mu.Unlock()
	slot, ok := k.slots[key]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		k.slots[key] = slot
	}
	slot.refs++
	return slot
}

func (k *keyedLock) unref(key string, slot *lockSlot) {
	k.mu.Lock()
	defer k.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(k.slots, key)
	}
}

func (k *keyedLock) acquire(ctx context.Context, key string) (func(), error) {
	slot := k.ref(key)
	select {
	case slot.ch <- struct{}{}:
		return k.releaser(key, slot), nil
	case <-ctx.Done():
		k.unref(key, slot)
		return nil, ctx.Err()
	}
}

func (k *keyedLock) tryAcquire(key string) (func(), bool) {
	slot := k.ref(key)
	select {
	case slot.ch <- struct{}{}:
		return k.releaser(key, slot), true
	default:
		k.unref(key, slot)
		return nil, false
	}
}

func (k *keyedLock) releaser(key string, slot *lockSlot) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.ch
			k.unref(key, slot)
		})
	}
}
