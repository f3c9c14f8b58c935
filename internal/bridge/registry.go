package bridge

import (
	"errors"
	"sync"
)

var ErrNotRegistered = errors.New("bridge: no NativeBridge registered")

var (
	mu     sync.RWMutex
	global NativeBridge
)

// Register is called once from native (Swift/Kotlin) before Start().
func Register(b NativeBridge) {
	mu.Lock()
	defer mu.Unlock()
	global = b
}

// Safe returns the registered bridge or ErrNotRegistered.
func Safe() (NativeBridge, error) {
	mu.RLock()
	defer mu.RUnlock()
	if global == nil {
		return nil, ErrNotRegistered
	}
	return global, nil
}
