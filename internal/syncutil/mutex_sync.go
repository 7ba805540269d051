//go:build !deadlock

// Package syncutil provides the mutex types used across go-txsigner.
// Default builds use the standard library types. Build with -tags=deadlock to
// swap in github.com/sasha-s/go-deadlock and catch lock-order bugs around a
// shared signer transport.
package syncutil

import "sync"

// Mutex is sync.Mutex unless built with -tags=deadlock.
//
//nolint:gocritic // Embedding exposes Lock/Unlock directly
type Mutex struct {
	sync.Mutex
}

// RWMutex is sync.RWMutex unless built with -tags=deadlock.
//
//nolint:gocritic // Embedding exposes Lock/Unlock/RLock/RUnlock directly
type RWMutex struct {
	sync.RWMutex
}
