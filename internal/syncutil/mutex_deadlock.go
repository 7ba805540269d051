//go:build deadlock

// Package syncutil provides the mutex types used across go-txsigner.
// This file is compiled with -tags=deadlock and reports potential deadlocks
// through github.com/sasha-s/go-deadlock.
package syncutil

import deadlock "github.com/sasha-s/go-deadlock"

// Mutex reports lock-order inversions and long waits.
type Mutex struct {
	deadlock.Mutex
}

// RWMutex reports lock-order inversions and long waits.
type RWMutex struct {
	deadlock.RWMutex
}
