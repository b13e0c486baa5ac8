// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dht22

import (
	"sync"
)

// Status is the provenance of a Result.
type Status uint8

const (
	// Unavailable means the read failed and nothing was cached yet.
	Unavailable Status = iota
	// Fresh means the reading comes from the frame just received.
	Fresh
	// Stale means the read failed and the reading is the last good one.
	Stale
)

func (s Status) String() string {
	switch s {
	case Fresh:
		return "Fresh"
	case Stale:
		return "Stale"
	default:
		return "Unavailable"
	}
}

// Result is the outcome of a single read.
type Result struct {
	Status  Status
	Reading Reading // Zero when Status is Unavailable.
	Cause   error   // Why the frame was rejected. Nil when Fresh.
}

// Ok reports whether Reading holds a value.
func (r Result) Ok() bool {
	return r.Status != Unavailable
}

func (r Result) String() string {
	if !r.Ok() {
		return r.Status.String()
	}
	return r.Status.String() + "(" + r.Reading.String() + ")"
}

// Cache holds the last reading that passed its checksum.
type Cache struct {
	mu      sync.Mutex
	reading Reading
	ok      bool
}

// Load returns the cached reading and whether there is one.
func (c *Cache) Load() (Reading, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reading, c.ok
}

func (c *Cache) store(r Reading) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reading = r
	c.ok = true
}

// Validator checks frames and falls back to the cache on failure.
type Validator struct {
	Cache Cache
}

// Accept validates f. A good frame replaces the cached reading and is
// returned Fresh. A bad one leaves the cache alone.
func (v *Validator) Accept(f Frame) Result {
	if !f.Valid() {
		return v.Fallback(&ChecksumError{Got: f[4], Want: f.Sum()})
	}
	r := f.Reading()
	v.Cache.store(r)
	return Result{Status: Fresh, Reading: r}
}

// Fallback returns the cached reading as Stale, or Unavailable when the
// cache is empty.
func (v *Validator) Fallback(cause error) Result {
	r, ok := v.Cache.Load()
	if !ok {
		return Result{Status: Unavailable, Cause: cause}
	}
	return Result{Status: Stale, Reading: r, Cause: cause}
}
