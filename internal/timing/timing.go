// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Package timing is the process-wide label->instant registry used by
// benchmarks and tests to bracket pipeline stages. It is a collaborator,
// not part of the computational core: the MSM driver never reads it, and
// it is the only permitted global/process-wide mutable state in this
// module.
package timing

import (
	"fmt"
	"sync"
	"time"
)

var (
	mu    sync.Mutex
	start = map[string]time.Time{}
)

// Begin records the start instant for label. Calling Begin twice for the
// same label without an intervening End is a programmer error and
// panics, matching the original's contract.
func Begin(label string) {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := start[label]; ok {
		panic(fmt.Sprintf("timing: label %q already started", label))
	}
	start[label] = time.Now()
}

// End returns the elapsed duration since the matching Begin and clears
// the label. Calling End for a label with no matching Begin is a
// programmer error and panics.
func End(label string) time.Duration {
	mu.Lock()
	defer mu.Unlock()
	t0, ok := start[label]
	if !ok {
		panic(fmt.Sprintf("timing: label %q was never started", label))
	}
	delete(start, label)
	return time.Since(t0)
}
