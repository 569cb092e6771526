// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyLockSerializesSameKey(t *testing.T) {
	l := newKeyLock(16)

	var counter int
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.lock("bucket", "key")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, counter)
}

func TestKeyLockStripeStable(t *testing.T) {
	l := newKeyLock(0)
	assert.Equal(t, l.index("b", "k"), l.index("b", "k"))
	assert.Equal(t, defaultStripes, len(l.stripes))
}
