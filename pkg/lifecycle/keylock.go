// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"hash/fnv"
	"sync"
)

// keyLock serializes mutations per (bucket, key) to close the race between
// "delete old blob" and "insert new row" on concurrent writes. Striping
// bounds memory regardless of keyspace size.
type keyLock struct {
	stripes []sync.Mutex
}

const defaultStripes = 256

func newKeyLock(stripes int) *keyLock {
	if stripes <= 0 {
		stripes = defaultStripes
	}
	return &keyLock{stripes: make([]sync.Mutex, stripes)}
}

func (l *keyLock) lock(bucket, key string) func() {
	m := &l.stripes[l.index(bucket, key)]
	m.Lock()
	return m.Unlock
}

func (l *keyLock) index(bucket, key string) int {
	h := fnv.New32a()
	h.Write([]byte(bucket))
	h.Write([]byte{0})
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(l.stripes)))
}
