// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gemmbench

// cacheFlusher evicts CPU caches by writing a buffer larger than the last
// level cache. The buffer is allocated once and reused every round.
type cacheFlusher struct {
	data []byte
	pass byte
}

func newCacheFlusher(size int) *cacheFlusher {
	return &cacheFlusher{data: make([]byte, size)}
}

// Flush touches every cache line, with a different pattern on each call so
// the writes are never elided.
func (f *cacheFlusher) Flush() {
	f.pass++
	for i := 0; i < len(f.data); i += CacheLineSize {
		f.data[i] = byte(i) ^ f.pass
	}
}
