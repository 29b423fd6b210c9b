// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// A bounded writer that remembers only the most recent output.
//
// Useful for capturing diagnostics of long running child processes, where only the last
// lines matter and the total amount of output is unknown.
package lw

import (
	"io"
	"sync"
)

// TailWriter keeps the last N bytes written to it. Writes never fail.
type TailWriter struct {
	mu  sync.Mutex
	buf []byte
	// Capacity, does not make sense to be zero
	n int
	// Number of bytes dropped from the head so far.
	dropped int64
}

// NewTailWriter creates TailWriter keeping at most n bytes.
func NewTailWriter(n int) *TailWriter {
	if n < 1 {
		n = 1
	}
	return &TailWriter{n: n, buf: make([]byte, 0, n)}
}

// Write implements io.Writer for *TailWriter.
func (s *TailWriter) Write(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := len(b)
	if l >= s.n {
		s.dropped += int64(len(s.buf) + l - s.n)
		s.buf = append(s.buf[:0], b[l-s.n:]...)
		return l, nil
	}
	if over := len(s.buf) + l - s.n; over > 0 {
		s.dropped += int64(over)
		s.buf = append(s.buf[:0], s.buf[over:]...)
	}
	s.buf = append(s.buf, b...)
	return l, nil
}

// Bytes returns a copy of retained tail.
func (s *TailWriter) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.buf))
	copy(out, s.buf)
	return out
}

// String returns retained tail, prefixed with an ellipsis when anything was dropped.
func (s *TailWriter) String() string {
	b := s.Bytes()
	if s.Dropped() > 0 {
		return "..." + string(b)
	}
	return string(b)
}

// Dropped returns number of bytes that did not fit.
func (s *TailWriter) Dropped() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

var _ io.Writer = (*TailWriter)(nil)
