// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lw_test

import (
	"bytes"
	"testing"
	"testing/quick"

	"github.com/evolution-gaming/chromaswap/internal/lw"
)

func TestTailWriterProp(t *testing.T) {
	// How many iterations quick.Check should run.
	iterations := 1 * 1000
	qCfg := &quick.Config{MaxCount: iterations}

	t.Run(
		"Written data to large enough buffer should be equal source data",
		func(t *testing.T) {
			fn := func(b []byte) bool {
				w := lw.NewTailWriter(len(b) + 1)
				n, err := w.Write(b)
				if err != nil {
					return false
				}
				return n == len(b) && bytes.Equal(b, w.Bytes()) && w.Dropped() == 0
			}
			if err := quick.Check(fn, qCfg); err != nil {
				t.Error(err)
			}
		})
	t.Run(
		"Retained data is the tail of all writes",
		func(t *testing.T) {
			fn := func(chunks [][]byte, size uint8) bool {
				n := int(size) + 1
				w := lw.NewTailWriter(n)
				var all []byte
				for _, c := range chunks {
					if m, err := w.Write(c); err != nil || m != len(c) {
						return false
					}
					all = append(all, c...)
				}
				want := all
				if len(want) > n {
					want = want[len(want)-n:]
				}
				return bytes.Equal(want, w.Bytes()) && w.Dropped() == int64(len(all)-len(want))
			}
			if err := quick.Check(fn, qCfg); err != nil {
				t.Error(err)
			}
		})
}

func TestTailWriter_String(t *testing.T) {
	w := lw.NewTailWriter(4)
	w.Write([]byte("ab"))
	if got := w.String(); got != "ab" {
		t.Errorf("String() = %q, want %q", got, "ab")
	}
	w.Write([]byte("cdef"))
	if got := w.String(); got != "...cdef" {
		t.Errorf("String() = %q, want %q", got, "...cdef")
	}
}
