// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Centralised store of per-video processing records.

package metric

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/jszwec/csvutil"
)

var ErrRecordNotFound = errors.New("record not found")

type ID int64

type Store struct {
	mu      sync.RWMutex
	records map[ID]Record
	next    ID
}

func NewStore() *Store {
	return &Store{
		records: make(map[ID]Record),
	}
}

func (s *Store) Insert(r Record) ID {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[s.next] = r
	id := s.next
	s.next++

	return id
}

func (s *Store) Get(id ID) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return r, fmt.Errorf("getting record: %w", ErrRecordNotFound)
	}

	return r, nil
}

func (s *Store) Exists(id ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.records[id]

	return exists
}

// GetIDs returns IDs in insertion order.
func (s *Store) GetIDs() []ID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]ID, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *Store) Update(id ID, r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[id]; !exists {
		return fmt.Errorf("updating record: %w", ErrRecordNotFound)
	}

	s.records[id] = r
	return nil
}

// Records returns a snapshot of all records in insertion order.
func (s *Store) Records() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0, len(s.records))
	for id := ID(0); id < s.next; id++ {
		if r, ok := s.records[id]; ok {
			out = append(out, r)
		}
	}
	return out
}

// WriteCSV writes all records as CSV with a header row.
func (s *Store) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := csvutil.NewEncoder(cw).Encode(s.Records()); err != nil {
		return fmt.Errorf("writing CSV report: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

// Status of a processed video.
const (
	StatusRunning = "running"
	StatusOK      = "ok"
	StatusFailed  = "failed"
)

// Record contains metrics for a single processed video.
type Record struct {
	RunID      string `csv:"run_id"`
	Name       string `csv:"name"`
	SourceFile string `csv:"source_file"`
	OutputFile string `csv:"output_file"`
	Background string `csv:"background"`
	Status     string `csv:"status"`
	// Last state reached by the frame loop.
	State    string        `csv:"state"`
	Error    string        `csv:"error,omitempty"`
	Frames   uint          `csv:"frames"`
	Elapsed  time.Duration `csv:"elapsed"`
	HElapsed string        `csv:"elapsed_human"`
	FPS      float64       `csv:"processing_fps"`

	Width     int     `csv:"width"`
	Height    int     `csv:"height"`
	FrameRate string  `csv:"frame_rate"`
	Duration  float64 `csv:"duration"`

	KeyedCoverageMean    float64 `csv:"keyed_coverage_mean"`
	KeyedCoverageMin     float64 `csv:"keyed_coverage_min"`
	KeyedCoverageMax     float64 `csv:"keyed_coverage_max"`
	BrightnessRatioMean  float64 `csv:"brightness_ratio_mean"`
	BrightnessRatioMin   float64 `csv:"brightness_ratio_min"`
	BrightnessRatioMax   float64 `csv:"brightness_ratio_max"`
	BrightnessRatioStDev float64 `csv:"brightness_ratio_stdev"`
	SaturationRatioMean  float64 `csv:"saturation_ratio_mean"`
	SaturationRatioStDev float64 `csv:"saturation_ratio_stdev"`
}
