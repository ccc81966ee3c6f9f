// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backend

import (
	"errors"
	"testing"
	"time"
)

func TestHistogram(t *testing.T) {
	var h Histogram
	h.Add(2 * time.Millisecond)
	h.Add(12 * time.Millisecond)
	h.Add(time.Minute)

	if h.Count != 3 {
		t.Errorf("Count = %d, want 3", h.Count)
	}
	if h.Buckets[0] != 1 || h.Buckets[2] != 1 || h.Buckets[LatencyBuckets-1] != 1 {
		t.Errorf("Buckets = %v", h.Buckets)
	}

	var total Histogram
	total.Merge(&h)
	total.Merge(&h)
	total.Merge(nil)
	if total.Count != 6 || total.Sum != 2*h.Sum {
		t.Errorf("Merge: count %d sum %v", total.Count, total.Sum)
	}
}

func TestRingBuffer(t *testing.T) {
	rb := NewRingBuffer[int](ResolutionConfig{Name: "1m", Resolution: time.Minute, Buckets: 3})
	rb.Add(60, 1)
	rb.Add(90, 2) // same minute, replaces
	rb.Add(120, 3)
	rb.Add(180, 4)
	rb.Add(240, 5) // wraps, drops minute 1

	got := rb.GetPoints()
	want := []Point[int]{{120, 3}, {180, 4}, {240, 5}}
	if len(got) != len(want) {
		t.Fatalf("GetPoints = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("point %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	now := time.Unix(1_800_000_000, 0)
	m.now = func() time.Time { return now }

	m.ObserveCommand(CmdAtBat, 3*time.Millisecond, nil)
	m.ObserveCommand(CmdAtBat, 4*time.Millisecond, errors.New("rejected"))
	now = now.Add(time.Minute)
	m.ObserveCommand(CmdStart, time.Millisecond, nil)

	r := m.Report()
	if r.Latency[CmdAtBat].Count != 2 || r.Latency[CmdStart].Count != 1 {
		t.Errorf("Latency = %+v", r.Latency)
	}
	if r.Total.Count != 3 {
		t.Errorf("Total.Count = %d, want 3", r.Total.Count)
	}

	perMinute := r.Commands["1m"]
	if len(perMinute) != 2 || perMinute[0].Value != 2 || perMinute[1].Value != 1 {
		t.Errorf("Commands[1m] = %v", perMinute)
	}
	if hourly := r.Commands["1h"]; len(hourly) != 1 || hourly[0].Value != 3 {
		t.Errorf("Commands[1h] = %v", hourly)
	}
	if rejected := r.Rejected["1m"]; len(rejected) != 1 || rejected[0].Value != 1 {
		t.Errorf("Rejected[1m] = %v", rejected)
	}
}
