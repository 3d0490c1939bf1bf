// util/util_test.go
// Copyright(c) 2025 skyroute contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"errors"
	"io/fs"
	"slices"
	"strings"
	"sync"
	"testing"
)

func TestGenerics(t *testing.T) {
	if Select(true, 1, 2) != 1 || Select(false, 1, 2) != 2 {
		t.Errorf("Select is broken")
	}

	keys := SortedMapKeys(map[string]int{"wide": 1, "direct": 2, "left": 3})
	if !slices.Equal(keys, []string{"direct", "left", "wide"}) {
		t.Errorf("unexpected sorted keys %v", keys)
	}

	sq := MapSlice([]int{1, 2, 3}, func(v int) int { return v * v })
	if !slices.Equal(sq, []int{1, 4, 9}) {
		t.Errorf("MapSlice gave %v", sq)
	}

	odd := FilterSlice([]int{1, 2, 3, 4, 5}, func(v int) bool { return v%2 == 1 })
	if !slices.Equal(odd, []int{1, 3, 5}) {
		t.Errorf("FilterSlice gave %v", odd)
	}
}

type cachedThing struct {
	Name   string
	Values []float64
	Tags   map[string]string
}

func TestObjectCache(t *testing.T) {
	c := ObjectCache{Dir: t.TempDir()}

	var missing cachedThing
	if _, err := c.Retrieve("nope", &missing); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrNotExist for missing object, got %v", err)
	}

	in := cachedThing{Name: "BLR_DEL", Values: []float64{1.5, 2.25}, Tags: map[string]string{"a": "b"}}
	if err := c.Store("BLR_DEL_direct", in); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := c.Store("BLR_BOM_direct", in); err != nil {
		t.Fatalf("Store: %v", err)
	}

	var out cachedThing
	if _, err := c.Retrieve("BLR_DEL_direct", &out); err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if out.Name != in.Name || !slices.Equal(out.Values, in.Values) || out.Tags["a"] != "b" {
		t.Errorf("got %+v, expected %+v", out, in)
	}

	n, err := c.RemoveMatching(func(name string) bool { return strings.HasPrefix(name, "BLR_DEL_") })
	if err != nil || n != 1 {
		t.Errorf("RemoveMatching removed %d (err %v), expected 1", n, err)
	}
	if _, err := c.Retrieve("BLR_BOM_direct", &out); err != nil {
		t.Errorf("unrelated object was removed: %v", err)
	}

	if err := c.Cull(0); err != nil {
		t.Errorf("Cull: %v", err)
	}
	if _, err := c.Retrieve("BLR_BOM_direct", &out); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Cull(0) should remove everything, got %v", err)
	}
}

func TestLoggingMutex(t *testing.T) {
	var mu LoggingMutex
	var wg sync.WaitGroup
	counter := 0
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				mu.Lock(nil)
				counter++
				mu.Unlock(nil)
			}
		}()
	}
	wg.Wait()

	if counter != 800 {
		t.Errorf("counter = %d, expected 800", counter)
	}
	if n := numHeldMutexes(); n != 0 {
		t.Errorf("%d mutexes still recorded as held", n)
	}
}
