package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// stageKey names a stage for the view-state cache: "root" for the top level,
// otherwise the isolated note's id.
func stageKey(stage int64) string {
	if stage == 0 {
		return "root"
	}
	return strconv.FormatInt(stage, 10)
}

// viewStateCache remembers pan and zoom per stage across drill-in/out and
// across sessions. Writes coalesce: pan and zoom change on every wheel tick,
// so each touch just marks the cache dirty and the flush happens after the
// debounce window or, immediately, on stage transitions and quit.
type viewStateCache struct {
	path      string
	states    map[string]ViewState
	dirty     bool
	lastTouch time.Time
}

func newViewStateCache(path string) *viewStateCache {
	c := &viewStateCache{
		path:   path,
		states: make(map[string]ViewState),
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return c
	}
	// A corrupt cache file is not worth failing startup over; stages just
	// fall back to their defaults.
	var states map[string]ViewState
	if err := json.Unmarshal(data, &states); err == nil && states != nil {
		c.states = states
	}
	return c
}

func (c *viewStateCache) Get(stage int64) (ViewState, bool) {
	vs, ok := c.states[stageKey(stage)]
	return vs, ok
}

func (c *viewStateCache) Put(stage int64, vs ViewState, now time.Time) {
	c.states[stageKey(stage)] = vs
	c.dirty = true
	c.lastTouch = now
}

// MaybeFlush writes the cache if it is dirty and the debounce window has
// elapsed since the last touch.
func (c *viewStateCache) MaybeFlush(now time.Time) error {
	if !c.dirty || now.Sub(c.lastTouch) < viewStateDebounce {
		return nil
	}
	return c.FlushNow()
}

func (c *viewStateCache) FlushNow() error {
	if !c.dirty {
		return nil
	}
	data, err := json.MarshalIndent(c.states, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(c.path); dir != "" {
		os.MkdirAll(dir, 0755)
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return err
	}
	c.dirty = false
	return nil
}
