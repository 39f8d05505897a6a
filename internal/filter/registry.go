// Package filter holds the regex content filters applied at ingress.
// A body matching any filter at its start is rejected before admission.
package filter

import (
	"regexp"
	"sort"
	"sync"
)

type Filter struct {
	ID      int
	Pattern string

	re *regexp.Regexp
}

// Registry is an in-memory filter set, safe for concurrent use.
// IDs are assigned once and never reused within a process lifetime.
type Registry struct {
	mu      sync.RWMutex
	nextID  int
	filters map[int]Filter
}

func NewRegistry() *Registry {
	return &Registry{filters: map[int]Filter{}}
}

// Add compiles pattern and registers it. Matching is anchored at the start
// of the body.
func (r *Registry) Add(pattern string) (Filter, error) {
	re, err := regexp.Compile("^(?:" + pattern + ")")
	if err != nil {
		return Filter{}, err
	}
	r.mu.Lock()
	r.nextID++
	f := Filter{ID: r.nextID, Pattern: pattern, re: re}
	r.filters[f.ID] = f
	r.mu.Unlock()
	return f, nil
}

// List returns all filters ordered by id.
func (r *Registry) List() []Filter {
	r.mu.RLock()
	out := make([]Filter, 0, len(r.filters))
	for _, f := range r.filters {
		out = append(out, f)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Registry) Get(id int) (Filter, bool) {
	r.mu.RLock()
	f, ok := r.filters[id]
	r.mu.RUnlock()
	return f, ok
}

// Delete removes the filter and returns it, reporting whether it existed.
func (r *Registry) Delete(id int) (Filter, bool) {
	r.mu.Lock()
	f, ok := r.filters[id]
	if ok {
		delete(r.filters, id)
	}
	r.mu.Unlock()
	return f, ok
}

// Match reports the lowest-id filter matching body, if any.
func (r *Registry) Match(body string) (int, bool) {
	for _, f := range r.List() {
		if f.re.MatchString(body) {
			return f.ID, true
		}
	}
	return 0, false
}
