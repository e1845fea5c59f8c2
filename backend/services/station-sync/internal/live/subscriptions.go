package live

import "sync"

// Callback receives messages for a station.
type Callback func(Message)

// Registry maps station ids to their subscriber callbacks.
// Every station owns its own set; a set is removed as soon as it becomes empty.
type Registry struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[string]map[uint64]Callback
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{subs: make(map[string]map[uint64]Callback)}
}

// Add registers cb for stationID and returns an idempotent remove function.
func (r *Registry) Add(stationID string, cb Callback) func() {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	set, ok := r.subs[stationID]
	if !ok {
		set = make(map[uint64]Callback)
		r.subs[stationID] = set
	}
	set[id] = cb
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(stationID, id) })
	}
}

func (r *Registry) remove(stationID string, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.subs[stationID]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(r.subs, stationID)
	}
}

// Callbacks returns a copy of the callbacks for stationID, safe to iterate while
// callbacks subscribe or unsubscribe.
func (r *Registry) Callbacks(stationID string) []Callback {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.subs[stationID]
	if len(set) == 0 {
		return nil
	}
	result := make([]Callback, 0, len(set))
	for _, cb := range set {
		result = append(result, cb)
	}
	return result
}

// Clear drops every subscription.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = make(map[string]map[uint64]Callback)
}

// Stations returns the number of stations with at least one subscriber.
func (r *Registry) Stations() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// Count returns the number of callbacks registered for stationID.
func (r *Registry) Count(stationID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs[stationID])
}
