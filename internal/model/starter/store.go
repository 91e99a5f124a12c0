package starter

// Store exposes starter prompts for HTTP handlers and the CLI.
type Store interface {
	List() []Starter
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Starter
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied starters.
func NewMemoryStore(items []Starter) *MemoryStore {
	return &MemoryStore{items: append([]Starter(nil), items...)}
}

// List returns a copy of the registered starters in registration order.
func (s *MemoryStore) List() []Starter {
	return append([]Starter(nil), s.items...)
}
