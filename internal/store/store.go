// Package store implements the authoritative todo collection. Every state
// transition funnels through it and is mirrored to the persistence backend
// before the operation returns.
package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/idilsaglam/todolist/internal/events"
	"github.com/idilsaglam/todolist/internal/kv"
	"github.com/idilsaglam/todolist/internal/model"
)

// CollectionKey is the fixed key the serialized collection lives under.
const CollectionKey = "todos"

// Store owns the ordered todo collection and its persisted mirror.
// Consumers only ever receive copies of the collection.
type Store struct {
	mu      sync.RWMutex
	backend kv.Backend
	bus     *events.Bus
	todos   []model.Todo
}

// Option tunes store construction.
type Option func(*options)

type options struct {
	seed []model.Todo
	bus  *events.Bus
}

// WithSeed supplies the initial collection used when the backend holds no
// data yet. Seed titles are trimmed like any other title set.
func WithSeed(todos []model.Todo) Option {
	return func(o *options) { o.seed = todos }
}

// WithBus makes the store publish a collection snapshot on the bus after
// every successful mutation.
func WithBus(bus *events.Bus) Option {
	return func(o *options) { o.bus = bus }
}

// New builds a store over the given backend. The backend is read once; if
// it holds nothing under the collection key, the seed is stored and
// persisted immediately.
func New(backend kv.Backend, opts ...Option) (*Store, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	s := &Store{backend: backend, bus: o.bus}

	raw, ok, err := backend.Get(CollectionKey)
	if err != nil {
		return nil, fmt.Errorf("load todos: %w", err)
	}
	if !ok {
		seed := model.Clone(o.seed)
		for i := range seed {
			seed[i].Title = strings.TrimSpace(seed[i].Title)
		}
		if seed == nil {
			seed = []model.Todo{}
		}
		if err := s.persist(seed); err != nil {
			return nil, err
		}
		s.todos = seed
		return s, nil
	}

	todos, err := decode(raw)
	if err != nil {
		return nil, err
	}
	// Pre-existing data is loaded as-is; invariant problems are reported
	// but do not block startup.
	if problems := checkInvariants(todos); len(problems) > 0 {
		log.Warn("todos data violates invariants", "path", backend.Path(CollectionKey), "problems", strings.Join(problems, "; "))
	}
	s.todos = todos
	return s, nil
}

// Todos returns an independent snapshot of the current collection.
func (s *Store) Todos() []model.Todo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.Clone(s.todos)
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.todos)
}

// Add creates a new todo with a fresh id and the trimmed title, appends it
// and persists. It fails with ErrDuplicateEmptyEntry while an open entry
// exists, so at most one entry is ever open.
func (s *Store) Add(title string) (model.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.todos {
		if t.IsOpen() {
			return model.Todo{}, ErrDuplicateEmptyEntry
		}
	}

	td := model.Todo{ID: s.nextID(), Title: strings.TrimSpace(title)}
	next := append(model.Clone(s.todos), td)
	if err := s.persist(next); err != nil {
		return model.Todo{}, err
	}
	s.todos = next
	s.publish()
	return td, nil
}

// Edit replaces the title of the todo with the given id and persists. The
// raw title is checked before trimming: an empty string fails with
// ErrEmptyTitle, while whitespace-only input passes the check and is
// stored trimmed.
func (s *Store) Edit(id int, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if title == "" {
		return ErrEmptyTitle
	}

	found := false
	next := make([]model.Todo, 0, len(s.todos))
	for _, t := range s.todos {
		if t.ID == id {
			t.Title = strings.TrimSpace(title)
			found = true
		}
		next = append(next, t)
	}
	if !found {
		return fmt.Errorf("todo %d: %w", id, ErrNotFound)
	}

	if err := s.persist(next); err != nil {
		return err
	}
	s.todos = next
	s.publish()
	return nil
}

// Delete removes the todo with the given id if present. Deleting an
// unknown id is a no-op, not an error; the collection persists either way.
func (s *Store) Delete(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]model.Todo, 0, len(s.todos))
	for _, t := range s.todos {
		if t.ID != id {
			next = append(next, t)
		}
	}

	if err := s.persist(next); err != nil {
		return err
	}
	s.todos = next
	s.publish()
	return nil
}

// Sort replaces the collection with only the titled entries, ordered
// case-insensitively by title. Open entries are dropped for good, not just
// hidden. Equal titles keep their previous relative order in both
// directions.
func (s *Store) Sort(ascending bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]model.Todo, 0, len(s.todos))
	for _, t := range s.todos {
		if !t.IsOpen() {
			next = append(next, t)
		}
	}
	sort.SliceStable(next, func(i, j int) bool {
		a, b := strings.ToLower(next[i].Title), strings.ToLower(next[j].Title)
		if ascending {
			return a < b
		}
		return a > b
	})

	if err := s.persist(next); err != nil {
		return err
	}
	s.todos = next
	s.publish()
	return nil
}

// Reload replaces the in-memory collection with whatever the backend
// currently holds. Used when something else wrote the backing file.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok, err := s.backend.Get(CollectionKey)
	if err != nil {
		return fmt.Errorf("reload todos: %w", err)
	}
	if !ok {
		s.todos = []model.Todo{}
		s.publish()
		return nil
	}
	todos, err := decode(raw)
	if err != nil {
		return err
	}
	s.todos = todos
	s.publish()
	return nil
}

// nextID returns max(existing ids)+1, or 1 for an empty collection. Ids of
// deleted entries can come back into play once the maximum drops; only
// uniqueness within the current collection is guaranteed.
func (s *Store) nextID() int {
	max := 0
	for _, t := range s.todos {
		if t.ID > max {
			max = t.ID
		}
	}
	return max + 1
}

// persist writes the full collection to the backend, synchronously.
func (s *Store) persist(todos []model.Todo) error {
	data, err := json.MarshalIndent(todos, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal todos: %w", err)
	}
	data = append(data, '\n')
	if err := s.backend.Set(CollectionKey, string(data)); err != nil {
		return fmt.Errorf("save todos: %w", err)
	}
	return nil
}

// publish pushes the current collection to the bus, if one is attached.
// Callers hold the write lock.
func (s *Store) publish() {
	if s.bus != nil {
		s.bus.Publish(s.todos)
	}
}

func decode(raw string) ([]model.Todo, error) {
	var todos []model.Todo
	if err := json.Unmarshal([]byte(raw), &todos); err != nil {
		return nil, fmt.Errorf("parse todos: %w", err)
	}
	if todos == nil {
		todos = []model.Todo{}
	}
	return todos, nil
}
