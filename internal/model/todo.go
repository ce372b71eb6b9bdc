package model

// Todo is the domain model for a single list entry.
// Kept minimal on purpose; it’s easy to evolve.
type Todo struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

// IsOpen reports whether this is an open (uncommitted) entry,
// i.e. one whose title is still empty.
func (t Todo) IsOpen() bool { return t.Title == "" }

// Clone returns an independent copy of a todo slice. Todos are plain
// values, so a shallow copy of the backing array is a full copy.
func Clone(todos []Todo) []Todo {
	if todos == nil {
		return nil
	}
	out := make([]Todo, len(todos))
	copy(out, todos)
	return out
}
