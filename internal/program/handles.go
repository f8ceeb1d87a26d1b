package program

import (
	"github.com/google/uuid"
)

// handleLen is the length of a node handle: the first 8 hex characters of a
// UUID. Short enough to echo back through an LLM round-trip, unique within
// one document once collision-checked.
const handleLen = 8

func newHandle(seen map[string]struct{}) string {
	for {
		h := uuid.NewString()[:handleLen]
		if _, ok := seen[h]; !ok {
			seen[h] = struct{}{}
			return h
		}
	}
}

// AssignHandles stamps every week, session, exercise, and set with a fresh
// unique handle. Handles are ephemeral: they live for one batch execution
// and are removed by StripHandles before the document is persisted.
// Uniqueness is tracked in a single set across the whole tree.
//
// Callers mutate a clone, never the stored document.
func (p *Program) AssignHandles() {
	seen := make(map[string]struct{})
	for _, w := range p.Weeks {
		w.Handle = newHandle(seen)
		for _, s := range w.Sessions {
			s.Handle = newHandle(seen)
			for _, e := range s.Exercises {
				e.Handle = newHandle(seen)
				for _, set := range e.Sets {
					set.Handle = newHandle(seen)
				}
			}
		}
	}
}

// StripHandles removes every handle from the document. Idempotent; stripping
// an already-stripped document is a no-op.
func (p *Program) StripHandles() {
	for _, w := range p.Weeks {
		w.Handle = ""
		for _, s := range w.Sessions {
			s.StripHandles()
		}
	}
}

// StripHandles removes handles from the session subtree.
func (s *Session) StripHandles() {
	s.Handle = ""
	for _, e := range s.Exercises {
		e.Handle = ""
		for _, set := range e.Sets {
			set.Handle = ""
		}
	}
}

// FindWeek returns the week with the given handle and its index, or
// (-1, nil) if no week carries it.
func (p *Program) FindWeek(handle string) (int, *Week) {
	if handle == "" {
		return -1, nil
	}
	for i, w := range p.Weeks {
		if w.Handle == handle {
			return i, w
		}
	}
	return -1, nil
}

// FindSession returns the session with the given handle along with its week
// index and session index, or (-1, -1, nil).
func (p *Program) FindSession(handle string) (int, int, *Session) {
	if handle == "" {
		return -1, -1, nil
	}
	for wi, w := range p.Weeks {
		for si, s := range w.Sessions {
			if s.Handle == handle {
				return wi, si, s
			}
		}
	}
	return -1, -1, nil
}

// FindExercise returns the exercise with the given handle along with its
// week, session, and exercise indices, or (-1, -1, -1, nil).
func (p *Program) FindExercise(handle string) (int, int, int, *Exercise) {
	if handle == "" {
		return -1, -1, -1, nil
	}
	for wi, w := range p.Weeks {
		for si, s := range w.Sessions {
			for ei, e := range s.Exercises {
				if e.Handle == handle {
					return wi, si, ei, e
				}
			}
		}
	}
	return -1, -1, -1, nil
}
