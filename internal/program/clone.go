package program

import (
	"encoding/json"
	"fmt"
)

// Clone returns a deep copy of the program via a JSON round-trip. The
// document is JSON-shaped by contract (it is stored and transported as
// JSON), so the round-trip preserves it exactly.
func (p *Program) Clone() (*Program, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("cloning program: %w", err)
	}
	out := &Program{}
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("cloning program: %w", err)
	}
	return out, nil
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() (*Session, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("cloning session: %w", err)
	}
	out := &Session{}
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("cloning session: %w", err)
	}
	return out, nil
}
