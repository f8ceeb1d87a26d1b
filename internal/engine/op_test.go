package engine

import (
	"encoding/json"
	"errors"
	"testing"
)

// TestPositionUnmarshal verifies the position wire form: an integer or the
// literal "end".
func TestPositionUnmarshal(t *testing.T) {
	var p Position
	if err := json.Unmarshal([]byte(`3`), &p); err != nil {
		t.Fatal(err)
	}
	if p.End || p.N != 3 {
		t.Errorf("position = %+v, want N=3", p)
	}

	if err := json.Unmarshal([]byte(`"end"`), &p); err != nil {
		t.Fatal(err)
	}
	if !p.End {
		t.Errorf("position = %+v, want End", p)
	}

	if err := json.Unmarshal([]byte(`"start"`), &p); err == nil {
		t.Error(`"start" should not parse as a position`)
	}
	if err := json.Unmarshal([]byte(`3.5`), &p); err == nil {
		t.Error("3.5 should not parse as a position")
	}
}

func TestPositionMarshalRoundTrip(t *testing.T) {
	for _, p := range []Position{PositionAt(2), PositionEnd} {
		data, err := json.Marshal(p)
		if err != nil {
			t.Fatal(err)
		}
		var back Position
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatal(err)
		}
		if back != p {
			t.Errorf("round-trip %+v → %s → %+v", p, data, back)
		}
	}
}

func TestPositionValidAndIndex(t *testing.T) {
	tests := []struct {
		pos      Position
		siblings int
		valid    bool
		index    int
	}{
		{PositionAt(1), 2, true, 0},
		{PositionAt(3), 2, true, 2},
		{PositionAt(4), 2, false, 0},
		{PositionAt(0), 2, false, 0},
		{PositionEnd, 2, true, 2},
		{PositionEnd, 0, true, 0},
		{PositionAt(1), 0, true, 0},
	}
	for _, tt := range tests {
		if got := tt.pos.valid(tt.siblings); got != tt.valid {
			t.Errorf("(%+v).valid(%d) = %v, want %v", tt.pos, tt.siblings, got, tt.valid)
			continue
		}
		if tt.valid {
			if got := tt.pos.index(tt.siblings); got != tt.index {
				t.Errorf("(%+v).index(%d) = %d, want %d", tt.pos, tt.siblings, got, tt.index)
			}
		}
	}
}

// TestParseOpKinds verifies every wire kind decodes to its typed form.
func TestParseOpKinds(t *testing.T) {
	kinds := map[string]string{
		KindModifyExercise:   `{"week":1,"session":1,"exercise":1,"updates":{"reps":"6"}}`,
		KindAddExercise:      `{"week":1,"session":1,"position":"end","exercise":{"name":"X","reps":"5","targetLoad":"2 RIR","workingSets":3}}`,
		KindRemoveExercise:   `{"week":1,"session":1,"exercise":1}`,
		KindReorderExercises: `{"week":1,"session":1,"exercise":1,"newPosition":2}`,
		KindModifySession:    `{"week":1,"session":1,"updates":{"name":"Y"}}`,
		KindAddSession:       `{"week":1,"position":1,"session":{"name":"Z"}}`,
		KindRemoveSession:    `{"week":1,"session":1}`,
		KindCopySession:      `{"sourceWeek":1,"sourceSession":1,"targetWeek":1,"position":"end"}`,
		KindModifyWeek:       `{"week":1,"updates":{"phase":"p"}}`,
		KindAddWeek:          `{"position":"end","weeks":[{}]}`,
		KindRemoveWeek:       `{"week":1}`,
		KindCreateProgram:    `{"weeks":[{"sessions":[{"name":"A"}]}]}`,
	}
	for kind, args := range kinds {
		op, err := ParseOp(ProposedOp{Kind: kind, Arguments: json.RawMessage(args)})
		if err != nil {
			t.Errorf("ParseOp(%s) error: %v", kind, err)
			continue
		}
		if op.Kind() != kind {
			t.Errorf("ParseOp(%s).Kind() = %s", kind, op.Kind())
		}
	}
}

func TestParseOpUnknownKind(t *testing.T) {
	_, err := ParseOp(ProposedOp{Kind: "explode_program"})
	if !errors.Is(err, ErrUnknownOp) {
		t.Errorf("err = %v, want ErrUnknownOp", err)
	}
}

func TestParseOpBadArguments(t *testing.T) {
	_, err := ParseOp(ProposedOp{Kind: KindModifyExercise, Arguments: json.RawMessage(`{"week":"two"}`)})
	if err == nil {
		t.Error("expected decode error for non-integer week")
	}
}
