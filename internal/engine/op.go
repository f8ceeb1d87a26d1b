// Package engine is the deterministic tool-execution engine behind the AI
// coach. It takes a batch of proposed edit operations addressed by position
// (week 2, session 3, exercise 1), translates them to ephemeral handle
// addresses against a snapshot, then validates and executes them one at a
// time against an isolated clone of the program, renumbering composite
// identifiers after every structural change. The batch is all-or-nothing:
// the first failure stops execution and the caller's document is returned
// untouched.
package engine

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/claude/repcoach/internal/program"
)

// ErrUnknownOp is wrapped into the error returned when an operation kind is
// not recognized.
var ErrUnknownOp = errors.New("unknown operation kind")

// ProposedOp is the wire form of one operation as emitted by the LLM
// planner: a kind plus a kind-specific argument object.
type ProposedOp struct {
	ID        string          `json:"id,omitempty"`
	Kind      string          `json:"kind"`
	Arguments json.RawMessage `json:"arguments"`
}

// Operation kind wire names.
const (
	KindModifyExercise   = "modify_exercise"
	KindAddExercise      = "add_exercise"
	KindRemoveExercise   = "remove_exercise"
	KindReorderExercises = "reorder_exercises"
	KindModifySession    = "modify_session"
	KindAddSession       = "add_session"
	KindRemoveSession    = "remove_session"
	KindCopySession      = "copy_session"
	KindModifyWeek       = "modify_week"
	KindAddWeek          = "add_week"
	KindRemoveWeek       = "remove_week"
	KindCreateProgram    = "create_program"
)

// Op is the decoded, typed form of one operation. The concrete types form a
// closed set; translate, validate, and execute each switch over it
// exhaustively, so a new kind cannot ship without all three.
type Op interface {
	Kind() string
}

// Position addresses an insertion point among siblings: a 1-based integer
// or the sentinel "end".
type Position struct {
	End bool
	N   int
}

// PositionEnd is the "append" position.
var PositionEnd = Position{End: true}

// PositionAt returns the 1-based integer position n.
func PositionAt(n int) Position { return Position{N: n} }

// UnmarshalJSON accepts an integer or the string "end".
func (p *Position) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "end" {
			return fmt.Errorf("position must be an integer or \"end\", got %q", s)
		}
		*p = Position{End: true}
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("position must be an integer or \"end\"")
	}
	*p = Position{N: n}
	return nil
}

// MarshalJSON emits the wire form: "end" or the integer.
func (p Position) MarshalJSON() ([]byte, error) {
	if p.End {
		return json.Marshal("end")
	}
	return json.Marshal(p.N)
}

// valid reports whether p is a legal insertion position among n current
// siblings: "end" or an integer in [1, n+1].
func (p Position) valid(n int) bool {
	return p.End || (p.N >= 1 && p.N <= n+1)
}

// index converts p to a 0-based insertion index among n current siblings.
// Only meaningful when valid(n) holds.
func (p Position) index(n int) int {
	if p.End {
		return n
	}
	return p.N - 1
}

// ExerciseUpdates carries only the exercise fields to change; nil fields
// are left untouched.
type ExerciseUpdates struct {
	Name        *string `json:"name,omitempty"`
	Superset    *string `json:"superset,omitempty"`
	WarmupSets  *int    `json:"warmupSets,omitempty"`
	WorkingSets *int    `json:"workingSets,omitempty"`
	Reps        *string `json:"reps,omitempty"`
	TargetLoad  *string `json:"targetLoad,omitempty"`
	RestSeconds *int    `json:"restSeconds,omitempty"`
	CoachNotes  *string `json:"coachNotes,omitempty"`
	UserNotes   *string `json:"userNotes,omitempty"`
	Skipped     *bool   `json:"skipped,omitempty"`
}

func (u ExerciseUpdates) empty() bool {
	return u.Name == nil && u.Superset == nil && u.WarmupSets == nil &&
		u.WorkingSets == nil && u.Reps == nil && u.TargetLoad == nil &&
		u.RestSeconds == nil && u.CoachNotes == nil && u.UserNotes == nil &&
		u.Skipped == nil
}

// SessionUpdates carries only the session fields to change.
type SessionUpdates struct {
	Name      *string         `json:"name,omitempty"`
	Date      *string         `json:"date,omitempty"`
	DayOfWeek *string         `json:"dayOfWeek,omitempty"`
	Warmup    *[]string       `json:"warmup,omitempty"`
	Notes     *string         `json:"notes,omitempty"`
	Cardio    *program.Cardio `json:"cardio,omitempty"`
}

func (u SessionUpdates) empty() bool {
	return u.Name == nil && u.Date == nil && u.DayOfWeek == nil &&
		u.Warmup == nil && u.Notes == nil && u.Cardio == nil
}

// WeekUpdates carries only the week fields to change.
type WeekUpdates struct {
	Phase       *string `json:"phase,omitempty"`
	StartDate   *string `json:"startDate,omitempty"`
	EndDate     *string `json:"endDate,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (u WeekUpdates) empty() bool {
	return u.Phase == nil && u.StartDate == nil && u.EndDate == nil &&
		u.Description == nil
}

// NewExercise is the payload for creating an exercise. WorkingSets is a
// pointer so a missing value is distinguishable from an explicit zero.
type NewExercise struct {
	Name        string `json:"name"`
	Superset    string `json:"superset,omitempty"`
	WarmupSets  *int   `json:"warmupSets,omitempty"`
	WorkingSets *int   `json:"workingSets"`
	Reps        string `json:"reps"`
	TargetLoad  string `json:"targetLoad"`
	RestSeconds *int   `json:"restSeconds,omitempty"`
	CoachNotes  string `json:"coachNotes,omitempty"`
}

// NewSession is the payload for creating a session.
type NewSession struct {
	Name      string          `json:"name"`
	Date      string          `json:"date,omitempty"`
	DayOfWeek string          `json:"dayOfWeek,omitempty"`
	Warmup    []string        `json:"warmup,omitempty"`
	Exercises []NewExercise   `json:"exercises,omitempty"`
	Notes     string          `json:"notes,omitempty"`
	Cardio    *program.Cardio `json:"cardio,omitempty"`
}

// NewWeek is the payload for creating a week.
type NewWeek struct {
	Phase       string       `json:"phase,omitempty"`
	StartDate   string       `json:"startDate,omitempty"`
	EndDate     string       `json:"endDate,omitempty"`
	Description string       `json:"description,omitempty"`
	Sessions    []NewSession `json:"sessions,omitempty"`
}

// Position arguments on the op structs are 1-based ordinals as supplied by
// the planner. The unexported handle fields are filled in by resolve()
// against the handle-stamped snapshot; everything downstream of translation
// addresses nodes by handle only.

// ModifyExerciseOp merges updates into one exercise.
type ModifyExerciseOp struct {
	Week     int             `json:"week"`
	Session  int             `json:"session"`
	Exercise int             `json:"exercise"`
	Updates  ExerciseUpdates `json:"updates"`

	exerciseHandle string
}

func (*ModifyExerciseOp) Kind() string { return KindModifyExercise }

// AddExerciseOp inserts a new exercise into a session.
type AddExerciseOp struct {
	Week     int         `json:"week"`
	Session  int         `json:"session"`
	Position Position    `json:"position"`
	Exercise NewExercise `json:"exercise"`

	sessionHandle string
}

func (*AddExerciseOp) Kind() string { return KindAddExercise }

// RemoveExerciseOp deletes one exercise.
type RemoveExerciseOp struct {
	Week     int `json:"week"`
	Session  int `json:"session"`
	Exercise int `json:"exercise"`

	exerciseHandle string
}

func (*RemoveExerciseOp) Kind() string { return KindRemoveExercise }

// ReorderExercisesOp moves one exercise to a new position within its
// session.
type ReorderExercisesOp struct {
	Week        int      `json:"week"`
	Session     int      `json:"session"`
	Exercise    int      `json:"exercise"`
	NewPosition Position `json:"newPosition"`

	exerciseHandle string
}

func (*ReorderExercisesOp) Kind() string { return KindReorderExercises }

// ModifySessionOp merges updates into one session.
type ModifySessionOp struct {
	Week    int            `json:"week"`
	Session int            `json:"session"`
	Updates SessionUpdates `json:"updates"`

	sessionHandle string
}

func (*ModifySessionOp) Kind() string { return KindModifySession }

// AddSessionOp inserts a new session into a week.
type AddSessionOp struct {
	Week     int        `json:"week"`
	Position Position   `json:"position"`
	Session  NewSession `json:"session"`

	weekHandle string
}

func (*AddSessionOp) Kind() string { return KindAddSession }

// RemoveSessionOp deletes one session.
type RemoveSessionOp struct {
	Week    int `json:"week"`
	Session int `json:"session"`

	sessionHandle string
}

func (*RemoveSessionOp) Kind() string { return KindRemoveSession }

// CopySessionOp deep-copies a session into a target week. The copy keeps
// structure and prescriptions but resets all logged history.
type CopySessionOp struct {
	SourceWeek    int      `json:"sourceWeek"`
	SourceSession int      `json:"sourceSession"`
	TargetWeek    int      `json:"targetWeek"`
	Position      Position `json:"position"`

	sourceHandle     string
	targetWeekHandle string
}

func (*CopySessionOp) Kind() string { return KindCopySession }

// ModifyWeekOp merges updates into one week.
type ModifyWeekOp struct {
	Week    int         `json:"week"`
	Updates WeekUpdates `json:"updates"`

	weekHandle string
}

func (*ModifyWeekOp) Kind() string { return KindModifyWeek }

// AddWeekOp inserts one or more new weeks into the program.
type AddWeekOp struct {
	Position Position  `json:"position"`
	Weeks    []NewWeek `json:"weeks"`
}

func (*AddWeekOp) Kind() string { return KindAddWeek }

// RemoveWeekOp deletes one week.
type RemoveWeekOp struct {
	Week int `json:"week"`

	weekHandle string
}

func (*RemoveWeekOp) Kind() string { return KindRemoveWeek }

// CreateProgramOp replaces the whole program.
type CreateProgramOp struct {
	Weeks []NewWeek `json:"weeks"`
}

func (*CreateProgramOp) Kind() string { return KindCreateProgram }

// ParseOp decodes one proposed operation into its typed form. The kind
// selects the argument schema; unknown kinds fail with ErrUnknownOp.
func ParseOp(p ProposedOp) (Op, error) {
	var op Op
	switch p.Kind {
	case KindModifyExercise:
		op = &ModifyExerciseOp{}
	case KindAddExercise:
		op = &AddExerciseOp{}
	case KindRemoveExercise:
		op = &RemoveExerciseOp{}
	case KindReorderExercises:
		op = &ReorderExercisesOp{}
	case KindModifySession:
		op = &ModifySessionOp{}
	case KindAddSession:
		op = &AddSessionOp{}
	case KindRemoveSession:
		op = &RemoveSessionOp{}
	case KindCopySession:
		op = &CopySessionOp{}
	case KindModifyWeek:
		op = &ModifyWeekOp{}
	case KindAddWeek:
		op = &AddWeekOp{}
	case KindRemoveWeek:
		op = &RemoveWeekOp{}
	case KindCreateProgram:
		op = &CreateProgramOp{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOp, p.Kind)
	}

	args := p.Arguments
	if len(args) == 0 {
		args = []byte("{}")
	}
	if err := json.Unmarshal(args, op); err != nil {
		return nil, fmt.Errorf("decoding %s arguments: %w", p.Kind, err)
	}
	return op, nil
}
