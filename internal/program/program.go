// Package program defines the training program document model: a tree of
// weeks, sessions, exercises, and logged sets, with position-derived composite
// identifiers ("week-2-session-3-exercise-1") that are recomputed whenever
// array order changes.
package program

import (
	"fmt"
	"time"
)

// Program is the root of the training program document.
type Program struct {
	Weeks []*Week `json:"weeks"`
}

// Week is one training week. Its composite ID is derived from its 1-based
// position in Program.Weeks.
type Week struct {
	Handle      string     `json:"handle,omitempty"`
	ID          string     `json:"id"`
	WeekNumber  int        `json:"weekNumber"`
	Phase       string     `json:"phase,omitempty"`
	StartDate   string     `json:"startDate,omitempty"`
	EndDate     string     `json:"endDate,omitempty"`
	Description string     `json:"description,omitempty"`
	Sessions    []*Session `json:"sessions"`
}

// Session is one workout within a week.
type Session struct {
	Handle      string      `json:"handle,omitempty"`
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Date        string      `json:"date,omitempty"`
	DayOfWeek   string      `json:"dayOfWeek,omitempty"`
	Warmup      []string    `json:"warmup,omitempty"`
	Exercises   []*Exercise `json:"exercises"`
	Notes       string      `json:"notes,omitempty"`
	Completed   bool        `json:"completed"`
	StartedAt   *time.Time  `json:"startedAt,omitempty"`
	CompletedAt *time.Time  `json:"completedAt,omitempty"`
	Cardio      *Cardio     `json:"cardio,omitempty"`
}

// Exercise is one prescribed movement within a session. Sets holds the
// user's logged set data; prescription fields (Reps, TargetLoad) are
// free-text as supplied by the coach.
type Exercise struct {
	Handle      string `json:"handle,omitempty"`
	ID          string `json:"id"`
	Name        string `json:"name"`
	Superset    string `json:"superset,omitempty"`
	WarmupSets  int    `json:"warmupSets"`
	WorkingSets int    `json:"workingSets"`
	Reps        string `json:"reps"`
	TargetLoad  string `json:"targetLoad"`
	RestSeconds int    `json:"restSeconds"`
	CoachNotes  string `json:"coachNotes,omitempty"`
	UserNotes   string `json:"userNotes,omitempty"`
	Sets        []*Set `json:"sets"`
	Skipped     bool   `json:"skipped"`
}

// Set is one logged set. SetNumber is 1-based and contiguous within its
// exercise.
type Set struct {
	Handle     string   `json:"handle,omitempty"`
	SetNumber  int      `json:"setNumber"`
	Reps       int      `json:"reps"`
	Weight     *float64 `json:"weight,omitempty"`
	WeightUnit string   `json:"weightUnit,omitempty"`
	RIR        *float64 `json:"rir,omitempty"`
	Completed  bool     `json:"completed"`
	Notes      string   `json:"notes,omitempty"`
}

// Cardio is an optional cardio block attached to a session.
type Cardio struct {
	Type    string `json:"type,omitempty"`
	Minutes int    `json:"minutes,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

// WeekID returns the composite identifier for a week ordinal.
func WeekID(w int) string {
	return fmt.Sprintf("week-%d", w)
}

// SessionID returns the composite identifier for a session ordinal.
func SessionID(w, s int) string {
	return fmt.Sprintf("week-%d-session-%d", w, s)
}

// ExerciseID returns the composite identifier for an exercise ordinal.
func ExerciseID(w, s, e int) string {
	return fmt.Sprintf("week-%d-session-%d-exercise-%d", w, s, e)
}

// Renumber recomputes every composite identifier in the document.
// Equivalent to RenumberWeeks(0).
func (p *Program) Renumber() {
	p.RenumberWeeks(0)
}

// RenumberWeeks recomputes week numbers and composite IDs for weeks from
// index `from` to the end, cascading into their sessions and exercises.
// Idempotent: identifiers depend only on array order.
func (p *Program) RenumberWeeks(from int) {
	if from < 0 {
		from = 0
	}
	for i := from; i < len(p.Weeks); i++ {
		w := p.Weeks[i]
		w.WeekNumber = i + 1
		w.ID = WeekID(i + 1)
		w.RenumberSessions(0)
	}
}

// RenumberSessions recomputes session composite IDs from index `from`
// onward, cascading into exercises. Uses the week's current WeekNumber, so
// the week itself must be numbered first.
func (w *Week) RenumberSessions(from int) {
	if from < 0 {
		from = 0
	}
	for i := from; i < len(w.Sessions); i++ {
		s := w.Sessions[i]
		s.ID = SessionID(w.WeekNumber, i+1)
		s.RenumberExercises(w.WeekNumber, i+1, 0)
	}
}

// RenumberExercises recomputes exercise composite IDs from index `from`
// onward, given the parent week and session ordinals.
func (s *Session) RenumberExercises(weekNum, sessionNum, from int) {
	if from < 0 {
		from = 0
	}
	for i := from; i < len(s.Exercises); i++ {
		s.Exercises[i].ID = ExerciseID(weekNum, sessionNum, i+1)
	}
}

// RenumberSets recomputes 1-based set numbers from index `from` onward,
// keeping them contiguous after a deletion.
func (e *Exercise) RenumberSets(from int) {
	if from < 0 {
		from = 0
	}
	for i := from; i < len(e.Sets); i++ {
		e.Sets[i].SetNumber = i + 1
	}
}

// RemoveSet deletes the set at 0-based index i and renumbers the rest so
// set numbers stay gap-free.
func (e *Exercise) RemoveSet(i int) {
	if i < 0 || i >= len(e.Sets) {
		return
	}
	e.Sets = append(e.Sets[:i], e.Sets[i+1:]...)
	e.RenumberSets(i)
}

// AddSet appends a logged set, assigning the next set number.
func (e *Exercise) AddSet(s *Set) {
	e.Sets = append(e.Sets, s)
	s.SetNumber = len(e.Sets)
}
