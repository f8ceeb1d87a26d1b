package engine

import (
	"fmt"
	"strings"

	"github.com/claude/repcoach/internal/program"
)

// defaultRestSeconds is applied to new exercises that omit a rest
// prescription.
const defaultRestSeconds = 180

// InvariantError reports that an executor could not locate a handle its
// validator had just confirmed. Input cannot cause this; it signals a
// defect in the translate/validate/execute pairing and is logged as such,
// never shown to the planner as a validation problem.
type InvariantError struct {
	msg string
}

func (e *InvariantError) Error() string { return e.msg }

func invariantErrorf(format string, args ...any) *InvariantError {
	return &InvariantError{msg: fmt.Sprintf(format, args...)}
}

// loadIsBodyweight reports whether a target-load prescription describes a
// bodyweight movement, via a case-insensitive substring check for
// "bodyweight" or "bw". Known to be fuzzy ("BWmoreThan50lbs" would match);
// the prescription is free text from the planner, so the heuristic is kept
// deliberately loose and isolated here.
func loadIsBodyweight(load string) bool {
	l := strings.ToLower(load)
	return strings.Contains(l, "bodyweight") || strings.Contains(l, "bw")
}

// execute applies one validated, handle-resolved operation to the
// batch-local document, renumbering composite identifiers after every
// structural change so the next operation in the batch validates against
// consistent ordinals. Only ever called after validate passed.
func execute(doc *program.Program, op Op) error {
	switch o := op.(type) {
	case *ModifyExerciseOp:
		return executeModifyExercise(doc, o)
	case *AddExerciseOp:
		return executeAddExercise(doc, o)
	case *RemoveExerciseOp:
		return executeRemoveExercise(doc, o)
	case *ReorderExercisesOp:
		return executeReorderExercises(doc, o)
	case *ModifySessionOp:
		return executeModifySession(doc, o)
	case *AddSessionOp:
		return executeAddSession(doc, o)
	case *RemoveSessionOp:
		return executeRemoveSession(doc, o)
	case *CopySessionOp:
		return executeCopySession(doc, o)
	case *ModifyWeekOp:
		return executeModifyWeek(doc, o)
	case *AddWeekOp:
		return executeAddWeek(doc, o)
	case *RemoveWeekOp:
		return executeRemoveWeek(doc, o)
	case *CreateProgramOp:
		return executeCreateProgram(doc, o)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownOp, op)
	}
}

func executeModifyExercise(doc *program.Program, o *ModifyExerciseOp) error {
	_, _, _, e := doc.FindExercise(o.exerciseHandle)
	if e == nil {
		return invariantErrorf("modify_exercise: exercise %q vanished after validation", o.exerciseHandle)
	}

	u := o.Updates

	// A renamed exercise, or a load change across the bodyweight/weighted
	// boundary, invalidates logged sets as a like-for-like continuation.
	// A numeric change to an existing weighted load keeps them.
	clearSets := false
	if u.Name != nil && *u.Name != e.Name {
		clearSets = true
	}
	if u.TargetLoad != nil && loadIsBodyweight(*u.TargetLoad) != loadIsBodyweight(e.TargetLoad) {
		clearSets = true
	}

	if u.Name != nil {
		e.Name = *u.Name
	}
	if u.Superset != nil {
		e.Superset = *u.Superset
	}
	if u.WarmupSets != nil {
		e.WarmupSets = *u.WarmupSets
	}
	if u.WorkingSets != nil {
		e.WorkingSets = *u.WorkingSets
	}
	if u.Reps != nil {
		e.Reps = *u.Reps
	}
	if u.TargetLoad != nil {
		e.TargetLoad = *u.TargetLoad
	}
	if u.RestSeconds != nil {
		e.RestSeconds = *u.RestSeconds
	}
	if u.CoachNotes != nil {
		e.CoachNotes = *u.CoachNotes
	}
	if u.UserNotes != nil {
		e.UserNotes = *u.UserNotes
	}
	if u.Skipped != nil {
		e.Skipped = *u.Skipped
	}

	if clearSets {
		e.Sets = []*program.Set{}
	}
	return nil
}

// buildExercise constructs an exercise node from an add payload, applying
// defaults for omitted optional fields.
func buildExercise(n NewExercise) *program.Exercise {
	e := &program.Exercise{
		Name:        n.Name,
		Superset:    n.Superset,
		Reps:        n.Reps,
		TargetLoad:  n.TargetLoad,
		CoachNotes:  n.CoachNotes,
		RestSeconds: defaultRestSeconds,
		Sets:        []*program.Set{},
	}
	if n.WorkingSets != nil {
		e.WorkingSets = *n.WorkingSets
	}
	if n.WarmupSets != nil {
		e.WarmupSets = *n.WarmupSets
	}
	if n.RestSeconds != nil {
		e.RestSeconds = *n.RestSeconds
	}
	return e
}

func buildSession(n NewSession) *program.Session {
	s := &program.Session{
		Name:      n.Name,
		Date:      n.Date,
		DayOfWeek: n.DayOfWeek,
		Warmup:    n.Warmup,
		Notes:     n.Notes,
		Cardio:    n.Cardio,
		Exercises: []*program.Exercise{},
	}
	for _, e := range n.Exercises {
		s.Exercises = append(s.Exercises, buildExercise(e))
	}
	return s
}

func buildWeek(n NewWeek) *program.Week {
	w := &program.Week{
		Phase:       n.Phase,
		StartDate:   n.StartDate,
		EndDate:     n.EndDate,
		Description: n.Description,
		Sessions:    []*program.Session{},
	}
	for _, s := range n.Sessions {
		w.Sessions = append(w.Sessions, buildSession(s))
	}
	return w
}

func executeAddExercise(doc *program.Program, o *AddExerciseOp) error {
	wi, si, s := doc.FindSession(o.sessionHandle)
	if s == nil {
		return invariantErrorf("add_exercise: session %q vanished after validation", o.sessionHandle)
	}

	idx := o.Position.index(len(s.Exercises))
	e := buildExercise(o.Exercise)
	s.Exercises = append(s.Exercises, nil)
	copy(s.Exercises[idx+1:], s.Exercises[idx:])
	s.Exercises[idx] = e
	s.RenumberExercises(wi+1, si+1, idx)
	return nil
}

func executeRemoveExercise(doc *program.Program, o *RemoveExerciseOp) error {
	wi, si, ei, e := doc.FindExercise(o.exerciseHandle)
	if e == nil {
		return invariantErrorf("remove_exercise: exercise %q vanished after validation", o.exerciseHandle)
	}

	s := doc.Weeks[wi].Sessions[si]
	s.Exercises = append(s.Exercises[:ei], s.Exercises[ei+1:]...)
	s.RenumberExercises(wi+1, si+1, ei)
	return nil
}

func executeReorderExercises(doc *program.Program, o *ReorderExercisesOp) error {
	wi, si, oldIdx, e := doc.FindExercise(o.exerciseHandle)
	if e == nil {
		return invariantErrorf("reorder_exercises: exercise %q vanished after validation", o.exerciseHandle)
	}

	s := doc.Weeks[wi].Sessions[si]
	s.Exercises = append(s.Exercises[:oldIdx], s.Exercises[oldIdx+1:]...)

	// Removal happens before insertion. Inserting at newPosition-1 in the
	// shrunk array lands the exercise at final position newPosition; the
	// index shift from the removal is already absorbed, so no further
	// adjustment is applied. Clamped because newPosition may be the
	// one-past-the-end insertion slot.
	idx := o.NewPosition.index(len(s.Exercises))
	if idx > len(s.Exercises) {
		idx = len(s.Exercises)
	}

	s.Exercises = append(s.Exercises, nil)
	copy(s.Exercises[idx+1:], s.Exercises[idx:])
	s.Exercises[idx] = e
	s.RenumberExercises(wi+1, si+1, 0)
	return nil
}

func executeModifySession(doc *program.Program, o *ModifySessionOp) error {
	_, _, s := doc.FindSession(o.sessionHandle)
	if s == nil {
		return invariantErrorf("modify_session: session %q vanished after validation", o.sessionHandle)
	}

	u := o.Updates
	if u.Name != nil {
		s.Name = *u.Name
	}
	if u.Date != nil {
		s.Date = *u.Date
	}
	if u.DayOfWeek != nil {
		s.DayOfWeek = *u.DayOfWeek
	}
	if u.Warmup != nil {
		s.Warmup = *u.Warmup
	}
	if u.Notes != nil {
		s.Notes = *u.Notes
	}
	if u.Cardio != nil {
		s.Cardio = u.Cardio
	}
	return nil
}

func executeAddSession(doc *program.Program, o *AddSessionOp) error {
	_, w := doc.FindWeek(o.weekHandle)
	if w == nil {
		return invariantErrorf("add_session: week %q vanished after validation", o.weekHandle)
	}

	idx := o.Position.index(len(w.Sessions))
	s := buildSession(o.Session)
	w.Sessions = append(w.Sessions, nil)
	copy(w.Sessions[idx+1:], w.Sessions[idx:])
	w.Sessions[idx] = s
	w.RenumberSessions(idx)
	return nil
}

func executeRemoveSession(doc *program.Program, o *RemoveSessionOp) error {
	wi, si, s := doc.FindSession(o.sessionHandle)
	if s == nil {
		return invariantErrorf("remove_session: session %q vanished after validation", o.sessionHandle)
	}

	w := doc.Weeks[wi]
	w.Sessions = append(w.Sessions[:si], w.Sessions[si+1:]...)
	w.RenumberSessions(si)
	return nil
}

func executeCopySession(doc *program.Program, o *CopySessionOp) error {
	_, _, src := doc.FindSession(o.sourceHandle)
	if src == nil {
		return invariantErrorf("copy_session: source session %q vanished after validation", o.sourceHandle)
	}
	_, tgt := doc.FindWeek(o.targetWeekHandle)
	if tgt == nil {
		return invariantErrorf("copy_session: target week %q vanished after validation", o.targetWeekHandle)
	}

	cp, err := src.Clone()
	if err != nil {
		return invariantErrorf("copy_session: %v", err)
	}

	// Structure is copied, history is not: completion state, logged sets,
	// skipped flags, and user notes all reset. The copy also loses its
	// source handles so later operations in this batch cannot confuse it
	// with the original.
	cp.Completed = false
	cp.StartedAt = nil
	cp.CompletedAt = nil
	for _, e := range cp.Exercises {
		e.Sets = []*program.Set{}
		e.Skipped = false
		e.UserNotes = ""
	}
	cp.StripHandles()

	idx := o.Position.index(len(tgt.Sessions))
	tgt.Sessions = append(tgt.Sessions, nil)
	copy(tgt.Sessions[idx+1:], tgt.Sessions[idx:])
	tgt.Sessions[idx] = cp
	tgt.RenumberSessions(idx)
	return nil
}

func executeModifyWeek(doc *program.Program, o *ModifyWeekOp) error {
	_, w := doc.FindWeek(o.weekHandle)
	if w == nil {
		return invariantErrorf("modify_week: week %q vanished after validation", o.weekHandle)
	}

	u := o.Updates
	if u.Phase != nil {
		w.Phase = *u.Phase
	}
	if u.StartDate != nil {
		w.StartDate = *u.StartDate
	}
	if u.EndDate != nil {
		w.EndDate = *u.EndDate
	}
	if u.Description != nil {
		w.Description = *u.Description
	}
	return nil
}

func executeAddWeek(doc *program.Program, o *AddWeekOp) error {
	idx := o.Position.index(len(doc.Weeks))

	added := make([]*program.Week, 0, len(o.Weeks))
	for _, n := range o.Weeks {
		added = append(added, buildWeek(n))
	}

	weeks := make([]*program.Week, 0, len(doc.Weeks)+len(added))
	weeks = append(weeks, doc.Weeks[:idx]...)
	weeks = append(weeks, added...)
	weeks = append(weeks, doc.Weeks[idx:]...)
	doc.Weeks = weeks
	doc.RenumberWeeks(idx)
	return nil
}

func executeRemoveWeek(doc *program.Program, o *RemoveWeekOp) error {
	wi, w := doc.FindWeek(o.weekHandle)
	if w == nil {
		return invariantErrorf("remove_week: week %q vanished after validation", o.weekHandle)
	}

	doc.Weeks = append(doc.Weeks[:wi], doc.Weeks[wi+1:]...)
	doc.RenumberWeeks(wi)
	return nil
}

func executeCreateProgram(doc *program.Program, o *CreateProgramOp) error {
	weeks := make([]*program.Week, 0, len(o.Weeks))
	for _, n := range o.Weeks {
		weeks = append(weeks, buildWeek(n))
	}
	doc.Weeks = weeks
	doc.RenumberWeeks(0)
	return nil
}
