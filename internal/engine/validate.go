package engine

import (
	"fmt"

	"github.com/claude/repcoach/internal/program"
)

// maxProgramWeeks caps whole-program replacement. Programs longer than four
// weeks are built incrementally with add_week.
const maxProgramWeeks = 4

// validate checks one handle-resolved operation against the current
// document state. It is purely diagnostic: no mutation, and every problem
// found is reported as a human-readable message for the planner to act on.
func validate(doc *program.Program, op Op) (bool, []string) {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	switch o := op.(type) {
	case *ModifyExerciseOp:
		_, _, _, e := doc.FindExercise(o.exerciseHandle)
		if e == nil {
			add("exercise with handle %q not found", o.exerciseHandle)
			break
		}
		if o.Updates.empty() {
			add("updates must include at least one field to change")
		}
		checkNonNegative(add, "warmupSets", o.Updates.WarmupSets)
		checkNonNegative(add, "workingSets", o.Updates.WorkingSets)
		checkNonNegative(add, "restSeconds", o.Updates.RestSeconds)

	case *AddExerciseOp:
		_, _, s := doc.FindSession(o.sessionHandle)
		if s == nil {
			add("session with handle %q not found", o.sessionHandle)
			break
		}
		if !o.Position.valid(len(s.Exercises)) {
			add("position %d out of range: must be 1-%d or \"end\"", o.Position.N, len(s.Exercises)+1)
		}
		validateNewExercise(add, o.Exercise)

	case *RemoveExerciseOp:
		if _, _, _, e := doc.FindExercise(o.exerciseHandle); e == nil {
			add("exercise with handle %q not found", o.exerciseHandle)
		}

	case *ReorderExercisesOp:
		wi, si, _, e := doc.FindExercise(o.exerciseHandle)
		if e == nil {
			add("exercise with handle %q not found", o.exerciseHandle)
			break
		}
		sess := doc.Weeks[wi].Sessions[si]
		if !o.NewPosition.valid(len(sess.Exercises)) {
			add("newPosition %d out of range: must be 1-%d or \"end\"", o.NewPosition.N, len(sess.Exercises)+1)
		}

	case *ModifySessionOp:
		_, _, s := doc.FindSession(o.sessionHandle)
		if s == nil {
			add("session with handle %q not found", o.sessionHandle)
			break
		}
		if o.Updates.empty() {
			add("updates must include at least one field to change")
		}

	case *AddSessionOp:
		_, w := doc.FindWeek(o.weekHandle)
		if w == nil {
			add("week with handle %q not found", o.weekHandle)
			break
		}
		if !o.Position.valid(len(w.Sessions)) {
			add("position %d out of range: must be 1-%d or \"end\"", o.Position.N, len(w.Sessions)+1)
		}
		validateNewSession(add, o.Session)

	case *RemoveSessionOp:
		if _, _, s := doc.FindSession(o.sessionHandle); s == nil {
			add("session with handle %q not found", o.sessionHandle)
		}

	case *CopySessionOp:
		_, _, src := doc.FindSession(o.sourceHandle)
		if src == nil {
			add("source session with handle %q not found", o.sourceHandle)
		}
		_, tgt := doc.FindWeek(o.targetWeekHandle)
		if tgt == nil {
			add("target week with handle %q not found", o.targetWeekHandle)
		} else if !o.Position.valid(len(tgt.Sessions)) {
			add("position %d out of range: must be 1-%d or \"end\"", o.Position.N, len(tgt.Sessions)+1)
		}

	case *ModifyWeekOp:
		_, w := doc.FindWeek(o.weekHandle)
		if w == nil {
			add("week with handle %q not found", o.weekHandle)
			break
		}
		if o.Updates.empty() {
			add("updates must include at least one field to change")
		}

	case *AddWeekOp:
		if len(o.Weeks) < 1 {
			add("weeks must include at least one week to add")
		}
		if !o.Position.valid(len(doc.Weeks)) {
			add("position %d out of range: must be 1-%d or \"end\"", o.Position.N, len(doc.Weeks)+1)
		}
		for i, w := range o.Weeks {
			validateNewWeek(add, i+1, w)
		}

	case *RemoveWeekOp:
		if _, w := doc.FindWeek(o.weekHandle); w == nil {
			add("week with handle %q not found", o.weekHandle)
		}

	case *CreateProgramOp:
		if len(o.Weeks) < 1 {
			add("program must have at least 1 week")
		}
		if len(o.Weeks) > maxProgramWeeks {
			add("program must have at most %d weeks, got %d", maxProgramWeeks, len(o.Weeks))
		}
		for i, w := range o.Weeks {
			if len(w.Sessions) < 1 {
				add("week %d must have at least one session", i+1)
			}
			validateNewWeek(add, i+1, w)
		}

	default:
		add("unknown operation kind %T", op)
	}

	return len(errs) == 0, errs
}

func checkNonNegative(add func(string, ...any), field string, v *int) {
	if v != nil && *v < 0 {
		add("%s must be >= 0, got %d", field, *v)
	}
}

func validateNewExercise(add func(string, ...any), e NewExercise) {
	if e.Name == "" {
		add("exercise name is required")
	}
	if e.Reps == "" {
		add("exercise reps prescription is required")
	}
	if e.TargetLoad == "" {
		add("exercise targetLoad is required")
	}
	if e.WorkingSets == nil {
		add("exercise workingSets is required")
	}
	checkNonNegative(add, "workingSets", e.WorkingSets)
	checkNonNegative(add, "warmupSets", e.WarmupSets)
	checkNonNegative(add, "restSeconds", e.RestSeconds)
}

func validateNewSession(add func(string, ...any), s NewSession) {
	if s.Name == "" {
		add("session name is required")
	}
	for _, e := range s.Exercises {
		validateNewExercise(add, e)
	}
}

func validateNewWeek(add func(string, ...any), n int, w NewWeek) {
	for _, s := range w.Sessions {
		if s.Name == "" {
			add("week %d: session name is required", n)
		}
		for _, e := range s.Exercises {
			validateNewExercise(add, e)
		}
	}
}
