package engine

import (
	"fmt"

	"github.com/claude/repcoach/internal/program"
)

// AddressError reports a position-based reference that does not exist in
// the document: a stale LLM view, or a target removed earlier in the same
// batch. It names the deepest level that failed to resolve.
type AddressError struct {
	msg string
}

func (e *AddressError) Error() string { return e.msg }

func addressErrorf(format string, args ...any) *AddressError {
	return &AddressError{msg: fmt.Sprintf(format, args...)}
}

// weekAt resolves a 1-based week ordinal against the stamped snapshot.
func weekAt(doc *program.Program, w int) (*program.Week, error) {
	if w < 1 || w > len(doc.Weeks) {
		return nil, addressErrorf("week not found at week %d", w)
	}
	return doc.Weeks[w-1], nil
}

// sessionAt resolves 1-based week/session ordinals.
func sessionAt(doc *program.Program, w, s int) (*program.Session, error) {
	week, err := weekAt(doc, w)
	if err != nil {
		return nil, err
	}
	if s < 1 || s > len(week.Sessions) {
		return nil, addressErrorf("session not found at week %d, session %d", w, s)
	}
	return week.Sessions[s-1], nil
}

// exerciseAt resolves 1-based week/session/exercise ordinals.
func exerciseAt(doc *program.Program, w, s, e int) (*program.Exercise, error) {
	sess, err := sessionAt(doc, w, s)
	if err != nil {
		return nil, err
	}
	if e < 1 || e > len(sess.Exercises) {
		return nil, addressErrorf("exercise not found at week %d, session %d, exercise %d", w, s, e)
	}
	return sess.Exercises[e-1], nil
}

// resolve translates one operation's position arguments into handle
// references against the handle-stamped snapshot taken at the start of the
// batch. Translation is done once, up front, for every operation in the
// batch: handles stay valid across the structural mutations that earlier
// operations make, while positions would not.
//
// Operations that create nodes resolve their parent's handle; add_week and
// create_program address the program root and need no handle at all.
func resolve(doc *program.Program, op Op) error {
	switch o := op.(type) {
	case *ModifyExerciseOp:
		e, err := exerciseAt(doc, o.Week, o.Session, o.Exercise)
		if err != nil {
			return err
		}
		o.exerciseHandle = e.Handle

	case *AddExerciseOp:
		s, err := sessionAt(doc, o.Week, o.Session)
		if err != nil {
			return err
		}
		o.sessionHandle = s.Handle

	case *RemoveExerciseOp:
		e, err := exerciseAt(doc, o.Week, o.Session, o.Exercise)
		if err != nil {
			return err
		}
		o.exerciseHandle = e.Handle

	case *ReorderExercisesOp:
		e, err := exerciseAt(doc, o.Week, o.Session, o.Exercise)
		if err != nil {
			return err
		}
		o.exerciseHandle = e.Handle

	case *ModifySessionOp:
		s, err := sessionAt(doc, o.Week, o.Session)
		if err != nil {
			return err
		}
		o.sessionHandle = s.Handle

	case *AddSessionOp:
		w, err := weekAt(doc, o.Week)
		if err != nil {
			return err
		}
		o.weekHandle = w.Handle

	case *RemoveSessionOp:
		s, err := sessionAt(doc, o.Week, o.Session)
		if err != nil {
			return err
		}
		o.sessionHandle = s.Handle

	case *CopySessionOp:
		src, err := sessionAt(doc, o.SourceWeek, o.SourceSession)
		if err != nil {
			return err
		}
		tgt, err := weekAt(doc, o.TargetWeek)
		if err != nil {
			return err
		}
		o.sourceHandle = src.Handle
		o.targetWeekHandle = tgt.Handle

	case *ModifyWeekOp:
		w, err := weekAt(doc, o.Week)
		if err != nil {
			return err
		}
		o.weekHandle = w.Handle

	case *AddWeekOp:
		// Addresses the program root; nothing to resolve.

	case *RemoveWeekOp:
		w, err := weekAt(doc, o.Week)
		if err != nil {
			return err
		}
		o.weekHandle = w.Handle

	case *CreateProgramOp:
		// Replaces the whole document; nothing to resolve.

	default:
		return fmt.Errorf("%w: %T", ErrUnknownOp, op)
	}
	return nil
}
