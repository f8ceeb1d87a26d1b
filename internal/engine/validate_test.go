package engine

import (
	"strings"
	"testing"
)

// failOne runs a single proposed operation expecting failure and returns
// the error messages from its result.
func failOne(t *testing.T, kind, args string) []string {
	t.Helper()
	p := squatBenchProgram()
	res := testRunner().Apply(p, []ProposedOp{proposed(kind, args)})
	if res.Success {
		t.Fatalf("%s unexpectedly succeeded", kind)
	}
	if len(res.Results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(res.Results))
	}
	return res.Results[0].Errors
}

func wantError(t *testing.T, errs []string, substr string) {
	t.Helper()
	for _, e := range errs {
		if strings.Contains(e, substr) {
			return
		}
	}
	t.Errorf("errors %v missing %q", errs, substr)
}

// TestValidateEmptyUpdates verifies modify operations require at least one
// field to change.
func TestValidateEmptyUpdates(t *testing.T) {
	wantError(t, failOne(t, KindModifyExercise,
		`{"week":1,"session":1,"exercise":1,"updates":{}}`),
		"at least one field")
	wantError(t, failOne(t, KindModifySession,
		`{"week":1,"session":1,"updates":{}}`),
		"at least one field")
	wantError(t, failOne(t, KindModifyWeek,
		`{"week":1,"updates":{}}`),
		"at least one field")
}

// TestValidateNegativeNumerics verifies numeric update fields must be >= 0.
func TestValidateNegativeNumerics(t *testing.T) {
	wantError(t, failOne(t, KindModifyExercise,
		`{"week":1,"session":1,"exercise":1,"updates":{"workingSets":-1}}`),
		"workingSets must be >= 0")
	wantError(t, failOne(t, KindModifyExercise,
		`{"week":1,"session":1,"exercise":1,"updates":{"restSeconds":-30}}`),
		"restSeconds must be >= 0")
	wantError(t, failOne(t, KindAddExercise,
		`{"week":1,"session":1,"position":1,"exercise":{"name":"Curl","reps":"12","targetLoad":"1 RIR","workingSets":-2}}`),
		"workingSets must be >= 0")
}

// TestValidateAddExerciseRequiredFields verifies the add payload needs
// name, reps, targetLoad, and workingSets.
func TestValidateAddExerciseRequiredFields(t *testing.T) {
	errs := failOne(t, KindAddExercise,
		`{"week":1,"session":1,"position":"end","exercise":{}}`)
	wantError(t, errs, "name is required")
	wantError(t, errs, "reps prescription is required")
	wantError(t, errs, "targetLoad is required")
	wantError(t, errs, "workingSets is required")
}

// TestValidateAddSessionRequiresName verifies sessions need a name.
func TestValidateAddSessionRequiresName(t *testing.T) {
	wantError(t, failOne(t, KindAddSession,
		`{"week":1,"position":"end","session":{}}`),
		"session name is required")
}

// TestValidatePositionOutOfRange verifies insertion positions must be in
// [1, siblingCount+1] or "end", and the error names the valid range.
func TestValidatePositionOutOfRange(t *testing.T) {
	// Session 1 has 2 exercises, so valid positions are 1-3.
	wantError(t, failOne(t, KindAddExercise,
		`{"week":1,"session":1,"position":7,"exercise":{"name":"Curl","reps":"12","targetLoad":"1 RIR","workingSets":2}}`),
		"must be 1-3")
	wantError(t, failOne(t, KindAddExercise,
		`{"week":1,"session":1,"position":0,"exercise":{"name":"Curl","reps":"12","targetLoad":"1 RIR","workingSets":2}}`),
		"out of range")
	wantError(t, failOne(t, KindReorderExercises,
		`{"week":1,"session":1,"exercise":1,"newPosition":9}`),
		"newPosition 9 out of range")
}

// TestValidateCreateProgramWeekCap verifies the whole-program replace
// rejects five weeks, naming the four-week maximum, and leaves the
// document unchanged.
func TestValidateCreateProgramWeekCap(t *testing.T) {
	p := squatBenchProgram()
	before := mustJSON(t, p)

	week := `{"sessions":[{"name":"Day"}]}`
	res := testRunner().Apply(p, []ProposedOp{proposed(KindCreateProgram,
		`{"weeks":[`+week+`,`+week+`,`+week+`,`+week+`,`+week+`]}`)})

	if res.Success {
		t.Fatal("create_program with 5 weeks should fail")
	}
	wantError(t, res.Results[0].Errors, "at most 4 weeks")
	if got := mustJSON(t, res.Program); got != before {
		t.Error("document changed on rejected create_program")
	}
}

// TestValidateCreateProgramSessionRequired verifies every week in a
// replacement must have at least one session.
func TestValidateCreateProgramSessionRequired(t *testing.T) {
	wantError(t, failOne(t, KindCreateProgram,
		`{"weeks":[{"phase":"volume","sessions":[]}]}`),
		"at least one session")
}

// TestValidateAddWeekRequiresWeeks verifies add_week needs a non-empty
// weeks list.
func TestValidateAddWeekRequiresWeeks(t *testing.T) {
	wantError(t, failOne(t, KindAddWeek,
		`{"position":"end","weeks":[]}`),
		"at least one week")
}

// TestValidateAddressErrorsNameMissingLevel verifies translation errors
// name the deepest level that failed to resolve.
func TestValidateAddressErrorsNameMissingLevel(t *testing.T) {
	wantError(t, failOne(t, KindModifyExercise,
		`{"week":3,"session":1,"exercise":1,"updates":{"reps":"6"}}`),
		"week not found at week 3")
	wantError(t, failOne(t, KindModifySession,
		`{"week":1,"session":4,"updates":{"notes":"x"}}`),
		"session not found at week 1, session 4")
	wantError(t, failOne(t, KindRemoveExercise,
		`{"week":1,"session":1,"exercise":3}`),
		"exercise not found at week 1, session 1, exercise 3")
}
