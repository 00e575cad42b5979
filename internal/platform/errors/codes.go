// Package errors provides structured error handling with machine-readable codes.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Rotation errors
	CodeNoGeneratorsAvailable Code = "NO_GENERATORS_AVAILABLE"
	CodeUnknownCategory       Code = "UNKNOWN_CATEGORY"

	// Puzzle lifecycle errors
	CodePuzzleAlreadyExists          Code = "PUZZLE_ALREADY_EXISTS"
	CodePuzzleInvalidStateTransition Code = "PUZZLE_INVALID_STATE_TRANSITION"
	CodeGenerationInFlight           Code = "GENERATION_IN_FLIGHT"
	CodeGenerationFailed             Code = "GENERATION_FAILED"

	// Evaluation errors
	CodeEvaluationNotClosed Code = "EVALUATION_NOT_CLOSED"

	// Difficulty errors
	CodeDifficultyOutOfRange Code = "DIFFICULTY_OUT_OF_RANGE"

	// Roster errors
	CodeRosterEmpty        Code = "ROSTER_EMPTY"
	CodeRosterInvalidEntry Code = "ROSTER_INVALID_ENTRY"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)
