// Package errors provides structured error types for the placement controller.
//
// Errors are categorized by Phase (which part of the controller failed) and
// Kind (error category). The Error type carries the object id it concerns,
// a detail message and the platform cause.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseLoad, errors.KindAssetLoadFailed).
//		ID("chair").
//		Detail("fetch %s", path).
//		Cause(err).
//		Build()
//
// Or use convenience constructors for the common failures:
//
//	err := errors.AlreadyActive()
//	err := errors.AssetLoadFailed("chair", cause)
//
// All errors implement the standard error interface and support errors.Is/As.
// Two *Error values match under errors.Is when Phase and Kind are equal, so
// callers can test against the sentinel values:
//
//	if errors.Is(err, errors.ErrAssetLoadFailed) { ... }
package errors
