// Package errors provides structured error types for the console host.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the engine path and event kind involved plus a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseInline, errors.KindAssetRead).
//		Path("/home/user/report/app.js").
//		Event("browse-document").
//		Detail("asset %d of %d", 2, 3).
//		Cause(ioErr).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.ChannelClosed(exitErr)
//	err := errors.NotFound(errors.PhaseStorage, "/tmp/pager.txt")
//
// Only two classes are fatal for a session: channel closure and a failed console
// input read. IsFatal reports them; everything else is logged and dropped by the
// dispatch loop. All errors implement the standard error interface and support errors.Is/As.
package errors
