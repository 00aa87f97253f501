// Package storage implements the engine's private file namespace.
//
// A Dir is a host directory mounted as the guest's root. Paths are the
// guest's view: slash-separated and rooted at "/". Every path is resolved
// against the host directory and rejected if it escapes it, so a guest
// path like "/../../etc/passwd" never reaches the host filesystem.
package storage
