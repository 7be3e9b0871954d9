// Package services defines the error taxonomy shared by the pipeline
// components and the thin wrappers around external tools (git, sudo,
// setfacl, archiving).
//
// Key responsibilities:
//   - Structured error markers plus the Wrap helper so every failure can
//     be classified (validation, precondition, ownership, process, io)
//     without string matching.
//   - Narrow collaborator interfaces for the external binaries the
//     pipeline shells out to, each with a command seam so tests can run
//     without the real tool installed.
//
// Use these helpers when wiring new pipeline logic so error handling and
// observability stay uniform across components.
package services
