// Package pipeline binds the workspace, fetch, supervision, delivery,
// and journal components into the prepare, run, and commit operations
// the command line exposes. Each operation is a separate invocation over
// a shared workspace directory, so every operation revalidates the tree
// it is handed instead of trusting earlier invocations.
package pipeline
