// Package workspace manages the per-job directory tree that a workflow
// executes in: creation and validation of the fixed directory set, the
// JSON descriptor the workflow reads its configuration from, and the
// advisory lock that keeps two runs off the same workspace.
//
// The directory names are a stable contract with external workflow
// programs; nothing outside this package builds workspace paths by hand.
package workspace
