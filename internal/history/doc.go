// Package history keeps a SQLite journal of workflow runs: who ran
// what, in which workspace, how it ended, and whether results were
// delivered. Daemonized runs have no interactive caller, so this journal
// and the logs are the only record of what happened.
package history
