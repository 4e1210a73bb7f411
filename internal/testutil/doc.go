// Package testutil provides fluent helpers for constructing messages and
// populated transcripts in tests. It is internal: production code must not
// depend on fixture builders.
package testutil
