// Package core defines the shared data model of a roundtable session: the
// immutable Message record, tool invocation outcomes, participant
// descriptors, the session state machine and its final outcome. All other
// packages depend on core; core depends on nothing but the standard library
// and uuid.
package core
