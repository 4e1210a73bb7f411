package core

// AgentDescriptor is the static identity of a participant: who it is, how it
// should behave, and which tools it may call. Configured before session start
// and immutable during the session.
type AgentDescriptor struct {
	ID               AgentID  `json:"id"`
	RoleInstructions string   `json:"role_instructions"`
	Capabilities     []string `json:"capabilities,omitempty"`
}
