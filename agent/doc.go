// Package agent implements the per-turn reasoning cycle: build a model
// request from role instructions, shared history and the tool catalog, let
// the model respond, resolve any requested tool calls through the agent's
// capability clients, feed the results back, and repeat until the model
// settles on a final message or the iteration cap is reached.
//
// Tool failures are contained within the turn and surfaced in the returned
// message; only reasoning-engine unavailability (after retries) and
// cancellation make a turn fail.
package agent
