// Package model defines the reasoning-engine boundary: a normalized
// request/response contract that providers (OpenAI, Anthropic, mocks) adapt
// to their vendor SDKs. Agents depend only on the Model interface so the
// turn-cycle logic stays provider agnostic.
package model
