// ABOUTME: Package doc for gateway
// ABOUTME: Describes the HTTP surface shared by citizens and operators

// Package gateway exposes the orchestrator over HTTP.
//
// The citizen API is conversational: POST /api/chat routes each message to
// an agent and returns a reply plus an ordered list of UI directives. The
// supporting endpoints (slots, schedule, uploads, cases) mutate the same
// session state through the session manager, so a chat turn and a direct
// API call can never race each other.
//
// The operator API sits behind bearer-token auth issued by
// /api/operator/login. Operators review cases either through structured
// endpoints or through the chat-style /api/operator/command grammar.
//
// Every error leaving this package is translated to a stable
// {"error":{"code","message"}} envelope by writeError.
package gateway
