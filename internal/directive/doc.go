// ABOUTME: Package doc for directive
// ABOUTME: Describes the UI directive vocabulary and its JSON codec

// Package directive defines the closed set of UI instructions an agent
// can return with a chat reply: navigation, focus, section opening,
// toasts, document highlighting, autofill application, and hub actions.
// Directives serialize to {"type", ...} JSON objects; unknown types are
// rejected on decode so the frontend contract stays closed.
package directive
