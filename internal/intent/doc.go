// ABOUTME: Package doc for intent
// ABOUTME: Describes message classification and sticky routing

// Package intent decides which agent handles a chat turn. A Classifier
// scores free text against known intents; the Router applies a
// confidence threshold and keeps the session's active agent when the
// score is too low, so a vague follow-up never bounces the citizen to
// a different flow mid-conversation.
package intent
