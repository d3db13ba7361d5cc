// ABOUTME: Sticky intent router that decides which agent handles a chat turn.
// ABOUTME: Pure function of (text, current agent); never mutates session state.

package intent

import "strings"

// MinConfidence is the classifier score below which the router keeps the
// session's previously active agent instead of switching.
const MinConfidence = 0.55

// Control markers injected by the UI. They are workflow signals, not user
// language, so they bypass classification entirely.
const (
	MarkerUpload     = "__upload__"
	MarkerPing       = "__ping__"
	MarkerPhase1Done = "__phase1_done__"
	MarkerPhase2Done = "__phase2_done__"
)

// Decision is the routing outcome for one turn.
type Decision struct {
	Target     Intent
	Confidence float64
	// Sticky is true when the router kept the current agent on low confidence.
	Sticky bool
}

// Router picks the target agent for each incoming message.
type Router struct {
	classifier Classifier
}

// NewRouter creates a router over the given classifier capability.
func NewRouter(c Classifier) *Router {
	return &Router{classifier: c}
}

// Route decides the target agent for text given the session's currently
// active agent. It is pure: identical inputs always produce the identical
// decision, which keeps routing stable across client retries.
func (r *Router) Route(text string, current Intent) Decision {
	switch normalize(text) {
	case MarkerUpload, MarkerPing:
		return Decision{Target: DocumentIntake, Confidence: 1}
	case MarkerPhase1Done, MarkerPhase2Done:
		// Phase markers re-run the active wizard so it can re-check its gates.
		if current != "" && current != Unknown {
			return Decision{Target: current, Confidence: 1}
		}
		return Decision{Target: Unknown, Confidence: 1}
	}

	target, conf := r.classifier.Classify(text)
	if conf < MinConfidence || target == Unknown {
		if current != "" && current != Unknown {
			return Decision{Target: current, Confidence: conf, Sticky: true}
		}
		return Decision{Target: Unknown, Confidence: conf}
	}
	return Decision{Target: target, Confidence: conf}
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
