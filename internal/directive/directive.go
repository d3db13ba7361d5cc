// ABOUTME: Closed set of UI directives the orchestrator sends back to the frontend.
// ABOUTME: Each chat turn returns an ordered sequence; the set is exhaustive at the JSON boundary.

package directive

import (
	"encoding/json"
	"fmt"
)

// Toast severity levels understood by the frontend.
const (
	LevelInfo  = "info"
	LevelOK    = "ok"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Directive is one UI instruction produced during a chat turn. The variant set
// is closed: Toast, Navigate, FocusField, OpenSection, HighlightMissingDocs,
// AutofillApply and HubGovAction. Directives are consumed once per turn, they
// are not a retained queue.
type Directive interface {
	// Kind returns the wire discriminator for the variant.
	Kind() string
}

// Toast shows a transient notification.
type Toast struct {
	Level   string `json:"level"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Navigate asks the frontend to move to a different page.
type Navigate struct {
	URL string `json:"url"`
}

// FocusField moves input focus to a form field.
type FocusField struct {
	FieldID string `json:"field_id"`
}

// OpenSection expands a collapsed page section.
type OpenSection struct {
	SectionID string `json:"section_id"`
}

// HighlightMissingDocs marks the document kinds the user still has to upload.
type HighlightMissingDocs struct {
	Kinds []string `json:"kinds"`
}

// AutofillApply fills form fields with OCR-extracted values the user accepted.
type AutofillApply struct {
	Fields map[string]string `json:"fields"`
}

// HubGovAction forwards a hub-side action request to the frontend widget.
type HubGovAction struct {
	Action string `json:"action"`
}

func (Toast) Kind() string                { return "toast" }
func (Navigate) Kind() string             { return "navigate" }
func (FocusField) Kind() string           { return "focus_field" }
func (OpenSection) Kind() string          { return "open_section" }
func (HighlightMissingDocs) Kind() string { return "highlight_missing_docs" }
func (AutofillApply) Kind() string        { return "autofill_apply" }
func (HubGovAction) Kind() string         { return "hubgov_action" }

// envelope is the wire form: {"type": ..., "payload": {...}}.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Marshal encodes a directive into its wire envelope.
func Marshal(d Directive) ([]byte, error) {
	payload, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", d.Kind(), err)
	}
	return json.Marshal(envelope{Type: d.Kind(), Payload: payload})
}

// Unmarshal decodes a wire envelope back into its concrete variant. An
// unknown type is an error, never silently dropped.
func Unmarshal(data []byte) (Directive, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding directive envelope: %w", err)
	}

	var d Directive
	switch env.Type {
	case "toast":
		d = &Toast{}
	case "navigate":
		d = &Navigate{}
	case "focus_field":
		d = &FocusField{}
	case "open_section":
		d = &OpenSection{}
	case "highlight_missing_docs":
		d = &HighlightMissingDocs{}
	case "autofill_apply":
		d = &AutofillApply{}
	case "hubgov_action":
		d = &HubGovAction{}
	default:
		return nil, fmt.Errorf("unknown directive type %q", env.Type)
	}

	if err := json.Unmarshal(env.Payload, d); err != nil {
		return nil, fmt.Errorf("decoding %s payload: %w", env.Type, err)
	}
	return deref(d), nil
}

// deref returns the value form so Unmarshal output compares equal to what
// builders produce.
func deref(d Directive) Directive {
	switch v := d.(type) {
	case *Toast:
		return *v
	case *Navigate:
		return *v
	case *FocusField:
		return *v
	case *OpenSection:
		return *v
	case *HighlightMissingDocs:
		return *v
	case *AutofillApply:
		return *v
	case *HubGovAction:
		return *v
	}
	return d
}

// MarshalSequence encodes an ordered directive sequence for a chat response.
func MarshalSequence(ds []Directive) ([]byte, error) {
	out := make([]json.RawMessage, 0, len(ds))
	for _, d := range ds {
		raw, err := Marshal(d)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return json.Marshal(out)
}

// ToastInfo builds an informational toast.
func ToastInfo(title, message string) Toast {
	return Toast{Level: LevelInfo, Title: title, Message: message}
}

// ToastOK builds a success toast.
func ToastOK(title, message string) Toast {
	return Toast{Level: LevelOK, Title: title, Message: message}
}

// ToastWarn builds a warning toast.
func ToastWarn(title, message string) Toast {
	return Toast{Level: LevelWarn, Title: title, Message: message}
}

// ToastError builds an error toast.
func ToastError(title, message string) Toast {
	return Toast{Level: LevelError, Title: title, Message: message}
}
