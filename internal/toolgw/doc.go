// Package toolgw is the uniform client boundary to the external tool
// services: OCR document recognition, eligibility checking, and outbound
// notifications.
//
// # Retry Policy
//
// Idempotent reads (RecognizedDocs, CheckEligibility) are retried a
// bounded number of times with linear backoff. Writes (Notify) are
// attempted exactly once; a duplicate email is worse than a missing one
// the caller can report.
//
// All failures surface as ErrExternalService so the API layer can map
// them to a single stable error code.
package toolgw
