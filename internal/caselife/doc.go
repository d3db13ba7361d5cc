// ABOUTME: Package doc for caselife
// ABOUTME: Describes case creation and the status lifecycle

// Package caselife owns the formal record of an application after
// submission: idempotent case creation per session, the per-program
// status transition tables, and the review task opened for operators
// when a case enters DOC_REVIEW. Every change is written to the audit
// trail.
package caselife
