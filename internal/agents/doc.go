// Package agents holds the domain conversation handlers.
//
// # Overview
//
// An Agent owns one program's conversational flow: it merges the turn's
// declared answers into the session, supplies the guard predicates the
// phase machine evaluates, and composes the ordered directive sequence
// the client renders for that turn.
//
// # Requirement Computation
//
// Required document sets come from explicit, total rule tables keyed by
// subtype and eligibility reason. The missing set is always
// required minus server-verified recognitions; what the citizen claims
// to have uploaded never counts.
//
// # Agents
//
//   - IdentityAgent: identity-card (CI) requests. Subtype VR forces the
//     CHANGE_ADDR eligibility reason and reports the override with a
//     toast. Subtype auto resolves through the eligibility tool.
//   - SocialAidAgent: social-aid (AS) applications, a three-step wizard
//     that books the counselor slot first.
//   - HubGovAgent: redirects hub-platform operations without touching
//     the local flow.
package agents
