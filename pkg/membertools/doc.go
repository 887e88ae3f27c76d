// Package membertools registers the member center's agent tools: profile and
// benefit lookups, premium math, eligibility checks, and form assistance.
//
// Invariants:
// - Tools resolve the requesting member from the execution context only.
// - Tools that need a logged-in member answer with a login prompt, not an error.
// - Premium and eligibility math never touches the LLM.
package membertools
