// Package crew coordinates the manager agent and its specialist agents.
//
// The manager answers member questions by delegating to exactly one layer
// of specialists. Invariants:
//   - the manager's only tool is delegate_to_specialist
//   - specialists run with a tool allowlist and cannot delegate further
//   - member identity travels in the execution context, never in a global
package crew
