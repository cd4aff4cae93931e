// Package policy holds the defect workflow state machine and the permission
// matrix for every gated mutation.
//
// Both are immutable decision tables injected at construction time, never
// ambient globals: tests and deployments can substitute alternate tables
// (see Load) without process-wide side effects. Every rule is a total
// function of its inputs — resource lookups happen before the tables are
// consulted, which keeps the whole package exhaustively table-testable.
//
// One canonical table set serves every layer. Historical deployments that
// duplicated these rules at the route layer drifted from the service layer;
// the stricter service-layer variant is the one encoded here.
package policy
