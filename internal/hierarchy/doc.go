// Package hierarchy resolves the visibility scope of a principal over the
// management graph.
//
// Visibility is graph-shaped: a manager sees their reports, the teams of
// manager-role users reachable through report edges, and the employees in
// those teams. The resolver recomputes the closure on every call rather than
// caching it, so org-structure changes are visible immediately.
package hierarchy
