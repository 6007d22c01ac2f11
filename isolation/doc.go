// Package isolation provides lane-scoped binding environments.
//
// A root Context holds bindings shared by every lane. Each lane owns one child Context
// that resolves names matching a configured prefix to its own fresh bindings and
// delegates every other name to the root. The tree is fixed at two levels.
package isolation
