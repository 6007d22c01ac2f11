// Package runner orchestrates lane-partitioned parallel runs of work units.
//
// The main components are:
//   - Plan: the externally computed assignment of work units to lanes
//   - Orchestrator: builds one lane per group, runs every unit on its lane worker against
//     an event recorder and replays each unit's events into the real sink under a merge lock
//   - RunResult: per-unit and per-lane outcomes of one run
//
// Units on the same lane run sequentially in plan order; lanes run concurrently. The merged
// report stream keeps every unit's own event order and never interleaves two units.
package runner
