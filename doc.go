// Package funnel models a quiz funnel as a graph of stages.
//
// Stages are edited through a StageStore. Everything derived from them is
// recomputed from a snapshot on demand:
//
//   - ExtractBranchPoints lists the options and buttons able to redirect
//   - Resolve maps every (stage, branch point) to its next stage
//   - Validate reports dangling, unreachable and inconsistent parts
//   - Aggregate replays session traces over the same graph for analytics
//
// The editor and the analytics view both go through Resolve, so they can
// never disagree on what "next stage" means.
package funnel
