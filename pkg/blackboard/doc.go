// Package blackboard provides the location-bound memory stores of the
// simulation.
//
// # Overview
//
// A blackboard is a small store pinned to a place in the world (a shop, a
// queue, a bench). It remembers what recently happened there as a list of
// entries. Actors walking past a board pick entries up through perception;
// the board itself never pushes anything.
//
// # Core Concepts
//
// Entries are immutable values. Once appended they are never edited, only
// pruned. Every entry carries the id of the event it was derived from so
// consumers can apply its effect at most once.
//
// Boards bound their memory two ways: a time-to-live that depends on the
// entry category (evidence and procedures outlive gossip and chatter) and a
// hard capacity that evicts the oldest entries first.
//
// The Registry is the explicit list of boards. Components resolve boards
// through it rather than by searching the scene.
//
// # Usage Example
//
//	store := blackboard.NewBoard("Store", event.Vec3{X: 10, Z: 4}, blackboard.Options{})
//	store.Add(blackboard.Entry{
//		Text:     "player cut the queue",
//		ActorID:  "player",
//		Topic:    "R_QUEUE",
//		Category: event.CategoryRule,
//		Severity: 2,
//	}, clk.Now())
//
//	for _, e := range store.Entries(clk.Now()) {
//		fmt.Println(e.Text)
//	}
//
// # Time
//
// Boards do not read a clock. Callers pass the current simulation time to
// Add and Entries, and pruning is evaluated against that value.
package blackboard
