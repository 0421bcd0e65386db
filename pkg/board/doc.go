// Package board provides the Kanban domain types, the tree helpers used by
// local state, and the Redis-backed authoritative store.
//
// # Overview
//
// A board is a tree: one Board holds ordered Columns, each Column holds
// ordered Cards. Every node carries a Type discriminator and an Order that
// positions it among its siblings. Clients hold a copy of this tree and
// render it through Materialize, which drops malformed nodes and sorts each
// level by Order without touching the input.
//
// # Identities
//
// Server-assigned ids are UUIDs. Entities created optimistically on a client
// carry a temporary id produced by NewTempID until the server confirms them.
//
// # Multi-Instance Support
//
// All Redis keys and Pub/Sub channels are namespaced by instance name so
// several boards can share one Redis server without interference.
//
// # Redis Schema
//
// All Redis keys follow the pattern: kanban:{instance_name}:{entity}:{uuid}
//
// Board index: kanban:{instance_name}:boards
// Boards: kanban:{instance_name}:board:{board_id}
// Board columns: kanban:{instance_name}:board:{board_id}:columns
// Columns: kanban:{instance_name}:column:{column_id}
// Column cards: kanban:{instance_name}:column:{column_id}:cards
// Cards: kanban:{instance_name}:card:{card_id}
//
// Mutation events: kanban:{instance_name}:board_events
//
// # Usage Example
//
//	client, err := board.NewClient(&redis.Options{Addr: "localhost:6379"}, "default")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	b, err := client.CreateBoard(ctx, "My Kanban Board", board.EntityTypeBoard,
//		[]string{"To Do", "In Progress", "Done"})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	tree, _ := client.GetBoardTree(ctx, b.ID)
//	view := board.Materialize(tree)
package board
