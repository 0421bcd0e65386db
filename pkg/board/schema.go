package board

import "fmt"

// Redis key pattern helpers
//
// All Redis keys and Pub/Sub channels are namespaced by instance name so that
// several boards-of-record can share one Redis server.
//
// Key pattern: kanban:{instance_name}:{entity}:{uuid}
// Channel pattern: kanban:{instance_name}:{event_type}_events

// BoardsKey returns the Redis key of the set holding every board ID.
// Pattern: kanban:{instance_name}:boards
func BoardsKey(instanceName string) string {
	return fmt.Sprintf("kanban:%s:boards", instanceName)
}

// BoardKey returns the Redis key for a board hash.
// Pattern: kanban:{instance_name}:board:{board_id}
func BoardKey(instanceName, boardID string) string {
	return fmt.Sprintf("kanban:%s:board:%s", instanceName, boardID)
}

// BoardColumnsKey returns the Redis key of the set of column IDs owned by a board.
// Pattern: kanban:{instance_name}:board:{board_id}:columns
func BoardColumnsKey(instanceName, boardID string) string {
	return fmt.Sprintf("kanban:%s:board:%s:columns", instanceName, boardID)
}

// ColumnKey returns the Redis key for a column hash.
// Pattern: kanban:{instance_name}:column:{column_id}
func ColumnKey(instanceName, columnID string) string {
	return fmt.Sprintf("kanban:%s:column:%s", instanceName, columnID)
}

// ColumnCardsKey returns the Redis key of the set of card IDs owned by a column.
// Pattern: kanban:{instance_name}:column:{column_id}:cards
func ColumnCardsKey(instanceName, columnID string) string {
	return fmt.Sprintf("kanban:%s:column:%s:cards", instanceName, columnID)
}

// CardKey returns the Redis key for a card hash.
// Pattern: kanban:{instance_name}:card:{card_id}
func CardKey(instanceName, cardID string) string {
	return fmt.Sprintf("kanban:%s:card:%s", instanceName, cardID)
}

// BoardEventsChannel returns the Pub/Sub channel carrying board mutation events.
// Pattern: kanban:{instance_name}:board_events
func BoardEventsChannel(instanceName string) string {
	return fmt.Sprintf("kanban:%s:board_events", instanceName)
}

// RevisionKey returns the Redis key of the instance's revision counter. Every
// mutation increments it in the same transaction as its writes.
// Pattern: kanban:{instance_name}:revision
func RevisionKey(instanceName string) string {
	return fmt.Sprintf("kanban:%s:revision", instanceName)
}
