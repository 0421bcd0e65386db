package board

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// EventKind describes what happened to the entity named by a BoardEvent.
type EventKind string

const (
	// EventCreated is published after an entity is first written
	EventCreated EventKind = "created"

	// EventUpdated is published after an entity's fields change
	EventUpdated EventKind = "updated"

	// EventDeleted is published after an entity (and anything it contains) is removed
	EventDeleted EventKind = "deleted"

	// EventMoved is published after a card or column changes position
	EventMoved EventKind = "moved"

	// EventReordered is published after a bulk order repair
	EventReordered EventKind = "reordered"
)

// BoardEvent is the payload published on BoardEventsChannel after every mutation.
type BoardEvent struct {
	Kind        EventKind  `json:"kind"`
	EntityType  EntityType `json:"entity_type"`
	EntityID    string     `json:"entity_id"`
	BoardID     string     `json:"board_id,omitempty"`
	TimestampMs int64      `json:"timestamp_ms"`
}

// Subscription represents an active Pub/Sub subscription to board events.
// Caller must call Close() when done to clean up resources.
type Subscription struct {
	events <-chan *BoardEvent
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of board events.
// The channel is closed when the subscription is closed or the context is cancelled.
func (s *Subscription) Events() <-chan *BoardEvent {
	return s.events
}

// Errors returns the channel of non-fatal subscription errors such as
// undecodable payloads. The subscription keeps running after an error.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription. Implements io.Closer and is safe to call twice.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeBoardEvents subscribes to mutation events for this instance.
// It returns once Redis has confirmed the subscription, so events published
// after the call returns are not missed.
func (c *Client) SubscribeBoardEvents(ctx context.Context) (*Subscription, error) {
	pubsub := c.rdb.Subscribe(ctx, BoardEventsChannel(c.instanceName))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to board events: %w", err)
	}

	eventsChan := make(chan *BoardEvent, 10)
	errorsChan := make(chan error, 10)
	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var event BoardEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal board event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &event:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

func (c *Client) publish(ctx context.Context, kind EventKind, entityType EntityType, entityID, boardID string) error {
	payload, err := json.Marshal(&BoardEvent{
		Kind:        kind,
		EntityType:  entityType,
		EntityID:    entityID,
		BoardID:     boardID,
		TimestampMs: c.now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal board event: %w", err)
	}

	if err := c.rdb.Publish(ctx, BoardEventsChannel(c.instanceName), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish board event: %w", err)
	}
	return nil
}
