package publisher

import (
	"encoding/json"
	"log"

	"github.com/Mr-Leon909/tsutsuji-app/events"
	natsClient "github.com/Mr-Leon909/tsutsuji-app/nats"
)

// EventPublisher announces completed writes. With a nil client every
// Publish call is a no-op.
type EventPublisher struct {
	nats   *natsClient.Client
	source string
}

func NewEventPublisher(nats *natsClient.Client, source string) *EventPublisher {
	return &EventPublisher{nats: nats, source: source}
}

func (p *EventPublisher) Source() string {
	if p == nil {
		return ""
	}
	return p.source
}

func (p *EventPublisher) publish(subject string, event interface{}) error {
	if p == nil || p.nats == nil {
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := p.nats.Publish(subject, data); err != nil {
		return err
	}

	log.Printf("Published event: %s", subject)
	return nil
}

func (p *EventPublisher) PublishPostCreated(event events.PostCreatedEvent) error {
	event.Source = p.Source()
	return p.publish(events.SubjectPostCreated, event)
}

func (p *EventPublisher) PublishPostLiked(event events.PostLikeEvent) error {
	event.Source = p.Source()
	return p.publish(events.SubjectPostLiked, event)
}

func (p *EventPublisher) PublishPostUnliked(event events.PostLikeEvent) error {
	event.Source = p.Source()
	return p.publish(events.SubjectPostUnliked, event)
}

func (p *EventPublisher) PublishCommentAdded(event events.CommentAddedEvent) error {
	event.Source = p.Source()
	return p.publish(events.SubjectCommentAdded, event)
}

func (p *EventPublisher) PublishCommentLiked(event events.CommentLikeEvent) error {
	event.Source = p.Source()
	return p.publish(events.SubjectCommentLiked, event)
}

func (p *EventPublisher) PublishCommentUnliked(event events.CommentLikeEvent) error {
	event.Source = p.Source()
	return p.publish(events.SubjectCommentUnliked, event)
}
