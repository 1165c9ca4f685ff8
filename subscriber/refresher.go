package subscriber

import (
	"context"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/Mr-Leon909/tsutsuji-app/events"
	models "github.com/Mr-Leon909/tsutsuji-app/model"
	natsClient "github.com/Mr-Leon909/tsutsuji-app/nats"
)

type Session interface {
	Current() *models.User
}

type Feed interface {
	LoadTimeline(ctx context.Context, viewerID *uuid.UUID) error
}

type Comments interface {
	CurrentPostID() *uuid.UUID
	LoadComments(ctx context.Context, postID uuid.UUID, viewerID *uuid.UUID) error
}

// Refresher reloads the local projections when another client announces a
// write. Events from this process are ignored.
type Refresher struct {
	natsClient *natsClient.Client
	source     string
	session    Session
	feed       Feed
	comments   Comments
	ctx        context.Context
	sub        *nats.Subscription
}

func NewRefresher(ctx context.Context, client *natsClient.Client, source string, session Session, feed Feed, comments Comments) *Refresher {
	return &Refresher{
		natsClient: client,
		source:     source,
		session:    session,
		feed:       feed,
		comments:   comments,
		ctx:        ctx,
	}
}

func (r *Refresher) Start() error {
	sub, err := r.natsClient.Subscribe(events.SubjectAll, r.handle)
	if err != nil {
		return err
	}
	r.sub = sub
	log.Println("Refresher subscribed to remote changes")
	return nil
}

func (r *Refresher) handle(msg *nats.Msg) {
	var env events.Envelope
	if err := natsClient.DecodeEvent(msg, &env); err != nil {
		log.Printf("Error decoding %s event: %v", msg.Subject, err)
		return
	}
	r.Apply(msg.Subject, env)
}

// Apply reloads whatever the event may have made stale.
func (r *Refresher) Apply(subject string, env events.Envelope) {
	if env.Source == r.source {
		return
	}
	user := r.session.Current()
	if user == nil {
		return
	}

	switch {
	case strings.HasPrefix(subject, "tsutsuji.post."):
		if err := r.feed.LoadTimeline(r.ctx, &user.ID); err != nil {
			log.Printf("Failed to refresh timeline after %s: %v", subject, err)
		}
	case strings.HasPrefix(subject, "tsutsuji.comment."):
		postID := r.comments.CurrentPostID()
		if postID == nil {
			return
		}
		if subject == events.SubjectCommentAdded && env.PostID != *postID {
			return
		}
		if err := r.comments.LoadComments(r.ctx, *postID, &user.ID); err != nil {
			log.Printf("Failed to refresh comments after %s: %v", subject, err)
		}
	}
}

func (r *Refresher) Stop() error {
	if r.sub != nil {
		return r.sub.Unsubscribe()
	}
	return nil
}
