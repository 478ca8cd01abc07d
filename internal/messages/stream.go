package messages

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/thereayou/study-room/internal/apperrors"
	"github.com/thereayou/study-room/internal/models"
	"github.com/thereayou/study-room/internal/session"
)

// Store is the storage collaborator for chat messages.
type Store interface {
	SaveMessage(ctx context.Context, message *models.Message) error
	GetRoomMessages(ctx context.Context, roomID uuid.UUID) ([]models.Message, error)
}

// Stream is the append-only, ordered chat log of each room together with a
// live feed of full snapshots.
type Stream struct {
	store  Store
	broker Broker
	clock  clock.Clock
}

func NewStream(store Store, broker Broker, clk clock.Clock) *Stream {
	return &Stream{store: store, broker: broker, clock: clk}
}

// Append stores a new message sent by sess and notifies subscribers.
func (s *Stream) Append(ctx context.Context, roomID uuid.UUID, text string, sess session.Session) (*models.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.Validation("message text is required")
	}

	msg := &models.Message{
		RoomID:    roomID,
		Text:      text,
		Sender:    sess.SenderName(),
		Timestamp: s.clock.Now().UTC(),
	}
	if !sess.IsAnonymous() {
		id := sess.UserID
		msg.SenderID = &id
	}

	if err := s.store.SaveMessage(ctx, msg); err != nil {
		return nil, apperrors.Transient("save message", err)
	}

	// The write is durable; subscribers pick it up on the next notification.
	if err := s.broker.Publish(ctx, roomID); err != nil {
		log.Printf("Failed to publish message notification for room %s: %v", roomID, err)
	}

	return msg, nil
}

// History returns every message of the room in ascending order.
func (s *Stream) History(ctx context.Context, roomID uuid.UUID) ([]models.Message, error) {
	msgs, err := s.store.GetRoomMessages(ctx, roomID)
	if err != nil {
		return nil, apperrors.Transient("load messages", err)
	}
	return msgs, nil
}

// Subscribe opens a live feed for the room. The first value on C is the
// current snapshot; each later value is the complete ordered list after a
// change. Only the newest undelivered snapshot is kept for a slow reader.
func (s *Stream) Subscribe(ctx context.Context, roomID uuid.UUID) (*Subscription, error) {
	// subscribe before the first read so no append falls between the two
	notes, err := s.broker.Subscribe(ctx, roomID)
	if err != nil {
		return nil, apperrors.Transient("subscribe to messages", err)
	}

	initial, err := s.History(ctx, roomID)
	if err != nil {
		notes.Close()
		return nil, err
	}

	sub := &Subscription{
		c:     make(chan []models.Message, 1),
		errs:  make(chan error, 1),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
		notes: notes,
	}
	sub.c <- initial

	go sub.run(s, roomID)
	return sub, nil
}

// Subscription is one live feed opened by Stream.Subscribe.
type Subscription struct {
	c     chan []models.Message
	errs  chan error
	stop  chan struct{}
	done  chan struct{}
	notes Notifications
	once  sync.Once
}

// C delivers full ordered snapshots. It is closed after Close.
func (sub *Subscription) C() <-chan []models.Message { return sub.c }

// Errors reports re-read failures. The feed stays open after an error.
func (sub *Subscription) Errors() <-chan error { return sub.errs }

// Close ends the feed and waits for its goroutine to exit.
func (sub *Subscription) Close() {
	sub.once.Do(func() {
		close(sub.stop)
		sub.notes.Close()
		<-sub.done
	})
}

func (sub *Subscription) run(s *Stream, roomID uuid.UUID) {
	defer close(sub.done)
	defer close(sub.c)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-sub.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		select {
		case <-sub.stop:
			return
		case _, ok := <-sub.notes.C():
			if !ok {
				return
			}
			msgs, err := s.History(ctx, roomID)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				replaceLatest(sub.errs, err)
				continue
			}
			replaceLatest(sub.c, msgs)
		}
	}
}

// replaceLatest puts v into a one-slot channel, dropping a value nobody has
// read yet.
func replaceLatest[T any](c chan T, v T) {
	for {
		select {
		case c <- v:
			return
		default:
		}
		select {
		case <-c:
		default:
		}
	}
}
