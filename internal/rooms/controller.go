package rooms

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/thereayou/study-room/internal/apperrors"
	"github.com/thereayou/study-room/internal/messages"
	"github.com/thereayou/study-room/internal/models"
	"github.com/thereayou/study-room/internal/session"
)

const expiryCheckPeriod = time.Second

var (
	ErrClosed    = errors.New("room view is closed")
	ErrNotLoaded = errors.New("room is still loading")
)

// RoomStore is the part of the repository the controller needs.
type RoomStore interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Room, error)
	AddMember(ctx context.Context, roomID, userID uuid.UUID) error
}

// MessageFeed is the part of the message stream the controller needs.
type MessageFeed interface {
	Subscribe(ctx context.Context, roomID uuid.UUID) (*messages.Subscription, error)
	Append(ctx context.Context, roomID uuid.UUID, text string, sess session.Session) (*models.Message, error)
}

// Controller owns one client's view of one room: the room snapshot, its
// expiry countdown and the live message list.
type Controller struct {
	rooms    RoomStore
	feed     MessageFeed
	sess     session.Session
	clock    clock.Clock
	listener Listener

	mu        sync.Mutex
	state     ViewState
	room      *models.Room
	msgs      []models.Message
	remaining time.Duration
	err       error
	closed    bool

	expiryStop chan struct{}
	expiryDone chan struct{}
	sub        *messages.Subscription
	pumpDone   chan struct{}
}

func NewController(rooms RoomStore, feed MessageFeed, sess session.Session, clk clock.Clock, listener Listener) *Controller {
	if listener == nil {
		listener = NopListener{}
	}
	return &Controller{
		rooms:    rooms,
		feed:     feed,
		sess:     sess,
		clock:    clk,
		listener: listener,
		state:    Loading,
	}
}

// LoadRoom fetches the room and, when it is open, starts the one-second
// expiry countdown. A missing and an expired room both end in NotFound.
func (c *Controller) LoadRoom(ctx context.Context, roomID uuid.UUID) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.state = Loading
	c.mu.Unlock()
	c.haltExpiry()
	c.listener.StateChanged(Loading, nil)

	room, err := c.rooms.Get(ctx, roomID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			c.setTerminal(NotFound)
			return err
		}
		c.fail(err)
		return err
	}

	now := c.clock.Now()
	if room.ExpiredAt(now) {
		c.setTerminal(NotFound)
		return apperrors.NotFound("room " + roomID.String())
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.room = room
	c.state = Active
	c.remaining = room.ExpiresAt.Sub(now)
	remaining := c.remaining
	stop, done := make(chan struct{}), make(chan struct{})
	c.expiryStop, c.expiryDone = stop, done
	ticker := c.clock.Ticker(expiryCheckPeriod)
	c.mu.Unlock()

	go c.watchExpiry(room.ExpiresAt, ticker, stop, done)

	c.listener.StateChanged(Active, room)
	c.listener.TimeRemaining(remaining)
	return nil
}

// SubscribeMessages opens the live message feed for the room. Each snapshot
// replaces the in-memory list.
func (c *Controller) SubscribeMessages(ctx context.Context, roomID uuid.UUID) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.mu.Unlock()
	c.haltSubscription()

	sub, err := c.feed.Subscribe(ctx, roomID)
	if err != nil {
		c.fail(err)
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		sub.Close()
		return ErrClosed
	}
	done := make(chan struct{})
	c.sub, c.pumpDone = sub, done
	c.mu.Unlock()

	go c.pump(sub, done)
	return nil
}

// SendMessage appends text as the current session. Blank text is ignored.
func (c *Controller) SendMessage(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	c.mu.Lock()
	state, room, closed := c.state, c.room, c.closed
	c.mu.Unlock()

	switch {
	case closed:
		return ErrClosed
	case state.Terminal():
		return apperrors.NotFound("room")
	case state != Active:
		return ErrNotLoaded
	}

	if _, err := c.feed.Append(ctx, room.ID, text, c.sess); err != nil {
		c.fail(err)
		return err
	}
	return nil
}

// JoinRoom adds userID to the room's member set. Joining twice is a no-op.
func (c *Controller) JoinRoom(ctx context.Context, roomID, userID uuid.UUID) error {
	if err := c.rooms.AddMember(ctx, roomID, userID); err != nil {
		c.fail(err)
		return err
	}

	c.mu.Lock()
	if c.room != nil && c.room.ID == roomID && !c.room.HasMember(userID) {
		updated := *c.room
		updated.Members = append(append([]models.RoomMember{}, c.room.Members...),
			models.RoomMember{RoomID: roomID, UserID: userID, JoinedAt: c.clock.Now().UTC()})
		c.room = &updated
	}
	c.mu.Unlock()
	return nil
}

// LeaveRoom navigates away from the room. Membership is left unchanged.
func (c *Controller) LeaveRoom() {
	c.Close()
}

// Close cancels the expiry countdown and the message subscription. No
// listener callback runs after Close returns.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.haltExpiry()
	c.haltSubscription()
}

func (c *Controller) State() ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Room() *models.Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

func (c *Controller) Messages() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.msgs
}

func (c *Controller) TimeRemaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Err returns the last recoverable error, for an inline banner.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// ClearError dismisses the last error.
func (c *Controller) ClearError() {
	c.mu.Lock()
	c.err = nil
	c.mu.Unlock()
}

func (c *Controller) Session() session.Session {
	return c.sess
}

func (c *Controller) watchExpiry(expiresAt time.Time, ticker *clock.Ticker, stop, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		remaining := expiresAt.Sub(c.clock.Now())
		if remaining < 0 {
			remaining = 0
		}

		c.mu.Lock()
		if c.state != Active {
			c.mu.Unlock()
			return
		}
		c.remaining = remaining
		if remaining == 0 {
			c.state = Expired
		}
		c.mu.Unlock()

		if remaining > 0 {
			c.listener.TimeRemaining(remaining)
			continue
		}

		c.listener.TimeRemaining(0)
		c.listener.StateChanged(Expired, c.Room())
		c.listener.RoomExpired()
		return
	}
}

func (c *Controller) pump(sub *messages.Subscription, done chan struct{}) {
	defer close(done)

	for {
		select {
		case msgs, ok := <-sub.C():
			if !ok {
				c.mu.Lock()
				current := c.sub == sub
				c.mu.Unlock()
				if current {
					c.fail(apperrors.Transient("message feed", errors.New("subscription ended")))
				}
				return
			}
			c.mu.Lock()
			c.msgs = msgs
			c.mu.Unlock()
			c.listener.MessagesChanged(msgs)
		case err := <-sub.Errors():
			c.fail(err)
		}
	}
}

func (c *Controller) haltExpiry() {
	c.mu.Lock()
	stop, done := c.expiryStop, c.expiryDone
	c.expiryStop, c.expiryDone = nil, nil
	c.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}

func (c *Controller) haltSubscription() {
	c.mu.Lock()
	sub, done := c.sub, c.pumpDone
	c.sub, c.pumpDone = nil, nil
	c.mu.Unlock()

	if sub != nil {
		sub.Close()
		<-done
	}
}

func (c *Controller) setTerminal(state ViewState) {
	c.mu.Lock()
	c.state = state
	c.room = nil
	c.remaining = 0
	c.mu.Unlock()
	c.listener.StateChanged(state, nil)
}

func (c *Controller) fail(err error) {
	log.Printf("Room view error (user %s): %v", c.sess.UserID, err)
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
	c.listener.Error(err)
}
