package rooms

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/study-room/internal/apperrors"
	"github.com/thereayou/study-room/internal/messages"
	"github.com/thereayou/study-room/internal/models"
	"github.com/thereayou/study-room/internal/session"
)

const waitFor = 2 * time.Second
const pollEvery = 5 * time.Millisecond

func (f *fixture) newController(t *testing.T, sess session.Session, l Listener) *Controller {
	t.Helper()
	c := NewController(f.repo, f.stream, sess, f.clock, l)
	t.Cleanup(c.Close)
	return c
}

func TestController_LoadActiveRoom(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	room, err := f.repo.Create(ctx, "Algorithms", "", session.Anonymous)
	require.NoError(t, err)

	l := &recordingListener{}
	c := f.newController(t, session.Anonymous, l)
	require.NoError(t, c.LoadRoom(ctx, room.ID))

	assert.Equal(t, Active, c.State())
	assert.Equal(t, room.ID, c.Room().ID)
	assert.Equal(t, 4*time.Hour, c.TimeRemaining())
	assert.Equal(t, []ViewState{Loading, Active}, l.States())
}

func TestController_ExpiredRoomLooksMissing(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	room, err := f.repo.Create(ctx, "Algorithms", "", session.Anonymous)
	require.NoError(t, err)
	f.clock.Set(room.ExpiresAt.Add(time.Second))

	expired := f.newController(t, session.Anonymous, nil)
	errExpired := expired.LoadRoom(ctx, room.ID)

	missing := f.newController(t, session.Anonymous, nil)
	errMissing := missing.LoadRoom(ctx, uuid.New())

	assert.True(t, apperrors.IsNotFound(errExpired))
	assert.True(t, apperrors.IsNotFound(errMissing))
	assert.Equal(t, NotFound, expired.State())
	assert.Equal(t, missing.State(), expired.State())
	assert.Nil(t, expired.Room())
	assert.True(t, expired.State().Terminal())
}

func TestController_ExpiresWhileViewing(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	room, err := f.repo.Create(ctx, "Algorithms", "", session.Anonymous)
	require.NoError(t, err)
	f.clock.Set(room.ExpiresAt.Add(-2 * time.Second))

	l := &recordingListener{}
	c := f.newController(t, session.Anonymous, l)
	require.NoError(t, c.LoadRoom(ctx, room.ID))
	assert.Equal(t, 2*time.Second, c.TimeRemaining())

	f.clock.Add(time.Second)
	require.Eventually(t, func() bool { return c.TimeRemaining() == time.Second }, waitFor, pollEvery)
	assert.Equal(t, Active, c.State())

	f.clock.Add(time.Second)
	require.Eventually(t, func() bool { return c.State() == Expired }, waitFor, pollEvery)
	require.Eventually(t, func() bool { return l.Expired() == 1 }, waitFor, pollEvery)
	assert.Equal(t, time.Duration(0), c.TimeRemaining())

	// terminal: sending is refused, the redirect fires only once
	assert.True(t, apperrors.IsNotFound(c.SendMessage(ctx, "still here?")))
	f.clock.Add(3 * time.Second)
	assert.Equal(t, 1, l.Expired())
}

func TestController_MessageOrder(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	room, err := f.repo.Create(ctx, "Algorithms", "", session.Anonymous)
	require.NoError(t, err)

	alice := session.New(uuid.New(), "A")
	bob := session.New(uuid.New(), "B")

	l := &recordingListener{}
	viewer := f.newController(t, alice, l)
	require.NoError(t, viewer.LoadRoom(ctx, room.ID))
	require.NoError(t, viewer.SubscribeMessages(ctx, room.ID))

	other := f.newController(t, bob, nil)
	require.NoError(t, other.LoadRoom(ctx, room.ID))

	require.NoError(t, viewer.SendMessage(ctx, "hi"))
	require.NoError(t, other.SendMessage(ctx, "yo"))

	require.Eventually(t, func() bool { return len(l.LastSnapshot()) == 2 }, waitFor, pollEvery)

	final := l.LastSnapshot()
	assert.Equal(t, "hi", final[0].Text)
	assert.Equal(t, "A", final[0].Sender)
	assert.Equal(t, "yo", final[1].Text)
	assert.Equal(t, "B", final[1].Sender)
	assert.Equal(t, final, viewer.Messages())

	for _, snapshot := range l.Snapshots() {
		for i := 1; i < len(snapshot); i++ {
			assert.False(t, snapshot[i].Timestamp.Before(snapshot[i-1].Timestamp))
		}
	}
}

func TestController_BlankMessageIgnored(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	room, err := f.repo.Create(ctx, "Algorithms", "", session.Anonymous)
	require.NoError(t, err)

	c := f.newController(t, session.Anonymous, nil)
	require.NoError(t, c.LoadRoom(ctx, room.ID))

	for _, text := range []string{"", " ", "\n\t  "} {
		require.NoError(t, c.SendMessage(ctx, text))
	}

	msgs, err := f.stream.History(ctx, room.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestController_AnonymousSender(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	room, err := f.repo.Create(ctx, "Algorithms", "", session.Anonymous)
	require.NoError(t, err)

	c := f.newController(t, session.Anonymous, nil)
	require.NoError(t, c.LoadRoom(ctx, room.ID))
	require.NoError(t, c.SendMessage(ctx, "hello"))

	msgs, err := f.stream.History(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Anonymous", msgs[0].Sender)
	assert.Nil(t, msgs[0].SenderID)
}

func TestController_SendBeforeLoad(t *testing.T) {
	f := setupFixture(t)

	c := f.newController(t, session.Anonymous, nil)
	assert.ErrorIs(t, c.SendMessage(context.Background(), "hello"), ErrNotLoaded)
}

func TestController_JoinRoomTwice(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	room, err := f.repo.Create(ctx, "Algorithms", "", session.Anonymous)
	require.NoError(t, err)

	user := uuid.New()
	c := f.newController(t, session.New(user, "ada"), nil)
	require.NoError(t, c.LoadRoom(ctx, room.ID))

	require.NoError(t, c.JoinRoom(ctx, room.ID, user))
	require.NoError(t, c.JoinRoom(ctx, room.ID, user))
	assert.Equal(t, []string{user.String()}, c.Room().MemberIDs())

	stored, err := f.repo.Get(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{user.String()}, stored.MemberIDs())
}

func TestController_ConcurrentClientsJoin(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	room, err := f.repo.Create(ctx, "Algorithms", "", session.Anonymous)
	require.NoError(t, err)

	user := uuid.New()
	first := f.newController(t, session.New(user, "ada"), nil)
	second := f.newController(t, session.New(user, "ada"), nil)

	errs := make(chan error, 2)
	go func() { errs <- first.JoinRoom(ctx, room.ID, user) }()
	go func() { errs <- second.JoinRoom(ctx, room.ID, user) }()
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	stored, err := f.repo.Get(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{user.String()}, stored.MemberIDs())
}

func TestController_LeaveKeepsMembership(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	room, err := f.repo.Create(ctx, "Algorithms", "", session.Anonymous)
	require.NoError(t, err)

	user := uuid.New()
	c := f.newController(t, session.New(user, "ada"), nil)
	require.NoError(t, c.LoadRoom(ctx, room.ID))
	require.NoError(t, c.JoinRoom(ctx, room.ID, user))

	c.LeaveRoom()

	stored, err := f.repo.Get(ctx, room.ID)
	require.NoError(t, err)
	assert.True(t, stored.HasMember(user))
	assert.ErrorIs(t, c.SendMessage(ctx, "bye"), ErrClosed)
}

func TestController_CloseStopsCallbacks(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	room, err := f.repo.Create(ctx, "Algorithms", "", session.Anonymous)
	require.NoError(t, err)

	l := &recordingListener{}
	c := f.newController(t, session.Anonymous, l)
	require.NoError(t, c.LoadRoom(ctx, room.ID))
	require.NoError(t, c.SubscribeMessages(ctx, room.ID))
	require.Eventually(t, func() bool { return len(l.Snapshots()) == 1 }, waitFor, pollEvery)

	c.Close()
	c.Close()

	_, err = f.stream.Append(ctx, room.ID, "after close", session.Anonymous)
	require.NoError(t, err)
	f.clock.Set(room.ExpiresAt.Add(time.Minute))

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, l.Snapshots(), 1)
	assert.Equal(t, 0, l.Expired())
	assert.ErrorIs(t, c.LoadRoom(ctx, room.ID), ErrClosed)
}

type failingFeed struct{}

func (failingFeed) Subscribe(context.Context, uuid.UUID) (*messages.Subscription, error) {
	return nil, apperrors.Transient("subscribe to messages", errors.New("redis down"))
}

func (failingFeed) Append(context.Context, uuid.UUID, string, session.Session) (*models.Message, error) {
	return nil, apperrors.Transient("save message", errors.New("disk full"))
}

func TestController_TransientErrorsObservable(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	room, err := f.repo.Create(ctx, "Algorithms", "", session.Anonymous)
	require.NoError(t, err)

	l := &recordingListener{}
	c := NewController(f.repo, failingFeed{}, session.Anonymous, f.clock, l)
	defer c.Close()
	require.NoError(t, c.LoadRoom(ctx, room.ID))

	err = c.SendMessage(ctx, "hello")
	assert.True(t, apperrors.IsTransient(err))
	assert.True(t, apperrors.IsTransient(c.Err()))
	assert.Equal(t, Active, c.State())

	c.ClearError()
	assert.NoError(t, c.Err())

	assert.True(t, apperrors.IsTransient(c.SubscribeMessages(ctx, room.ID)))
	assert.True(t, apperrors.IsTransient(c.Err()))
	assert.Len(t, l.errs, 2)
}
