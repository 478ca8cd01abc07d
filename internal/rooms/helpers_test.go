package rooms

import (
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/benbjohnson/clock"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/study-room/internal/database"
	"github.com/thereayou/study-room/internal/messages"
	"github.com/thereayou/study-room/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm/logger"
)

var testEpoch = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

type fixture struct {
	db     *database.Database
	clock  *clock.Mock
	repo   *Repository
	stream *messages.Stream
}

// setupFixture wires an in-memory SQLite database, a miniredis broker and a
// mock clock.
func setupFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.Open(sqlite.Open(":memory:"), logger.Default.LogMode(logger.Silent))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	mock := clock.NewMock()
	mock.Set(testEpoch)

	return &fixture{
		db:     db,
		clock:  mock,
		repo:   NewRepository(db, mock),
		stream: messages.NewStream(db, messages.NewRedisBroker(rdb), mock),
	}
}

type recordingListener struct {
	mu        sync.Mutex
	states    []ViewState
	remaining []time.Duration
	snapshots [][]models.Message
	expired   int
	errs      []error
}

func (l *recordingListener) StateChanged(s ViewState, _ *models.Room) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states = append(l.states, s)
}

func (l *recordingListener) TimeRemaining(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.remaining = append(l.remaining, d)
}

func (l *recordingListener) MessagesChanged(msgs []models.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snapshots = append(l.snapshots, msgs)
}

func (l *recordingListener) RoomExpired() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.expired++
}

func (l *recordingListener) Error(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, err)
}

func (l *recordingListener) Snapshots() [][]models.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([][]models.Message(nil), l.snapshots...)
}

func (l *recordingListener) LastSnapshot() []models.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.snapshots) == 0 {
		return nil
	}
	return l.snapshots[len(l.snapshots)-1]
}

func (l *recordingListener) Expired() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.expired
}

func (l *recordingListener) States() []ViewState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ViewState(nil), l.states...)
}
