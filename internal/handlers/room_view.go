package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/thereayou/study-room/internal/apperrors"
	"github.com/thereayou/study-room/internal/handlers/dto"
	"github.com/thereayou/study-room/internal/models"
	"github.com/thereayou/study-room/internal/rooms"
	"github.com/thereayou/study-room/internal/session"
	"github.com/thereayou/study-room/internal/timer"
	ws "github.com/thereayou/study-room/internal/websocket"
)

// roomView is one open study-room page: the controller, the pomodoro timer
// and presence for a single websocket. It is both the controller's listener
// and the client's intent handler.
type roomView struct {
	roomID     uuid.UUID
	client     *ws.Client
	hub        *ws.Hub
	provider   *session.Provider
	clock      clock.Clock
	controller *rooms.Controller
	timer      *timer.Engine

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	unsubscribe func()
	left        bool

	// teardown started from controller callbacks
	pending sync.WaitGroup
}

func newRoomView(roomID uuid.UUID, client *ws.Client, hub *ws.Hub, provider *session.Provider, clk clock.Clock, pomodoro time.Duration) *roomView {
	ctx, cancel := context.WithCancel(context.Background())
	v := &roomView{
		roomID:   roomID,
		client:   client,
		hub:      hub,
		provider: provider,
		clock:    clk,
		ctx:      ctx,
		cancel:   cancel,
	}
	v.timer = timer.New(clk, timer.WithDuration(pomodoro), timer.WithOnChange(v.timerChanged))
	return v
}

func (v *roomView) open() {
	unsubscribe := v.provider.OnSessionChange(v.sessionChanged)
	v.mu.Lock()
	v.unsubscribe = unsubscribe
	v.mu.Unlock()

	if err := v.controller.LoadRoom(v.ctx, v.roomID); err != nil {
		// already reported through the listener
		return
	}

	v.mu.Lock()
	if !v.left {
		v.hub.JoinRoom(v.client, v.roomID)
	}
	v.mu.Unlock()
	v.timerChanged(v.timer.State())
	if err := v.controller.SubscribeMessages(v.ctx, v.roomID); err != nil {
		log.Printf("Room %s: subscribe failed: %v", v.roomID, err)
	}
}

// close tears the view down synchronously.
func (v *roomView) close() {
	v.mu.Lock()
	unsubscribe := v.unsubscribe
	v.unsubscribe = nil
	v.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}

	// no RoomExpired can start another teardown once the controller is closed
	v.controller.Close()
	v.pending.Wait()
	v.timer.Close()
	v.cancel()
}

// leave navigates away without ending the connection.
func (v *roomView) leave() {
	v.mu.Lock()
	if v.left {
		v.mu.Unlock()
		return
	}
	v.left = true
	v.mu.Unlock()

	v.controller.LeaveRoom()
	v.timer.Close()
	v.hub.LeaveRoom(v.client, v.roomID)
}

func (v *roomView) HandleMessage(_ *ws.Client, msg *ws.Message) error {
	switch msg.Type {
	case ws.TypeMessageSend:
		var payload dto.MessagePayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return ws.ErrInvalidMessage
		}
		return v.sendMessage(payload.Text)

	case ws.TypeTimerStart:
		v.timer.Start()
	case ws.TypeTimerPause:
		v.timer.Pause()
	case ws.TypeTimerReset:
		v.timer.Reset()

	case ws.TypeRoomLeave:
		v.leave()
		v.send(ws.TypeRoomLeave, dto.RedirectPayload{Redirect: "/"})

	case ws.TypeErrorDismiss:
		v.controller.ClearError()

	case ws.TypeSignOut:
		return v.provider.SignOut(v.ctx)

	default:
		return ws.ErrUnknownType
	}
	return nil
}

// sendMessage hides failures the controller already reported.
func (v *roomView) sendMessage(text string) error {
	err := v.controller.SendMessage(v.ctx, text)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rooms.ErrClosed), errors.Is(err, rooms.ErrNotLoaded), apperrors.IsNotFound(err):
		return err
	default:
		return nil
	}
}

func (v *roomView) sessionChanged(s session.Session) {
	payload := dto.SessionPayload{
		UserID:      s.UserID,
		DisplayName: s.SenderName(),
		Anonymous:   s.IsAnonymous(),
	}
	if s.IsAnonymous() {
		payload.Redirect = "/login"
		v.leave()
	}
	v.send(ws.TypeSession, payload)
}

func (v *roomView) timerChanged(st timer.State) {
	v.send(ws.TypeTimer, dto.TimerPayload{
		Remaining: st.Remaining,
		Running:   st.Running,
		Display:   st.Format(),
	})
}

func (v *roomView) StateChanged(state rooms.ViewState, room *models.Room) {
	payload := dto.RoomStatePayload{State: state.String()}
	if room != nil {
		payload.Room = formatRoomResponse(room, v.clock.Now(), nil)
	}
	if state.Terminal() {
		payload.Home = "/"
	}
	v.send(ws.TypeRoomState, payload)
}

func (v *roomView) TimeRemaining(d time.Duration) {
	v.send(ws.TypeRoomTick, dto.RoomTickPayload{Seconds: int(d / time.Second)})
}

func (v *roomView) MessagesChanged(msgs []models.Message) {
	v.send(ws.TypeMessages, msgs)
}

// RoomExpired runs on the controller's expiry goroutine, which leave waits
// for, so the teardown happens on its own goroutine.
func (v *roomView) RoomExpired() {
	v.send(ws.TypeRoomExpired, dto.RedirectPayload{Redirect: "/"})
	v.pending.Add(1)
	go func() {
		defer v.pending.Done()
		v.leave()
	}()
}

func (v *roomView) Error(err error) {
	v.send(ws.TypeError, dto.ErrorPayload{Error: err.Error(), Kind: errorKind(err)})
}

func (v *roomView) send(msgType ws.MessageType, data interface{}) {
	if err := v.client.SendMessage(msgType, &v.roomID, data); err != nil {
		log.Printf("Room %s: drop %s for client %s: %v", v.roomID, msgType, v.client.ID, err)
	}
}
