package dto

// MessagePayload is the body of a send, over HTTP or as a "message_send"
// websocket event.
type MessagePayload struct {
	Text string `json:"text"`
}

// TimerPayload is the data of a "timer" websocket event.
type TimerPayload struct {
	Remaining int    `json:"remaining"`
	Running   bool   `json:"running"`
	Display   string `json:"display"`
}

type ErrorPayload struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
