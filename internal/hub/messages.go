package hub

import (
	"net/http"
	"time"

	"github.com/supchat-io/notifyhub/internal/types"
)

type BaseMessage struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientMessage is a frame received from a connection. A client may
// only manage its room subscriptions; everything else reaches the core
// through the HTTP surface.
type ClientMessage struct {
	BaseMessage
	Join  *Join  `json:"join,omitempty"`
	Leave *Leave `json:"leave,omitempty"`
}

type Join struct {
	RoomId string `json:"room_id"`
}

type Leave struct {
	RoomId string `json:"room_id"`
}

// ServerMessage is a frame sent to a connection: either a response to
// a client request or a pushed notification payload.
type ServerMessage struct {
	BaseMessage
	Response *Response          `json:"response,omitempty"`
	Push     *types.PushPayload `json:"push,omitempty"`
}

type Response struct {
	ResponseCode int            `json:"response_code"`
	Error        string         `json:"error,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
}

func NoErrOK(id int, data map[string]any) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusOK,
			Data:         data,
		},
	}
}

func ErrForbidden(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusForbidden,
			Error:        "forbidden",
		},
	}
}

func ErrInvalidMessage(id int) *ServerMessage {
	msg := &ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusBadRequest,
			Error:        "invalid message format",
		},
	}

	if id > 0 {
		msg.Id = id
	}
	return msg
}

func PushMessage(payload *types.PushPayload) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: Now(),
		},
		Push: payload,
	}
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
