package room

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// MessageType discriminates relay frames on the wire.
type MessageType string

const (
	TypeJoinRoom   MessageType = "join_room"
	TypeNewMessage MessageType = "new_message"
)

var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrUnknownType    = errors.New("unknown message type")
	ErrMissingRoomID  = errors.New("join_room without roomId")
)

// Inbound is a control frame sent by a client.
type Inbound interface {
	inboundType() MessageType
}

// JoinRoom asks the relay to move the sending channel into RoomID.
type JoinRoom struct {
	RoomID string
}

func (JoinRoom) inboundType() MessageType { return TypeJoinRoom }

// Event is a notification fanned out to the members of a room.
type Event interface {
	eventType() MessageType
}

// NewMessage tells members that Message was stored and can be fetched.
type NewMessage struct {
	Message any
}

func (NewMessage) eventType() MessageType { return TypeNewMessage }

// DecodeInbound parses one text frame into a typed control message.
// Errors wrap ErrMalformedFrame, ErrUnknownType or ErrMissingRoomID.
func DecodeInbound(data []byte) (Inbound, error) {
	var envelope struct {
		Type   MessageType     `json:"type"`
		RoomID json.RawMessage `json:"roomId"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	switch envelope.Type {
	case TypeJoinRoom:
		if len(envelope.RoomID) == 0 || string(envelope.RoomID) == "null" {
			return nil, ErrMissingRoomID
		}
		var roomID string
		if err := json.Unmarshal(envelope.RoomID, &roomID); err != nil {
			return nil, fmt.Errorf("%w: roomId must be a string", ErrMalformedFrame)
		}
		if roomID == "" {
			return nil, ErrMissingRoomID
		}
		return JoinRoom{RoomID: roomID}, nil
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, envelope.Type)
	}
}

// Encode renders an event as the JSON text frame sent to members.
func Encode(event Event) ([]byte, error) {
	switch e := event.(type) {
	case NewMessage:
		return json.Marshal(struct {
			Type    MessageType `json:"type"`
			Message any         `json:"message"`
		}{Type: TypeNewMessage, Message: e.Message})
	default:
		return nil, fmt.Errorf("unsupported event %T", event)
	}
}

// SwapRoom names the chat room of a swap request.
func SwapRoom(swapRequestID int64) string {
	return "swap-" + strconv.FormatInt(swapRequestID, 10)
}
