package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInbound(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		want    Inbound
		wantErr error
	}{
		{name: "join", frame: `{"type":"join_room","roomId":"swap-7"}`, want: JoinRoom{RoomID: "swap-7"}},
		{name: "extra fields ignored", frame: `{"type":"join_room","roomId":"swap-7","user":3}`, want: JoinRoom{RoomID: "swap-7"}},
		{name: "missing room", frame: `{"type":"join_room"}`, wantErr: ErrMissingRoomID},
		{name: "null room", frame: `{"type":"join_room","roomId":null}`, wantErr: ErrMissingRoomID},
		{name: "empty room", frame: `{"type":"join_room","roomId":""}`, wantErr: ErrMissingRoomID},
		{name: "numeric room", frame: `{"type":"join_room","roomId":7}`, wantErr: ErrMalformedFrame},
		{name: "unknown type", frame: `{"type":"typing","roomId":"swap-7"}`, wantErr: ErrUnknownType},
		{name: "missing type", frame: `{"roomId":"swap-7"}`, wantErr: ErrMalformedFrame},
		{name: "not json", frame: `join swap-7`, wantErr: ErrMalformedFrame},
		{name: "not an object", frame: `["join_room"]`, wantErr: ErrMalformedFrame},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeInbound([]byte(tt.frame))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncode_NewMessage(t *testing.T) {
	data, err := Encode(NewMessage{Message: struct {
		ID   int64  `json:"id"`
		Text string `json:"message"`
	}{ID: 4, Text: "see you at 6"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"new_message","message":{"id":4,"message":"see you at 6"}}`, string(data))
}

func TestEncode_UnencodablePayload(t *testing.T) {
	_, err := Encode(NewMessage{Message: make(chan int)})
	assert.Error(t, err)
}

func TestSwapRoom(t *testing.T) {
	assert.Equal(t, "swap-42", SwapRoom(42))
}
