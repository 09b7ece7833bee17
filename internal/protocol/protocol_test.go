package protocol

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/tileworld/internal/model"
)

func TestDecodeMove(t *testing.T) {
	in, err := Decode([]byte(`{"type":"move","payload":{"position":{"x":150,"y":80},"facing":"right","isMoving":true}}`))
	require.NoError(t, err)
	assert.Equal(t, KindMove, in.Kind)
	assert.Equal(t, model.Position{X: 150, Y: 80}, in.Move.Position)
	assert.Equal(t, model.FacingRight, in.Move.Facing)
}

func TestDecodeStop(t *testing.T) {
	in, err := Decode([]byte(`{"type":"stop","payload":{"facing":"up"}}`))
	require.NoError(t, err)
	assert.Equal(t, KindStop, in.Kind)
	assert.Equal(t, model.FacingUp, in.Stop.Facing)
}

func TestDecodeAppearanceChange(t *testing.T) {
	in, err := Decode([]byte(`{"type":"appearanceChange","payload":{"appearance":{"skinColor":9,"hairStyle":2,"hairColor":7,"shirtColor":7,"pantsColor":3,"hatStyle":-1}}}`))
	require.NoError(t, err)
	assert.Equal(t, KindAppearanceChange, in.Kind)
	assert.Equal(t, 9, in.Appearance.SkinColor)
	assert.Equal(t, model.NoHat, in.Appearance.HatStyle)
}

func TestDecodeChatKeepsFullText(t *testing.T) {
	long := strings.Repeat("a", 250)
	in, err := Decode([]byte(`{"type":"chat","payload":{"text":"` + long + `"}}`))
	require.NoError(t, err)
	assert.Equal(t, KindChat, in.Kind)
	assert.Len(t, in.Text, 250)
}

func TestDecodeAcceptsEmptyChatText(t *testing.T) {
	in, err := Decode([]byte(`{"type":"chat","payload":{"text":""}}`))
	require.NoError(t, err)
	assert.Equal(t, KindChat, in.Kind)
	assert.Equal(t, "", in.Text)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	cases := map[string]struct {
		frame string
		is    error
	}{
		"not json":           {`{"type":`, model.ErrMalformedEvent},
		"unknown type":       {`{"type":"teleport","payload":{}}`, model.ErrUnknownEventType},
		"missing payload":    {`{"type":"move"}`, model.ErrMalformedEvent},
		"position as string": {`{"type":"move","payload":{"position":"here","facing":"up"}}`, model.ErrMalformedEvent},
		"bad facing":         {`{"type":"move","payload":{"position":{"x":1,"y":1},"facing":"north"}}`, model.ErrInvalidFacing},
		"empty stop facing":  {`{"type":"stop","payload":{}}`, model.ErrInvalidFacing},
		"chat text number":   {`{"type":"chat","payload":{"text":42}}`, model.ErrMalformedEvent},
		"skin out of range":  {`{"type":"appearanceChange","payload":{"appearance":{"skinColor":10,"hatStyle":-1}}}`, model.ErrInvalidAppearance},
		"hat below none":     {`{"type":"appearanceChange","payload":{"appearance":{"hatStyle":-2}}}`, model.ErrInvalidAppearance},
		"null payload":       {`{"type":"chat","payload":null}`, model.ErrMalformedEvent},
		"chat text null":     {`{"type":"chat","payload":{"text":null}}`, model.ErrMalformedEvent},
		"chat without text":  {`{"type":"chat","payload":{}}`, model.ErrMalformedEvent},
		"move no position":   {`{"type":"move","payload":{"facing":"up"}}`, model.ErrMalformedEvent},
		"move null position": {`{"type":"move","payload":{"position":null,"facing":"up"}}`, model.ErrMalformedEvent},
		"no appearance":      {`{"type":"appearanceChange","payload":{}}`, model.ErrMalformedEvent},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(tc.frame))
			require.Error(t, err)
			assert.ErrorIs(t, err, model.ErrMalformedEvent)
			assert.ErrorIs(t, err, tc.is)
		})
	}
}

func TestEncodeWrapsPayload(t *testing.T) {
	data, err := Encode(TypeMoved, MovedPayload{ID: "c1", Position: model.Position{X: 150, Y: 80}, Facing: model.FacingRight, IsMoving: true})
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, TypeMoved, env.Type)
	assert.JSONEq(t, `{"id":"c1","position":{"x":150,"y":80},"facing":"right","isMoving":true}`, string(env.Payload))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", Truncate("hello", MaxChatLength))
	assert.Equal(t, strings.Repeat("a", 100), Truncate(strings.Repeat("a", 150), MaxChatLength))

	once := Truncate(strings.Repeat("b", 250), MaxChatLength)
	assert.Equal(t, once, Truncate(once, MaxChatLength))
}

func TestTruncateCountsCharactersNotBytes(t *testing.T) {
	text := strings.Repeat("é", 120)
	out := Truncate(text, MaxChatLength)
	assert.Equal(t, 100, utf8.RuneCountInString(out))
	assert.True(t, utf8.ValidString(out))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "move", KindMove.String())
	assert.Equal(t, "chat", KindChat.String())
	assert.Equal(t, "Kind(99)", Kind(99).String())
}
