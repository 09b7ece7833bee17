package cli

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	wsclient "github.com/mcoot/tileworld/internal/client"
	"github.com/mcoot/tileworld/internal/dependencies/mocks"
	"github.com/mcoot/tileworld/internal/model"
	"github.com/mcoot/tileworld/internal/protocol"
)

type sentEvent struct {
	eventType string
	payload   any
}

type recordingSender struct {
	sent []sentEvent
}

func (r *recordingSender) Send(eventType string, payload any) error {
	r.sent = append(r.sent, sentEvent{eventType, payload})
	return nil
}

type PlaySuite struct {
	suite.Suite
	sender  *recordingSender
	rec     *wsclient.Reconciler
	out     *bytes.Buffer
	session *playSession
}

func TestPlaySuite(t *testing.T) {
	suite.Run(t, new(PlaySuite))
}

func (s *PlaySuite) SetupTest() {
	s.sender = &recordingSender{}
	clk := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	bounds := wsclient.Bounds{MinX: 0, MinY: 0, MaxX: 100, MaxY: 100}
	s.rec = wsclient.NewReconciler(s.sender, clk, bounds.Walkable)
	s.out = &bytes.Buffer{}
	s.session = newPlaySession(s.rec, s.out)
}

func (s *PlaySuite) apply(eventType string, payload any) protocol.Envelope {
	data, err := json.Marshal(payload)
	s.Require().NoError(err)
	env := protocol.Envelope{Type: eventType, Payload: data}
	s.Require().NoError(s.rec.Apply(env))
	return env
}

func state(id, name string, x, y float64) model.PlayerState {
	return model.PlayerState{
		ID:          model.ConnectionID(id),
		IdentityID:  model.ProfileID("p_" + id),
		DisplayName: name,
		Appearance:  model.DefaultAppearance(),
		Position:    model.Position{X: x, Y: y},
		Facing:      model.FacingDown,
	}
}

func (s *PlaySuite) joinWorld(others ...model.PlayerState) {
	if others == nil {
		others = []model.PlayerState{}
	}
	s.apply(protocol.TypeInit, protocol.InitPayload{Self: state("me", "Me", 50, 50), Others: others})
}

func (s *PlaySuite) exec(line string) {
	quit, err := s.session.exec(line)
	s.Require().NoError(err)
	s.False(quit)
}

func (s *PlaySuite) TestCommandsBeforeInitFail() {
	_, err := s.session.exec("w")
	s.ErrorIs(err, wsclient.ErrNotInitialized)

	_, err = s.session.exec("appearance hat=1")
	s.ErrorIs(err, wsclient.ErrNotInitialized)
	s.Empty(s.sender.sent)
}

func (s *PlaySuite) TestStepSendsMoves() {
	s.joinWorld()

	s.exec("d 2")

	s.Require().Len(s.sender.sent, 2)
	last := s.sender.sent[1]
	s.Equal(protocol.TypeMove, last.eventType)
	s.Equal(protocol.MovePayload{
		Position: model.Position{X: 50 + 2*wsclient.MoveSpeed, Y: 50},
		Facing:   model.FacingRight,
		IsMoving: true,
	}, last.payload)
	s.Contains(s.out.String(), "You are at (56, 50) facing right")
}

func (s *PlaySuite) TestStepStopsAtBounds() {
	s.joinWorld()

	s.exec("up 100")

	// 50 / 3 steps fit before leaving the map
	s.Len(s.sender.sent, 16)
	s.Contains(s.out.String(), "Blocked.")
}

func (s *PlaySuite) TestStepRejectsBadCount() {
	s.joinWorld()

	_, err := s.session.exec("w zero")
	s.Error(err)
	_, err = s.session.exec("w 0")
	s.Error(err)
	s.Empty(s.sender.sent)
}

func (s *PlaySuite) TestStop() {
	s.joinWorld()

	s.exec("stop")

	s.Require().Len(s.sender.sent, 1)
	s.Equal(protocol.TypeStop, s.sender.sent[0].eventType)
}

func (s *PlaySuite) TestSayKeepsWholeLine() {
	s.joinWorld()

	s.exec("say   hello there  world ")

	s.Require().Len(s.sender.sent, 1)
	s.Equal(protocol.ChatPayload{Text: "hello there  world"}, s.sender.sent[0].payload)

	_, err := s.session.exec("say")
	s.Error(err)
}

func (s *PlaySuite) TestAppearanceMergesWithCurrent() {
	s.joinWorld()

	s.exec("appearance hat=2 shirt=5")

	want := model.DefaultAppearance()
	want.HatStyle = 2
	want.ShirtColor = 5
	s.Require().Len(s.sender.sent, 1)
	s.Equal(protocol.AppearanceChangePayload{Appearance: want}, s.sender.sent[0].payload)
}

func (s *PlaySuite) TestAppearanceOutOfRangeIsNotSent() {
	s.joinWorld()

	_, err := s.session.exec("appearance skin=99")
	s.ErrorIs(err, model.ErrInvalidAppearance)
	s.Empty(s.sender.sent)
}

func (s *PlaySuite) TestLookListsOthersWithBubbles() {
	s.joinWorld(state("b", "Bob", 10, 20), state("a", "Alice", 30, 40))
	s.apply(protocol.TypeChatBubble, protocol.ChatBubblePayload{ID: "a", Text: "hi"})

	s.exec("look")

	out := s.out.String()
	s.Contains(out, "You: Me at (50, 50) facing down")
	s.Contains(out, `Alice at (30, 40) facing down says "hi"`)
	s.Less(bytes.Index(s.out.Bytes(), []byte("Alice")), bytes.Index(s.out.Bytes(), []byte("Bob")))
}

func (s *PlaySuite) TestChatShowsHistory() {
	s.joinWorld()
	s.apply(protocol.TypeChatLog, model.ChatMessage{ID: "a", DisplayName: "Alice", Text: "first", Timestamp: 1})
	s.apply(protocol.TypeChatLog, model.ChatMessage{ID: "b", DisplayName: "Bob", Text: "second", Timestamp: 2})

	s.exec("chat")

	s.Equal("Alice: first\nBob: second\n", s.out.String())
}

func (s *PlaySuite) TestQuitAndUnknown() {
	for _, line := range []string{"quit", "exit", "q"} {
		quit, err := s.session.exec(line)
		s.NoError(err)
		s.True(quit, line)
	}

	_, err := s.session.exec("dance")
	s.ErrorContains(err, "unknown command")

	quit, err := s.session.exec("   ")
	s.NoError(err)
	s.False(quit)
}

func (s *PlaySuite) TestAnnounce() {
	s.session.announce(s.apply(protocol.TypeInit, protocol.InitPayload{Self: state("me", "Me", 0, 0), Others: []model.PlayerState{}}))
	s.session.announce(s.apply(protocol.TypeJoined, state("a", "Alice", 1, 1)))
	s.session.announce(s.apply(protocol.TypeChatLog, model.ChatMessage{ID: "a", DisplayName: "Alice", Text: "yo"}))
	s.session.announce(s.apply(protocol.TypeLeft, protocol.LeftPayload{ID: "a"}))

	s.Equal("* Joined the world with 0 other player(s)\n* Alice joined\nAlice: yo\n* a left\n", s.out.String())
}
