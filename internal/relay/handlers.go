package relay

import (
	"log/slog"

	"github.com/mcoot/tileworld/internal/dependencies/clock"
	"github.com/mcoot/tileworld/internal/model"
	"github.com/mcoot/tileworld/internal/protocol"
)

func (r *Relay) join(session Session, profile *model.Profile) error {
	id := session.ID()

	if r.cfg.SessionPolicy == SessionSingle {
		for oldID, m := range r.members {
			if m.identityID == profile.ID {
				r.logger.Info("replacing existing session",
					slog.String("profile_id", string(profile.ID)),
					slog.String("old_connection_id", string(oldID)),
					slog.String("connection_id", string(id)))
				r.leave(oldID)
				m.session.Close(ReasonSessionReplaced)
			}
		}
	}

	position := r.cfg.Spawn
	if profile.LastPosition != nil {
		position = *profile.LastPosition
	}
	state := model.PlayerState{
		ID:          id,
		IdentityID:  profile.ID,
		DisplayName: profile.DisplayName,
		Appearance:  profile.Appearance,
		Position:    position,
		Facing:      model.DefaultFacing,
		IsMoving:    false,
	}
	if err := r.registry.Register(id, state); err != nil {
		return err
	}
	now := r.clock.Now()
	r.members[id] = &member{
		session:    session,
		identityID: profile.ID,
		joinedAt:   now,
		checkpoint: position,
	}

	r.sendTo(id, protocol.TypeInit, protocol.InitPayload{
		Self:   state,
		Others: r.registry.ListExcluding(id),
	})
	r.broadcastExcept(id, protocol.TypeJoined, state)

	r.publish(model.EventPlayerJoined, state, model.PlayerJoinedPayload{
		DisplayName: state.DisplayName,
		Position:    state.Position,
	})
	r.logger.Info("player joined",
		slog.String("connection_id", string(id)),
		slog.String("profile_id", string(profile.ID)),
		slog.Int("total_players", r.registry.Len()))
	return nil
}

// dispatch applies one client event. Every Kind must be handled here.
func (r *Relay) dispatch(id model.ConnectionID, in protocol.Inbound) {
	if _, ok := r.members[id]; !ok {
		r.logger.Debug("event for unregistered connection ignored",
			slog.String("connection_id", string(id)),
			slog.String("kind", in.Kind.String()))
		return
	}

	switch in.Kind {
	case protocol.KindMove:
		r.handleMove(id, in.Move)
	case protocol.KindStop:
		r.handleStop(id, in.Stop)
	case protocol.KindAppearanceChange:
		r.handleAppearance(id, in.Appearance)
	case protocol.KindChat:
		r.handleChat(id, in.Text)
	default:
		r.logger.Warn("unhandled event kind",
			slog.String("connection_id", string(id)),
			slog.String("kind", in.Kind.String()))
	}
}

func (r *Relay) handleMove(id model.ConnectionID, reported protocol.MovePayload) {
	var (
		next     model.PlayerState
		accepted bool
	)
	r.registry.Update(id, func(p *model.PlayerState) {
		next, accepted = r.movement(*p, reported)
		if accepted {
			p.Position = next.Position
			p.Facing = next.Facing
			p.IsMoving = next.IsMoving
		}
	})
	if !accepted {
		r.logger.Debug("move rejected", slog.String("connection_id", string(id)))
		return
	}
	r.broadcastExcept(id, protocol.TypeMoved, protocol.MovedPayload{
		ID:       id,
		Position: next.Position,
		Facing:   next.Facing,
		IsMoving: next.IsMoving,
	})
}

func (r *Relay) handleStop(id model.ConnectionID, stop protocol.StopPayload) {
	r.registry.Update(id, func(p *model.PlayerState) {
		p.IsMoving = false
		p.Facing = stop.Facing
	})
	r.broadcastExcept(id, protocol.TypeStopped, protocol.StoppedPayload{
		ID:     id,
		Facing: stop.Facing,
	})
}

func (r *Relay) handleAppearance(id model.ConnectionID, appearance model.Appearance) {
	var state model.PlayerState
	r.registry.Update(id, func(p *model.PlayerState) {
		p.Appearance = appearance
		state = *p
	})
	r.sync.SaveAppearance(state.IdentityID, appearance)
	r.broadcastExcept(id, protocol.TypeAppearanceUpdated, protocol.AppearanceUpdatedPayload{
		ID:         id,
		Appearance: appearance,
	})
	r.publish(model.EventAppearanceChanged, state, model.AppearanceChangedPayload{Appearance: appearance})
}

func (r *Relay) handleChat(id model.ConnectionID, text string) {
	state, _ := r.registry.Get(id)
	msg := model.ChatMessage{
		ID:          id,
		DisplayName: state.DisplayName,
		Text:        protocol.Truncate(text, protocol.MaxChatLength),
		Timestamp:   clock.UnixMilli(r.clock),
	}
	r.broadcast(protocol.TypeChatLog, msg)
	r.broadcastExcept(id, protocol.TypeChatBubble, protocol.ChatBubblePayload{
		ID:   id,
		Text: msg.Text,
	})
	r.publish(model.EventChatMessage, state, msg)
}

// leave runs the disconnect flow. Unknown ids are ignored.
func (r *Relay) leave(id model.ConnectionID) {
	m, ok := r.members[id]
	if !ok {
		r.logger.Debug("leave for unregistered connection ignored", slog.String("connection_id", string(id)))
		return
	}
	delete(r.members, id)

	state, ok := r.registry.Remove(id)
	if !ok {
		return
	}
	r.sync.SavePosition(state.IdentityID, state.Position)
	r.broadcastExcept(id, protocol.TypeLeft, protocol.LeftPayload{ID: id})

	duration := r.clock.Now().Sub(m.joinedAt)
	r.publish(model.EventPlayerLeft, state, model.PlayerLeftPayload{
		DisplayName:  state.DisplayName,
		LastPosition: state.Position,
		Duration:     duration,
	})
	r.logger.Info("player left",
		slog.String("connection_id", string(id)),
		slog.String("profile_id", string(state.IdentityID)),
		slog.Duration("connection_duration", duration),
		slog.Int("total_players", r.registry.Len()))
}

// checkpoint queues position writes for players who moved since their last one
func (r *Relay) checkpoint() {
	queued := 0
	for id, m := range r.members {
		state, ok := r.registry.Get(id)
		if !ok || state.Position == m.checkpoint {
			continue
		}
		r.sync.SavePosition(state.IdentityID, state.Position)
		m.checkpoint = state.Position
		queued++
	}
	if queued > 0 {
		r.logger.Debug("periodic checkpoint queued", slog.Int("players", queued))
	}
}

func (r *Relay) sendTo(id model.ConnectionID, eventType string, payload any) {
	m, ok := r.members[id]
	if !ok {
		return
	}
	msg, err := protocol.Encode(eventType, payload)
	if err != nil {
		r.logger.Error("encode failed", slog.String("type", eventType), slog.String("error", err.Error()))
		return
	}
	r.deliver(id, m, eventType, msg)
}

func (r *Relay) broadcast(eventType string, payload any) {
	r.broadcastExcept("", eventType, payload)
}

func (r *Relay) broadcastExcept(exclude model.ConnectionID, eventType string, payload any) {
	msg, err := protocol.Encode(eventType, payload)
	if err != nil {
		r.logger.Error("encode failed", slog.String("type", eventType), slog.String("error", err.Error()))
		return
	}
	for id, m := range r.members {
		if id == exclude {
			continue
		}
		r.deliver(id, m, eventType, msg)
	}
}

func (r *Relay) deliver(id model.ConnectionID, m *member, eventType string, msg []byte) {
	if !m.session.Send(msg) {
		r.logger.Warn("message dropped - client buffer full",
			slog.String("connection_id", string(id)),
			slog.String("type", eventType))
	}
}

func (r *Relay) publish(eventType model.EventType, state model.PlayerState, payload any) {
	r.feed.Publish(model.Event{
		Type:         eventType,
		Timestamp:    r.clock.Now(),
		ConnectionID: state.ID,
		IdentityID:   state.IdentityID,
		Payload:      payload,
	})
}
