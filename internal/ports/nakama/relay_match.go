package nakama

import (
	"context"
	"database/sql"
	"encoding/json"

	"taash/internal/protocol"

	"github.com/heroiclabs/nakama-common/runtime"
)

// relayLabel is the JSON match label relay rooms advertise for listing.
type relayLabel struct {
	RoomCode    string `json:"room_code"`
	Variant     string `json:"variant"`
	HasPassword bool   `json:"has_password"`
	Members     int    `json:"members"`
}

// RelayState is the runtime state of one relay room. The relay never reads
// game rules: it only tracks who is connected and moves envelopes between
// them. All game state lives on the peers, with the authority deciding.
type RelayState struct {
	RoomCode    string
	Variant     string
	HasPassword bool
	Presences   map[string]runtime.Presence
}

func (rs *RelayState) label() relayLabel {
	return relayLabel{
		RoomCode:    rs.RoomCode,
		Variant:     rs.Variant,
		HasPassword: rs.HasPassword,
		Members:     len(rs.Presences),
	}
}

// NewRelayMatch is the factory function registered with Nakama.
func NewRelayMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	return &relayHandler{}, nil
}

type relayHandler struct{}

func (rh *relayHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	state := &RelayState{
		Presences: make(map[string]runtime.Presence),
	}
	if v, ok := params["room_code"].(string); ok {
		state.RoomCode = v
	}
	if v, ok := params["variant"].(string); ok {
		state.Variant = v
	}
	if v, ok := params["has_password"].(bool); ok {
		state.HasPassword = v
	}

	labelBytes, err := json.Marshal(state.label())
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}

	logger.Debug("MatchInit: Relay room %s (%s) created.", state.RoomCode, state.Variant)
	tickRate := 10
	return state, tickRate, string(labelBytes)
}

// MatchJoinAttempt admits everyone. Seat capacity, passwords and duplicate
// identities are the authority peer's decisions, not the relay's; a peer the
// authority rejects receives a directed rejection envelope and disconnects
// itself.
func (rh *relayHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	if _, ok := state.(*RelayState); !ok {
		return state, false, "state not found"
	}
	return state, true, ""
}

func (rh *relayHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	relayState, ok := state.(*RelayState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		relayState.Presences[p.GetUserId()] = p
	}
	rh.updateLabel(relayState, dispatcher, logger)
	return relayState
}

// MatchLeave synthesizes a member-left envelope for every dropped peer so
// the authority can mark the seat disconnected. Rooms with nobody attached
// terminate.
func (rh *relayHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	relayState, ok := state.(*RelayState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		delete(relayState.Presences, p.GetUserId())

		env := protocol.NewMemberLeft(p.GetUserId())
		data, err := protocol.Encode(env)
		if err != nil {
			logger.Error("MatchLeave: Failed to encode member-left for %s: %v", p.GetUserId(), err)
			continue
		}
		dispatcher.BroadcastMessage(env.OpCode(), data, nil, nil, true)
	}

	if len(relayState.Presences) == 0 {
		logger.Info("MatchLeave: Relay room %s empty, terminating.", relayState.RoomCode)
		return nil
	}

	rh.updateLabel(relayState, dispatcher, logger)
	return relayState
}

func (rh *relayHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	relayState, ok := state.(*RelayState)
	if !ok {
		return state
	}

	for _, msg := range messages {
		env, err := protocol.Decode(msg.GetData())
		if err != nil {
			logger.Warn("MatchLoop: Dropping malformed envelope from %s: %v", msg.GetUserId(), err)
			continue
		}
		if env.Kind == protocol.KindMemberLeft {
			// Only the relay itself may announce departures.
			logger.Warn("MatchLoop: Dropping forged member-left from %s.", msg.GetUserId())
			continue
		}

		// Sender attribution comes from the connection, never the payload.
		env.SenderID = msg.GetUserId()
		data, err := protocol.Encode(env)
		if err != nil {
			logger.Error("MatchLoop: Failed to re-encode envelope from %s: %v", msg.GetUserId(), err)
			continue
		}

		var recipients []runtime.Presence
		if env.TargetID != "" {
			p, ok := relayState.Presences[env.TargetID]
			if !ok {
				logger.Debug("MatchLoop: Directed envelope for absent peer %s dropped.", env.TargetID)
				continue
			}
			recipients = []runtime.Presence{p}
		}

		dispatcher.BroadcastMessage(env.OpCode(), data, recipients, nil, true)
	}

	return relayState
}

func (rh *relayHandler) updateLabel(state *RelayState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	labelBytes, err := json.Marshal(state.label())
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(string(labelBytes)); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

func (rh *relayHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, reason int) interface{} {
	logger.Debug("MatchTerminate: Relay room terminated for reason %d", reason)
	return state
}

func (rh *relayHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}
