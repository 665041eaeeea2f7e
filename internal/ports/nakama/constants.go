package nakama

const (
	// RpcIdCreateRoom provisions a relay room and returns its match id,
	// join code and a session token for the creator.
	RpcIdCreateRoom = "create_room"

	// RpcIdJoinRoom resolves a join code to a match id and mints a session
	// token for the joiner.
	RpcIdJoinRoom = "join_room"

	// MatchNameRelay is the relay match handler name registered with Nakama.
	MatchNameRelay = "taash_relay"
)

// Label keys used in match listing queries.
const (
	MatchLabelKey_RoomCode = "room_code"
	MatchLabelKey_Variant  = "variant"
)
