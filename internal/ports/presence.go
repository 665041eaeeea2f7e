package ports

// RoomInfo describes a joinable room as advertised by a relay.
type RoomInfo struct {
	RoomCode    string
	Variant     string
	OpenSeats   int
	HasPassword bool
}

// RoomRegistryPort defines the interface for listing and resolving rooms on
// a relay. The relay only tracks membership; game state never touches it.
type RoomRegistryPort interface {
	// ListOpen returns rooms that still have open seats.
	ListOpen() ([]RoomInfo, error)

	// Resolve returns the info for a single room code.
	Resolve(roomCode string) (RoomInfo, bool)
}
