package gamemap

// Room identifies a room on the ship.
type Room string

const (
	Cafeteria   Room = "cafeteria"
	UpperEngine Room = "upper_engine"
	Reactor     Room = "reactor"
	Security    Room = "security"
	Electrical  Room = "electrical"
	LowerEngine Room = "lower_engine"
	EngineRoom  Room = "engine_room"
	Storage     Room = "storage"
	Medbay      Room = "medbay"
)

// The ship layout never changes for the lifetime of the process.
var layout = map[Room][]Room{
	Cafeteria:   {UpperEngine, Medbay, Storage},
	UpperEngine: {Cafeteria, Reactor, EngineRoom},
	Reactor:     {UpperEngine, Security},
	Security:    {Reactor, EngineRoom, Electrical},
	Electrical:  {Security, LowerEngine},
	LowerEngine: {Electrical, EngineRoom, Storage},
	EngineRoom:  {UpperEngine, Security, LowerEngine, Medbay},
	Storage:     {Cafeteria, LowerEngine},
	Medbay:      {Cafeteria, EngineRoom},
}

var rooms = []Room{
	Cafeteria,
	UpperEngine,
	Reactor,
	Security,
	Electrical,
	LowerEngine,
	EngineRoom,
	Storage,
	Medbay,
}

// Spawn is where every player starts.
func Spawn() Room {
	return Cafeteria
}

func Valid(room Room) bool {
	_, ok := layout[room]
	return ok
}

// Adjacent returns the rooms reachable from room in one move, in a stable
// order.
func Adjacent(room Room) []Room {
	exits, ok := layout[room]
	if !ok {
		return nil
	}
	result := make([]Room, len(exits))
	copy(result, exits)
	return result
}

func IsReachable(from Room, to Room) bool {
	for _, exit := range layout[from] {
		if exit == to {
			return true
		}
	}
	return false
}

func Rooms() []Room {
	result := make([]Room, len(rooms))
	copy(result, rooms)
	return result
}
