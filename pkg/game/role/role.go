package role

type ID int32

const (
	None ID = iota
	Crewmate
	Impostor
)

func (r ID) String() string {
	switch r {
	case Crewmate:
		return "Crewmate"
	case Impostor:
		return "Impostor"
	default:
		return "None"
	}
}
