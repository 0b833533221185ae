package phase

type ID int32

const (
	FreeRoam ID = iota
	Discussion
	Voting
)

func (p ID) String() string {
	switch p {
	case FreeRoam:
		return "free_roam"
	case Discussion:
		return "discussion"
	case Voting:
		return "voting"
	default:
		return "unknown"
	}
}
