package taskstate

type ID int32

const (
	Inactive ID = iota
	Active
	Completed
	Interrupted
)

func (s ID) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Active:
		return "active"
	case Completed:
		return "completed"
	case Interrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}
