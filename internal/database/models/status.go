package models

// Status is the lifecycle state stored on users, roles and tokens.
type Status int16

const (
	StatusInactive Status = 0
	StatusActive   Status = 1
	StatusLocked   Status = 2
	StatusDeleted  Status = 9
)

func (s Status) String() string {
	switch s {
	case StatusInactive:
		return "INACTIVE"
	case StatusActive:
		return "ACTIVE"
	case StatusLocked:
		return "LOCK"
	case StatusDeleted:
		return "DELETED"
	default:
		return "UNKNOWN"
	}
}
