package patchbay

type MasterState int

const (
	MasterUninitialized MasterState = iota
	MasterIdle
	MasterActivePaused
	MasterActivePlaying
)

func (s MasterState) String() string {
	switch s {
	case MasterUninitialized:
		return "uninitialized"
	case MasterIdle:
		return "idle"
	case MasterActivePaused:
		return "paused"
	case MasterActivePlaying:
		return "playing"
	}
	return "unknown"
}

type InlineState int

const (
	InlineDormant InlineState = iota
	InlineInactive
	InlineActivePaused
	InlineActivePlaying
)

func (s InlineState) String() string {
	switch s {
	case InlineDormant:
		return "dormant"
	case InlineInactive:
		return "inactive"
	case InlineActivePaused:
		return "paused"
	case InlineActivePlaying:
		return "playing"
	}
	return "unknown"
}
