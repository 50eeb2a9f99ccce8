package composition

// ChangeKind names the mutation carried by a Change.
type ChangeKind int

const (
	ChangeAdded ChangeKind = iota
	ChangeRemoved
	ChangeMoved
	ChangeResized
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAdded:
		return "added"
	case ChangeRemoved:
		return "removed"
	case ChangeMoved:
		return "moved"
	case ChangeResized:
		return "resized"
	default:
		return "unknown"
	}
}

// Change is emitted once per effective store mutation. No-ops emit nothing.
type Change struct {
	Kind ChangeKind
	IDs  []string
}

// Listener receives changes synchronously, after the store lock is released.
type Listener func(Change)
