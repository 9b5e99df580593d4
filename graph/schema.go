package graph

// StateSchema defines the initial state and how a node's returned update is
// merged into the current state.
type StateSchema[S any] interface {
	Init() S
	Update(current, update S) (S, error)
}

// StructSchema is a StateSchema for struct states with a caller-supplied merge.
type StructSchema[S any] struct {
	InitialValue S
	MergeFunc    func(current, update S) (S, error)
}

var _ StateSchema[struct{}] = (*StructSchema[struct{}])(nil)

// NewStructSchema creates a schema. A nil merge replaces the state with the update.
func NewStructSchema[S any](initial S, merge func(current, update S) (S, error)) *StructSchema[S] {
	return &StructSchema[S]{InitialValue: initial, MergeFunc: merge}
}

// Init returns the initial value.
func (s *StructSchema[S]) Init() S {
	return s.InitialValue
}

// Update merges update into current.
func (s *StructSchema[S]) Update(current, update S) (S, error) {
	if s.MergeFunc == nil {
		return update, nil
	}
	return s.MergeFunc(current, update)
}

// AppendSlice returns a new slice holding current followed by update. The
// result never aliases current, so earlier states stay untouched.
func AppendSlice[T any](current, update []T) []T {
	if len(update) == 0 {
		return current
	}
	out := make([]T, 0, len(current)+len(update))
	out = append(out, current...)
	return append(out, update...)
}
