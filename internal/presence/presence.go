// Package presence tracks which live connections belong to which user.
//
// A Registry is not safe for concurrent use; it is owned by the hub loop.
package presence

type Registry[H comparable] struct {
	conns map[string]map[H]struct{}
}

func NewRegistry[H comparable]() *Registry[H] {
	return &Registry[H]{conns: make(map[string]map[H]struct{})}
}

// Add records handle for userID. first is true only when the user had no
// connections before this call.
func (r *Registry[H]) Add(userID string, handle H) (first bool) {
	set, ok := r.conns[userID]
	if !ok {
		set = make(map[H]struct{})
		r.conns[userID] = set
	}
	set[handle] = struct{}{}
	return !ok
}

// Remove forgets handle. last is true only when this call removed the user's
// final connection; removing an unknown handle is a no-op.
func (r *Registry[H]) Remove(userID string, handle H) (last bool) {
	set, ok := r.conns[userID]
	if !ok {
		return false
	}
	if _, ok := set[handle]; !ok {
		return false
	}
	delete(set, handle)
	if len(set) == 0 {
		delete(r.conns, userID)
		return true
	}
	return false
}

func (r *Registry[H]) IsOnline(userID string) bool {
	return len(r.conns[userID]) > 0
}

// Connections returns the user's live handles in no particular order.
func (r *Registry[H]) Connections(userID string) []H {
	out := make([]H, 0, len(r.conns[userID]))
	for h := range r.conns[userID] {
		out = append(out, h)
	}
	return out
}

func (r *Registry[H]) ForEach(fn func(userID string, handle H)) {
	for id, set := range r.conns {
		for h := range set {
			fn(id, h)
		}
	}
}

func (r *Registry[H]) NumUsers() int { return len(r.conns) }
