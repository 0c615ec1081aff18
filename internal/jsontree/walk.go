package jsontree

// VisitFunc is called for each object member. Returning false stops the walk.
type VisitFunc func(key string, value Value) bool

// Walk visits every object member in the tree, depth-first in document order.
// Array elements are descended into but not reported, since they have no key.
func Walk(root Value, visit VisitFunc) {
	walk(root, visit)
}

func walk(v Value, visit VisitFunc) bool {
	switch v.kind {
	case Object:
		for _, m := range v.members {
			if !visit(m.Key, m.Value) {
				return false
			}
			if !walk(m.Value, visit) {
				return false
			}
		}
	case Array:
		for _, item := range v.items {
			if !walk(item, visit) {
				return false
			}
		}
	}
	return true
}
