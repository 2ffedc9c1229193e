package graph

// Visitor receives callbacks during [Tree.Accept].
//
// parents lists the ancestors of id from the root downward and is only valid
// for the duration of the call.
type Visitor interface {
	// Enter is called before the node's children. Returning false skips
	// the subtree.
	Enter(t *Tree, id NodeID, parents []NodeID) bool
	// Leave is called after the node's children. Returning false stops the
	// traversal of the node's remaining siblings.
	Leave(t *Tree, id NodeID, parents []NodeID) bool
}

// Accept walks the tree depth-first in pre-order, entering every reachable
// node at most once. Cycle records are not traversal edges.
func (t *Tree) Accept(v Visitor) {
	if t == nil || t.root == NoNode {
		return
	}
	visited := make([]bool, len(t.nodes))
	parents := make([]NodeID, 0, 16)

	var visit func(id NodeID) bool
	visit = func(id NodeID) bool {
		if visited[id] {
			return true
		}
		visited[id] = true
		if v.Enter(t, id, parents) {
			parents = append(parents, id)
			for _, c := range t.children[id] {
				if !visit(c) {
					break
				}
			}
			parents = parents[:len(parents)-1]
		}
		return v.Leave(t, id, parents)
	}
	visit(t.root)
}

// VisitorFuncs adapts plain functions to a Visitor. Nil functions behave as
// if they returned true.
type VisitorFuncs struct {
	EnterFunc func(t *Tree, id NodeID, parents []NodeID) bool
	LeaveFunc func(t *Tree, id NodeID, parents []NodeID) bool
}

// Enter implements Visitor.
func (f VisitorFuncs) Enter(t *Tree, id NodeID, parents []NodeID) bool {
	if f.EnterFunc == nil {
		return true
	}
	return f.EnterFunc(t, id, parents)
}

// Leave implements Visitor.
func (f VisitorFuncs) Leave(t *Tree, id NodeID, parents []NodeID) bool {
	if f.LeaveFunc == nil {
		return true
	}
	return f.LeaveFunc(t, id, parents)
}

// Walk calls fn for every node in traversal order. Returning false from fn
// skips the node's subtree.
func (t *Tree) Walk(fn func(n *Node, parents []NodeID) bool) {
	t.Accept(VisitorFuncs{EnterFunc: func(t *Tree, id NodeID, parents []NodeID) bool {
		return fn(t.nodes[id], parents)
	}})
}
