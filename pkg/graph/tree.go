package graph

import (
	"errors"
	"maps"
	"slices"

	"github.com/matzehuels/depresolve/pkg/artifact"
)

// ErrUnknownNode is returned when a NodeID does not belong to the tree.
var ErrUnknownNode = errors.New("unknown node")

// NodeID addresses a node inside its owning Tree.
type NodeID int

// NoNode is the NodeID of a missing node (for example the parent of the root).
const NoNode NodeID = -1

// Node is one position in the dependency tree.
type Node struct {
	ID         NodeID
	Dependency artifact.Dependency
	Virtual    bool // root without an artifact
	Depth      int  // 0 for the root

	// Resolved is empty until resolution binds a file to the node.
	Resolved *artifact.Artifact

	// Data holds collector-specific annotations (premanaged version, ...).
	Data map[string]any
}

// Coordinate returns the node's artifact coordinate.
func (n *Node) Coordinate() artifact.Coordinate { return n.Dependency.Artifact }

// IsResolved reports whether a resolved artifact has been bound to the node.
func (n *Node) IsResolved() bool { return n.Resolved != nil && n.Resolved.File != "" }

// Cycle is a circular dependency: Path[len(Path)-1] depends on Path[0],
// which is already one of its ancestors.
type Cycle struct {
	Path []NodeID
}

// Edge is a directed pair of nodes.
type Edge struct {
	From NodeID
	To   NodeID
}

// Tree is an arena of dependency nodes rooted at a single node.
//
// Tree is not safe for concurrent mutation. Concurrent readers are fine once
// construction has finished.
type Tree struct {
	nodes    []*Node
	children [][]NodeID
	parent   []NodeID
	root     NodeID
	cycles   []Cycle
}

// New creates a tree whose root is the given dependency.
func New(root artifact.Dependency) *Tree {
	t := &Tree{root: NoNode}
	t.root = t.add(NoNode, &Node{Dependency: root})
	return t
}

// NewVirtual creates a tree with an artifact-less root.
func NewVirtual() *Tree {
	t := &Tree{root: NoNode}
	t.root = t.add(NoNode, &Node{Virtual: true})
	return t
}

func (t *Tree) add(parent NodeID, n *Node) NodeID {
	id := NodeID(len(t.nodes))
	n.ID = id
	if n.Data == nil {
		n.Data = make(map[string]any)
	}
	if parent != NoNode {
		n.Depth = t.nodes[parent].Depth + 1
		t.children[parent] = append(t.children[parent], id)
	}
	t.nodes = append(t.nodes, n)
	t.children = append(t.children, nil)
	t.parent = append(t.parent, parent)
	return id
}

// AddChild appends a new node for dep under parent and returns its ID.
func (t *Tree) AddChild(parent NodeID, dep artifact.Dependency) (NodeID, error) {
	if !t.valid(parent) {
		return NoNode, ErrUnknownNode
	}
	return t.add(parent, &Node{Dependency: dep}), nil
}

// AddCycle records a dependency cycle. Every ID must belong to the tree.
func (t *Tree) AddCycle(path []NodeID) error {
	if len(path) == 0 {
		return ErrUnknownNode
	}
	for _, id := range path {
		if !t.valid(id) {
			return ErrUnknownNode
		}
	}
	t.cycles = append(t.cycles, Cycle{Path: slices.Clone(path)})
	return nil
}

func (t *Tree) valid(id NodeID) bool {
	return id >= 0 && int(id) < len(t.nodes)
}

// Clone returns a copy of t that shares no mutable state with it. Resolved
// artifacts are shared by pointer; binding a new artifact to a node of one
// tree does not affect the other.
func (t *Tree) Clone() *Tree {
	if t == nil {
		return nil
	}
	c := &Tree{
		nodes:    make([]*Node, len(t.nodes)),
		children: make([][]NodeID, len(t.children)),
		parent:   slices.Clone(t.parent),
		root:     t.root,
		cycles:   t.Cycles(),
	}
	for i, n := range t.nodes {
		cp := *n
		cp.Data = maps.Clone(n.Data)
		c.nodes[i] = &cp
	}
	for i, ch := range t.children {
		c.children[i] = slices.Clone(ch)
	}
	return c
}

// Root returns the root's ID, or NoNode for a nil tree.
func (t *Tree) Root() NodeID {
	if t == nil {
		return NoNode
	}
	return t.root
}

// RootNode returns the root node, or nil for a nil tree.
func (t *Tree) RootNode() *Node {
	if t == nil || t.root == NoNode {
		return nil
	}
	return t.nodes[t.root]
}

// Node returns the node with the given ID, or nil.
func (t *Tree) Node(id NodeID) *Node {
	if t == nil || !t.valid(id) {
		return nil
	}
	return t.nodes[id]
}

// Len returns the number of nodes.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.nodes)
}

// Children returns the child IDs of id in insertion order. The slice must
// not be modified.
func (t *Tree) Children(id NodeID) []NodeID {
	if t == nil || !t.valid(id) {
		return nil
	}
	return t.children[id]
}

// Parent returns the parent of id, or NoNode for the root.
func (t *Tree) Parent(id NodeID) NodeID {
	if t == nil || !t.valid(id) {
		return NoNode
	}
	return t.parent[id]
}

// Path returns the IDs from the root down to id, inclusive.
func (t *Tree) Path(id NodeID) []NodeID {
	if t == nil || !t.valid(id) {
		return nil
	}
	var path []NodeID
	for cur := id; cur != NoNode; cur = t.parent[cur] {
		path = append(path, cur)
	}
	slices.Reverse(path)
	return path
}

// Cycles returns a copy of the recorded cycles.
func (t *Tree) Cycles() []Cycle {
	if t == nil {
		return nil
	}
	out := make([]Cycle, len(t.cycles))
	for i, c := range t.cycles {
		out[i] = Cycle{Path: slices.Clone(c.Path)}
	}
	return out
}

// BackEdges returns the cycle-closing edges: for each cycle, the edge from
// its last node back to its first.
func (t *Tree) BackEdges() []Edge {
	if t == nil {
		return nil
	}
	edges := make([]Edge, 0, len(t.cycles))
	for _, c := range t.cycles {
		edges = append(edges, Edge{From: c.Path[len(c.Path)-1], To: c.Path[0]})
	}
	return edges
}

// Nodes returns all nodes in ID order (which is also insertion order).
func (t *Tree) Nodes() []*Node {
	if t == nil {
		return nil
	}
	return slices.Clone(t.nodes)
}

// Edges returns the tree edges in ID order of their targets.
func (t *Tree) Edges() []Edge {
	if t == nil {
		return nil
	}
	var edges []Edge
	for id, p := range t.parent {
		if p != NoNode {
			edges = append(edges, Edge{From: p, To: NodeID(id)})
		}
	}
	return edges
}

// Resolved returns the nodes that carry a resolved artifact.
func (t *Tree) Resolved() []*Node {
	var out []*Node
	for _, n := range t.Nodes() {
		if n.IsResolved() {
			out = append(out, n)
		}
	}
	return out
}

// Unresolved returns the non-virtual nodes without a resolved artifact.
func (t *Tree) Unresolved() []*Node {
	var out []*Node
	for _, n := range t.Nodes() {
		if !n.Virtual && !n.IsResolved() {
			out = append(out, n)
		}
	}
	return out
}
