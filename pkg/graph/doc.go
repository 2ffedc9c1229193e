// Package graph provides the dependency tree produced by collection and
// consumed by resolution.
//
// # Arena Layout
//
// A [Tree] owns all of its nodes in a slice and addresses them by [NodeID].
// The parent/child relationship is stored as index lists, so a node can be
// reached through exactly one tree edge. Dependency cycles detected during
// collection are recorded separately with [Tree.AddCycle]; they are data for
// reporting and are never followed by [Tree.Accept].
//
// # Traversal
//
// [Tree.Accept] performs a depth-first, pre-order walk starting at the root
// and visiting children in insertion order. Each node is entered at most
// once. A [Visitor] can prune a subtree by returning false from Enter, or
// stop visiting the remaining siblings by returning false from Leave.
//
// # Virtual Roots
//
// Collecting a plain list of dependencies (for example the dependencies
// declared in a pom.xml) yields a tree whose root carries no artifact. Such
// a root is created with [NewVirtual] and reports [Node.Virtual] as true.
package graph
