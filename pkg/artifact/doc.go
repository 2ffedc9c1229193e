// Package artifact defines the coordinates that identify artifacts in a
// Maven-style repository, the dependencies that reference them, and the
// resolved artifacts produced once a file has been located.
//
// # Coordinates
//
// A [Coordinate] follows the familiar colon-separated syntax:
//
//	<groupId>:<artifactId>[:<extension>[:<classifier>]]:<version>
//
// The extension defaults to "jar". [Coordinate.Key] drops the version and is
// the identity used for duplicate and cycle detection while a tree is
// collected.
//
// # Dependencies
//
// A [Dependency] adds a scope, an optional flag and exclusions to a
// coordinate. Scopes follow Maven semantics: test and provided dependencies
// are never expanded transitively.
package artifact
