// Package maven talks to Maven repositories.
//
// [Client] implements the repository-facing collaborators of resolution on
// top of the standard Maven layout:
//
//   - [resolve.DescriptorReader]: reads POMs and builds their effective model
//     (parent inheritance, property interpolation, dependency management,
//     imported BOMs, relocations)
//   - [resolve.Fetcher]: downloads artifact files, verifying .sha1 checksums
//   - [resolve.MetadataResolver], [resolve.VersionResolver] and
//     [resolve.VersionRangeResolver]: read maven-metadata.xml
//
// Repository URLs may use http, https or file schemes. POM and metadata
// responses are stored in the session's [cache.Cache]; artifact files are
// stored in the session's local repository.
//
// [Client.LoadProject] turns a pom.xml on disk into a [collect.Request].
package maven
