// Package qcproj reads and writes content project files (.qcproj) and routes
// each project entry to the extension that can open and save it.
//
// A project is one project-level ContentMetadata record plus an ordered list
// of ContentProjectEntry values, each binding a file path to its metadata.
// Every record names a (resource type, loader) pair. Extensions claim pairs
// through a Resolver, which keeps a Registry of the known resource types and
// loaders in step with what is installed.
//
// File Format
//
// All integers are little-endian. A file is the u64 magic ProjectMagic, the
// u16 compiler version, the 16-byte project id, the project metadata record,
// a u32 entry count and the entries. Each entry is a path string followed by
// a metadata record: id, name, obey-physics byte, visible byte, u16 loader id,
// u16 resource type id and u16 compiler version. Strings are a u16 count of
// UTF-16 code units followed by the units.
//
// Storage backends (memory, filesystem, S3) live under storage/, access list
// repositories (memory, Postgres) under repo/, an entry scanner under scan/
// and an HTTP API under api/.
package qcproj
