// Package permissions holds the process-wide permission catalogue.
//
// Every feature module declares its permissions during bootstrap via
// Register calls; Validate seals the registry before the server starts
// accepting traffic. After that point the catalogue is immutable and
// safe for concurrent readers.
package permissions

// Permission represents an atomic capability with declared prerequisites.
type Permission struct {
	ID          string
	Module      string
	DependsOn   []string
	Description string
}
