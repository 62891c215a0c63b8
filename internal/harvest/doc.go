// Package harvest defines the core types shared across subsystems: the
// DocumentRecord ingested from external sources, the Harvester contract,
// the store surface harvesters persist through, and the pure helpers for
// URL canonicalization, identifier derivation and attachment naming.
package harvest
