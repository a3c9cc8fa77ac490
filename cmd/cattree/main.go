// Command cattree inspects and runs category tree queries.
//
// The CLI supports:
//   - tree: run a GraphQL selection against one or more roots and print the rows
//   - sql: print the statement and arguments a selection would run
//   - migrate: install the catalog schema (and optional fixtures) for development
//   - doctor: run health checks on a catalog database
//   - config show: print the effective configuration
//   - version: print version information
//
// Usage:
//
//	cattree [flags] <command>
//
// Configuration is read from cattree.yaml (discovered by walking up to the
// repository root), CATTREE_* environment variables and flags.
package main

func main() {
	Execute()
}
