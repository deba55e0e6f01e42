// flags.go defines constants for all CLI flag names.
//
// Using constants instead of string literals prevents typos and enables
// compile-time checking when flag names are used in both Flags().Type()
// definitions and GetType() calls.
//
// Naming convention: Flag<PascalCaseName> where name matches the kebab-case
// CLI flag (e.g., "nested-exclude" -> FlagNestedExclude).

package extension

// Flag name constants for CLI commands.
const (
	// Boolean flags

	FlagFailed = "failed" // Only failed entries
	FlagFull   = "full"   // Include tool calls and results
	FlagGlobal = "global" // Use global scope
	FlagLocal  = "local"  // Use local scope (.ipfa/config.yaml)
	FlagNoPin  = "no-pin" // Keep a snapshot alias instead of resolving it
	FlagRaw    = "raw"    // Raw output without colour

	// String flags

	FlagA             = "a"              // Baseline snapshot
	FlagB             = "b"              // Target snapshot
	FlagColumns       = "columns"        // Columns to return
	FlagExclude       = "exclude"        // Fields dropped before comparison
	FlagFilter        = "filter"         // IP Fabric filter object as JSON
	FlagInclude       = "include"        // Fields compared exclusively
	FlagKeys          = "keys"           // Fields identifying a record
	FlagNestedExclude = "nested-exclude" // Fields stripped inside nested values
	FlagOlderThan     = "older-than"     // Retention period (e.g. 30d)
	FlagResume        = "resume"         // Conversation to continue
	FlagSince         = "since"          // Only entries newer than this (e.g. 7d)
	FlagSource        = "source"         // Audit log source prefix

	// Integer flags

	FlagLimit = "limit" // Limit number of results
)
