// Package all imports all built-in ipfa extensions.
// Import this package to register all built-in commands.
package all

import (
	// Built-in extensions - each registers itself via init()
	_ "github.com/jpl-au/ipfa/extension/chat"
	_ "github.com/jpl-au/ipfa/extension/core"
	_ "github.com/jpl-au/ipfa/extension/snapshot"
	_ "github.com/jpl-au/ipfa/extension/table"
)
