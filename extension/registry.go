// registry.go holds the process-wide list of extensions.
//
// Extensions register from init(), before main() runs, so a duplicate name
// is a build mistake and panics the way database/sql.Register does.
// Registration order is kept so commands list the same way on every run.

package extension

import "sync"

var (
	mu     sync.RWMutex
	exts   []Extension
	byName = map[string]Extension{}
)

// Register adds e to the registry. Call it from init().
func Register(e Extension) {
	mu.Lock()
	defer mu.Unlock()

	name := e.Name()
	if _, dup := byName[name]; dup {
		panic("extension already registered: " + name)
	}
	byName[name] = e
	exts = append(exts, e)
}

// All returns the registered extensions in registration order.
func All() []Extension {
	mu.RLock()
	defer mu.RUnlock()
	return append([]Extension(nil), exts...)
}

// Get returns the extension called name, or nil.
func Get(name string) Extension {
	mu.RLock()
	defer mu.RUnlock()
	return byName[name]
}

// Names returns extension names in registration order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(exts))
	for _, e := range exts {
		names = append(names, e.Name())
	}
	return names
}

// OfflineCommands returns the top-level commands extensions declare as
// working without an IP Fabric connection.
func OfflineCommands() []string {
	var out []string
	for _, e := range All() {
		if o, ok := e.(Offline); ok {
			out = append(out, o.OfflineCommands()...)
		}
	}
	return out
}
