package funcs

import (
	"strings"
	"sync"

	"github.com/ianlancetaylor/demangle"
)

// demangleCache memoizes Itanium demangling: the same export/import
// name gets looked up repeatedly while naming functions and building
// import display names.
type demangleCache struct {
	mu    sync.Mutex
	cache map[string]string
}

var demangler = &demangleCache{cache: make(map[string]string)}

// Demangle returns the best-effort demangled display form of an Itanium
// (GCC/Clang) mangled C++ symbol name. MSVC's `?`-prefixed mangling is
// out of scope and passed through unchanged. Returns name unchanged
// (never an error) when demangling does not apply or fails — the raw
// name is always preserved by the caller alongside this result.
func Demangle(name string) string {
	if !strings.HasPrefix(name, "_Z") {
		return name
	}

	demangler.mu.Lock()
	defer demangler.mu.Unlock()
	if cached, ok := demangler.cache[name]; ok {
		return cached
	}

	d := demangle.Filter(name, demangle.NoClones)
	demangler.cache[name] = d
	return d
}
