package cli

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/arc-language/core-emit/backend"
	"github.com/arc-language/core-emit/backend/arc"
	"github.com/arc-language/core-emit/backend/llir"
	"github.com/arc-language/core-emit/backend/native"
)

var backends = map[string]func() backend.Backend{
	native.Name: func() backend.Backend { return native.New() },
	llir.Name:   func() backend.Backend { return llir.New() },
	arc.Name:    func() backend.Backend { return arc.New() },
}

var inspectors = map[string]backend.Inspector{
	native.Name: native.Inspector{},
	llir.Name:   llir.Inspector{},
}

// BackendNames lists the registered backends in sorted order.
func BackendNames() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewBackend returns the backend registered under name.
func NewBackend(name string) (backend.Backend, error) {
	newFn, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q: must be one of %v", name, BackendNames())
	}
	return newFn(), nil
}

// NewInspector returns the artifact reader registered under name.
func NewInspector(name string) (backend.Inspector, error) {
	in, ok := inspectors[name]
	if !ok {
		return nil, fmt.Errorf("backend %q cannot read artifacts back", name)
	}
	return in, nil
}

// setBackendLogger routes backend logging through l.
func setBackendLogger(l *zap.Logger) {
	native.SetLogger(l.Named(native.Name))
}
