package operation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"plugin"
	"strings"
	"sync"
)

// PluginResolver loads operations from Go plugins. The request locator is a
// list of plugin files separated by the OS path list separator, searched in
// order like a classpath; relative entries resolve against Dir. The request
// name is looked up as an exported symbol, first verbatim and then by its
// last dot-separated segment, so "demo.Tool" finds a symbol named Tool.
//
// Accepted symbol shapes:
//
//	func(context.Context, operation.Call) (int, error)
//	func([]string) int                       // main-style, writes to os.Stdout
//	var X operation.Operation                // or any exported value implementing it
//
// Opened plugins stay loaded for the life of the process.
type PluginResolver struct {
	Dir string

	mu     sync.Mutex
	opened map[string]*plugin.Plugin
}

func NewPluginResolver(dir string) *PluginResolver {
	return &PluginResolver{
		Dir:    dir,
		opened: make(map[string]*plugin.Plugin),
	}
}

func (r *PluginResolver) Resolve(name, locator string) (Operation, error) {
	paths := r.searchPaths(locator)
	if len(paths) == 0 {
		return nil, Wrap(ErrOperationNotFound, name, locator, "no plugin locator given", nil)
	}
	for _, path := range paths {
		p, err := r.load(path)
		if err != nil {
			return nil, Wrap(ErrPluginLoad, name, path, "open plugin", err)
		}
		for _, symbol := range symbolCandidates(name) {
			sym, err := p.Lookup(symbol)
			if err != nil {
				continue
			}
			op, err := adaptSymbol(sym)
			if err != nil {
				return nil, Wrap(ErrPluginLoad, name, path, fmt.Sprintf("symbol %s", symbol), err)
			}
			return op, nil
		}
	}
	return nil, Wrap(ErrOperationNotFound, name, locator, "no matching plugin symbol", nil)
}

func (r *PluginResolver) searchPaths(locator string) []string {
	var out []string
	for _, entry := range filepath.SplitList(locator) {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if !filepath.IsAbs(entry) && r.Dir != "" {
			entry = filepath.Join(r.Dir, entry)
		}
		out = append(out, filepath.Clean(entry))
	}
	return out
}

func (r *PluginResolver) load(path string) (*plugin.Plugin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.opened[path]; ok {
		return p, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	if r.opened == nil {
		r.opened = make(map[string]*plugin.Plugin)
	}
	r.opened[path] = p
	return p, nil
}

func symbolCandidates(name string) []string {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	out := []string{name}
	if idx := strings.LastIndexAny(name, ".$/"); idx >= 0 && idx < len(name)-1 {
		out = append(out, name[idx+1:])
	}
	return out
}

func adaptSymbol(sym any) (Operation, error) {
	switch v := sym.(type) {
	case func(context.Context, Call) (int, error):
		return Func(v), nil
	case *func(context.Context, Call) (int, error):
		return Func(*v), nil
	case func([]string) int:
		return mainStyle(v), nil
	case *Operation:
		if *v == nil {
			return nil, fmt.Errorf("operation variable is nil")
		}
		return *v, nil
	case Operation:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported symbol type %T", sym)
	}
}

// mainStyle wraps an entry point that only knows its arguments. Output goes
// wherever the process streams point, which is what capture intercepts.
func mainStyle(fn func([]string) int) Operation {
	return Func(func(_ context.Context, call Call) (int, error) {
		args := call.Args
		if args == nil {
			args = []string{}
		}
		return fn(args), nil
	})
}
