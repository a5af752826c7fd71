package permissions

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

// Registry is the catalogue of registered permissions. Registration happens
// during bootstrap only; Validate is the barrier between the boot phase and
// the serving phase. Once sealed, reads require no locking.
type Registry struct {
	mu    sync.Mutex
	perms map[string]Permission
	// requires maps a permission ID to its transitive dependency set,
	// precomputed during Validate.
	requires map[string][]string
	sealed   atomic.Bool
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{perms: make(map[string]Permission)}
}

// Register adds a permission to the catalogue. It fails with ErrDuplicateID
// when the ID is already taken and with ErrRegistrySealed after Validate.
func (r *Registry) Register(p Permission) error {
	if r.sealed.Load() {
		return fmt.Errorf("%w: cannot register %s", ErrRegistrySealed, p.ID)
	}
	if p.ID == "" {
		return fmt.Errorf("permissions: permission id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.perms[p.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, p.ID)
	}
	r.perms[p.ID] = p
	return nil
}

// Validate checks that every dependency is registered and that the
// dependency graph is acyclic, then seals the registry. The process must
// not serve traffic when Validate fails.
func (r *Registry) Validate() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, p := range r.perms {
		for _, dep := range p.DependsOn {
			if _, ok := r.perms[dep]; !ok {
				return &UnknownDependencyError{PermissionID: id, DependencyID: dep}
			}
		}
	}

	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make(map[string]int, len(r.perms))
	requires := make(map[string][]string, len(r.perms))

	var visit func(id string, stack []string) error
	visit = func(id string, stack []string) error {
		switch state[id] {
		case done:
			return nil
		case inStack:
			// Trim the stack down to the first occurrence of id so the
			// reported path covers exactly the cycle.
			start := 0
			for i, s := range stack {
				if s == id {
					start = i
					break
				}
			}
			path := append(append([]string{}, stack[start:]...), id)
			return &CyclicDependencyError{Path: path}
		}
		state[id] = inStack
		stack = append(stack, id)
		set := make(map[string]struct{})
		for _, dep := range r.perms[id].DependsOn {
			if err := visit(dep, stack); err != nil {
				return err
			}
			set[dep] = struct{}{}
			for _, indirect := range requires[dep] {
				set[indirect] = struct{}{}
			}
		}
		state[id] = done
		flat := make([]string, 0, len(set))
		for dep := range set {
			flat = append(flat, dep)
		}
		sort.Strings(flat)
		requires[id] = flat
		return nil
	}

	for id := range r.perms {
		if err := visit(id, nil); err != nil {
			return err
		}
	}

	r.requires = requires
	r.sealed.Store(true)
	return nil
}

// Sealed reports whether Validate completed successfully.
func (r *Registry) Sealed() bool {
	return r.sealed.Load()
}

// Get returns the permission for the given ID.
func (r *Registry) Get(id string) (Permission, bool) {
	if !r.sealed.Load() {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	p, ok := r.perms[id]
	return p, ok
}

// Requires returns the transitive dependency set for the given permission.
// Only valid after Validate.
func (r *Registry) Requires(id string) []string {
	return r.requires[id]
}

// All returns every registered permission ordered by module then ID.
func (r *Registry) All() []Permission {
	if !r.sealed.Load() {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	all := make([]Permission, 0, len(r.perms))
	for _, p := range r.perms {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Module != all[j].Module {
			return all[i].Module < all[j].Module
		}
		return all[i].ID < all[j].ID
	})
	return all
}

// ByModule returns the permissions registered under the given module,
// ordered by ID.
func (r *Registry) ByModule(module string) []Permission {
	var result []Permission
	for _, p := range r.All() {
		if p.Module == module {
			result = append(result, p)
		}
	}
	return result
}

// IDs returns every registered permission ID, sorted.
func (r *Registry) IDs() []string {
	all := r.All()
	ids := make([]string, 0, len(all))
	for _, p := range all {
		ids = append(ids, p.ID)
	}
	sort.Strings(ids)
	return ids
}
