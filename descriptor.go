package replaycache

import (
	"fmt"
	"sort"
	"strings"
)

// Operation describes one remotely-invocable call of the wrapped interface.
type Operation struct {
	// Name is the operation's unique name. It becomes part of the cache
	// key, so it must be filesystem-path-safe.
	Name string
	// Params lists the declared parameter names in call order. Purely
	// descriptive today; the dispatcher does not reject extra or missing
	// arguments, it only keys on what the caller passed.
	Params []string
}

// Descriptor is the capability set of a wrapped interface: the operations
// the proxy exposes and forwards. Built once at construction, read-only
// afterward. An empty descriptor is legal; the proxy then rejects every
// call as unknown.
type Descriptor struct {
	api string
	ops map[string]Operation
}

// NewDescriptor validates and indexes the declared operations.
func NewDescriptor(api string, ops []Operation) (Descriptor, error) {
	d := Descriptor{api: api, ops: make(map[string]Operation, len(ops))}
	for _, op := range ops {
		if !safeName(op.Name) {
			return Descriptor{}, fmt.Errorf("replaycache: invalid operation name %q", op.Name)
		}
		if _, dup := d.ops[op.Name]; dup {
			return Descriptor{}, fmt.Errorf("replaycache: duplicate operation %q", op.Name)
		}
		d.ops[op.Name] = op
	}
	return d, nil
}

// API returns the wrapped interface's name.
func (d Descriptor) API() string { return d.api }

// Operation looks up a declared operation by name.
func (d Descriptor) Operation(name string) (Operation, bool) {
	op, ok := d.ops[name]
	return op, ok
}

// Names returns the declared operation names, sorted.
func (d Descriptor) Names() []string {
	names := make([]string, 0, len(d.ops))
	for name := range d.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len reports the number of declared operations.
func (d Descriptor) Len() int { return len(d.ops) }

// safeName rejects names that could escape the cache namespace once
// embedded in a record path.
func safeName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}
