// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// NotificationPrefix marks method names that are fire-and-forget.
const NotificationPrefix = "on_"

// IsNotification reports whether method is a notification by name.
func IsNotification(method string) bool {
	return strings.HasPrefix(method, NotificationPrefix)
}

// MethodFunc is a bound handler method. Params have not been validated yet;
// the function decodes them with Arg before doing any work.
type MethodFunc func(ctx context.Context, params Params) (any, error)

// Methods is the explicit method table of a handler.
type Methods map[string]MethodFunc

// RPCMethods lets a bare table be registered directly.
func (m Methods) RPCMethods() Methods { return m }

// Handler is anything that exposes a method table.
type Handler interface {
	RPCMethods() Methods
}

// Registration identifies one Register call.
type Registration struct {
	id uint64
}

// Valid reports whether r came from Register.
func (r Registration) Valid() bool { return r.id != 0 }

// Binding is one resolved method of a registered handler.
type Binding struct {
	Method       string
	Func         MethodFunc
	Notification bool
	Registration Registration
}

type registryEntry struct {
	reg      Registration
	bindings map[string]Binding
}

// MethodRegistry holds handlers in registration order. Earlier handlers
// shadow later ones for calls.
type MethodRegistry struct {
	mu      sync.RWMutex
	nextID  uint64
	entries []registryEntry
}

// NewMethodRegistry returns an empty registry.
func NewMethodRegistry() *MethodRegistry {
	return &MethodRegistry{}
}

// Register appends h and returns the handle that removes it again.
func (r *MethodRegistry) Register(h Handler) Registration {
	methods := h.RPCMethods()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	reg := Registration{id: r.nextID}
	bindings := make(map[string]Binding, len(methods))
	for name, fn := range methods {
		if fn == nil {
			continue
		}
		bindings[name] = Binding{
			Method:       name,
			Func:         fn,
			Notification: IsNotification(name),
			Registration: reg,
		}
	}
	r.entries = append(r.entries, registryEntry{reg: reg, bindings: bindings})
	return reg
}

// Unregister removes the bindings contributed by reg. It reports whether
// reg was registered.
func (r *MethodRegistry) Unregister(reg Registration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.reg == reg {
			r.entries = append(r.entries[:i:i], r.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Resolve returns the first binding for method in registration order.
func (r *MethodRegistry) Resolve(method string) (Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if b, ok := e.bindings[method]; ok {
			return b, true
		}
	}
	return Binding{}, false
}

// ResolveAll returns every binding for method in registration order.
func (r *MethodRegistry) ResolveAll(method string) []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Binding
	for _, e := range r.entries {
		if b, ok := e.bindings[method]; ok {
			out = append(out, b)
		}
	}
	return out
}

// Len returns the number of registered handlers.
func (r *MethodRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// MethodNames lists every method currently exposed, sorted.
func (r *MethodRegistry) MethodNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, e := range r.entries {
		for name := range e.bindings {
			seen[name] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
