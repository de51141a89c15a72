/*
 *
 * Copyright 2025 The Fluorescence Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

// Package handle issues name-bound references to catalog resources.
//
// A Handle pairs a durable name id with the resource's position in the
// current catalog generation. When the host reinitializes its project the
// Registry rebinds every handle it ever issued, so callers keep using the
// handles they already hold.
package handle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nithinp7/Fluorescence/internal/catalog"
)

// Unbound is the index of a handle whose name is not in the catalog.
const Unbound = ^uint32(0)

// ErrVanished is returned by RectifyAll when a resource that had been handed
// out is absent from the rebuilt catalog.
var ErrVanished = errors.New("handle: resource removed by reinit")

type Handle struct {
	class catalog.Class
	name  catalog.NameID
	index uint32
}

func (h *Handle) Class() catalog.Class { return h.class }
func (h *Handle) Name() catalog.NameID { return h.name }
func (h *Handle) Index() uint32        { return h.index }
func (h *Handle) Valid() bool          { return h != nil && h.index != Unbound }

func (h *Handle) String() string {
	if h == nil {
		return "<nil>"
	}
	if h.index == Unbound {
		return fmt.Sprintf("%v#%d(unbound)", h.class, h.name)
	}
	return fmt.Sprintf("%v#%d@%d", h.class, h.name, h.index)
}

// Require returns the index of h for use in a command. Using an invalid
// handle, or one of another class, is a programming error and panics.
func (h *Handle) Require(class catalog.Class) uint32 {
	if h == nil {
		panic(fmt.Sprintf("handle: nil %v handle", class))
	}
	if h.class != class {
		panic(fmt.Sprintf("handle: %v used where %v is required", h, class))
	}
	if h.index == Unbound {
		panic(fmt.Sprintf("handle: invalid %v used in a command", h))
	}
	return h.index
}

type key struct {
	class catalog.Class
	name  catalog.NameID
}

// Registry retains every handle it issues for the life of the session.
type Registry struct {
	handles []*Handle
	byKey   map[key]*Handle
}

func NewRegistry() *Registry {
	return &Registry{byKey: make(map[key]*Handle)}
}

// Resolve returns the handle for name in class, bound to its position in cat
// or Unbound if cat has no such resource. Resolving the same name twice
// returns the same handle.
func (r *Registry) Resolve(cat *catalog.Catalog, class catalog.Class, name string) *Handle {
	id := cat.Names().Intern(name)
	k := key{class, id}
	h, ok := r.byKey[k]
	if !ok {
		h = &Handle{class: class, name: id, index: Unbound}
		r.byKey[k] = h
		r.handles = append(r.handles, h)
	}
	if i, found := cat.Find(class, id); found {
		h.index = i
	} else {
		h.index = Unbound
	}
	return h
}

// Len returns the number of retained handles.
func (r *Registry) Len() int { return len(r.handles) }

// UnbindAll invalidates every retained handle. Used when the catalog can no
// longer be trusted, such as after a malformed update packet.
func (r *Registry) UnbindAll() {
	for _, h := range r.handles {
		h.index = Unbound
	}
}

// RectifyAll rebinds every retained handle against cat, the freshly rebuilt
// catalog. Handles whose names appear for the first time become valid.
// If a previously valid handle's name is gone, that handle is unbound and
// an error wrapping ErrVanished is returned; the session cannot continue.
func (r *Registry) RectifyAll(cat *catalog.Catalog) error {
	var lost []string
	for _, h := range r.handles {
		wasValid := h.index != Unbound
		i, found := cat.Find(h.class, h.name)
		switch {
		case found:
			h.index = i
		case wasValid:
			h.index = Unbound
			lost = append(lost, fmt.Sprintf("%v %q", h.class, cat.Names().Name(h.name)))
		}
	}
	if len(lost) > 0 {
		return fmt.Errorf("%w: %s", ErrVanished, strings.Join(lost, ", "))
	}
	return nil
}
