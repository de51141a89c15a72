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

package catalog

// NameID is the durable identity of an interned name.
type NameID uint32

// StringTable maps names to sequential ids. It only grows: an id, once
// handed out, refers to the same string for the lifetime of the table.
type StringTable struct {
	ids   map[string]NameID
	names []string
}

func NewStringTable() *StringTable {
	return &StringTable{ids: make(map[string]NameID)}
}

// Intern returns the id of s, allocating the next id if s is new.
func (t *StringTable) Intern(s string) NameID {
	if id, ok := t.ids[s]; ok {
		return id
	}
	id := NameID(len(t.names))
	t.ids[s] = id
	t.names = append(t.names, s)
	return id
}

// Lookup returns the id of s without interning it.
func (t *StringTable) Lookup(s string) (NameID, bool) {
	id, ok := t.ids[s]
	return id, ok
}

// Name returns the string for id, or "" if id was never allocated.
func (t *StringTable) Name(id NameID) string {
	if int(id) >= len(t.names) {
		return ""
	}
	return t.names[id]
}

func (t *StringTable) Len() int { return len(t.names) }
