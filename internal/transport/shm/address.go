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

package shm

import (
	"fmt"
	"net/url"
	"strconv"
)

// Address is a parsed shm:// arena address.
type Address struct {
	Name string
	Cap  uint64
}

func (a Address) String() string {
	return fmt.Sprintf("shm://%s?cap=%d", a.Name, a.Cap)
}

// ParseAddress parses arena URLs of the form shm://name?cap=1073741824. A
// bare name without a scheme is accepted as well. Cap defaults to
// DefaultArenaSize.
func ParseAddress(raw string) (Address, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Address{}, fmt.Errorf("parse shm address: %w", err)
	}
	if u.Scheme == "" && u.Host == "" && u.RawQuery == "" {
		if err := validateName(raw); err != nil {
			return Address{}, err
		}
		return Address{Name: raw, Cap: DefaultArenaSize}, nil
	}
	if u.Scheme != "shm" {
		return Address{}, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	name := u.Host
	if name == "" {
		// Allow shm:///name via path
		name = u.Path
		if len(name) > 0 && name[0] == '/' {
			name = name[1:]
		}
	}
	if err := validateName(name); err != nil {
		return Address{}, err
	}
	capVal := uint64(DefaultArenaSize)
	if c := u.Query().Get("cap"); c != "" {
		v, err := strconv.ParseUint(c, 10, 64)
		if err != nil {
			return Address{}, fmt.Errorf("invalid cap: %w", err)
		}
		if err := ValidateArenaSize(v); err != nil {
			return Address{}, err
		}
		capVal = v
	}
	return Address{Name: name, Cap: capVal}, nil
}
