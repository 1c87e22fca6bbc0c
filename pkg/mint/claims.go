// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

// Package mint implements the token minting subsystem of spec §4.7
// (component B): assembling, signing, and encoding access, identity,
// refresh, and logout JWTs, plus PKCE verification and the c_hash/at_hash
// bindings that tie an id-token back to the code/access-token issued
// alongside it.
package mint

import (
	"bytes"
	"encoding/json"
)

// Claims is an insertion-ordered claim map. Spec §9's design notes call for
// "an ordered claim map with typed accessors; serialization order is
// explicit to allow byte-stable JWT payloads under test". Claims is that
// map: Set never reorders an existing key, and MarshalJSON emits keys in
// the order they were first set.
type Claims struct {
	order []string
	data  map[string]any
}

// NewClaims creates an empty, ordered claim map.
func NewClaims() *Claims {
	return &Claims{data: make(map[string]any)}
}

// Set assigns key=value, appending key to the serialization order the
// first time it is set.
func (c *Claims) Set(key string, value any) *Claims {
	if _, exists := c.data[key]; !exists {
		c.order = append(c.order, key)
	}
	c.data[key] = value
	return c
}

// SetIfNotZero sets key=value unless value is nil, an empty string, an
// empty []string or a zero int64. Values of any other type (a zero
// time.Time, an empty map) are always set.
func (c *Claims) SetIfNotZero(key string, value any) *Claims {
	if isZero(value) {
		return c
	}
	return c.Set(key, value)
}

func isZero(v any) bool {
	switch t := v.(type) {
	case string:
		return t == ""
	case nil:
		return true
	case []string:
		return len(t) == 0
	case int64:
		return t == 0
	}
	return false
}

// Get returns the raw value stored for key, and whether it was set.
func (c *Claims) Get(key string) (any, bool) {
	v, ok := c.data[key]
	return v, ok
}

// Map returns a plain copy of every claim, for callers (introspection)
// that need the full payload rather than one key at a time. The copy is
// unordered; callers that need byte-stable output must use MarshalJSON.
func (c *Claims) Map() map[string]any {
	out := make(map[string]any, len(c.data))
	for k, v := range c.data {
		out[k] = v
	}
	return out
}

// MarshalJSON implements json.Marshaler, emitting keys in insertion order.
func (c *Claims) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range c.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		valJSON, err := json.Marshal(c.data[key])
		if err != nil {
			return nil, err
		}
		buf.Write(valJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
