// SPDX-FileCopyrightText: Copyright 2026 The authcore Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"fmt"
	"sync"
)

// ErrNotFound is returned when a client id names no registered client.
var ErrNotFound = fmt.Errorf("client: not found")

// StaticStore is the production ClientInfoProvider for the set of clients
// config.Config.Resolve produces at startup: a fixed, in-memory roster
// keyed by client id. It mirrors the single-mutex MemoryStore already used
// for token storage (pkg/store), since a client roster this small never
// benefits from the distributed KVStore's TTL machinery.
type StaticStore struct {
	mu      sync.RWMutex
	clients map[string]*ClientInfo
}

// NewStaticStore builds a StaticStore from a resolved client list, the
// shape config.Config.Resolve returns.
func NewStaticStore(clients []*ClientInfo) *StaticStore {
	s := &StaticStore{clients: make(map[string]*ClientInfo, len(clients))}
	for _, c := range clients {
		s.clients[c.ID] = c
	}
	return s
}

// GetClient implements ClientInfoProvider.
func (s *StaticStore) GetClient(_ context.Context, clientID string) (*ClientInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[clientID]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

// Put registers or replaces a client. Client registration itself is owned
// by whatever embeds StaticStore, not by this package; Put only exists so
// that owner has somewhere to write the result.
func (s *StaticStore) Put(c *ClientInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.ID] = c
}

var _ ClientInfoProvider = (*StaticStore)(nil)
