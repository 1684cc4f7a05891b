// Copyright 2026 The Tsyne Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

// recentSet remembers the last capacity completed correlation ids so a
// second response for one of them is reported as a duplicate rather than
// as unknown. Not safe for concurrent use; the dispatcher guards it.
type recentSet struct {
	ring    []string
	next    int
	members map[string]struct{}
}

func newRecentSet(capacity int) *recentSet {
	return &recentSet{
		ring:    make([]string, capacity),
		members: make(map[string]struct{}, capacity),
	}
}

func (s *recentSet) add(id string) {
	if len(s.ring) == 0 {
		return
	}
	if evicted := s.ring[s.next]; evicted != "" {
		delete(s.members, evicted)
	}
	s.ring[s.next] = id
	s.members[id] = struct{}{}
	s.next = (s.next + 1) % len(s.ring)
}

func (s *recentSet) contains(id string) bool {
	_, ok := s.members[id]
	return ok
}
