package reconciler

import (
	"slices"
	"sync"
)

// set of student ids.
type set map[string]struct{}

func newSet(ids ...string) set {
	s := make(set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}

	return s
}

func (s set) has(id string) bool {
	_, ok := s[id]
	return ok
}

// minus returns the sorted ids of s missing from other.
func (s set) minus(other set) []string {
	var out []string

	for id := range s {
		if !other.has(id) {
			out = append(out, id)
		}
	}

	slices.Sort(out)

	return out
}

func (s set) sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}

	slices.Sort(out)

	return out
}

// MembershipCache is the reconciler's belief about provider group
// membership. It starts empty with every process and is never a source of truth.
type MembershipCache struct {
	mu     sync.RWMutex
	groups map[string]set
}

// NewMembershipCache returns an empty cache.
func NewMembershipCache() *MembershipCache {
	return &MembershipCache{groups: map[string]set{}}
}

// get returns a copy of the members believed to be in group.
func (c *MembershipCache) get(group string) set {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(set, len(c.groups[group]))
	for id := range c.groups[group] {
		out[id] = struct{}{}
	}

	return out
}

// put replaces the members of group. An empty set removes the group.
func (c *MembershipCache) put(group string, members set) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(members) == 0 {
		delete(c.groups, group)
		return
	}

	c.groups[group] = members
}

// Groups returns the cached group names, sorted.
func (c *MembershipCache) Groups() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, 0, len(c.groups))
	for g := range c.groups {
		out = append(out, g)
	}

	slices.Sort(out)

	return out
}

// Members returns the sorted members believed to be in group.
func (c *MembershipCache) Members(group string) []string {
	return c.get(group).sorted()
}

// Snapshot copies the whole cache.
func (c *MembershipCache) Snapshot() map[string][]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string][]string, len(c.groups))
	for g, members := range c.groups {
		out[g] = members.sorted()
	}

	return out
}

// Len returns the number of cached groups.
func (c *MembershipCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.groups)
}
