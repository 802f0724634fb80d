// Package selection expands a user selection of application objects into a
// set that is closed under every reference an export emits.
package selection

import (
	"sort"
)

// Key namespaces id with its base table, for schemas whose ids are only
// unique per table.
func Key(base, id string) string {
	return base + ":" + id
}

// Set holds object ids. Members added by Add are seeds; members pulled in by
// closure are derived.
type Set struct {
	members map[string]bool
}

func NewSet(ids ...string) *Set {
	s := &Set{members: map[string]bool{}}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add marks id as an explicit seed.
func (s *Set) Add(id string) {
	s.members[id] = true
}

func (s *Set) include(id string) bool {
	if _, ok := s.members[id]; ok {
		return false
	}
	s.members[id] = false
	return true
}

func (s *Set) Has(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.members[id]
	return ok
}

// Seed reports whether id was selected explicitly.
func (s *Set) Seed(id string) bool {
	if s == nil {
		return false
	}
	return s.members[id]
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.members)
}

// Empty reports whether the set filters nothing. A nil or empty set means
// no filter.
func (s *Set) Empty() bool {
	return s.Len() == 0
}

// IDs returns the members in sorted order.
func (s *Set) IDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.members))
	for id := range s.members {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Set) Clone() *Set {
	out := &Set{members: make(map[string]bool, s.Len())}
	if s == nil {
		return out
	}
	for id, seed := range s.members {
		out.members[id] = seed
	}
	return out
}

// Equal compares members, ignoring how they entered the set.
func (s *Set) Equal(other *Set) bool {
	if s.Len() != other.Len() {
		return false
	}
	for id := range s.members {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// Graph holds the directed edges closure follows. Requires edges are always
// followed; Contains edges only from seeds.
type Graph struct {
	Requires map[string][]string
	Contains map[string][]string
}

func NewGraph() *Graph {
	return &Graph{
		Requires: map[string][]string{},
		Contains: map[string][]string{},
	}
}

func (g *Graph) AddRequires(from, to string) {
	if from == "" || to == "" || from == to {
		return
	}
	g.Requires[from] = append(g.Requires[from], to)
}

func (g *Graph) AddContains(owner, member string) {
	if owner == "" || member == "" || owner == member {
		return
	}
	g.Contains[owner] = append(g.Contains[owner], member)
}

// Len returns the number of edges.
func (g *Graph) Len() int {
	n := 0
	for _, to := range g.Requires {
		n += len(to)
	}
	for _, to := range g.Contains {
		n += len(to)
	}
	return n
}

// Close returns the smallest superset of seed closed under g. Seeds keep
// their mark so closing the result again yields the same set.
func Close(seed *Set, g *Graph) *Set {
	out := seed.Clone()
	queue := []string{}
	for _, id := range seed.IDs() {
		queue = append(queue, id)
		if !seed.Seed(id) {
			continue
		}
		for _, member := range g.Contains[id] {
			if out.include(member) {
				queue = append(queue, member)
			}
		}
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, to := range g.Requires[id] {
			if out.include(to) {
				queue = append(queue, to)
			}
		}
	}
	return out
}
