package dupes

import "strconv"

// Group is a collection of files with the same size and digest. Paths are in
// the order in which they were discovered.
type Group struct {
	Digest Digest   `json:"digest"`
	Size   uint64   `json:"size"`
	Paths  []string `json:"paths"`
}

// GroupKey opaquely identifies a group within a `GroupSet`.
type GroupKey string

// Key returns the group's key.
func (g *Group) Key() GroupKey {
	return GroupKey(g.Digest.String() + "-" + strconv.FormatUint(g.Size, 10))
}

// DefaultSelection returns the default selection of files to remove: every
// file except the first.
func (g *Group) DefaultSelection() []bool {
	selection := make([]bool, len(g.Paths))
	for i := 1; i < len(selection); i++ {
		selection[i] = true
	}
	return selection
}

// Wasted returns the number of bytes that removing all but one file of the
// group would reclaim.
func (g *Group) Wasted() uint64 {
	if len(g.Paths) < 1 {
		return 0
	}
	return g.Size * uint64(len(g.Paths)-1)
}

// GroupSet is the result of a completed search.
type GroupSet struct {
	Groups []Group `json:"groups"`
}

// Len returns the number of groups.
func (s *GroupSet) Len() int { return len(s.Groups) }

// ByKey returns the groups' paths keyed by group key.
func (s *GroupSet) ByKey() map[GroupKey][]string {
	out := make(map[GroupKey][]string, len(s.Groups))
	for i := range s.Groups {
		out[s.Groups[i].Key()] = s.Groups[i].Paths
	}
	return out
}

// Find returns the group containing `path`, if any.
func (s *GroupSet) Find(path string) (*Group, bool) {
	for i := range s.Groups {
		for _, p := range s.Groups[i].Paths {
			if p == path {
				return &s.Groups[i], true
			}
		}
	}
	return nil, false
}

// Contains reports whether `path` belongs to any group.
func (s *GroupSet) Contains(path string) bool {
	_, found := s.Find(path)
	return found
}

// Summary describes a `GroupSet` in aggregate.
type Summary struct {
	Groups     int    `json:"groups" yaml:"groups"`
	Files      int    `json:"files" yaml:"files"`
	Duplicates int    `json:"duplicates" yaml:"duplicates"`
	Wasted     uint64 `json:"wasted" yaml:"wasted"`
}

func (s *GroupSet) Summary() (summary Summary) {
	summary.Groups = len(s.Groups)
	for i := range s.Groups {
		summary.Files += len(s.Groups[i].Paths)
		summary.Duplicates += len(s.Groups[i].Paths) - 1
		summary.Wasted += s.Groups[i].Wasted()
	}
	return
}
