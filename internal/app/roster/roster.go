// Package roster edits downline trees for the input layer.
//
// Every operation returns a new tree and leaves its argument untouched:
// the path from the root to the edited member is copied, untouched subtrees
// are shared. Callers must therefore treat trees as immutable snapshots.
package roster

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/pvplan/pvplan/internal/domain"
)

// NewMember creates a member with a fresh id, derived rank and zero volume.
func NewMember(name string) domain.Member {
	return domain.Member{
		ID:   uuid.NewString(),
		Name: name,
		Rank: domain.DerivedRank(),
	}
}

// Flat builds a depth-1 roster from direct recruits.
func Flat(members ...domain.Member) []domain.Member {
	out := make([]domain.Member, len(members))
	copy(out, members)
	return out
}

// ─── Queries ────────────────────────────────────────────────────────────────

// Find returns the member with the given id.
func Find(tree []domain.Member, id string) (domain.Member, bool) {
	for _, m := range tree {
		if m.ID == id {
			return m, true
		}
		if found, ok := Find(m.Children, id); ok {
			return found, true
		}
	}
	return domain.Member{}, false
}

// Count returns the number of members in the tree.
func Count(tree []domain.Member) int {
	n := len(tree)
	for _, m := range tree {
		n += Count(m.Children)
	}
	return n
}

// Depth returns the number of levels in the tree (0 for an empty tree).
func Depth(tree []domain.Member) int {
	max := 0
	for _, m := range tree {
		if d := 1 + Depth(m.Children); d > max {
			max = d
		}
	}
	return max
}

// ─── Edits ──────────────────────────────────────────────────────────────────

// Append adds a direct recruit at the end of the roster.
func Append(tree []domain.Member, m domain.Member) []domain.Member {
	out := make([]domain.Member, len(tree), len(tree)+1)
	copy(out, tree)
	return append(out, m)
}

// AddChild appends child under the member identified by parentID.
func AddChild(tree []domain.Member, parentID string, child domain.Member) ([]domain.Member, error) {
	return edit(tree, parentID, func(m domain.Member) (domain.Member, bool) {
		m.Children = Append(m.Children, child)
		return m, true
	})
}

// Update applies fn to a copy of the member identified by id. fn may change
// name, rank and volume; the id and children are restored afterwards.
func Update(tree []domain.Member, id string, fn func(*domain.Member)) ([]domain.Member, error) {
	return edit(tree, id, func(m domain.Member) (domain.Member, bool) {
		children := m.Children
		fn(&m)
		m.ID = id
		m.Children = children
		return m, true
	})
}

// Remove deletes the member identified by id together with its subtree.
func Remove(tree []domain.Member, id string) ([]domain.Member, error) {
	return edit(tree, id, func(m domain.Member) (domain.Member, bool) {
		return m, false
	})
}

// Reset zeroes every volume and returns every rank to derived.
func Reset(tree []domain.Member) []domain.Member {
	if tree == nil {
		return nil
	}
	out := make([]domain.Member, len(tree))
	for i, m := range tree {
		out[i] = domain.Member{
			ID:       m.ID,
			Name:     m.Name,
			Rank:     domain.DerivedRank(),
			Children: Reset(m.Children),
		}
	}
	return out
}

// edit copies the path to id and replaces the member with fn's result, or
// drops it when fn returns keep=false.
func edit(tree []domain.Member, id string, fn func(domain.Member) (domain.Member, bool)) ([]domain.Member, error) {
	out, ok := editIn(tree, id, fn)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrMemberNotFound, id)
	}
	return out, nil
}

func editIn(tree []domain.Member, id string, fn func(domain.Member) (domain.Member, bool)) ([]domain.Member, bool) {
	for i, m := range tree {
		if m.ID == id {
			repl, keep := fn(m)
			out := make([]domain.Member, 0, len(tree))
			out = append(out, tree[:i]...)
			if keep {
				out = append(out, repl)
			}
			return append(out, tree[i+1:]...), true
		}

		if children, ok := editIn(m.Children, id, fn); ok {
			out := make([]domain.Member, len(tree))
			copy(out, tree)
			out[i].Children = children
			return out, true
		}
	}
	return tree, false
}

// ─── Validation ─────────────────────────────────────────────────────────────

// EnsureIDs returns a copy of the tree where members without an id get a
// fresh one. Roster files may omit ids.
func EnsureIDs(tree []domain.Member) []domain.Member {
	if tree == nil {
		return nil
	}
	out := make([]domain.Member, len(tree))
	for i, m := range tree {
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		m.Children = EnsureIDs(m.Children)
		out[i] = m
	}
	return out
}

// Validate checks that ids are present and unique and, when maxDepth > 0,
// that the tree is no deeper than maxDepth.
func Validate(tree []domain.Member, maxDepth int) error {
	if maxDepth > 0 {
		if d := Depth(tree); d > maxDepth {
			return fmt.Errorf("%w: depth %d exceeds limit %d", domain.ErrInvalidRoster, d, maxDepth)
		}
	}
	seen := make(map[string]struct{})
	return validateIDs(tree, seen)
}

func validateIDs(tree []domain.Member, seen map[string]struct{}) error {
	for _, m := range tree {
		if m.ID == "" {
			return fmt.Errorf("%w: member %q has no id", domain.ErrInvalidRoster, m.Name)
		}
		if _, dup := seen[m.ID]; dup {
			return fmt.Errorf("%w: duplicate id %s", domain.ErrInvalidRoster, m.ID)
		}
		seen[m.ID] = struct{}{}
		if err := validateIDs(m.Children, seen); err != nil {
			return err
		}
	}
	return nil
}
