package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// SymmetryGroup is one (role, strategy, count) record of a profile's
// composition. ID is only set on server-returned groups.
type SymmetryGroup struct {
	ID       int64
	Role     string
	Strategy string
	Count    int
}

// AssignmentFromSymmetryGroups encodes a symmetry-group list as the canonical
// assignment string "role1: c1 strat1, c2 strat2; role2: ...". Roles are
// sorted lexicographically, entries within a role by (strategy, count).
// Entries with a non-positive count are omitted, but the role header is kept.
// A duplicate (role, strategy) pair is an error.
func AssignmentFromSymmetryGroups(groups []SymmetryGroup) (string, error) {
	type entry struct {
		strategy string
		count    int
	}
	byRole := make(map[string][]entry)
	seen := make(map[[2]string]bool)
	for _, g := range groups {
		key := [2]string{g.Role, g.Strategy}
		if seen[key] {
			return "", fmt.Errorf("duplicate strategy %q for role %q", g.Strategy, g.Role)
		}
		seen[key] = true
		byRole[g.Role] = append(byRole[g.Role], entry{g.Strategy, g.Count})
	}

	roles := make([]string, 0, len(byRole))
	for role := range byRole {
		roles = append(roles, role)
	}
	sort.Strings(roles)

	sections := make([]string, 0, len(roles))
	for _, role := range roles {
		entries := byRole[role]
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].strategy != entries[j].strategy {
				return entries[i].strategy < entries[j].strategy
			}
			return entries[i].count < entries[j].count
		})
		pairs := make([]string, 0, len(entries))
		for _, e := range entries {
			if e.count <= 0 {
				continue
			}
			pairs = append(pairs, fmt.Sprintf("%d %s", e.count, e.strategy))
		}
		sections = append(sections, role+": "+strings.Join(pairs, ", "))
	}
	return strings.Join(sections, "; "), nil
}

// ParseAssignment decodes an assignment string back into symmetry groups.
// The inverse of AssignmentFromSymmetryGroups up to canonical ordering.
func ParseAssignment(assignment string) ([]SymmetryGroup, error) {
	var groups []SymmetryGroup
	for _, section := range strings.Split(assignment, ";") {
		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}
		role, rest, ok := strings.Cut(section, ":")
		if !ok {
			return nil, fmt.Errorf("assignment section %q has no role", section)
		}
		role = strings.TrimSpace(role)
		if role == "" {
			return nil, fmt.Errorf("assignment section %q has an empty role", section)
		}
		for _, pair := range strings.Split(rest, ",") {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			countText, strategy, ok := strings.Cut(pair, " ")
			if !ok {
				return nil, fmt.Errorf("assignment entry %q is not \"count strategy\"", pair)
			}
			count, err := strconv.Atoi(countText)
			if err != nil {
				return nil, fmt.Errorf("assignment entry %q has a non-numeric count", pair)
			}
			groups = append(groups, SymmetryGroup{
				Role:     role,
				Strategy: strings.TrimSpace(strategy),
				Count:    count,
			})
		}
	}
	return groups, nil
}
