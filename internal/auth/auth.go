// Package auth holds the administrator identity set used to gate retractions.
package auth

import (
	"sort"
	"strings"
)

// Admins is an immutable set of administrator identities.
type Admins struct {
	ids map[string]struct{}
}

// ParseAdmins builds an admin set from raw identity strings.
// Entries are trimmed; empty entries are dropped.
func ParseAdmins(raw []string) Admins {
	ids := make(map[string]struct{}, len(raw))
	for _, id := range raw {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		ids[id] = struct{}{}
	}
	return Admins{ids: ids}
}

// ParseAdminList splits a comma separated list (e.g. "123, 456").
func ParseAdminList(list string) Admins {
	return ParseAdmins(strings.Split(list, ","))
}

// Contains reports whether id is an administrator.
// The comparison is an exact match after trimming whitespace.
func (a Admins) Contains(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	_, ok := a.ids[id]
	return ok
}

// Len returns the number of administrators.
func (a Admins) Len() int {
	return len(a.ids)
}

// List returns the identities in sorted order.
func (a Admins) List() []string {
	out := make([]string, 0, len(a.ids))
	for id := range a.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
