package authz

import (
	"sort"

	"github.com/strandnet/console/internal/models"
)

// Resolver answers "can this role perform this action". Role sets are built
// once at construction and never mutated afterwards, so lookups are safe for
// concurrent use without locking.
type Resolver struct {
	roleSets map[string]map[string]bool
}

// NewResolver builds a resolver from the built-in role permission sets.
func NewResolver() *Resolver {
	return NewResolverWithSets(defaultRoleSets)
}

// NewResolverWithSets builds a resolver from explicit role → action mappings.
func NewResolverWithSets(sets map[string][]string) *Resolver {
	roleSets := make(map[string]map[string]bool, len(sets))
	for role, actions := range sets {
		set := make(map[string]bool, len(actions))
		for _, action := range actions {
			set[action] = true
		}
		roleSets[role] = set
	}
	return &Resolver{roleSets: roleSets}
}

// Can reports whether the role may perform the action. Admin short-circuits
// to true for every action code, including codes not present in any set.
func (r *Resolver) Can(role, action string) bool {
	if role == models.RoleAdmin {
		return true
	}
	set, ok := r.roleSets[role]
	if !ok {
		return false
	}
	return set[action]
}

// CanAny reports whether the role may perform at least one of the actions.
// The UI uses this to decide whether to expose a whole feature area.
func (r *Resolver) CanAny(role string, actions []string) bool {
	for _, action := range actions {
		if r.Can(role, action) {
			return true
		}
	}
	return false
}

// ActionsFor returns the sorted action-code set for a role. For admin it
// returns the union of every known action code.
func (r *Resolver) ActionsFor(role string) []string {
	if role == models.RoleAdmin {
		union := make(map[string]bool)
		for _, set := range r.roleSets {
			for action := range set {
				union[action] = true
			}
		}
		// Codes only admin holds still belong in the response.
		for _, action := range []string{
			ActionStaffCreate, ActionStaffUpdate, ActionStaffArchive,
			ActionStaffRevoke, ActionBillingAdjust, ActionAuditRead, ActionMetricsRead,
		} {
			union[action] = true
		}
		return sortedActions(union)
	}

	set, ok := r.roleSets[role]
	if !ok {
		return []string{}
	}
	return sortedActions(set)
}

func sortedActions(set map[string]bool) []string {
	actions := make([]string, 0, len(set))
	for action := range set {
		actions = append(actions, action)
	}
	sort.Strings(actions)
	return actions
}
