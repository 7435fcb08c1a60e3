package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strandnet/console/internal/models"
)

func TestResolver_AdminCanEverything(t *testing.T) {
	r := NewResolver()

	for _, action := range []string{
		ActionStaffList, ActionStaffCreate, ActionStaffArchive,
		ActionBillingAdjust, ActionAuditRead, ActionMetricsRead,
	} {
		assert.True(t, r.Can(models.RoleAdmin, action), action)
	}

	// Admin short-circuits even for codes no set has heard of.
	assert.True(t, r.Can(models.RoleAdmin, "future.feature.toggle"))
}

func TestResolver_StaffPermissions(t *testing.T) {
	r := NewResolver()

	assert.True(t, r.Can(models.RoleStaff, ActionStaffList))
	assert.True(t, r.Can(models.RoleStaff, ActionSubscriberUpdate))
	assert.False(t, r.Can(models.RoleStaff, ActionStaffCreate))
	assert.False(t, r.Can(models.RoleStaff, ActionBillingAdjust))
	assert.False(t, r.Can(models.RoleStaff, ActionMetricsRead))
}

func TestResolver_SalesPermissions(t *testing.T) {
	r := NewResolver()

	assert.True(t, r.Can(models.RoleSales, ActionSubscriberList))
	assert.False(t, r.Can(models.RoleSales, ActionStaffList))
	assert.False(t, r.Can(models.RoleSales, ActionImportRun))
}

func TestResolver_UnassignedHasNothing(t *testing.T) {
	r := NewResolver()

	for _, action := range []string{
		ActionStaffList, ActionSubscriberList, ActionBillingView,
		ActionInventoryList, ActionAuditRead,
	} {
		assert.False(t, r.Can(models.RoleUnassigned, action), action)
	}
}

func TestResolver_UnknownRoleDenied(t *testing.T) {
	r := NewResolver()

	assert.False(t, r.Can("contractor", ActionSubscriberList))
	assert.Empty(t, r.ActionsFor("contractor"))
}

func TestResolver_CanAny(t *testing.T) {
	r := NewResolver()

	assert.True(t, r.CanAny(models.RoleSales, []string{ActionStaffCreate, ActionSubscriberList}))
	assert.False(t, r.CanAny(models.RoleSales, []string{ActionStaffCreate, ActionImportRun}))
	assert.False(t, r.CanAny(models.RoleSales, nil))
}

func TestResolver_ActionsForIsSorted(t *testing.T) {
	r := NewResolver()

	actions := r.ActionsFor(models.RoleStaff)
	require.NotEmpty(t, actions)
	for i := 1; i < len(actions); i++ {
		assert.LessOrEqual(t, actions[i-1], actions[i], "actions must be sorted")
	}
}

func TestResolver_AdminActionsIncludeAdminOnlyCodes(t *testing.T) {
	r := NewResolver()

	actions := r.ActionsFor(models.RoleAdmin)
	assert.Contains(t, actions, ActionStaffCreate)
	assert.Contains(t, actions, ActionBillingAdjust)
	assert.Contains(t, actions, ActionMetricsRead)

	// Everything a non-admin role holds is included in the union.
	for _, action := range r.ActionsFor(models.RoleStaff) {
		assert.Contains(t, actions, action)
	}
}

func TestResolver_CustomSets(t *testing.T) {
	r := NewResolverWithSets(map[string][]string{
		"auditor": {ActionAuditRead},
	})

	assert.True(t, r.Can("auditor", ActionAuditRead))
	assert.False(t, r.Can("auditor", ActionStaffList))
	assert.Equal(t, []string{ActionAuditRead}, r.ActionsFor("auditor"))
}
