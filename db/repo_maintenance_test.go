package db

import (
	"context"
	"testing"

	"kitshed/models"

	"github.com/stretchr/testify/require"
)

func TestMaintenanceFlagPropagation(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()

	a := seedEquipment(t, r, "EQ-A", 1)
	b := seedEquipment(t, r, "EQ-B", 1)
	kit := seedAdHocKit(t, r, a.ID, b.ID)
	itemA, itemB := kit.Items[0], kit.Items[1]

	// flagging one item raises the kit flag and parks the equipment
	require.NoError(t, r.FlagItemForMaintenance(ctx, testTenant, kit.ID, itemA.ID, "frayed cable"))

	got, err := r.GetKit(ctx, testTenant, kit.ID)
	require.NoError(t, err)
	require.True(t, got.NeedsMaintenance)
	require.Equal(t, "frayed cable", got.MaintenanceNote)

	eq, err := r.FindEquipmentByID(ctx, testTenant, a.ID)
	require.NoError(t, err)
	require.Equal(t, models.EquipmentMaintenance, eq.Status)

	// clearing A while B is unflagged clears the kit flag
	require.NoError(t, r.ClearMaintenanceFlag(ctx, testTenant, kit.ID, itemA.ID))
	got, err = r.GetKit(ctx, testTenant, kit.ID)
	require.NoError(t, err)
	require.False(t, got.NeedsMaintenance)
	require.Empty(t, got.MaintenanceNote)

	// clearing A while B remains flagged keeps the kit flag set
	require.NoError(t, r.FlagItemForMaintenance(ctx, testTenant, kit.ID, itemA.ID, ""))
	require.NoError(t, r.FlagItemForMaintenance(ctx, testTenant, kit.ID, itemB.ID, "worn strap"))
	require.NoError(t, r.ClearMaintenanceFlag(ctx, testTenant, kit.ID, itemA.ID))

	got, err = r.GetKit(ctx, testTenant, kit.ID)
	require.NoError(t, err)
	require.True(t, got.NeedsMaintenance)
}

func TestMaintenanceFlagUnknownItem(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()

	a := seedEquipment(t, r, "EQ-A", 1)
	kit := seedAdHocKit(t, r, a.ID)

	err := r.FlagItemForMaintenance(ctx, testTenant, kit.ID, 9999, "")
	require.True(t, IsNotFound(err))

	err = r.ClearMaintenanceFlag(ctx, testTenant, kit.ID, 9999)
	require.True(t, IsNotFound(err))
}

func TestRemovingFlaggedItemRecomputesKitFlag(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()

	a := seedEquipment(t, r, "EQ-A", 1)
	b := seedEquipment(t, r, "EQ-B", 1)
	kit := seedAdHocKit(t, r, a.ID, b.ID)

	require.NoError(t, r.FlagItemForMaintenance(ctx, testTenant, kit.ID, kit.Items[0].ID, "broken"))
	require.NoError(t, r.RemoveKitItem(ctx, testTenant, kit.ID, kit.Items[0].ID))

	got, err := r.GetKit(ctx, testTenant, kit.ID)
	require.NoError(t, err)
	require.False(t, got.NeedsMaintenance)
}
