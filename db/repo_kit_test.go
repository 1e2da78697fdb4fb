package db

import (
	"context"
	"testing"

	"kitshed/models"

	"github.com/stretchr/testify/require"
)

func TestCreateKitFromTemplate(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()

	tpl := seedTemplate(t, r, TemplateItemInput{TypeID: 1, Quantity: 2, Mandatory: true})
	a := seedEquipment(t, r, "EQ-A", 1)
	b := seedEquipment(t, r, "EQ-B", 1)

	kit, err := r.CreateKitFromTemplate(ctx, testTenant, tpl.ID, CreateKitInput{
		EquipmentIDs: []uint{a.ID, b.ID},
	})
	require.NoError(t, err)
	require.Equal(t, "KIT-0001", kit.Code)
	require.Equal(t, models.KitAvailable, kit.Status)
	require.Equal(t, tpl.Name, kit.Name) // defaults to template name
	require.NotNil(t, kit.TemplateID)
	require.Len(t, kit.Items, 2)
	require.Equal(t, a.ID, kit.Items[0].EquipmentID)
	require.Equal(t, 0, kit.Items[0].Position)
	require.Equal(t, 1, kit.Items[1].Position)
}

func TestCreateKitValidation(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()

	_, err := r.CreateAdHocKit(ctx, testTenant, CreateKitInput{Name: "empty"})
	require.True(t, IsValidation(err))

	_, err = r.CreateAdHocKit(ctx, testTenant, CreateKitInput{Name: "ghost", EquipmentIDs: []uint{999}})
	require.True(t, IsNotFound(err))

	tpl := seedTemplate(t, r, TemplateItemInput{TypeID: 1, Quantity: 1, Mandatory: true})
	require.NoError(t, r.DeactivateTemplate(ctx, testTenant, tpl.ID))
	a := seedEquipment(t, r, "EQ-A", 1)
	_, err = r.CreateKitFromTemplate(ctx, testTenant, tpl.ID, CreateKitInput{EquipmentIDs: []uint{a.ID}})
	require.True(t, IsInvalidState(err))
}

func TestEquipmentUniquenessAcrossKits(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()

	a := seedEquipment(t, r, "EQ-A", 1)
	b := seedEquipment(t, r, "EQ-B", 1)
	c := seedEquipment(t, r, "EQ-C", 1)
	seedAdHocKit(t, r, a.ID)

	// a second kit may not claim A
	_, err := r.CreateAdHocKit(ctx, testTenant, CreateKitInput{Name: "second", EquipmentIDs: []uint{a.ID, b.ID}})
	require.True(t, IsConflict(err))

	kit2 := seedAdHocKit(t, r, b.ID)
	_, err = r.AddKitItem(ctx, testTenant, kit2.ID, a.ID)
	require.True(t, IsConflict(err))

	item2, err := r.AddKitItem(ctx, testTenant, kit2.ID, c.ID)
	require.NoError(t, err)
	_, err = r.SwapKitItem(ctx, testTenant, kit2.ID, item2.ID, a.ID)
	require.True(t, IsConflict(err))
}

func TestRemoveFreesEquipmentForOtherKits(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()

	a := seedEquipment(t, r, "EQ-A", 1)
	kit := seedAdHocKit(t, r, a.ID)

	require.NoError(t, r.RemoveKitItem(ctx, testTenant, kit.ID, kit.Items[0].ID))

	_, err := r.CreateAdHocKit(ctx, testTenant, CreateKitInput{Name: "reuse", EquipmentIDs: []uint{a.ID}})
	require.NoError(t, err)
}

func TestReorderKitItems(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()

	a := seedEquipment(t, r, "EQ-A", 1)
	b := seedEquipment(t, r, "EQ-B", 1)
	kit := seedAdHocKit(t, r, a.ID, b.ID)

	err := r.ReorderKitItems(ctx, testTenant, kit.ID, []uint{kit.Items[0].ID})
	require.True(t, IsValidation(err))

	err = r.ReorderKitItems(ctx, testTenant, kit.ID, []uint{kit.Items[0].ID, 9999})
	require.True(t, IsValidation(err))

	require.NoError(t, r.ReorderKitItems(ctx, testTenant, kit.ID, []uint{kit.Items[1].ID, kit.Items[0].ID}))
	got, err := r.GetKit(ctx, testTenant, kit.ID)
	require.NoError(t, err)
	require.Equal(t, b.ID, got.Items[0].EquipmentID)
	require.Equal(t, a.ID, got.Items[1].EquipmentID)
}

func TestCompletenessAgainstTemplate(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()

	tpl := seedTemplate(t, r,
		TemplateItemInput{TypeID: 1, Quantity: 2, Mandatory: true},
		TemplateItemInput{TypeID: 2, Quantity: 1, Mandatory: false},
	)
	a := seedEquipment(t, r, "EQ-A", 1)
	b := seedEquipment(t, r, "EQ-B", 1)

	kit, err := r.CreateKitFromTemplate(ctx, testTenant, tpl.ID, CreateKitInput{EquipmentIDs: []uint{a.ID}})
	require.NoError(t, err)

	complete, err := r.ValidateCompleteness(ctx, testTenant, kit.ID)
	require.NoError(t, err)
	require.False(t, complete)

	missing, err := r.MissingTemplateItems(ctx, testTenant, kit.ID)
	require.NoError(t, err)
	require.Len(t, missing, 2) // 1 of 2 type-1, 0 of 1 type-2

	_, err = r.AddKitItem(ctx, testTenant, kit.ID, b.ID)
	require.NoError(t, err)

	complete, err = r.ValidateCompleteness(ctx, testTenant, kit.ID)
	require.NoError(t, err)
	require.True(t, complete) // optional type-2 row does not block completeness

	missing, err = r.MissingTemplateItems(ctx, testTenant, kit.ID)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	require.Equal(t, uint(2), missing[0].TypeID)
}

func TestAdHocKitAlwaysComplete(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()

	a := seedEquipment(t, r, "EQ-A", 1)
	kit := seedAdHocKit(t, r, a.ID)

	complete, err := r.ValidateCompleteness(ctx, testTenant, kit.ID)
	require.NoError(t, err)
	require.True(t, complete)

	missing, err := r.MissingTemplateItems(ctx, testTenant, kit.ID)
	require.NoError(t, err)
	require.Empty(t, missing)
}

func TestAvailableEquipmentForKit(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()

	tpl := seedTemplate(t, r, TemplateItemInput{TypeID: 1, Quantity: 1, Mandatory: true})
	a := seedEquipment(t, r, "EQ-A", 1)
	b := seedEquipment(t, r, "EQ-B", 1)
	seedEquipment(t, r, "EQ-C", 2)
	seedAdHocKit(t, r, a.ID)

	free, err := r.AvailableEquipmentForKit(ctx, testTenant, nil)
	require.NoError(t, err)
	require.Len(t, free, 2) // B and C; A is kitted

	free, err = r.AvailableEquipmentForKit(ctx, testTenant, &tpl.ID)
	require.NoError(t, err)
	require.Len(t, free, 1)
	require.Equal(t, b.ID, free[0].ID)
}

func TestDeleteKitGuards(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()

	a := seedEquipment(t, r, "EQ-A", 1)
	kit := seedAdHocKit(t, r, a.ID)

	co, err := r.InitiateCheckout(ctx, testTenant, InitiateCheckoutInput{KitID: kit.ID, BorrowerID: borrowerDana})
	require.NoError(t, err)
	_, err = r.ConfirmCheckout(ctx, testTenant, co.ID, "sig")
	require.NoError(t, err)

	err = r.DeleteKit(ctx, testTenant, kit.ID)
	require.True(t, IsInvalidState(err))

	_, err = r.ConfirmReturn(ctx, testTenant, co.ID, ConfirmReturnInput{Signature: "sig"})
	require.NoError(t, err)

	require.NoError(t, r.DeleteKit(ctx, testTenant, kit.ID))

	// soft-deleted kit frees its equipment
	_, err = r.CreateAdHocKit(ctx, testTenant, CreateKitInput{Name: "reuse", EquipmentIDs: []uint{a.ID}})
	require.NoError(t, err)
}

func TestTenantIsolation(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()

	a := seedEquipment(t, r, "EQ-A", 1)
	kit := seedAdHocKit(t, r, a.ID)

	_, err := r.GetKit(ctx, "other-tenant", kit.ID)
	require.True(t, IsNotFound(err))

	_, err = r.FindEquipmentByID(ctx, "other-tenant", a.ID)
	require.True(t, IsNotFound(err))
}

func TestCreateTemplateValidation(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()

	_, err := r.CreateTemplate(ctx, testTenant, CreateTemplateInput{Name: "no items"})
	require.True(t, IsValidation(err))

	_, err = r.CreateTemplate(ctx, testTenant, CreateTemplateInput{
		Name: "dup types",
		Items: []TemplateItemInput{
			{TypeID: 1, Quantity: 1, Mandatory: true},
			{TypeID: 1, Quantity: 2, Mandatory: false},
		},
	})
	require.True(t, IsConflict(err))

	tpl, err := r.CreateTemplate(ctx, testTenant, CreateTemplateInput{
		Name:  "ok",
		Items: []TemplateItemInput{{TypeID: 1, Quantity: 1, Mandatory: true}},
	})
	require.NoError(t, err)
	require.Equal(t, "TPL-0001", tpl.Code)
	require.Equal(t, 7, tpl.DefaultLoanDays)
}
