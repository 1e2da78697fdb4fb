package db

import (
	"context"
	"testing"
	"time"

	"kitshed/models"

	"github.com/stretchr/testify/require"
)

// twoItemKit seeds a kit holding equipment A and B and returns it with items
// loaded.
func twoItemKit(t *testing.T, r *Repo) *models.EquipmentKit {
	t.Helper()
	a := seedEquipment(t, r, "EQ-A", 1)
	b := seedEquipment(t, r, "EQ-B", 1)
	return seedAdHocKit(t, r, a.ID, b.ID)
}

func TestCheckoutLifecycle(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()
	kit := twoItemKit(t, r)

	// initiate: pending, kit untouched, items snapshotted
	expected := time.Now().UTC().Add(72 * time.Hour)
	co, err := r.InitiateCheckout(ctx, testTenant, InitiateCheckoutInput{
		KitID:            kit.ID,
		BorrowerID:       borrowerDana,
		ExpectedReturnAt: &expected,
	})
	require.NoError(t, err)
	require.Equal(t, models.CheckoutPending, co.Status)
	require.Equal(t, "Dana Field", co.BorrowerName)
	require.Len(t, co.Items, 2)
	require.True(t, co.Items[0].PresentOut)
	require.Equal(t, models.ConditionGood, co.Items[0].ConditionOut)

	gotKit, err := r.GetKit(ctx, testTenant, kit.ID)
	require.NoError(t, err)
	require.Equal(t, models.KitAvailable, gotKit.Status)

	// confirm: checked out, kit assigned
	co, err = r.ConfirmCheckout(ctx, testTenant, co.ID, "sig1")
	require.NoError(t, err)
	require.Equal(t, models.CheckoutCheckedOut, co.Status)
	require.NotNil(t, co.CheckedOutAt)
	require.NotNil(t, co.SignatureOutAt)

	gotKit, err = r.GetKit(ctx, testTenant, kit.ID)
	require.NoError(t, err)
	require.Equal(t, models.KitCheckedOut, gotKit.Status)
	require.NotNil(t, gotKit.AssignedUserID)
	require.Equal(t, borrowerDana, *gotKit.AssignedUserID)

	// composition is frozen while loaned out
	c := seedEquipment(t, r, "EQ-C", 1)
	_, err = r.AddKitItem(ctx, testTenant, kit.ID, c.ID)
	require.True(t, IsInvalidState(err))

	// partial return of item A only: checkout moves, kit does not
	full, err := r.GetCheckout(ctx, testTenant, co.ID)
	require.NoError(t, err)
	itemA, itemB := full.Items[0], full.Items[1]

	co, err = r.PartialReturn(ctx, testTenant, co.ID, PartialReturnInput{
		Signature: "sig2",
		Items: []ReturnItemInput{
			{CheckoutItemID: itemA.ID, Present: true, Condition: models.ConditionGood},
		},
	})
	require.NoError(t, err)
	require.Equal(t, models.CheckoutPartialReturn, co.Status)

	gotKit, err = r.GetKit(ctx, testTenant, kit.ID)
	require.NoError(t, err)
	require.Equal(t, models.KitCheckedOut, gotKit.Status)

	// final return with B damaged
	co, err = r.ConfirmReturn(ctx, testTenant, co.ID, ConfirmReturnInput{
		Signature: "sig3",
		Items: []ReturnItemInput{
			{CheckoutItemID: itemB.ID, Present: true, Damaged: true, DamageNote: "cracked lens"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, models.CheckoutReturned, co.Status)
	require.NotNil(t, co.ActualReturnAt)

	gotKit, err = r.GetKit(ctx, testTenant, kit.ID)
	require.NoError(t, err)
	require.Equal(t, models.KitAvailable, gotKit.Status)
	require.Nil(t, gotKit.AssignedUserID)
	require.True(t, gotKit.NeedsMaintenance)

	var flagged, clean *models.KitItem
	for i := range gotKit.Items {
		if gotKit.Items[i].ID == itemB.KitItemID {
			flagged = &gotKit.Items[i]
		} else {
			clean = &gotKit.Items[i]
		}
	}
	require.NotNil(t, flagged)
	require.True(t, flagged.NeedsMaintenance)
	require.False(t, clean.NeedsMaintenance)

	eq, err := r.FindEquipmentByID(ctx, testTenant, flagged.EquipmentID)
	require.NoError(t, err)
	require.Equal(t, models.EquipmentMaintenance, eq.Status)

	// damage condition landed on the checkout item
	full, err = r.GetCheckout(ctx, testTenant, co.ID)
	require.NoError(t, err)
	for _, ci := range full.Items {
		require.True(t, ci.PresentIn)
		if ci.ID == itemB.ID {
			require.Equal(t, models.ConditionDamaged, ci.ConditionIn)
			require.True(t, ci.Damaged)
		} else {
			require.Equal(t, models.ConditionGood, ci.ConditionIn)
		}
	}
}

func TestOnlyOneLiveCheckoutPerKit(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()
	kit := twoItemKit(t, r)

	_, err := r.InitiateCheckout(ctx, testTenant, InitiateCheckoutInput{KitID: kit.ID, BorrowerID: borrowerDana})
	require.NoError(t, err)

	_, err = r.InitiateCheckout(ctx, testTenant, InitiateCheckoutInput{KitID: kit.ID, BorrowerID: borrowerMax})
	require.True(t, IsInvalidState(err))
}

func TestSignatureGate(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()
	kit := twoItemKit(t, r)

	co, err := r.InitiateCheckout(ctx, testTenant, InitiateCheckoutInput{KitID: kit.ID, BorrowerID: borrowerDana})
	require.NoError(t, err)

	for _, sig := range []string{"", "   ", "\t"} {
		_, err = r.ConfirmCheckout(ctx, testTenant, co.ID, sig)
		require.True(t, IsValidation(err), "signature %q", sig)
	}

	co, err = r.ConfirmCheckout(ctx, testTenant, co.ID, "sig")
	require.NoError(t, err)

	itemID := mustFirstItemID(t, r, co.ID)
	_, err = r.PartialReturn(ctx, testTenant, co.ID, PartialReturnInput{
		Signature: " ",
		Items:     []ReturnItemInput{{CheckoutItemID: itemID, Present: true}},
	})
	require.True(t, IsValidation(err))

	_, err = r.ConfirmReturn(ctx, testTenant, co.ID, ConfirmReturnInput{Signature: ""})
	require.True(t, IsValidation(err))
}

func mustFirstItemID(t *testing.T, r *Repo, checkoutID uint) uint {
	t.Helper()
	co, err := r.GetCheckout(context.Background(), testTenant, checkoutID)
	require.NoError(t, err)
	require.NotEmpty(t, co.Items)
	return co.Items[0].ID
}

func TestInvalidTransitions(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()
	kit := twoItemKit(t, r)

	co, err := r.InitiateCheckout(ctx, testTenant, InitiateCheckoutInput{KitID: kit.ID, BorrowerID: borrowerDana})
	require.NoError(t, err)

	// return paths are closed while pending
	_, err = r.ConfirmReturn(ctx, testTenant, co.ID, ConfirmReturnInput{Signature: "sig"})
	require.True(t, IsInvalidState(err))
	_, err = r.PartialReturn(ctx, testTenant, co.ID, PartialReturnInput{Signature: "sig", Items: []ReturnItemInput{{CheckoutItemID: 1, Present: true}}})
	require.True(t, IsInvalidState(err))
	_, err = r.InitiateReturn(ctx, testTenant, co.ID, nil)
	require.True(t, IsInvalidState(err))
	_, err = r.ExtendCheckout(ctx, testTenant, co.ID, time.Now().Add(240*time.Hour))
	require.True(t, IsInvalidState(err))

	_, err = r.ConfirmCheckout(ctx, testTenant, co.ID, "sig")
	require.NoError(t, err)

	// confirming twice is rejected, naming the current state
	_, err = r.ConfirmCheckout(ctx, testTenant, co.ID, "sig")
	require.True(t, IsInvalidState(err))
	require.Contains(t, err.Error(), models.CheckoutCheckedOut)

	_, err = r.ConfirmReturn(ctx, testTenant, co.ID, ConfirmReturnInput{Signature: "sig"})
	require.NoError(t, err)

	// terminal states stay terminal
	_, err = r.CancelCheckout(ctx, testTenant, co.ID, "")
	require.True(t, IsInvalidState(err))
	_, err = r.ConfirmReturn(ctx, testTenant, co.ID, ConfirmReturnInput{Signature: "sig"})
	require.True(t, IsInvalidState(err))
}

func TestCancelReleasesHandedOverKit(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()

	// pending cancel: kit was never handed over, nothing to release
	kit1 := twoItemKit(t, r)
	co1, err := r.InitiateCheckout(ctx, testTenant, InitiateCheckoutInput{KitID: kit1.ID, BorrowerID: borrowerDana})
	require.NoError(t, err)
	co1, err = r.CancelCheckout(ctx, testTenant, co1.ID, "changed plans")
	require.NoError(t, err)
	require.Equal(t, models.CheckoutCancelled, co1.Status)
	gotKit, err := r.GetKit(ctx, testTenant, kit1.ID)
	require.NoError(t, err)
	require.Equal(t, models.KitAvailable, gotKit.Status)
	require.Nil(t, gotKit.AssignedUserID)

	// cancelling after confirm releases the kit
	a := seedEquipment(t, r, "EQ-X", 1)
	kit2 := seedAdHocKit(t, r, a.ID)
	co2, err := r.InitiateCheckout(ctx, testTenant, InitiateCheckoutInput{KitID: kit2.ID, BorrowerID: borrowerDana})
	require.NoError(t, err)
	_, err = r.ConfirmCheckout(ctx, testTenant, co2.ID, "sig")
	require.NoError(t, err)
	_, err = r.CancelCheckout(ctx, testTenant, co2.ID, "recalled")
	require.NoError(t, err)
	gotKit, err = r.GetKit(ctx, testTenant, kit2.ID)
	require.NoError(t, err)
	require.Equal(t, models.KitAvailable, gotKit.Status)
	require.Nil(t, gotKit.AssignedUserID)

	// the release decision uses the pre-transition status: a partial
	// return still counts as handed over
	b := seedEquipment(t, r, "EQ-Y", 1)
	kit3 := seedAdHocKit(t, r, b.ID)
	co3, err := r.InitiateCheckout(ctx, testTenant, InitiateCheckoutInput{KitID: kit3.ID, BorrowerID: borrowerDana})
	require.NoError(t, err)
	_, err = r.ConfirmCheckout(ctx, testTenant, co3.ID, "sig")
	require.NoError(t, err)
	itemID := mustFirstItemID(t, r, co3.ID)
	_, err = r.PartialReturn(ctx, testTenant, co3.ID, PartialReturnInput{
		Signature: "sig",
		Items:     []ReturnItemInput{{CheckoutItemID: itemID, Present: true}},
	})
	require.NoError(t, err)
	_, err = r.CancelCheckout(ctx, testTenant, co3.ID, "")
	require.NoError(t, err)
	gotKit, err = r.GetKit(ctx, testTenant, kit3.ID)
	require.NoError(t, err)
	require.Equal(t, models.KitAvailable, gotKit.Status)
}

func TestExtendCheckout(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()
	kit := twoItemKit(t, r)

	co, err := r.InitiateCheckout(ctx, testTenant, InitiateCheckoutInput{KitID: kit.ID, BorrowerID: borrowerDana})
	require.NoError(t, err)
	_, err = r.ConfirmCheckout(ctx, testTenant, co.ID, "sig")
	require.NoError(t, err)

	// not after the current expected-return date
	_, err = r.ExtendCheckout(ctx, testTenant, co.ID, time.Now().UTC().Add(-time.Hour))
	require.True(t, IsValidation(err))

	newDate := time.Now().UTC().Add(14 * 24 * time.Hour)
	co, err = r.ExtendCheckout(ctx, testTenant, co.ID, newDate)
	require.NoError(t, err)
	require.Equal(t, models.CheckoutCheckedOut, co.Status)
	require.WithinDuration(t, newDate, co.ExpectedReturnAt, time.Second)
}

func TestExtendRevertsOverdue(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()
	kit := twoItemKit(t, r)

	co, err := r.InitiateCheckout(ctx, testTenant, InitiateCheckoutInput{KitID: kit.ID, BorrowerID: borrowerDana})
	require.NoError(t, err)
	_, err = r.ConfirmCheckout(ctx, testTenant, co.ID, "sig")
	require.NoError(t, err)

	// backdate the loan and sweep it overdue
	backdate(t, r, co.ID, time.Now().UTC().Add(-48*time.Hour))
	res, err := r.SweepOverdue(ctx, testTenant, time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, 1, res.Marked)

	got, err := r.GetCheckout(ctx, testTenant, co.ID)
	require.NoError(t, err)
	require.Equal(t, models.CheckoutOverdue, got.Status)

	co, err = r.ExtendCheckout(ctx, testTenant, co.ID, time.Now().UTC().Add(24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, models.CheckoutCheckedOut, co.Status)
}

// backdate rewrites the expected-return date directly; initiate refuses past
// dates, so tests reach overdue conditions this way.
func backdate(t *testing.T, r *Repo, checkoutID uint, to time.Time) {
	t.Helper()
	err := r.DB.Model(&models.KitCheckout{}).
		Where("id = ?", checkoutID).
		Update("expected_return_at", to).Error
	require.NoError(t, err)
}

func TestExpectedReturnMustBeFuture(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()
	kit := twoItemKit(t, r)

	past := time.Now().UTC().Add(-time.Hour)
	_, err := r.InitiateCheckout(ctx, testTenant, InitiateCheckoutInput{
		KitID:            kit.ID,
		BorrowerID:       borrowerDana,
		ExpectedReturnAt: &past,
	})
	require.True(t, IsValidation(err))
}

func TestInitiateUnknownBorrower(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()
	kit := twoItemKit(t, r)

	_, err := r.InitiateCheckout(ctx, testTenant, InitiateCheckoutInput{KitID: kit.ID, BorrowerID: 999})
	require.True(t, IsNotFound(err))
}

func TestReportDamageBeforeReturn(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()
	kit := twoItemKit(t, r)

	co, err := r.InitiateCheckout(ctx, testTenant, InitiateCheckoutInput{KitID: kit.ID, BorrowerID: borrowerDana})
	require.NoError(t, err)
	_, err = r.ConfirmCheckout(ctx, testTenant, co.ID, "sig")
	require.NoError(t, err)

	full, err := r.GetCheckout(ctx, testTenant, co.ID)
	require.NoError(t, err)
	damagedItem := full.Items[1]

	require.NoError(t, r.ReportDamage(ctx, testTenant, co.ID, damagedItem.KitItemID, "bent tripod leg"))

	err = r.ReportDamage(ctx, testTenant, co.ID, 9999, "nope")
	require.True(t, IsNotFound(err))

	// damage sticks through the final return even when the item is not
	// named again
	_, err = r.ConfirmReturn(ctx, testTenant, co.ID, ConfirmReturnInput{Signature: "sig"})
	require.NoError(t, err)

	gotKit, err := r.GetKit(ctx, testTenant, kit.ID)
	require.NoError(t, err)
	require.True(t, gotKit.NeedsMaintenance)

	full, err = r.GetCheckout(ctx, testTenant, co.ID)
	require.NoError(t, err)
	for _, ci := range full.Items {
		if ci.ID == damagedItem.ID {
			require.True(t, ci.Damaged)
			require.Equal(t, models.ConditionDamaged, ci.ConditionIn)
		}
	}
}

func TestGetCurrentCheckout(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()
	kit := twoItemKit(t, r)

	cur, err := r.GetCurrentCheckout(ctx, testTenant, kit.ID)
	require.NoError(t, err)
	require.Nil(t, cur)

	co, err := r.InitiateCheckout(ctx, testTenant, InitiateCheckoutInput{KitID: kit.ID, BorrowerID: borrowerDana})
	require.NoError(t, err)

	cur, err = r.GetCurrentCheckout(ctx, testTenant, kit.ID)
	require.NoError(t, err)
	require.NotNil(t, cur)
	require.Equal(t, co.ID, cur.ID)

	_, err = r.CancelCheckout(ctx, testTenant, co.ID, "")
	require.NoError(t, err)

	cur, err = r.GetCurrentCheckout(ctx, testTenant, kit.ID)
	require.NoError(t, err)
	require.Nil(t, cur)
}

func TestCheckoutEventsTrail(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()
	kit := twoItemKit(t, r)

	co, err := r.InitiateCheckout(ctx, testTenant, InitiateCheckoutInput{KitID: kit.ID, BorrowerID: borrowerDana})
	require.NoError(t, err)
	_, err = r.ConfirmCheckout(ctx, testTenant, co.ID, "sig")
	require.NoError(t, err)
	_, err = r.ConfirmReturn(ctx, testTenant, co.ID, ConfirmReturnInput{Signature: "sig"})
	require.NoError(t, err)

	events, err := r.ListCheckoutEvents(ctx, testTenant, co.ID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	require.Equal(t, "initiate_checkout", events[0].Action)
	require.Equal(t, "confirm_checkout", events[1].Action)
	require.Equal(t, "confirm_return", events[2].Action)
	require.Equal(t, models.CheckoutCheckedOut, events[2].FromStatus)
	require.Equal(t, models.CheckoutReturned, events[2].ToStatus)
}
