package db

import (
	"context"
	"time"

	"kitshed/models"

	"gorm.io/gorm"
)

// Overdue Sweep: reclassifies CheckedOut checkouts whose expected return has
// passed. Idempotent; a row already Overdue is simply not selected again.

type SweepResult struct {
	Scanned int
	Marked  int
	Failed  map[uint]error
}

// SweepOverdue processes one tenant. Per-row failures are collected, not
// fatal: the sweep runs unattended and must get through the rest of the
// batch.
func (r *Repo) SweepOverdue(ctx context.Context, tenantID string, now time.Time) (SweepResult, error) {
	res := SweepResult{Failed: map[uint]error{}}

	var ids []uint
	err := r.DB.WithContext(ctx).Model(&models.KitCheckout{}).
		Where("tenant_id = ? AND status = ? AND expected_return_at < ?",
			tenantID, models.CheckoutCheckedOut, now.UTC()).
		Pluck("id", &ids).Error
	if err != nil {
		return res, err
	}
	res.Scanned = len(ids)

	for _, id := range ids {
		if err := r.markOverdue(ctx, tenantID, id, now); err != nil {
			res.Failed[id] = err
			continue
		}
		res.Marked++
	}
	return res, nil
}

// markOverdue flips one checkout, re-checking status inside the transaction
// so a concurrent return or extension between select and update wins.
func (r *Repo) markOverdue(ctx context.Context, tenantID string, checkoutID uint, now time.Time) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		co, err := r.lockCheckout(tx, tenantID, checkoutID)
		if err != nil {
			return err
		}
		if co.Status != models.CheckoutCheckedOut || !co.ExpectedReturnAt.Before(now.UTC()) {
			return nil
		}
		co.Status = models.CheckoutOverdue
		if err := tx.Save(co).Error; err != nil {
			return err
		}
		return appendEvent(tx, co, "mark_overdue", models.CheckoutCheckedOut, co.Status, nil, "")
	})
}

// CheckoutTenants lists every tenant with checkout rows, for the scheduled
// sweep loop.
func (r *Repo) CheckoutTenants(ctx context.Context) ([]string, error) {
	var tenants []string
	err := r.DB.WithContext(ctx).Model(&models.KitCheckout{}).
		Distinct("tenant_id").
		Pluck("tenant_id", &tenants).Error
	return tenants, err
}
