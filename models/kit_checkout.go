// models/kit_checkout.go
package models

import "time"

const (
	CheckoutTable     = "ks_kit_checkouts"
	CheckoutItemTable = "ks_checkout_items"
)

// Checkout statuses. Returned and Cancelled are terminal; everything else is
// "live", and at most one live checkout may exist per kit (partial unique
// index in db.Migrate).
const (
	CheckoutPending       = "pending"
	CheckoutCheckedOut    = "checked_out"
	CheckoutPartialReturn = "partial_return"
	CheckoutOverdue       = "overdue"
	CheckoutReturned      = "returned"
	CheckoutCancelled     = "cancelled"
)

// Per-item condition grades captured at both ends of a loan.
const (
	ConditionGood    = "good"
	ConditionFair    = "fair"
	ConditionPoor    = "poor"
	ConditionDamaged = "damaged"
)

// KitCheckout is one loan transaction for one kit. It owns its CheckoutItem
// rows (a snapshot of the kit contents at initiate time) and references, but
// does not own, the kit.
type KitCheckout struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	TenantID string `gorm:"size:64;index;not null" json:"tenantId"`
	KitID    uint   `gorm:"index;not null" json:"kitId"`
	Status   string `gorm:"size:20;index;not null;default:'pending'" json:"status"`

	BorrowerID   int64  `gorm:"index;not null" json:"borrowerId"`
	BorrowerName string `gorm:"size:200;not null" json:"borrowerName"`

	CheckedOutAt     *time.Time `json:"checkedOutAt,omitempty"`
	ExpectedReturnAt time.Time  `gorm:"index;not null" json:"expectedReturnAt"`
	ActualReturnAt   *time.Time `gorm:"index" json:"actualReturnAt,omitempty"`

	ConditionOut string `gorm:"size:20" json:"conditionOut,omitempty"`
	ConditionIn  string `gorm:"size:20" json:"conditionIn,omitempty"`
	NotesOut     string `gorm:"size:1000" json:"notesOut,omitempty"`
	NotesIn      string `gorm:"size:1000" json:"notesIn,omitempty"`

	SignatureOut   string     `gorm:"type:text" json:"signatureOut,omitempty"`
	SignatureOutAt *time.Time `json:"signatureOutAt,omitempty"`
	SignatureIn    string     `gorm:"type:text" json:"signatureIn,omitempty"`
	SignatureInAt  *time.Time `json:"signatureInAt,omitempty"`

	Items []CheckoutItem `gorm:"foreignKey:CheckoutID" json:"items,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CheckoutItem struct {
	ID          uint `gorm:"primaryKey" json:"id"`
	CheckoutID  uint `gorm:"index;not null" json:"checkoutId"`
	KitItemID   uint `gorm:"index;not null" json:"kitItemId"`
	EquipmentID uint `gorm:"index;not null" json:"equipmentId"`
	Position    int  `gorm:"not null;default:0" json:"position"`

	PresentOut   bool   `gorm:"not null;default:true" json:"presentOut"`
	PresentIn    bool   `gorm:"not null;default:false" json:"presentIn"`
	ConditionOut string `gorm:"size:20" json:"conditionOut,omitempty"`
	ConditionIn  string `gorm:"size:20" json:"conditionIn,omitempty"`

	// ReturnRecorded marks items explicitly captured by a return recording
	// (initiate, partial or confirm); ConfirmReturn presumes everything else
	// came back in its checkout-time condition.
	ReturnRecorded bool `gorm:"not null;default:false" json:"returnRecorded"`

	Damaged    bool   `gorm:"not null;default:false" json:"damaged"`
	DamageNote string `gorm:"size:500" json:"damageNote,omitempty"`
	Note       string `gorm:"size:500" json:"note,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (KitCheckout) TableName() string  { return CheckoutTable }
func (CheckoutItem) TableName() string { return CheckoutItemTable }

// LiveCheckoutStatuses are the non-terminal states; a kit's "current
// checkout" is the single row, if any, whose status is one of these.
func LiveCheckoutStatuses() []string {
	return []string{CheckoutPending, CheckoutCheckedOut, CheckoutPartialReturn, CheckoutOverdue}
}
