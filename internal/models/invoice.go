package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoicePending        InvoiceStatus = "pending"
	InvoicePaid           InvoiceStatus = "paid"
	InvoiceDebtor         InvoiceStatus = "debtor"
	InvoicePendingConfirm InvoiceStatus = "pending_confirm"
)

type InvoiceAction string

const (
	InvoiceMarkDebtor    InvoiceAction = "mark_debtor"
	InvoiceSubmitReceipt InvoiceAction = "submit_receipt"
	InvoiceConfirmPay    InvoiceAction = "confirm_payment"
	InvoiceDiscount      InvoiceAction = "apply_discount"
)

var invoiceTransitions = map[InvoiceAction]transition[InvoiceStatus]{
	InvoiceMarkDebtor:    {from: []InvoiceStatus{InvoicePending}, to: InvoiceDebtor},
	InvoiceSubmitReceipt: {from: []InvoiceStatus{InvoicePending, InvoiceDebtor, InvoicePendingConfirm}, to: InvoicePendingConfirm},
	InvoiceConfirmPay:    {from: []InvoiceStatus{InvoicePending, InvoicePendingConfirm, InvoiceDebtor}, to: InvoicePaid},
}

// Apply returns the status reached by performing action from s. Discounts
// keep the current status and are refused once the invoice is paid.
func (s InvoiceStatus) Apply(action InvoiceAction) (InvoiceStatus, error) {
	if action == InvoiceDiscount {
		if s == InvoicePaid {
			return s, &TransitionError{Entity: "invoice", Action: string(action), From: string(s)}
		}
		return s, nil
	}
	t, ok := invoiceTransitions[action]
	if !ok || !t.allows(s) {
		return s, &TransitionError{Entity: "invoice", Action: string(action), From: string(s)}
	}
	return t.to, nil
}

// Unpaid reports whether the invoice still expects money from the player.
func (s InvoiceStatus) Unpaid() bool {
	return s == InvoicePending || s == InvoiceDebtor
}

type PlayerInvoice struct {
	ID          int64           `db:"id" json:"id"`
	PlayerID    int64           `db:"player_id" json:"player_id"`
	CategoryID  int64           `db:"category_id" json:"category_id"`
	JalaliYear  int             `db:"jalali_year" json:"jalali_year"`
	JalaliMonth int             `db:"jalali_month" json:"jalali_month"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Discount    decimal.Decimal `db:"discount" json:"discount"`
	FinalAmount decimal.Decimal `db:"final_amount" json:"final_amount"`
	Status      InvoiceStatus   `db:"status" json:"status"`
	ReceiptRef  string          `db:"receipt_ref" json:"receipt_ref"`
	PaidAt      *time.Time      `db:"paid_at" json:"paid_at,omitempty"`
	ConfirmedBy *int64          `db:"confirmed_by" json:"confirmed_by,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// Normalize checks the amount invariants and sets FinalAmount. It never clamps.
func (i *PlayerInvoice) Normalize() error {
	if i.Amount.IsNegative() || i.Discount.IsNegative() {
		return ErrNegativeAmount
	}
	if i.Discount.GreaterThan(i.Amount) {
		return ErrDiscountExceedsAmount
	}
	i.FinalAmount = i.Amount.Sub(i.Discount)
	return nil
}
