package models

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestSalaryTransitions(t *testing.T) {
	statuses := []SalaryStatus{SalaryCalculated, SalaryApproved, SalaryPaid, SalaryConfirmed}
	allowed := map[SalaryAction]map[SalaryStatus]SalaryStatus{
		SalaryRecalculate: {SalaryCalculated: SalaryCalculated, SalaryApproved: SalaryCalculated},
		SalaryApprove:     {SalaryCalculated: SalaryApproved},
		SalaryMarkPaid:    {SalaryApproved: SalaryPaid},
		SalaryConfirm:     {SalaryPaid: SalaryConfirmed},
		SalaryDispute:     {SalaryPaid: SalaryPaid},
	}

	for action, valid := range allowed {
		for _, from := range statuses {
			got, err := from.Apply(action)
			want, ok := valid[from]
			switch {
			case ok && err != nil:
				t.Errorf("%s from %s: unexpected error %v", action, from, err)
			case ok && got != want:
				t.Errorf("%s from %s = %s, want %s", action, from, got, want)
			case !ok && !errors.Is(err, ErrInvalidState):
				t.Errorf("%s from %s: err = %v, want ErrInvalidState", action, from, err)
			case !ok && got != from:
				t.Errorf("%s from %s changed status to %s on failure", action, from, got)
			}
		}
	}
}

func TestInvoiceTransitions(t *testing.T) {
	tests := []struct {
		from    InvoiceStatus
		action  InvoiceAction
		want    InvoiceStatus
		wantErr bool
	}{
		{InvoicePending, InvoiceMarkDebtor, InvoiceDebtor, false},
		{InvoicePaid, InvoiceMarkDebtor, InvoicePaid, true},
		{InvoicePendingConfirm, InvoiceMarkDebtor, InvoicePendingConfirm, true},
		{InvoicePending, InvoiceSubmitReceipt, InvoicePendingConfirm, false},
		{InvoiceDebtor, InvoiceSubmitReceipt, InvoicePendingConfirm, false},
		{InvoicePaid, InvoiceSubmitReceipt, InvoicePaid, true},
		{InvoicePendingConfirm, InvoiceConfirmPay, InvoicePaid, false},
		{InvoicePending, InvoiceConfirmPay, InvoicePaid, false},
		{InvoicePaid, InvoiceConfirmPay, InvoicePaid, true},
		{InvoiceDebtor, InvoiceDiscount, InvoiceDebtor, false},
		{InvoicePaid, InvoiceDiscount, InvoicePaid, true},
	}
	for _, tt := range tests {
		got, err := tt.from.Apply(tt.action)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s from %s: err = %v", tt.action, tt.from, err)
		}
		if got != tt.want {
			t.Errorf("%s from %s = %s, want %s", tt.action, tt.from, got, tt.want)
		}
	}
}

func TestInvoiceNormalize(t *testing.T) {
	for amount := int64(0); amount <= 5; amount++ {
		for discount := int64(0); discount <= 8; discount++ {
			inv := PlayerInvoice{Amount: decimal.NewFromInt(amount * 100000), Discount: decimal.NewFromInt(discount * 100000)}
			err := inv.Normalize()
			if discount > amount {
				if !errors.Is(err, ErrDiscountExceedsAmount) {
					t.Errorf("amount %d discount %d: err = %v", amount, discount, err)
				}
				continue
			}
			if err != nil {
				t.Errorf("amount %d discount %d: %v", amount, discount, err)
			}
			if want := decimal.NewFromInt((amount - discount) * 100000); !inv.FinalAmount.Equal(want) {
				t.Errorf("final = %s, want %s", inv.FinalAmount, want)
			}
		}
	}

	neg := PlayerInvoice{Amount: decimal.NewFromInt(-1)}
	if err := neg.Normalize(); !errors.Is(err, ErrNegativeAmount) {
		t.Errorf("negative amount: err = %v", err)
	}
}

func TestSalaryRecompute(t *testing.T) {
	s := CoachSalary{
		SessionsAttended: 3,
		SessionRate:      decimal.NewFromInt(500000),
		ManualAdjustment: decimal.NewFromInt(-50000),
	}
	if err := s.Recompute(); err != nil {
		t.Fatal(err)
	}
	if !s.BaseAmount.Equal(decimal.NewFromInt(1500000)) || !s.FinalAmount.Equal(decimal.NewFromInt(1450000)) {
		t.Errorf("base %s final %s", s.BaseAmount, s.FinalAmount)
	}

	s.ManualAdjustment = decimal.NewFromInt(-2000000)
	if err := s.Recompute(); !errors.Is(err, ErrNegativeAmount) {
		t.Errorf("negative final: err = %v", err)
	}
}

func TestAttendanceStatus(t *testing.T) {
	if DefaultAttendanceStatus != StatusAbsent {
		t.Fatal("unmarked sessions must count as absent")
	}
	if _, err := ParseAttendanceStatus("late"); err == nil {
		t.Error("expected error for unknown status")
	}
	if s, err := ParseAttendanceStatus("excused"); err != nil || s != StatusExcused {
		t.Errorf("ParseAttendanceStatus = %v, %v", s, err)
	}
}
