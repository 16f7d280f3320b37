package models

import "time"

type NotificationType string

const (
	NotifyInsuranceExpiry NotificationType = "insurance_expiry"
	NotifyInvoiceIssued   NotificationType = "invoice_issued"
	NotifyInvoicePaid     NotificationType = "invoice_paid"
	NotifySalaryReady     NotificationType = "salary_ready"
	NotifySalaryPaid      NotificationType = "salary_paid"
	NotifySalaryDispute   NotificationType = "salary_dispute"
	NotifyPaymentReminder NotificationType = "payment_reminder"
	NotifyReceiptUploaded NotificationType = "receipt_uploaded"
	NotifyGeneral         NotificationType = "general"
)

type Notification struct {
	ID              int64            `db:"id" json:"id"`
	RecipientID     int64            `db:"recipient_id" json:"recipient_id"`
	Type            NotificationType `db:"type" json:"type"`
	Title           string           `db:"title" json:"title"`
	Message         string           `db:"message" json:"message"`
	RelatedPlayerID *int64           `db:"related_player_id" json:"related_player_id,omitempty"`
	// Subject groups notifications about the same thing, e.g. "invoice:1403/05".
	Subject   string     `db:"subject" json:"subject"`
	IsRead    bool       `db:"is_read" json:"is_read"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	ReadAt    *time.Time `db:"read_at" json:"read_at,omitempty"`
}
