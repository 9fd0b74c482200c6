package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SyncStage is the persisted lifecycle stage of an order in the sync pipeline.
// The storefront tags mirror this value for operators but are never parsed
// back into it; the database row is the source of truth.
type SyncStage string

const (
	StageNew            SyncStage = "NEW"
	StageInvoiced       SyncStage = "INVOICED"
	StagePaid           SyncStage = "PAID"
	StageReturnCredited SyncStage = "RETURN_CREDITED"
	StageStoreCredited  SyncStage = "STORE_CREDITED"
	StageRefunded       SyncStage = "REFUNDED"
	StageFailed         SyncStage = "FAILED"
)

func (s SyncStage) Valid() bool {
	switch s {
	case StageNew, StageInvoiced, StagePaid, StageReturnCredited,
		StageStoreCredited, StageRefunded, StageFailed:
		return true
	}
	return false
}

func (s SyncStage) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid sync stage %q", string(s))
	}
	return string(s), nil
}

func (s *SyncStage) Scan(value interface{}) error {
	switch v := value.(type) {
	case string:
		*s = SyncStage(v)
	case []byte:
		*s = SyncStage(v)
	default:
		return errors.New("sync stage must be string")
	}
	if !s.Valid() {
		return fmt.Errorf("invalid sync stage %q", string(*s))
	}
	return nil
}

// DocEntryList stores a set of ledger DocEntry references as a JSON column.
type DocEntryList []int

func (l DocEntryList) Value() (driver.Value, error) {
	if l == nil {
		l = DocEntryList{}
	}
	return json.Marshal(l)
}

func (l *DocEntryList) Scan(value interface{}) error {
	if value == nil {
		*l = DocEntryList{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("doc entry list must be json bytes")
	}
	return json.Unmarshal(raw, l)
}

func (l DocEntryList) Contains(entry int) bool {
	for _, e := range l {
		if e == entry {
			return true
		}
	}
	return false
}

// OrderSyncState is one row per storefront order tracking what has already
// been posted to the ledger. Every create checks this row first, then the
// order tags, then the ledger itself, so a rerun over a settled order makes
// zero ledger writes.
type OrderSyncState struct {
	ID        uint      `gorm:"primary_key" json:"id"`
	OrderId   string    `gorm:"uniqueIndex;size:64;not null" json:"order_id"`
	OrderName string    `gorm:"index;size:64" json:"order_name"`
	Stage     SyncStage `gorm:"size:20;not null;default:'NEW'" json:"stage"`

	InvoiceDocEntry         *int         `json:"invoice_doc_entry"`
	PaymentDocEntry         *int         `json:"payment_doc_entry"`
	CreditNoteDocEntries    DocEntryList `gorm:"type:json" json:"credit_note_doc_entries"`
	GiftCardId              string       `gorm:"size:64" json:"gift_card_id"`
	GiftCardInvoiceDocEntry *int         `json:"gift_card_invoice_doc_entry"`
	OutgoingPaymentEntries  DocEntryList `gorm:"type:json" json:"outgoing_payment_entries"`

	LastError    string     `gorm:"type:text" json:"last_error"`
	LastSyncedAt *time.Time `json:"last_synced_at"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// AdoptInvoice records an invoice discovered in the ledger (or freshly
// created) and advances the stage if the row was still NEW.
func (s *OrderSyncState) AdoptInvoice(docEntry int) {
	s.InvoiceDocEntry = &docEntry
	if s.Stage == StageNew {
		s.Stage = StageInvoiced
	}
}

func (s *OrderSyncState) AdoptPayment(docEntry int) {
	s.PaymentDocEntry = &docEntry
	if s.Stage == StageNew || s.Stage == StageInvoiced {
		s.Stage = StagePaid
	}
}

func (s *OrderSyncState) AdoptCreditNote(docEntry int) {
	if !s.CreditNoteDocEntries.Contains(docEntry) {
		s.CreditNoteDocEntries = append(s.CreditNoteDocEntries, docEntry)
	}
	if s.Stage == StagePaid || s.Stage == StageInvoiced {
		s.Stage = StageReturnCredited
	}
}
