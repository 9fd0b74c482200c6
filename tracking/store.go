package tracking

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// The tracking file is the durable memory of which returns were already
// credited. It is append-only: recorded returns are never edited or removed,
// so a replayed return can always be detected even if tags were stripped.

type ReturnedItemRecord struct {
	LineItemID       string `json:"line_item_id"`
	SKU              string `json:"sku"`
	ReturnedQuantity int    `json:"returned_quantity"`
}

type ProcessedReturn struct {
	ReturnID        string               `json:"return_id"`
	ProcessedAt     time.Time            `json:"processed_at"`
	CreditNoteEntry int                  `json:"credit_note_entry"`
	GiftCardID      string               `json:"gift_card_id,omitempty"`
	Items           []ReturnedItemRecord `json:"items"`
}

type OrderRecord struct {
	OrderName        string            `json:"order_name"`
	CreatedAt        time.Time         `json:"created_at"`
	ProcessedReturns []ProcessedReturn `json:"processed_returns"`
}

// Store is a file-backed returns ledger keyed by order id. All methods are
// safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	path string
	data map[string]*OrderRecord
}

// Open loads the tracking file, creating an empty store when the file does
// not exist yet.
func Open(path string) (*Store, error) {
	s := &Store{path: path, data: map[string]*OrderRecord{}}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read tracking file: %w", err)
	}
	if len(raw) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("parse tracking file %s: %w", path, err)
	}
	return s, nil
}

// IsReturnProcessed reports whether the return was already credited.
func (s *Store) IsReturnProcessed(orderID, returnID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.data[orderID]
	if !ok {
		return false
	}
	for _, pr := range rec.ProcessedReturns {
		if pr.ReturnID == returnID {
			return true
		}
	}
	return false
}

// ProcessedQuantity sums the quantity already credited for one line item
// across all recorded returns of the order.
func (s *Store) ProcessedQuantity(orderID, lineItemID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.data[orderID]
	if !ok {
		return 0
	}
	total := 0
	for _, pr := range rec.ProcessedReturns {
		for _, item := range pr.Items {
			if item.LineItemID == lineItemID {
				total += item.ReturnedQuantity
			}
		}
	}
	return total
}

// HasProcessedReturns reports whether any return was recorded for the order.
// Credit notes lose their base-invoice links after the first return, so this
// gates the invoice reopen.
func (s *Store) HasProcessedReturns(orderID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.data[orderID]
	return ok && len(rec.ProcessedReturns) > 0
}

// RecordReturn appends one processed return and persists the file. Recording
// the same return id twice is a no-op.
func (s *Store) RecordReturn(orderID, orderName string, pr ProcessedReturn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.data[orderID]
	if !ok {
		rec = &OrderRecord{OrderName: orderName, CreatedAt: time.Now().UTC()}
		s.data[orderID] = rec
	}
	for _, existing := range rec.ProcessedReturns {
		if existing.ReturnID == pr.ReturnID {
			return nil
		}
	}
	if pr.ProcessedAt.IsZero() {
		pr.ProcessedAt = time.Now().UTC()
	}
	rec.ProcessedReturns = append(rec.ProcessedReturns, pr)
	return s.saveLocked()
}

// OrdersWithReturnsSince returns order ids that had a return recorded inside
// the window, newest activity first is not guaranteed. Used by the follow-up
// pass to re-check settled orders for additional returns.
func (s *Store) OrdersWithReturnsSince(cutoff time.Time) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for orderID, rec := range s.data {
		for _, pr := range rec.ProcessedReturns {
			if pr.ProcessedAt.After(cutoff) {
				out = append(out, orderID)
				break
			}
		}
	}
	return out
}

// Order returns a copy of the record for one order, if present.
func (s *Store) Order(orderID string) (OrderRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.data[orderID]
	if !ok {
		return OrderRecord{}, false
	}
	cp := *rec
	cp.ProcessedReturns = append([]ProcessedReturn(nil), rec.ProcessedReturns...)
	return cp, true
}

// saveLocked writes the whole file through a temp file + rename so a crash
// mid-write never corrupts the history.
func (s *Store) saveLocked() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".returns_tracking-*.json")
	if err != nil {
		return fmt.Errorf("create temp tracking file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace tracking file: %w", err)
	}
	return nil
}
