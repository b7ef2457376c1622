// Package memstore keeps profiles and medicines in memory. It backs local
// development (database.driver=memory) and tests.
package memstore

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/Abraxas-365/rxintake/persist"
	"github.com/Abraxas-365/rxintake/prescription"
	"github.com/Abraxas-365/rxintake/storex"
)

// Store implements persist.Store
type Store struct {
	mu        sync.Mutex
	symptoms  map[string]string
	medicines []persist.MedicineRecord
	seq       int
	now       func() time.Time
}

var _ persist.Store = (*Store)(nil)

func New() *Store {
	return &Store{symptoms: make(map[string]string), now: time.Now}
}

func (s *Store) ReadSymptoms(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.symptoms[userID], nil
}

func (s *Store) SwapSymptoms(_ context.Context, userID, prev, next string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.symptoms[userID] != prev {
		return false, nil
	}
	s.symptoms[userID] = next
	return true, nil
}

func (s *Store) InsertMedicine(_ context.Context, userID string, m prescription.Medicine) (persist.MedicineRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(userID, m), nil
}

func (s *Store) InsertMedicines(_ context.Context, userID string, ms []prescription.Medicine) ([]persist.MedicineRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]persist.MedicineRecord, 0, len(ms))
	for _, m := range ms {
		out = append(out, s.insertLocked(userID, m))
	}
	return out, nil
}

func (s *Store) insertLocked(userID string, m prescription.Medicine) persist.MedicineRecord {
	s.seq++
	rec := persist.MedicineRecord{
		ID:        strconv.Itoa(s.seq),
		UserID:    userID,
		Medicine:  m,
		CreatedAt: s.now(),
	}
	s.medicines = append(s.medicines, rec)
	return rec
}

func (s *Store) ListMedicines(_ context.Context, userID string, page storex.PageRequest) (storex.Paginated[persist.MedicineRecord], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var mine []persist.MedicineRecord
	for _, rec := range s.medicines {
		if rec.UserID == userID {
			mine = append(mine, rec)
		}
	}
	// newest first, like the SQL backend
	for i, j := 0, len(mine)-1; i < j; i, j = i+1, j-1 {
		mine[i], mine[j] = mine[j], mine[i]
	}

	page = page.Normalize()
	start := min(page.Offset(), len(mine))
	end := min(start+page.PageSize, len(mine))
	return storex.NewPaginated(mine[start:end], page.Page, page.PageSize, len(mine)), nil
}

func (s *Store) Close(context.Context) error { return nil }
