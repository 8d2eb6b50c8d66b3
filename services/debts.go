package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"namiokai-backend/database"
	"namiokai-backend/debts"
	"namiokai-backend/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const debtsCacheTTL = 10 * time.Minute

// BillStore fetches the bill snapshot the debt engine consumes: one space,
// one period.
type BillStore interface {
	BillsForPeriod(ctx context.Context, spaceID uuid.UUID, period models.Period) ([]models.Bill, error)
}

// GormBillStore reads bills through the global GORM handle.
type GormBillStore struct{}

func (GormBillStore) BillsForPeriod(ctx context.Context, spaceID uuid.UUID, period models.Period) ([]models.Bill, error) {
	var bills []models.Bill
	err := database.DB.WithContext(ctx).
		Where("space_id = ? AND date >= ? AND date < ?", spaceID, period.Start, period.End).
		Order("date ASC, created_at ASC").
		Find(&bills).Error
	if err != nil {
		return nil, err
	}
	return bills, nil
}

// SpaceDebts is one space's computed ledger for its current period.
// FetchError is set when the bill snapshot could not be loaded, so "no
// debts" and "fetch failed" stay distinguishable; the ledger is empty in
// that case.
type SpaceDebts struct {
	Space            models.Space                   `json:"space"`
	Period           models.Period                  `json:"period"`
	Debts            *debts.DebtsMap                `json:"debts"`
	CurrentUserDebts map[uuid.UUID][]debts.DebtBill `json:"current_user_debts"`
	FetchError       string                         `json:"fetch_error,omitempty"`
}

// DebtsService recomputes per-space debt ledgers on demand. Every
// computation builds a fresh ledger from a bill snapshot; nothing is mutated
// after publication, so readers need no locking.
type DebtsService struct {
	store BillStore
	cache *redis.Client
}

var debtsService *DebtsService

func GetDebtsService() *DebtsService {
	if debtsService == nil {
		debtsService = NewDebtsService(GormBillStore{}, database.Redis)
	}
	return debtsService
}

func NewDebtsService(store BillStore, cache *redis.Client) *DebtsService {
	return &DebtsService{store: store, cache: cache}
}

// SpaceDebtsFor computes the ledger for one space's period containing now,
// slicing out what userID owes. A fetch failure yields an empty ledger with
// FetchError set rather than an error return, so a multi-space fan-out can
// still deliver its other spaces.
func (s *DebtsService) SpaceDebtsFor(ctx context.Context, space models.Space, userID uuid.UUID, now time.Time) SpaceDebts {
	period := space.CurrentPeriod(now)
	result := SpaceDebts{Space: space, Period: period}

	ledger := s.cachedLedger(ctx, space.ID, period)
	if ledger == nil {
		bills, err := s.store.BillsForPeriod(ctx, space.ID, period)
		if err != nil {
			log.Printf("⚠️  Failed to fetch bills for space %s: %v", space.ID, err)
			result.Debts = debts.Calculate(nil)
			result.CurrentUserDebts = result.Debts.UserDebts(userID)
			result.FetchError = err.Error()
			return result
		}
		ledger = debts.Calculate(bills)
		s.cacheLedger(ctx, space.ID, period, ledger)
	}

	result.Debts = ledger
	result.CurrentUserDebts = ledger.UserDebts(userID)
	return result
}

// CalculateAll fans out over all of a user's spaces concurrently. Spaces are
// independent: each gets its own snapshot and ledger, and one space's fetch
// failure never blocks the others.
func (s *DebtsService) CalculateAll(ctx context.Context, spaces []models.Space, userID uuid.UUID) []SpaceDebts {
	now := time.Now()
	results := make([]SpaceDebts, len(spaces))

	var wg sync.WaitGroup
	for i, space := range spaces {
		wg.Add(1)
		go func(i int, space models.Space) {
			defer wg.Done()
			results[i] = s.SpaceDebtsFor(ctx, space, userID, now)
		}(i, space)
	}
	wg.Wait()

	return results
}

// Invalidate drops any cached ledgers for a space. Called whenever the
// space's bill set changes.
func (s *DebtsService) Invalidate(ctx context.Context, spaceID uuid.UUID) {
	if s.cache == nil {
		return
	}
	keys, err := s.cache.Keys(ctx, fmt.Sprintf("debts:%s:*", spaceID)).Result()
	if err != nil || len(keys) == 0 {
		return
	}
	if err := s.cache.Del(ctx, keys...).Err(); err != nil {
		log.Printf("⚠️  Failed to invalidate debts cache for space %s: %v", spaceID, err)
	}
}

func cacheKey(spaceID uuid.UUID, period models.Period) string {
	return fmt.Sprintf("debts:%s:%d", spaceID, period.Start.Unix())
}

func (s *DebtsService) cachedLedger(ctx context.Context, spaceID uuid.UUID, period models.Period) *debts.DebtsMap {
	if s.cache == nil {
		return nil
	}
	data, err := s.cache.Get(ctx, cacheKey(spaceID, period)).Bytes()
	if err != nil {
		return nil
	}
	ledger := &debts.DebtsMap{}
	if err := json.Unmarshal(data, ledger); err != nil {
		return nil
	}
	return ledger
}

func (s *DebtsService) cacheLedger(ctx context.Context, spaceID uuid.UUID, period models.Period, ledger *debts.DebtsMap) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(ledger)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(spaceID, period), data, debtsCacheTTL).Err(); err != nil {
		log.Printf("⚠️  Failed to cache debts for space %s: %v", spaceID, err)
	}
}
