package application

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace/noop"

	"promo-intelligence/internal/service/intelligence/domain"
)

// 2024-10-18 是星期五
var fixedNow = time.Date(2024, 10, 18, 10, 0, 0, 0, time.UTC)

var testTracer = noop.NewTracerProvider().Tracer("test")

func testConfig() Config {
	return Config{Now: func() time.Time { return fixedNow }}
}

// memoryStore 同时实现 HistoryReader 和 PromotionStore
type memoryStore struct {
	mu          sync.Mutex
	venues      map[string]*domain.Venue
	redemptions []domain.Redemption
	checkIns    []domain.CheckIn
	users       map[string]domain.UserProfile
	failTitles  map[string]bool
	calls       map[string]int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		venues:     map[string]*domain.Venue{},
		users:      map[string]domain.UserProfile{},
		failTitles: map[string]bool{},
		calls:      map[string]int{},
	}
}

func (m *memoryStore) called(name string) {
	m.mu.Lock()
	m.calls[name]++
	m.mu.Unlock()
}

func (m *memoryStore) callCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *memoryStore) FindVenue(_ context.Context, venueID string) (*domain.Venue, error) {
	m.called("FindVenue")
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.venues[venueID]
	if !ok {
		return nil, domain.ErrVenueNotFound
	}
	cp := *v
	cp.Promotions = append([]domain.Promotion(nil), v.Promotions...)
	return &cp, nil
}

func (m *memoryStore) RedemptionsForVenue(_ context.Context, venueID string, since time.Time) ([]domain.Redemption, error) {
	m.called("RedemptionsForVenue")
	var out []domain.Redemption
	for _, r := range m.redemptions {
		if r.VenueID == venueID && r.Counts() && !r.RedeemedAt.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryStore) RedemptionsForUser(_ context.Context, venueID, userID string) ([]domain.Redemption, error) {
	var out []domain.Redemption
	for _, r := range m.redemptions {
		if r.VenueID == venueID && r.RecipientID == userID && r.Counts() {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryStore) CheckInsForVenue(_ context.Context, venueID string, since time.Time) ([]domain.CheckIn, error) {
	var out []domain.CheckIn
	for _, c := range m.checkIns {
		if c.VenueID == venueID && !c.CreatedAt.Before(since) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryStore) LatestCheckIn(_ context.Context, venueID string) (*time.Time, error) {
	var latest *time.Time
	for _, c := range m.checkIns {
		if c.VenueID == venueID && (latest == nil || c.CreatedAt.After(*latest)) {
			at := c.CreatedAt
			latest = &at
		}
	}
	return latest, nil
}

func (m *memoryStore) UsersByIDs(_ context.Context, ids []string) ([]domain.UserProfile, error) {
	var out []domain.UserProfile
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memoryStore) FindUser(_ context.Context, userID string) (*domain.UserProfile, error) {
	u, ok := m.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (m *memoryStore) ActiveVenueIDs(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.venues))
	for id := range m.venues {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *memoryStore) AppendPromotion(_ context.Context, venueID string, p *domain.Promotion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTitles[p.Title] {
		return errors.New("disk full")
	}
	v, ok := m.venues[venueID]
	if !ok {
		return domain.ErrVenueNotFound
	}
	v.Promotions = append(v.Promotions, *p)
	return nil
}

func (m *memoryStore) promotionCount(venueID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.venues[venueID].Promotions)
}

type recordingNotifier struct {
	mu       sync.Mutex
	requests []*domain.NotificationRequest
	err      error
	// block 为 true 时一直等到 ctx 结束，模拟挂住的推送网关
	block bool
}

func (n *recordingNotifier) PublishNotification(ctx context.Context, req *domain.NotificationRequest) error {
	if n.block {
		<-ctx.Done()
		return ctx.Err()
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.requests = append(n.requests, req)
	return nil
}
