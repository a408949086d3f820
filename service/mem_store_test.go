package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"cleanclip/model"

	"github.com/google/uuid"
)

// memDeliveryStore 内存版 DeliveryStore，(user, date) 唯一约束与数据库一致
type memDeliveryStore struct {
	mu         sync.Mutex
	templates  map[int64]*model.ContentTemplate
	deliveries []model.DailyDelivery
	nextID     int64

	// beforeCreate 在插入前执行，用于模拟并发写入
	beforeCreate func(d *model.DailyDelivery)
}

func newMemDeliveryStore() *memDeliveryStore {
	return &memDeliveryStore{templates: make(map[int64]*model.ContentTemplate)}
}

func (s *memDeliveryStore) addTemplates(st model.ServiceType, n int) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		id := int64(len(s.templates) + 1)
		s.templates[id] = &model.ContentTemplate{
			ID:          id,
			ServiceType: st,
			Script:      "script " + string(st),
			Caption:     "caption",
			CTA:         model.DefaultCTA,
			IsActive:    true,
		}
		ids = append(ids, id)
	}
	return ids
}

func (s *memDeliveryStore) setActive(id int64, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[id].IsActive = active
}

func (s *memDeliveryStore) GetDelivery(_ context.Context, userID uuid.UUID, date time.Time) (*model.DailyDelivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.deliveries {
		if d.UserID == userID && d.DeliveryDate.Equal(date) {
			out := d
			return &out, nil
		}
	}
	return nil, ErrDeliveryNotFound
}

func (s *memDeliveryStore) ActiveTemplateIDs(_ context.Context, serviceType model.ServiceType) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for id, t := range s.templates {
		if t.IsActive && t.ServiceType == serviceType {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *memDeliveryStore) GetTemplate(_ context.Context, id int64) (*model.ContentTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.templates[id]
	if !ok {
		return nil, ErrTemplateNotFound
	}
	out := *t
	return &out, nil
}

func (s *memDeliveryStore) GetTemplates(ctx context.Context, ids []int64) (map[int64]*model.ContentTemplate, error) {
	result := make(map[int64]*model.ContentTemplate, len(ids))
	for _, id := range ids {
		if t, err := s.GetTemplate(ctx, id); err == nil {
			result[id] = t
		}
	}
	return result, nil
}

func (s *memDeliveryStore) CycleState(_ context.Context, userID uuid.UUID, serviceType model.ServiceType) (int, map[int64]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cycle := 0
	for _, d := range s.deliveries {
		if d.UserID == userID && d.ServiceType == serviceType && d.Cycle > cycle {
			cycle = d.Cycle
		}
	}
	seen := make(map[int64]bool)
	for _, d := range s.deliveries {
		if d.UserID == userID && d.ServiceType == serviceType && d.Cycle == cycle {
			seen[d.TemplateID] = true
		}
	}
	return cycle, seen, nil
}

func (s *memDeliveryStore) CreateDelivery(_ context.Context, delivery *model.DailyDelivery) error {
	if s.beforeCreate != nil {
		s.beforeCreate(delivery)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.deliveries {
		if d.UserID == delivery.UserID && d.DeliveryDate.Equal(delivery.DeliveryDate) {
			return ErrDeliveryConflict
		}
	}
	s.nextID++
	delivery.ID = s.nextID
	s.deliveries = append(s.deliveries, *delivery)
	return nil
}

func (s *memDeliveryStore) CountDeliveries(_ context.Context, userID uuid.UUID, serviceType model.ServiceType) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, d := range s.deliveries {
		if d.UserID == userID && d.ServiceType == serviceType {
			n++
		}
	}
	return n, nil
}

func (s *memDeliveryStore) ListDeliveries(_ context.Context, userID uuid.UUID, limit int) ([]model.DailyDelivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.DailyDelivery
	for _, d := range s.deliveries {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeliveryDate.After(out[j].DeliveryDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memDeliveryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.deliveries)
}

// memProfiles 内存版 ProfileReader
type memProfiles struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*model.Profile
}

func newMemProfiles() *memProfiles {
	return &memProfiles{profiles: make(map[uuid.UUID]*model.Profile)}
}

func (p *memProfiles) set(userID uuid.UUID, st model.ServiceType, tz string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.profiles[userID] = &model.Profile{
		UserID:              userID,
		ServiceType:         st,
		Timezone:            tz,
		OnboardingCompleted: true,
	}
}

func (p *memProfiles) GetProfile(_ context.Context, userID uuid.UUID) (*model.Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	profile, ok := p.profiles[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := *profile
	return &out, nil
}

// memPoolCache 内存版模板池缓存
type memPoolCache struct {
	mu    sync.Mutex
	pools map[model.ServiceType][]int64
}

func newMemPoolCache() *memPoolCache {
	return &memPoolCache{pools: make(map[model.ServiceType][]int64)}
}

func (c *memPoolCache) Get(_ context.Context, st model.ServiceType) ([]int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids, ok := c.pools[st]
	return ids, ok
}

func (c *memPoolCache) Set(_ context.Context, st model.ServiceType, ids []int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pools[st] = append([]int64(nil), ids...)
}

func (c *memPoolCache) Invalidate(_ context.Context, st model.ServiceType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pools, st)
}
