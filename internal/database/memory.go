package database

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"agridoctor-back/internal/models"
)

// memory is a Store for development and tests. It is used when no DATABASE_URL is set.
type memory struct {
	mu         sync.RWMutex
	users      map[string]*models.User
	crops      []models.CropPrediction
	fertilizer []models.FertilizerPrediction
	disease    []models.DiseaseDetection
}

func NewMemory() Store {
	return &memory{users: make(map[string]*models.User)}
}

func (m *memory) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) || u.Username == user.Username {
			return ErrConflict
		}
	}
	models.AssignID(&user.ID)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *memory) GetUserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *u
	return &out, nil
}

func (m *memory) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	return m.findUser(func(u *models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (m *memory) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	return m.findUser(func(u *models.User) bool { return u.Username == username })
}

func (m *memory) findUser(match func(*models.User) bool) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if match(u) {
			out := *u
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memory) SaveCropPrediction(_ context.Context, p *models.CropPrediction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	models.AssignID(&p.ID)
	stamp(&p.CreatedAt)
	m.crops = append(m.crops, *p)
	return nil
}

func (m *memory) SaveFertilizerPrediction(_ context.Context, p *models.FertilizerPrediction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	models.AssignID(&p.ID)
	stamp(&p.CreatedAt)
	m.fertilizer = append(m.fertilizer, *p)
	return nil
}

func (m *memory) SaveDiseaseDetection(_ context.Context, d *models.DiseaseDetection) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	models.AssignID(&d.ID)
	stamp(&d.CreatedAt)
	m.disease = append(m.disease, *d)
	return nil
}

func (m *memory) ListCropPredictions(_ context.Context, userID string, limit int) ([]models.CropPrediction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newestFirst(m.crops, userID, limit,
		func(p models.CropPrediction) (string, time.Time) { return p.UserID, p.CreatedAt }), nil
}

func (m *memory) ListFertilizerPredictions(_ context.Context, userID string, limit int) ([]models.FertilizerPrediction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newestFirst(m.fertilizer, userID, limit,
		func(p models.FertilizerPrediction) (string, time.Time) { return p.UserID, p.CreatedAt }), nil
}

func (m *memory) ListDiseaseDetections(_ context.Context, userID string, limit int) ([]models.DiseaseDetection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newestFirst(m.disease, userID, limit,
		func(d models.DiseaseDetection) (string, time.Time) { return d.UserID, d.CreatedAt }), nil
}

func (m *memory) Ping(context.Context) error { return nil }

func (m *memory) Close() error { return nil }

func stamp(t *time.Time) {
	if t.IsZero() {
		*t = time.Now().UTC()
	}
}

// newestFirst filters records by owner and returns at most limit of them, newest first.
// Records with equal timestamps keep reverse insertion order.
func newestFirst[T any](records []T, userID string, limit int, key func(T) (string, time.Time)) []T {
	out := make([]T, 0)
	for i := len(records) - 1; i >= 0; i-- {
		if owner, _ := key(records[i]); owner == userID {
			out = append(out, records[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		_, ti := key(out[i])
		_, tj := key(out[j])
		return ti.After(tj)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
