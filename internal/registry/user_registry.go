package registry

import (
	"strings"
	"sync"
	"time"

	"github.com/unicampus/registrar-api/internal/models"
)

// UserRegistry holds every account, indexed by id with secondary
// case-insensitive indexes on username and email.
type UserRegistry struct {
	mu         sync.RWMutex
	byID       map[string]*models.User
	byUsername map[string]string
	byEmail    map[string]string
	order      []string
}

// NewUserRegistry builds an empty account registry.
func NewUserRegistry() *UserRegistry {
	return &UserRegistry{
		byID:       make(map[string]*models.User),
		byUsername: make(map[string]string),
		byEmail:    make(map[string]string),
	}
}

// Add inserts an account. False when the id, username or email is already
// taken.
func (r *UserRegistry) Add(user *models.User) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	uname := strings.ToLower(user.Username)
	email := strings.ToLower(user.Email)
	if _, exists := r.byID[user.ID]; exists {
		return false
	}
	if _, exists := r.byUsername[uname]; exists {
		return false
	}
	if email != "" {
		if _, exists := r.byEmail[email]; exists {
			return false
		}
	}
	r.byID[user.ID] = user
	r.byUsername[uname] = user.ID
	if email != "" {
		r.byEmail[email] = user.ID
	}
	r.order = append(r.order, user.ID)
	return true
}

// Get returns a copy of the account, or nil when unknown.
func (r *UserRegistry) Get(id string) *models.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byID[id]
	if !ok {
		return nil
	}
	return user.Clone()
}

// GetByUsername resolves an account by username, ignoring case.
func (r *UserRegistry) GetByUsername(username string) *models.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byUsername[strings.ToLower(username)]
	if !ok {
		return nil
	}
	return r.byID[id].Clone()
}

// GetByEmail resolves an account by email, ignoring case.
func (r *UserRegistry) GetByEmail(email string) *models.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil
	}
	return r.byID[id].Clone()
}

// List returns every account in insertion order.
func (r *UserRegistry) List() []*models.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.User, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id].Clone())
	}
	return out
}

// TouchLogin stamps the account's last login time.
func (r *UserRegistry) TouchLogin(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[id]
	if !ok {
		return false
	}
	now := time.Now().UTC()
	user.LastLogin = &now
	return true
}

// Records snapshots every account for the persistence collaborator.
func (r *UserRegistry) Records() []models.UserRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.UserRecord, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id].Record())
	}
	return out
}

// Len reports the number of stored accounts.
func (r *UserRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
