package intake

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu     sync.Mutex
	byMail map[string]*User
	nextID int64
}

// NewMemoryRepository builds an in-memory applicant store for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{byMail: make(map[string]*User), nextID: 1}
}

func (r *memoryRepository) Save(_ context.Context, user *User) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byMail[user.Email]; exists {
		return 0, ErrUserExists
	}

	user.ID = r.nextID
	r.nextID++
	for i := range user.Loans {
		user.Loans[i].ID = r.nextID
		r.nextID++
	}
	for i := range user.Documents {
		user.Documents[i].ID = r.nextID
		r.nextID++
	}

	saved := *user
	r.byMail[user.Email] = &saved
	return user.ID, nil
}
