package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tasknest/tasknest-go/internal/model"
)

// MemoryStore keeps users and tasks in process memory. It backs local
// development and tests; data is lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]model.User
	byEmail map[string]string
	tasks   map[string]model.Task
	order   []string
	now     func() time.Time
}

// NewMemoryStore returns a Store whose repositories share one MemoryStore.
func NewMemoryStore() *Store {
	m := &MemoryStore{
		users:   make(map[string]model.User),
		byEmail: make(map[string]string),
		tasks:   make(map[string]model.Task),
		now:     func() time.Time { return time.Now().UTC() },
	}
	return &Store{
		Users:  memoryUsers{m},
		Tasks:  memoryTasks{m},
		Health: m,
	}
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Describe(context.Context) (Status, error) {
	return Status{Driver: "memory", Database: "memory", Collections: []string{"users", "tasks"}}, nil
}

type memoryUsers struct{ m *MemoryStore }

func (r memoryUsers) Create(_ context.Context, user *model.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, exists := r.m.byEmail[user.Email]; exists {
		return ErrDuplicateEmail
	}

	user.ID = uuid.NewString()
	user.CreatedAt = r.m.now()
	r.m.users[user.ID] = *user
	r.m.byEmail[user.Email] = user.ID
	return nil
}

func (r memoryUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	id, ok := r.m.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := r.m.users[id]
	return &u, nil
}

func (r memoryUsers) GetByID(_ context.Context, id string) (*model.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	u, ok := r.m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

type memoryTasks struct{ m *MemoryStore }

func (r memoryTasks) Insert(_ context.Context, task *model.Task) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	task.ID = uuid.NewString()
	task.CreatedAt = r.m.now()
	r.m.tasks[task.ID] = *task
	r.m.order = append(r.m.order, task.ID)
	return nil
}

func (r memoryTasks) ListByOwner(_ context.Context, ownerID string) ([]model.Task, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	tasks := make([]model.Task, 0)
	for _, id := range r.m.order {
		if t := r.m.tasks[id]; t.OwnerID == ownerID {
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}

func (r memoryTasks) UpdateByOwnerAndID(_ context.Context, ownerID, id string, patch model.TaskPatch) (*model.Task, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	t, ok := r.m.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return nil, ErrTaskNotFound
	}

	patch.Apply(&t)
	r.m.tasks[id] = t
	return &t, nil
}

func (r memoryTasks) DeleteByOwnerAndID(_ context.Context, ownerID, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	t, ok := r.m.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return ErrTaskNotFound
	}
	delete(r.m.tasks, id)
	r.m.order = slices.DeleteFunc(r.m.order, func(v string) bool { return v == id })
	return nil
}
