package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/repository"
)

// memoryAccounts is an in-memory repository.AccountRepository for
// service tests.
type memoryAccounts struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
}

func newMemoryAccounts() *memoryAccounts {
	return &memoryAccounts{accounts: make(map[string]*domain.Account)}
}

func (m *memoryAccounts) Create(_ context.Context, account *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	email := strings.ToLower(account.Email)
	for _, existing := range m.accounts {
		if existing.Email == email {
			return repository.ErrDuplicateEmail
		}
	}
	account.ID = uuid.NewString()
	account.Email = email
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
	clone := *account
	m.accounts[account.ID] = &clone
	return nil
}

func (m *memoryAccounts) Update(_ context.Context, account *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[account.ID]; !ok {
		return pgx.ErrNoRows
	}
	email := strings.ToLower(account.Email)
	for id, existing := range m.accounts {
		if id != account.ID && existing.Email == email {
			return repository.ErrDuplicateEmail
		}
	}
	account.Email = email
	account.UpdatedAt = time.Now()
	clone := *account
	m.accounts[account.ID] = &clone
	return nil
}

func (m *memoryAccounts) GetByID(_ context.Context, id string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *account
	return &clone, nil
}

func (m *memoryAccounts) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, account := range m.accounts {
		if account.Email == email {
			clone := *account
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memoryAccounts) List(_ context.Context, filter repository.ListFilter) ([]*domain.Account, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 5
	}

	matched := make([]*domain.Account, 0)
	search := strings.ToLower(filter.Search)
	for _, account := range m.accounts {
		if account.Role == domain.RoleAdmin || account.IsDeleted {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(account.Name), search) &&
			!strings.Contains(account.Email, search) {
			continue
		}
		clone := *account
		matched = append(matched, &clone)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := pageSize * (page - 1)
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (m *memoryAccounts) SetBlocked(_ context.Context, id string, blocked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	account.IsBlocked = blocked
	return nil
}

func (m *memoryAccounts) SoftDelete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	account.IsDeleted = true
	return nil
}

func (m *memoryAccounts) CountActive(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, account := range m.accounts {
		if !account.IsDeleted {
			count++
		}
	}
	return count, nil
}
