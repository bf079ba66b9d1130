// Package memory implements port.ProjectStore in process memory.
// Nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/boddenberg/finbuddy-assistant-go/internal/domain"
)

// Store keeps every project's transaction table, in insertion order.
type Store struct {
	mu       sync.RWMutex
	projects map[string]*domain.Project
	order    []string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{projects: make(map[string]*domain.Project)}
}

// CreateProject adds an empty project. Names are trimmed and must be unique.
func (s *Store) CreateProject(_ context.Context, name string) (*domain.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "project name is required"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[name]; ok {
		return nil, &domain.ErrConflict{Message: fmt.Sprintf("project %q already exists", name)}
	}
	p := &domain.Project{Name: name, Transactions: []domain.Transaction{}}
	s.projects[name] = p
	s.order = append(s.order, name)
	return cloneProject(p), nil
}

// ListProjects returns the projects in creation order. Selected is left unset.
func (s *Store) ListProjects(_ context.Context) ([]domain.ProjectSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ProjectSummary, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, domain.ProjectSummary{
			Name:             name,
			TransactionCount: len(s.projects[name].Transactions),
		})
	}
	return out, nil
}

// GetProject returns a copy of the named project.
func (s *Store) GetProject(_ context.Context, name string) (*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[name]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "project", ID: name}
	}
	return cloneProject(p), nil
}

// ListTransactions returns a copy of the project's table in insertion order.
func (s *Store) ListTransactions(ctx context.Context, project string) ([]domain.Transaction, error) {
	p, err := s.GetProject(ctx, project)
	if err != nil {
		return nil, err
	}
	return p.Transactions, nil
}

// AddTransaction appends tx, assigning an ID when it has none.
func (s *Store) AddTransaction(_ context.Context, project string, tx domain.Transaction) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[project]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "project", ID: project}
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	p.Transactions = append(p.Transactions, tx)
	return &tx, nil
}

// UpdateTransaction replaces the row with the same ID, keeping its position.
func (s *Store) UpdateTransaction(_ context.Context, project string, tx domain.Transaction) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[project]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "project", ID: project}
	}
	i := indexOf(p.Transactions, tx.ID)
	if i < 0 {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: tx.ID}
	}
	p.Transactions[i] = tx
	return &tx, nil
}

// DeleteTransaction removes the row with the given ID.
func (s *Store) DeleteTransaction(_ context.Context, project, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[project]
	if !ok {
		return &domain.ErrNotFound{Resource: "project", ID: project}
	}
	i := indexOf(p.Transactions, id)
	if i < 0 {
		return &domain.ErrNotFound{Resource: "transaction", ID: id}
	}
	p.Transactions = append(p.Transactions[:i], p.Transactions[i+1:]...)
	return nil
}

// AppendTransactions adds a batch atomically.
func (s *Store) AppendTransactions(_ context.Context, project string, txs []domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[project]
	if !ok {
		return &domain.ErrNotFound{Resource: "project", ID: project}
	}
	for _, tx := range txs {
		if tx.ID == "" {
			tx.ID = uuid.NewString()
		}
		p.Transactions = append(p.Transactions, tx)
	}
	return nil
}

func indexOf(txs []domain.Transaction, id string) int {
	for i, t := range txs {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func cloneProject(p *domain.Project) *domain.Project {
	txs := make([]domain.Transaction, len(p.Transactions))
	copy(txs, p.Transactions)
	return &domain.Project{Name: p.Name, Transactions: txs}
}
