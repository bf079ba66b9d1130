package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/finbuddy-assistant-go/internal/analytics"
	chatdomain "github.com/boddenberg/finbuddy-assistant-go/internal/chat/domain"
	chatport "github.com/boddenberg/finbuddy-assistant-go/internal/chat/port"
	"github.com/boddenberg/finbuddy-assistant-go/internal/domain"
	"github.com/boddenberg/finbuddy-assistant-go/internal/infra/csvio"
	"github.com/boddenberg/finbuddy-assistant-go/internal/infra/observability"
	"github.com/boddenberg/finbuddy-assistant-go/internal/port"
)

var tracer = otel.Tracer("service")

// Workspace is the application state of a single user session: the project
// tables, which one is selected, and the chat history of the selected project.
// Every user action is one of its methods.
type Workspace struct {
	store  port.ProjectStore
	router chatport.QueryRouter

	mu       sync.RWMutex
	selected string
	history  []chatdomain.ChatMessage
	onSelect []func(project string)

	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewWorkspace creates the workspace with defaultProject created and selected.
func NewWorkspace(
	ctx context.Context,
	store port.ProjectStore,
	router chatport.QueryRouter,
	defaultProject string,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*Workspace, error) {
	w := &Workspace{
		store:   store,
		router:  router,
		metrics: metrics,
		logger:  logger,
	}
	p, err := store.CreateProject(ctx, defaultProject)
	if err != nil {
		return nil, fmt.Errorf("create default project: %w", err)
	}
	w.selected = p.Name
	return w, nil
}

// OnProjectChange registers fn to run after the selected project changes.
func (w *Workspace) OnProjectChange(fn func(project string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onSelect = append(w.onSelect, fn)
}

// Selected returns the name of the selected project.
func (w *Workspace) Selected() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.selected
}

// ============================================================
// Projects
// ============================================================

// CreateProject adds an empty project and selects it.
func (w *Workspace) CreateProject(ctx context.Context, name string) (*domain.Project, error) {
	ctx, span := tracer.Start(ctx, "Workspace.CreateProject")
	defer span.End()

	p, err := w.store.CreateProject(ctx, name)
	if err != nil {
		return nil, err
	}
	w.logger.Info("project created", zap.String("project", p.Name))
	w.switchTo(p.Name)
	return p, nil
}

// ListProjects returns every project, flagging the selected one.
func (w *Workspace) ListProjects(ctx context.Context) ([]domain.ProjectSummary, error) {
	projects, err := w.store.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	selected := w.Selected()
	for i := range projects {
		projects[i].Selected = projects[i].Name == selected
	}
	return projects, nil
}

// SelectProject makes name the current project. Switching to another project
// clears the chat history and notifies OnProjectChange listeners.
func (w *Workspace) SelectProject(ctx context.Context, name string) error {
	ctx, span := tracer.Start(ctx, "Workspace.SelectProject")
	defer span.End()
	span.SetAttributes(attribute.String("project", name))

	if _, err := w.store.GetProject(ctx, name); err != nil {
		return err
	}
	w.switchTo(name)
	return nil
}

func (w *Workspace) switchTo(name string) {
	w.mu.Lock()
	if w.selected == name {
		w.mu.Unlock()
		return
	}
	w.selected = name
	w.history = nil
	listeners := append([]func(string){}, w.onSelect...)
	w.mu.Unlock()

	for _, fn := range listeners {
		fn(name)
	}
}

// ============================================================
// Transactions
// ============================================================

// Table returns the selected project's name and its rows in insertion order.
func (w *Workspace) Table(ctx context.Context) (string, []domain.Transaction, error) {
	project := w.Selected()
	if project == "" {
		return "", nil, domain.ErrNoProjectSelected
	}
	txs, err := w.store.ListTransactions(ctx, project)
	if err != nil {
		return "", nil, err
	}
	return project, txs, nil
}

// ListTransactions returns the selected project's rows, latest first.
func (w *Workspace) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	_, txs, err := w.Table(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.LatestFirst(txs), nil
}

// AddTransaction validates in and appends it to the selected project.
func (w *Workspace) AddTransaction(ctx context.Context, in domain.TransactionInput) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Workspace.AddTransaction")
	defer span.End()

	tx, err := in.Validate()
	if err != nil {
		return nil, err
	}
	project := w.Selected()
	if project == "" {
		return nil, domain.ErrNoProjectSelected
	}
	return w.store.AddTransaction(ctx, project, tx)
}

// EditTransaction replaces row id of the selected project with in.
func (w *Workspace) EditTransaction(ctx context.Context, id string, in domain.TransactionInput) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Workspace.EditTransaction")
	defer span.End()

	tx, err := in.Validate()
	if err != nil {
		return nil, err
	}
	project := w.Selected()
	if project == "" {
		return nil, domain.ErrNoProjectSelected
	}
	tx.ID = id
	return w.store.UpdateTransaction(ctx, project, tx)
}

// DeleteTransaction removes row id from the selected project.
func (w *Workspace) DeleteTransaction(ctx context.Context, id string) error {
	project := w.Selected()
	if project == "" {
		return domain.ErrNoProjectSelected
	}
	return w.store.DeleteTransaction(ctx, project, id)
}

// ImportTransactions appends every valid CSV row to the selected project.
// Invalid rows are skipped and listed in the report.
func (w *Workspace) ImportTransactions(ctx context.Context, r io.Reader) (*domain.ImportReport, error) {
	ctx, span := tracer.Start(ctx, "Workspace.ImportTransactions")
	defer span.End()

	project := w.Selected()
	if project == "" {
		return nil, domain.ErrNoProjectSelected
	}
	txs, skipped, err := csvio.Read(r)
	if err != nil {
		return nil, err
	}
	if err := w.store.AppendTransactions(ctx, project, txs); err != nil {
		return nil, err
	}

	if skipped == nil {
		skipped = []domain.RowError{}
	}
	w.logger.Info("transactions imported",
		zap.String("project", project),
		zap.Int("imported", len(txs)),
		zap.Int("skipped", len(skipped)),
	)
	return &domain.ImportReport{Imported: len(txs), Skipped: skipped}, nil
}

// ExportTransactions writes the selected project's table as CSV.
func (w *Workspace) ExportTransactions(ctx context.Context, out io.Writer) error {
	_, txs, err := w.Table(ctx)
	if err != nil {
		return err
	}
	return csvio.Write(out, txs)
}

// ============================================================
// Chat
// ============================================================

// SubmitChat routes query against the selected project's table and records
// both turns in the chat history.
func (w *Workspace) SubmitChat(ctx context.Context, query string) (*chatdomain.ChatResponse, error) {
	ctx, span := tracer.Start(ctx, "Workspace.SubmitChat")
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &domain.ErrValidation{Field: "query", Message: "query is required"}
	}

	start := time.Now()
	defer func() {
		w.metrics.RecordRequestDuration("chat", time.Since(start))
	}()

	project, txs, err := w.Table(ctx)
	if err != nil {
		return nil, err
	}
	res := w.router.Route(ctx, query, txs)

	now := time.Now().UTC()
	w.mu.Lock()
	// The project may have changed while the answer was generated; the
	// exchange then belongs to a history that no longer exists.
	if w.selected == project {
		w.history = append(w.history,
			chatdomain.ChatMessage{ID: uuid.NewString(), Role: chatdomain.RoleUser, Content: query, CreatedAt: now},
			chatdomain.ChatMessage{ID: uuid.NewString(), Role: chatdomain.RoleAssistant, Content: res.Answer, CreatedAt: now},
		)
	}
	w.mu.Unlock()

	return &chatdomain.ChatResponse{
		Project: project,
		Intent:  res.Intent,
		Answer:  res.Answer,
		Cached:  res.Cached,
	}, nil
}

// ChatHistory returns the selected project's messages, oldest first.
func (w *Workspace) ChatHistory() []chatdomain.ChatMessage {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]chatdomain.ChatMessage, len(w.history))
	copy(out, w.history)
	return out
}

// ClearChat empties the chat history.
func (w *Workspace) ClearChat() {
	w.mu.Lock()
	w.history = nil
	w.mu.Unlock()
}

// ClearChatCache drops every cached AI answer.
func (w *Workspace) ClearChatCache() {
	w.router.ClearCache()
}
