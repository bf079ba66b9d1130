package service

import (
	"context"

	"go.uber.org/zap"

	chatport "github.com/boddenberg/finbuddy-assistant-go/internal/chat/port"
	"github.com/boddenberg/finbuddy-assistant-go/internal/domain"
	"github.com/boddenberg/finbuddy-assistant-go/internal/infra/observability"
	"github.com/boddenberg/finbuddy-assistant-go/internal/port"
)

// BudgetRequest is the fixed query behind "Generate my budget plan".
const BudgetRequest = "Based on my transaction history, create a simple monthly budget plan for me. Suggest categories and amounts."

// Planner generates the budget plan of the selected project. A plan is kept
// until Clear is called or another project is selected.
type Planner struct {
	workspace *Workspace
	router    chatport.QueryRouter
	plans     port.Cache[string]
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewPlanner creates the planner and drops cached plans on project change.
func NewPlanner(workspace *Workspace, router chatport.QueryRouter, plans port.Cache[string], metrics *observability.Metrics, logger *zap.Logger) *Planner {
	p := &Planner{
		workspace: workspace,
		router:    router,
		plans:     plans,
		metrics:   metrics,
		logger:    logger,
	}
	workspace.OnProjectChange(func(string) { p.plans.Clear() })
	return p
}

// BudgetPlan returns the cached plan or routes BudgetRequest to build one.
func (p *Planner) BudgetPlan(ctx context.Context) (*domain.BudgetPlan, error) {
	ctx, span := tracer.Start(ctx, "Planner.BudgetPlan")
	defer span.End()

	project, txs, err := p.workspace.Table(ctx)
	if err != nil {
		return nil, err
	}
	if plan, ok := p.plans.Get(project); ok {
		p.metrics.IncrCacheHit(observability.CachePlans)
		return &domain.BudgetPlan{Project: project, Plan: plan, Cached: true}, nil
	}
	p.metrics.IncrCacheMiss(observability.CachePlans)

	res := p.router.Route(ctx, BudgetRequest, txs)
	p.plans.Set(project, res.Answer)
	p.logger.Info("budget plan generated",
		zap.String("project", project),
		zap.String("intent", string(res.Intent)),
	)
	return &domain.BudgetPlan{Project: project, Plan: res.Answer}, nil
}

// Clear forgets the selected project's plan.
func (p *Planner) Clear() {
	p.plans.Delete(p.workspace.Selected())
}
