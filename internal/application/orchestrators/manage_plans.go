package orchestrators

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"gymdesk/internal/domain/membership"
)

// PlanStore defines the membership store interface needed to manage plans.
type PlanStore interface {
	GetPlan(ctx context.Context, id int64) (membership.Plan, error)
	SavePlan(ctx context.Context, value *membership.Plan) error
	DeletePlan(ctx context.Context, id int64) error
}

// SavePlanInput carries the plan fields. PlanID zero creates a new plan.
type SavePlanInput struct {
	PlanID       int64
	Name         string
	Price        membership.Amount
	DurationDays int
	Features     membership.Features
	IsActive     bool
	Category     string
	Description  string
}

// PlanDeps holds dependencies for the plan orchestrators.
type PlanDeps struct {
	PlanStore PlanStore
	Now       func() time.Time
}

// ExecuteSavePlan creates or replaces a membership plan.
// PRE: Name non-empty, Price >= 0, DurationDays > 0
// POST: the plan is stored; existing subscriptions keep their copied plan fields
func ExecuteSavePlan(ctx context.Context, input SavePlanInput, deps PlanDeps) (membership.Plan, error) {
	p := membership.Plan{
		ID:           input.PlanID,
		Name:         strings.TrimSpace(input.Name),
		Price:        input.Price,
		DurationDays: input.DurationDays,
		Features:     input.Features,
		IsActive:     input.IsActive,
		Category:     strings.TrimSpace(input.Category),
		Description:  input.Description,
		CreatedAt:    nowFrom(deps.Now),
	}
	if p.Features == nil {
		p.Features = membership.Features{}
	}
	if p.ID > 0 {
		existing, err := deps.PlanStore.GetPlan(ctx, p.ID)
		if err != nil {
			return membership.Plan{}, err
		}
		p.CreatedAt = existing.CreatedAt
	}
	if err := p.Validate(); err != nil {
		return membership.Plan{}, err
	}
	if err := deps.PlanStore.SavePlan(ctx, &p); err != nil {
		return membership.Plan{}, err
	}

	slog.Info("plan_event", "event", "plan_saved", "plan_id", p.ID, "name", p.Name, "is_active", p.IsActive)
	return p, nil
}

// ExecuteDeletePlan removes a plan nobody has paid for.
// POST: the plan is gone, or membership.ErrPlanInUse when payments or subscriptions reference it
func ExecuteDeletePlan(ctx context.Context, planID int64, deps PlanDeps) error {
	if err := deps.PlanStore.DeletePlan(ctx, planID); err != nil {
		return err
	}
	slog.Info("plan_event", "event", "plan_deleted", "plan_id", planID)
	return nil
}
