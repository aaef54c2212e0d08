// Package goals tracks savings targets and asks the advisor for plans to reach them.
package goals

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/ayush/finance-advisor/internal/apperror"
	"github.com/ayush/finance-advisor/internal/models"
)

type Store interface {
	Insert(ctx context.Context, g *models.Goal) error
	ListByUser(ctx context.Context, userID string) ([]models.Goal, error)
	Get(ctx context.Context, userID, id string) (*models.Goal, error)
	Update(ctx context.Context, userID, id string, set bson.M) (*models.Goal, error)
	Delete(ctx context.Context, userID, id string) error
}

type UserStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Strategist writes a plan for reaching a goal.
type Strategist interface {
	GoalStrategy(ctx context.Context, u *models.User, g *models.Goal) (string, error)
}

type Service struct {
	goals      Store
	users      UserStore
	strategist Strategist
}

func NewService(goals Store, users UserStore, strategist Strategist) *Service {
	return &Service{goals: goals, users: users, strategist: strategist}
}

func (s *Service) Create(ctx context.Context, userID string, req models.GoalRequest) (*models.Goal, error) {
	goalType, err := parseType(req.Type)
	if err != nil {
		return nil, err
	}
	g := &models.Goal{
		UserID:        userID,
		Type:          goalType,
		TargetAmount:  req.TargetAmount,
		CurrentAmount: req.CurrentAmount,
		TargetDate:    req.TargetDate.UTC(),
	}
	if err := s.goals.Insert(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]models.Goal, error) {
	return s.goals.ListByUser(ctx, userID)
}

// Update replaces the editable fields. A stored strategy is kept.
func (s *Service) Update(ctx context.Context, userID, id string, req models.GoalRequest) (*models.Goal, error) {
	goalType, err := parseType(req.Type)
	if err != nil {
		return nil, err
	}
	return s.goals.Update(ctx, userID, id, bson.M{
		"type":           goalType,
		"target_amount":  req.TargetAmount,
		"current_amount": req.CurrentAmount,
		"target_date":    req.TargetDate.UTC(),
	})
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return s.goals.Delete(ctx, userID, id)
}

// GenerateStrategy asks the strategist for a plan and stores it on the goal.
func (s *Service) GenerateStrategy(ctx context.Context, userID, id string) (*models.Goal, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	g, err := s.goals.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	strategy, err := s.strategist.GoalStrategy(ctx, u, g)
	if err != nil {
		return nil, err
	}
	return s.goals.Update(ctx, userID, id, bson.M{"strategy": strategy})
}

func parseType(raw string) (models.FinancialGoal, error) {
	g, err := models.ParseFinancialGoal(raw)
	if err != nil {
		return "", apperror.ValidationFailed("type", fmt.Sprintf("Unknown goal type %q", raw))
	}
	return g, nil
}
