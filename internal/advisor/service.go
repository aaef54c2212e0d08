package advisor

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ayush/finance-advisor/internal/apperror"
	"github.com/ayush/finance-advisor/internal/metrics"
	"github.com/ayush/finance-advisor/internal/models"
)

// HistoryLimit caps how many advice records GET /financial-advice returns.
const HistoryLimit = 10

// Generator produces the assistant's reply to a conversation.
type Generator interface {
	Complete(ctx context.Context, msgs []models.Message) (string, error)
}

// UserStore looks up the profile advice is personalized with.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// AdviceStore persists generated advice.
type AdviceStore interface {
	Insert(ctx context.Context, a *models.FinancialAdvice) error
	Recent(ctx context.Context, userID string, limit int64) ([]models.FinancialAdvice, error)
}

// Service generates and records personalized advice.
type Service struct {
	users  UserStore
	advice AdviceStore
	gen    Generator
	logger *slog.Logger
	now    func() time.Time
}

func NewService(users UserStore, advice AdviceStore, gen Generator, logger *slog.Logger) *Service {
	return &Service{users: users, advice: advice, gen: gen, logger: logger, now: time.Now}
}

// Generate answers question for u without persisting anything.
func (s *Service) Generate(ctx context.Context, u *models.User, question string, area models.AdviceArea) (string, error) {
	prompt := BuildAdvicePrompt(u, question, area)
	text, err := s.gen.Complete(ctx, []models.Message{{Role: models.RoleUser, Content: prompt}})
	metrics.ObserveGeneration("advice", err)
	return text, err
}

// Advise loads the user, generates advice and stores the record.
func (s *Service) Advise(ctx context.Context, userID, question, area string) (*models.FinancialAdvice, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, apperror.ValidationFailed("question", "Question is required")
	}
	parsedArea, err := models.ParseAdviceArea(area)
	if err != nil {
		return nil, apperror.ValidationFailed("area", "Area must be one of general, budgeting, investing, debt, savings")
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	text, err := s.Generate(ctx, u, question, parsedArea)
	if err != nil {
		return nil, err
	}

	record := &models.FinancialAdvice{
		UserID:   userID,
		Question: question,
		Area:     parsedArea,
		Advice:   text,
	}
	if err := s.advice.Insert(ctx, record); err != nil {
		return nil, err
	}
	s.logger.Info("advice generated",
		slog.String("user_id", userID),
		slog.String("area", string(parsedArea)),
	)
	return record, nil
}

// History returns the newest advice records for userID.
func (s *Service) History(ctx context.Context, userID string) ([]models.FinancialAdvice, error) {
	return s.advice.Recent(ctx, userID, HistoryLimit)
}

// GoalStrategy generates a plan for reaching g.
func (s *Service) GoalStrategy(ctx context.Context, u *models.User, g *models.Goal) (string, error) {
	prompt := BuildGoalStrategyPrompt(u, g, s.now())
	text, err := s.gen.Complete(ctx, []models.Message{{Role: models.RoleUser, Content: prompt}})
	metrics.ObserveGeneration("strategy", err)
	return text, err
}
