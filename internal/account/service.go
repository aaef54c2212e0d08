// Package account registers users, checks their credentials and maintains their financial profile.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/ayush/finance-advisor/internal/apperror"
	"github.com/ayush/finance-advisor/internal/auth"
	"github.com/ayush/finance-advisor/internal/models"
)

// UserStore persists user documents.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	Exists(ctx context.Context, field, value string) (bool, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	Update(ctx context.Context, id string, set bson.M) (*models.User, error)
}

// Hasher hashes and verifies passwords.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(hash, plaintext string) error
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(id auth.Identity) (string, error)
}

// AuthResult is returned by login and registration.
type AuthResult struct {
	Token string         `json:"token"`
	User  models.Profile `json:"user"`
}

// Service implements the credential store operations.
type Service struct {
	users   UserStore
	hasher  Hasher
	tokens  TokenIssuer
	revoked auth.RevocationList
	logger  *slog.Logger
}

func NewService(users UserStore, hasher Hasher, tokens TokenIssuer, revoked auth.RevocationList, logger *slog.Logger) *Service {
	return &Service{users: users, hasher: hasher, tokens: tokens, revoked: revoked, logger: logger}
}

// Register creates a user with a hashed password and signs them in.
func (s *Service) Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	email = models.NormalizeEmail(email)

	for _, f := range []struct{ field, value string }{{"username", username}, {"email", email}} {
		taken, err := s.users.Exists(ctx, f.field, f.value)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperror.DuplicateIdentity(f.field)
		}
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", "Password must be 72 bytes or fewer")
	}

	u := &models.User{
		Username:        username,
		Email:           email,
		Password:        hash,
		MonthlyExpenses: map[string]float64{},
		FinancialGoals:  []models.FinancialGoal{},
		RiskTolerance:   models.RiskMedium,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info("user registered", slog.String("user_id", u.ID.Hex()))
	return s.signIn(u)
}

// Authenticate checks email and password. An unregistered email and a wrong
// password are reported as distinct errors.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*AuthResult, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.UnknownIdentity()
		}
		return nil, err
	}

	if err := s.hasher.Verify(u.Password, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperror.CredentialMismatch()
		}
		return nil, fmt.Errorf("verify password: %w", err)
	}
	return s.signIn(u)
}

func (s *Service) signIn(u *models.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(auth.Identity{
		UserID:   u.ID.Hex(),
		Username: u.Username,
		Email:    u.Email,
	})
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: u.Profile()}, nil
}

// Logout revokes the session's token for the rest of its lifetime.
func (s *Service) Logout(ctx context.Context, session *auth.Session) error {
	if err := s.revoked.Revoke(ctx, session.TokenID, session.ExpiresAt); err != nil {
		return apperror.Unavailable("revocation list", err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

// UpdateProfile sets only the fields present in upd. The password hash is
// recomputed only when upd carries a new password.
func (s *Service) UpdateProfile(ctx context.Context, userID string, upd models.ProfileUpdate) (*models.User, error) {
	set := bson.M{}
	if upd.Password != nil {
		hash, err := s.hasher.Hash(*upd.Password)
		if err != nil {
			return nil, apperror.ValidationFailed("password", "Password must be 72 bytes or fewer")
		}
		set["password"] = hash
	}
	if upd.AnnualIncome != nil {
		set["annual_income"] = *upd.AnnualIncome
	}
	if upd.MonthlyExpenses != nil {
		set["monthly_expenses"] = upd.MonthlyExpenses
	}
	if upd.CurrentSavings != nil {
		set["current_savings"] = *upd.CurrentSavings
	}
	if upd.FinancialGoals != nil {
		set["financial_goals"] = upd.FinancialGoals
	}
	if upd.RiskTolerance != nil {
		set["risk_tolerance"] = *upd.RiskTolerance
	}
	if upd.OnboardingCompleted != nil {
		set["onboarding_completed"] = *upd.OnboardingCompleted
	}

	if len(set) == 0 {
		return s.users.GetByID(ctx, userID)
	}
	return s.users.Update(ctx, userID, set)
}

// CompleteOnboarding stores the submitted profile and marks onboarding done.
func (s *Service) CompleteOnboarding(ctx context.Context, userID string, upd models.ProfileUpdate) (*models.User, error) {
	done := true
	upd.OnboardingCompleted = &done
	return s.UpdateProfile(ctx, userID, upd)
}

// ParseFinancialInfo turns a request body into a ProfileUpdate, checking the
// enumerations and dropping duplicate goals.
func ParseFinancialInfo(req models.FinancialInfoRequest) (models.ProfileUpdate, error) {
	upd := models.ProfileUpdate{
		Password:        req.Password,
		AnnualIncome:    req.AnnualIncome,
		MonthlyExpenses: req.MonthlyExpenses,
		CurrentSavings:  req.CurrentSavings,
	}

	if req.FinancialGoals != nil {
		seen := make(map[models.FinancialGoal]bool, len(req.FinancialGoals))
		upd.FinancialGoals = []models.FinancialGoal{}
		for _, raw := range req.FinancialGoals {
			g, err := models.ParseFinancialGoal(raw)
			if err != nil {
				return models.ProfileUpdate{}, apperror.ValidationFailed("financialGoals", fmt.Sprintf("Unknown financial goal %q", raw))
			}
			if !seen[g] {
				seen[g] = true
				upd.FinancialGoals = append(upd.FinancialGoals, g)
			}
		}
	}

	if req.RiskTolerance != nil {
		r, err := models.ParseRiskTolerance(*req.RiskTolerance)
		if err != nil {
			return models.ProfileUpdate{}, apperror.ValidationFailed("riskTolerance", "Risk tolerance must be low, medium or high")
		}
		upd.RiskTolerance = &r
	}
	return upd, nil
}
