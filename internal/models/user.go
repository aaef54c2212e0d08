package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FinancialGoal is one of the closed set of goal categories a user may pick.
type FinancialGoal string

const (
	GoalRetirement   FinancialGoal = "retirement"
	GoalHomePurchase FinancialGoal = "homePurchase"
	GoalDebtPayoff   FinancialGoal = "debtPayoff"
	GoalInvestment   FinancialGoal = "investment"
	GoalOther        FinancialGoal = "other"
)

func ParseFinancialGoal(s string) (FinancialGoal, error) {
	switch g := FinancialGoal(s); g {
	case GoalRetirement, GoalHomePurchase, GoalDebtPayoff, GoalInvestment, GoalOther:
		return g, nil
	}
	return "", fmt.Errorf("unknown financial goal %q", s)
}

// RiskTolerance defaults to medium.
type RiskTolerance string

const (
	RiskLow    RiskTolerance = "low"
	RiskMedium RiskTolerance = "medium"
	RiskHigh   RiskTolerance = "high"
)

func ParseRiskTolerance(s string) (RiskTolerance, error) {
	switch r := RiskTolerance(s); r {
	case RiskLow, RiskMedium, RiskHigh:
		return r, nil
	case "":
		return RiskMedium, nil
	}
	return "", fmt.Errorf("unknown risk tolerance %q", s)
}

// NormalizeEmail trims and lower-cases an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// User is a document in the MongoDB users collection.
type User struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty"`
	Username            string             `bson:"username"`
	Email               string             `bson:"email"`
	Password            string             `bson:"password"` // bcrypt hash
	AnnualIncome        float64            `bson:"annual_income"`
	MonthlyExpenses     map[string]float64 `bson:"monthly_expenses"`
	CurrentSavings      float64            `bson:"current_savings"`
	FinancialGoals      []FinancialGoal    `bson:"financial_goals"`
	RiskTolerance       RiskTolerance      `bson:"risk_tolerance"`
	OnboardingCompleted bool               `bson:"onboarding_completed"`
	CreatedAt           time.Time          `bson:"created_at"`
}

// Profile is the public view of a user; it never carries the password hash.
type Profile struct {
	ID                  string             `json:"id"`
	Username            string             `json:"username"`
	Email               string             `json:"email"`
	OnboardingCompleted bool               `json:"onboardingCompleted"`
	AnnualIncome        float64            `json:"annualIncome"`
	MonthlyExpenses     map[string]float64 `json:"monthlyExpenses"`
	CurrentSavings      float64            `json:"currentSavings"`
	FinancialGoals      []FinancialGoal    `json:"financialGoals"`
	RiskTolerance       RiskTolerance      `json:"riskTolerance"`
}

func (u *User) Profile() Profile {
	expenses := u.MonthlyExpenses
	if expenses == nil {
		expenses = map[string]float64{}
	}
	goals := u.FinancialGoals
	if goals == nil {
		goals = []FinancialGoal{}
	}
	risk := u.RiskTolerance
	if risk == "" {
		risk = RiskMedium
	}
	return Profile{
		ID:                  u.ID.Hex(),
		Username:            u.Username,
		Email:               u.Email,
		OnboardingCompleted: u.OnboardingCompleted,
		AnnualIncome:        u.AnnualIncome,
		MonthlyExpenses:     expenses,
		CurrentSavings:      u.CurrentSavings,
		FinancialGoals:      goals,
		RiskTolerance:       risk,
	}
}

// ProfileUpdate lists the fields an update may touch. Nil means "leave as is".
type ProfileUpdate struct {
	Password            *string
	AnnualIncome        *float64
	MonthlyExpenses     map[string]float64
	CurrentSavings      *float64
	FinancialGoals      []FinancialGoal
	RiskTolerance       *RiskTolerance
	OnboardingCompleted *bool
}

// RegisterRequest is the JSON body for POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest is the JSON body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// FinancialInfoRequest is the JSON body for PUT /onboarding/complete and PUT /users/financial-info.
type FinancialInfoRequest struct {
	AnnualIncome    *float64           `json:"annualIncome"    validate:"omitempty,gte=0"`
	MonthlyExpenses map[string]float64 `json:"monthlyExpenses" validate:"omitempty,dive,gte=0"`
	CurrentSavings  *float64           `json:"currentSavings"  validate:"omitempty,gte=0"`
	FinancialGoals  []string           `json:"financialGoals"`
	RiskTolerance   *string            `json:"riskTolerance"`
	Password        *string            `json:"password"        validate:"omitempty,min=8,max=72"`
}
