package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AdviceArea narrows what a financial-advice question is about. Defaults to general.
type AdviceArea string

const (
	AreaGeneral   AdviceArea = "general"
	AreaBudgeting AdviceArea = "budgeting"
	AreaInvesting AdviceArea = "investing"
	AreaDebt      AdviceArea = "debt"
	AreaSavings   AdviceArea = "savings"
)

func ParseAdviceArea(s string) (AdviceArea, error) {
	switch a := AdviceArea(s); a {
	case AreaGeneral, AreaBudgeting, AreaInvesting, AreaDebt, AreaSavings:
		return a, nil
	case "":
		return AreaGeneral, nil
	}
	return "", fmt.Errorf("unknown advice area %q", s)
}

// FinancialAdvice is an immutable record of one question and its generated answer.
type FinancialAdvice struct {
	ID        primitive.ObjectID `json:"id"        bson:"_id,omitempty"`
	UserID    string             `json:"userId"    bson:"user_id"`
	Question  string             `json:"question"  bson:"question"`
	Area      AdviceArea         `json:"area"      bson:"area"`
	Advice    string             `json:"advice"    bson:"advice"`
	CreatedAt time.Time          `json:"createdAt" bson:"created_at"`
}

// AdviceRequest is the JSON body for POST /financial-advice.
type AdviceRequest struct {
	Question string `json:"question" validate:"required,max=2000"`
	Area     string `json:"area"`
}
