package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Goal is a savings target tracked in the goals collection.
type Goal struct {
	ID            primitive.ObjectID `json:"id"            bson:"_id,omitempty"`
	UserID        string             `json:"userId"        bson:"user_id"`
	Type          FinancialGoal      `json:"type"          bson:"type"`
	TargetAmount  float64            `json:"targetAmount"  bson:"target_amount"`
	CurrentAmount float64            `json:"currentAmount" bson:"current_amount"`
	TargetDate    time.Time          `json:"targetDate"    bson:"target_date"`
	Strategy      string             `json:"strategy,omitempty" bson:"strategy,omitempty"`
	CreatedAt     time.Time          `json:"createdAt"     bson:"created_at"`
	UpdatedAt     time.Time          `json:"updatedAt"     bson:"updated_at"`
}

// GoalRequest is the JSON body for POST /goals and PUT /goals/{id}.
type GoalRequest struct {
	Type          string    `json:"type"          validate:"required"`
	TargetAmount  float64   `json:"targetAmount"  validate:"gt=0"`
	CurrentAmount float64   `json:"currentAmount" validate:"gte=0"`
	TargetDate    time.Time `json:"targetDate"    validate:"required"`
}
