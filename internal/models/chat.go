package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleUser, RoleAssistant:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Message is one turn of a conversation.
type Message struct {
	Role    Role   `json:"role"    bson:"role"`
	Content string `json:"content" bson:"content"`
}

// Chat is the single transcript kept per user in the chats collection.
type Chat struct {
	ID        primitive.ObjectID `json:"-"         bson:"_id,omitempty"`
	UserID    string             `json:"userId"    bson:"user_id"`
	Messages  []Message          `json:"messages"  bson:"messages"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updated_at"`
}

// ChatRequest is the JSON body for POST /chat.
type ChatRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
}
