package domain

import (
	"fmt"
	"time"
)

// Collection selects one of the two independent record collections.
type Collection string

const (
	CollectionUsers Collection = "users"
	CollectionLeads Collection = "leads"
)

// ParseCollection maps a db_type query value to a collection. An empty value means users.
func ParseCollection(s string) (Collection, error) {
	switch Collection(s) {
	case "", CollectionUsers:
		return CollectionUsers, nil
	case CollectionLeads:
		return CollectionLeads, nil
	default:
		return "", ValidationError(fmt.Sprintf("unknown db_type %q", s), nil)
	}
}

// Record is a user or lead tracked through the verification state machine.
// Email is unique within a collection. Verified is terminal once true.
type Record struct {
	ID         string     `json:"id" dynamodbav:"record_id"`
	Email      string     `json:"email" dynamodbav:"email"`
	Token      string     `json:"-" dynamodbav:"token"`
	Verified   bool       `json:"verified" dynamodbav:"verified"`
	Name       string     `json:"name,omitempty" dynamodbav:"name,omitempty"`
	Phone      string     `json:"phone,omitempty" dynamodbav:"phone,omitempty"`
	CreatedAt  time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt  time.Time  `json:"updated" dynamodbav:"updated_at"`
	VerifiedAt *time.Time `json:"verified_at,omitempty" dynamodbav:"verified_at,omitempty"`
}

// RecordFields are the caller-supplied fields written on upsert.
// Name and Phone are only set for leads.
type RecordFields struct {
	Email string
	Name  string
	Phone string
}

type SendVerificationRequest struct {
	Email string  `json:"email" validate:"required,email"`
	ID    *string `json:"id"`
}

type CreateLeadRequest struct {
	Name  string  `json:"name" validate:"required"`
	Email string  `json:"email" validate:"required,email"`
	Phone string  `json:"phone" validate:"required"`
	ID    *string `json:"id"`
}

type VerifyRequest struct {
	Token  string `validate:"required"`
	Email  string `validate:"required"`
	Phone  string
	DBType string
}
