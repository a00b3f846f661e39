package mongo

import (
	"time"

	"github.com/go-email-verify/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
)

// document is the stored shape of a record. _id is a ULID string for documents this
// service inserted and an ObjectID for documents written by earlier writers.
type document struct {
	ID         bson.RawValue `bson:"_id"`
	Email      string        `bson:"email"`
	Token      string        `bson:"token"`
	Verified   bool          `bson:"verified"`
	Name       string        `bson:"name,omitempty"`
	Phone      string        `bson:"phone,omitempty"`
	CreatedAt  time.Time     `bson:"created_at,omitempty"`
	UpdatedAt  time.Time     `bson:"updated_at,omitempty"`
	VerifiedAt *time.Time    `bson:"verified_at,omitempty"`
}

func (d document) record() domain.Record {
	return domain.Record{
		ID:         idString(d.ID),
		Email:      d.Email,
		Token:      d.Token,
		Verified:   d.Verified,
		Name:       d.Name,
		Phone:      d.Phone,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
		VerifiedAt: d.VerifiedAt,
	}
}

func idString(v bson.RawValue) string {
	switch v.Type {
	case bson.TypeString:
		return v.StringValue()
	case bson.TypeObjectID:
		return v.ObjectID().Hex()
	case 0:
		return ""
	default:
		return v.String()
	}
}
