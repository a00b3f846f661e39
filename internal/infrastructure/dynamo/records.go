package dynamo

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-email-verify/internal/config"
	"github.com/go-email-verify/internal/domain"
	"github.com/go-email-verify/internal/pkg/id"
)

// RecordRepo stores users and leads in one table per collection.
// PK: email. The hash key is what guarantees one record per email.
type RecordRepo struct {
	client *dynamodb.Client
	tables map[domain.Collection]string
}

func NewRecordRepo(client *dynamodb.Client, tables config.DynamoTables) *RecordRepo {
	return &RecordRepo{
		client: client,
		tables: map[domain.Collection]string{
			domain.CollectionUsers: tables.Users,
			domain.CollectionLeads: tables.Leads,
		},
	}
}

func (r *RecordRepo) table(c domain.Collection) (string, error) {
	t, ok := r.tables[c]
	if !ok {
		return "", fmt.Errorf("no table for collection %q", c)
	}
	return t, nil
}

func (r *RecordRepo) FindByEmail(ctx context.Context, c domain.Collection, email string) (*domain.Record, error) {
	table, err := r.table(c)
	if err != nil {
		return nil, err
	}
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(table),
		Key:            strKey(fieldEmail, email),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("record not found: %w", domain.ErrNotFound)
	}
	var rec domain.Record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return &rec, nil
}

func (r *RecordRepo) FindByEmailAndToken(ctx context.Context, c domain.Collection, email, token string) (*domain.Record, error) {
	rec, err := r.FindByEmail(ctx, c, email)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(rec.Token), []byte(token)) != 1 {
		return nil, fmt.Errorf("record not found: %w", domain.ErrNotFound)
	}
	return rec, nil
}

func (r *RecordRepo) UpsertUnverified(ctx context.Context, c domain.Collection, fields domain.RecordFields, token string) (*domain.Record, error) {
	table, err := r.table(c)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	set := map[string]interface{}{
		fieldToken:     token,
		fieldVerified:  false,
		fieldUpdatedAt: now,
	}
	if c == domain.CollectionLeads {
		set[fieldName] = fields.Name
		set[fieldPhone] = fields.Phone
	}
	ue, err := buildUpsertExpr(set, map[string]interface{}{
		fieldRecordID:  id.New(),
		fieldCreatedAt: now,
	})
	if err != nil {
		return nil, err
	}
	ue.Names["#va"] = fieldVerifiedAt
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(table),
		Key:                       strKey(fieldEmail, fields.Email),
		UpdateExpression:          aws.String(ue.Expr + " REMOVE #va"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, err
	}
	var rec domain.Record
	if err := attributevalue.UnmarshalMap(out.Attributes, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return &rec, nil
}

// MarkVerified flips the flag only while the stored record still carries rec.ID and rec.Token.
// A token issued after the lookup makes the update miss with domain.ErrNotFound.
func (r *RecordRepo) MarkVerified(ctx context.Context, c domain.Collection, rec *domain.Record) error {
	table, err := r.table(c)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldVerified:   true,
		fieldVerifiedAt: now,
		fieldUpdatedAt:  now,
	})
	if err != nil {
		return err
	}
	ue.Names["#rid"] = fieldRecordID
	ue.Names["#ver"] = fieldVerified
	ue.Names["#tok"] = fieldToken
	ue.Values[":rid"] = &types.AttributeValueMemberS{Value: rec.ID}
	ue.Values[":tok"] = &types.AttributeValueMemberS{Value: rec.Token}
	ue.Values[":false"] = &types.AttributeValueMemberBOOL{Value: false}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(table),
		Key:                       strKey(fieldEmail, rec.Email),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("#rid = :rid AND #tok = :tok AND #ver = :false"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	var ccf *types.ConditionalCheckFailedException
	if !errors.As(err, &ccf) {
		return err
	}
	// Either already verified through this token (idempotent success), or the record
	// was replaced or re-issued since the lookup.
	current, err := r.FindByEmail(ctx, c, rec.Email)
	if err != nil {
		return err
	}
	if current.ID == rec.ID && current.Token == rec.Token && current.Verified {
		return nil
	}
	return fmt.Errorf("record %s: %w", rec.ID, domain.ErrNotFound)
}

// Ping checks that the users table is reachable.
func (r *RecordRepo) Ping(ctx context.Context) error {
	table, err := r.table(domain.CollectionUsers)
	if err != nil {
		return err
	}
	_, err = r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)})
	return err
}
