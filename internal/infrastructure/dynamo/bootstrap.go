package dynamo

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-email-verify/internal/config"
	"github.com/go-email-verify/internal/pkg/logger/sl"
)

// Bootstrap creates the record tables if they don't already exist.
// Safe to call on every startup.
func Bootstrap(ctx context.Context, client *dynamodb.Client, tables config.DynamoTables, log *slog.Logger) {
	for _, name := range []string{tables.Users, tables.Leads} {
		createTable(ctx, client, log, &dynamodb.CreateTableInput{
			TableName:   aws.String(name),
			BillingMode: types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{
				{AttributeName: aws.String(fieldEmail), AttributeType: types.ScalarAttributeTypeS},
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String(fieldEmail), KeyType: types.KeyTypeHash},
			},
		})
	}
}

func createTable(ctx context.Context, client *dynamodb.Client, log *slog.Logger, input *dynamodb.CreateTableInput) {
	_, err := client.CreateTable(ctx, input)
	if err != nil {
		// ResourceInUseException means the table already exists.
		var riue *types.ResourceInUseException
		if !errors.As(err, &riue) {
			log.Warn("could not create table", slog.String("table", *input.TableName), sl.Err(err))
		}
		return
	}
	log.Info("created table", slog.String("table", *input.TableName))
}
