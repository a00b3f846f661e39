package dynamo

// DynamoDB attribute names used in key and update expressions.
// Must match the dynamodbav tags on domain.Record.
const (
	fieldEmail      = "email"
	fieldRecordID   = "record_id"
	fieldToken      = "token"
	fieldVerified   = "verified"
	fieldVerifiedAt = "verified_at"
	fieldName       = "name"
	fieldPhone      = "phone"
	fieldCreatedAt  = "created_at"
	fieldUpdatedAt  = "updated_at"
)
