package dynamo

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// strKey builds a DynamoDB primary key map with a single string attribute.
func strKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberS{Value: value},
	}
}

// updateExpr is a DynamoDB update expression with its placeholder maps.
type updateExpr struct {
	Expr   string
	Names  map[string]string
	Values map[string]types.AttributeValue
}

// buildUpdateExpr converts a map of field->value into a DynamoDB SET expression.
// Keys are sorted so the expression is deterministic.
func buildUpdateExpr(updates map[string]interface{}) (updateExpr, error) {
	return buildUpsertExpr(updates, nil)
}

// buildUpsertExpr is buildUpdateExpr plus fields that are written only when the
// attribute is absent (if_not_exists), which is how inserts keep their identity.
func buildUpsertExpr(set, setIfAbsent map[string]interface{}) (updateExpr, error) {
	ue := updateExpr{
		Names:  make(map[string]string),
		Values: make(map[string]types.AttributeValue),
	}
	var clauses []string
	i := 0
	add := func(fields map[string]interface{}, ifAbsent bool) error {
		for _, k := range slices.Sorted(maps.Keys(fields)) {
			nameKey := fmt.Sprintf("#f%d", i)
			valueKey := fmt.Sprintf(":v%d", i)
			av, err := attributevalue.Marshal(fields[k])
			if err != nil {
				return fmt.Errorf("marshal field %s: %w", k, err)
			}
			ue.Names[nameKey] = k
			ue.Values[valueKey] = av
			if ifAbsent {
				clauses = append(clauses, fmt.Sprintf("%s = if_not_exists(%s, %s)", nameKey, nameKey, valueKey))
			} else {
				clauses = append(clauses, fmt.Sprintf("%s = %s", nameKey, valueKey))
			}
			i++
		}
		return nil
	}
	if err := add(set, false); err != nil {
		return updateExpr{}, err
	}
	if err := add(setIfAbsent, true); err != nil {
		return updateExpr{}, err
	}
	if i == 0 {
		return updateExpr{}, fmt.Errorf("no fields to update")
	}
	ue.Expr = "SET " + strings.Join(clauses, ", ")
	return ue, nil
}
