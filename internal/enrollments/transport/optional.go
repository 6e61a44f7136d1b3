package transport

import (
	"encoding/json"

	"leaddesk_backend/internal/enrollments/domain"

	"github.com/shopspring/decimal"
)

// OptionalDecimal distinguishes an absent amount from an explicit null,
// which clears the stored value. Numbers and numeric strings are accepted.
type OptionalDecimal struct {
	Value *decimal.Decimal
	Set   bool
}

func (o OptionalDecimal) IsZero() bool {
	return !o.Set
}

func (o *OptionalDecimal) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" || string(data) == `""` {
		o.Value = nil
		return nil
	}

	var parsed decimal.Decimal
	if err := json.Unmarshal(data, &parsed); err != nil {
		return err
	}
	o.Value = &parsed
	return nil
}

// Patch converts the field into a domain patch entry.
func (o OptionalDecimal) Patch() domain.DecimalPatch {
	return domain.DecimalPatch{Set: o.Set, Value: o.Value}
}
