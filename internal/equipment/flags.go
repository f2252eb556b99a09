// internal/equipment/flags.go
package equipment

import (
	"strings"

	"github.com/shopspring/decimal"

	"lis-service/internal/model"
)

// deriveFlags fills in an H/L abnormal flag for numeric results the
// instrument reported without one, using a parseable "low-high" reference
// range. Non-numeric values and unparseable ranges are left untouched.
func deriveFlags(result *model.TestResult) {
	if result.Flags != "" || result.ReferenceRange == "" {
		return
	}

	value, err := decimal.NewFromString(strings.TrimSpace(result.ResultValue))
	if err != nil {
		return
	}

	low, high, ok := parseRange(result.ReferenceRange)
	if !ok {
		return
	}

	switch {
	case value.LessThan(low):
		result.Flags = "L"
	case value.GreaterThan(high):
		result.Flags = "H"
	}
}

// parseRange parses a "low-high" reference range into its bounds
func parseRange(referenceRange string) (low, high decimal.Decimal, ok bool) {
	parts := strings.SplitN(strings.TrimSpace(referenceRange), "-", 2)
	if len(parts) != 2 {
		return low, high, false
	}

	low, err := decimal.NewFromString(strings.TrimSpace(parts[0]))
	if err != nil {
		return low, high, false
	}
	high, err = decimal.NewFromString(strings.TrimSpace(parts[1]))
	if err != nil {
		return low, high, false
	}

	return low, high, true
}
