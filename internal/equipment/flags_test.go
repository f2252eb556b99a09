// internal/equipment/flags_test.go
package equipment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"lis-service/internal/model"
)

func TestDeriveFlags(t *testing.T) {
	tests := []struct {
		name   string
		result model.TestResult
		want   string
	}{
		{
			name:   "below range flags low",
			result: model.TestResult{ResultValue: "3.1", ReferenceRange: "4.0-11.0"},
			want:   "L",
		},
		{
			name:   "above range flags high",
			result: model.TestResult{ResultValue: "12.5", ReferenceRange: "4.0-11.0"},
			want:   "H",
		},
		{
			name:   "inside range stays empty",
			result: model.TestResult{ResultValue: "6.2", ReferenceRange: "4.0-11.0"},
			want:   "",
		},
		{
			name:   "boundary values are in range",
			result: model.TestResult{ResultValue: "4.0", ReferenceRange: "4.0-11.0"},
			want:   "",
		},
		{
			name:   "instrument flag wins",
			result: model.TestResult{ResultValue: "12.5", ReferenceRange: "4.0-11.0", Flags: "HH"},
			want:   "HH",
		},
		{
			name:   "non-numeric value untouched",
			result: model.TestResult{ResultValue: "POSITIVE", ReferenceRange: "4.0-11.0"},
			want:   "",
		},
		{
			name:   "unparseable range untouched",
			result: model.TestResult{ResultValue: "6.2", ReferenceRange: "see note"},
			want:   "",
		},
		{
			name:   "missing range untouched",
			result: model.TestResult{ResultValue: "6.2"},
			want:   "",
		},
		{
			name:   "range with spaces",
			result: model.TestResult{ResultValue: "15.1", ReferenceRange: "12 - 16"},
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deriveFlags(&tt.result)
			assert.Equal(t, tt.want, tt.result.Flags)
		})
	}
}
