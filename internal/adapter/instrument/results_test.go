package instrument

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/dutbench.net/internal/domain"
)

func TestParseResults(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []domain.TestResult
	}{
		{
			name: "semicolon separated",
			raw:  SimulatedResults,
			want: []domain.TestResult{
				{TestID: 100, Passed: true, Margin: 15.5},
				{TestID: 101, Passed: false, Margin: 5.0},
			},
		},
		{
			name: "newline separated with extra fields",
			raw:  "TestID=200,Result=Correct,Margin=13.25,Passed=True\r\nheader line\nTestID=201,Passed=true",
			want: []domain.TestResult{
				{TestID: 200, Passed: true, Margin: 13.25},
				{TestID: 201, Passed: false, Margin: MissingMargin},
			},
		},
		{
			name: "empty",
			raw:  "",
			want: []domain.TestResult{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResults(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseResults_Invalid(t *testing.T) {
	_, err := ParseResults("TestID=abc,Passed=True")
	assert.Error(t, err)

	_, err = ParseResults("TestID=1,Margin=high")
	assert.Error(t, err)
}
