package instrument

import (
	"fmt"
	"strconv"
	"strings"

	"gitlab.com/dutbench.net/internal/domain"
)

// MissingMargin is reported when a record carries no Margin field
const MissingMargin = -999.0

// ParseResults parses the remote results text. Records are separated by
// newlines or ';', fields by ',' as key=value pairs:
//
//	TestID=100,Passed=True,Margin=15.5;TestID=101,Passed=False,Margin=5.0
//
// Records without a TestID are ignored. Passed is true only for the literal "True".
func ParseResults(raw string) ([]domain.TestResult, error) {
	records := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '\n' || r == ';'
	})

	results := make([]domain.TestResult, 0, len(records))
	for _, record := range records {
		if !strings.Contains(record, "TestID=") {
			continue
		}

		fields := make(map[string]string)
		for _, part := range strings.Split(record, ",") {
			k, v, ok := strings.Cut(part, "=")
			if !ok {
				continue
			}
			fields[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}

		idText, ok := fields["TestID"]
		if !ok {
			continue
		}
		id, err := strconv.Atoi(idText)
		if err != nil {
			return nil, fmt.Errorf("invalid TestID %q in result record %q", idText, strings.TrimSpace(record))
		}

		margin := MissingMargin
		if m, ok := fields["Margin"]; ok {
			margin, err = strconv.ParseFloat(m, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid Margin %q for test %d", m, id)
			}
		}

		results = append(results, domain.TestResult{
			TestID: id,
			Passed: fields["Passed"] == "True",
			Margin: margin,
		})
	}

	return results, nil
}
