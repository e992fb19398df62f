package instrument

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Setting is one SetConfig key/value pair
type Setting struct {
	Key   string
	Value string
}

// LoadSettings reads an instrument settings file: a flat JSON object that may
// carry // and # comments. Keys starting with '_' are skipped. Settings are
// returned sorted by key.
func LoadSettings(path string) ([]Setting, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read instrument settings: %w", err)
	}
	return ParseSettings(data)
}

// ParseSettings parses settings file content, see LoadSettings
func ParseSettings(data []byte) ([]Setting, error) {
	dec := json.NewDecoder(bytes.NewReader(stripInlineComments(data)))
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid instrument settings: %w", err)
	}

	settings := make([]Setting, 0, len(raw))
	for k, v := range raw {
		if strings.HasPrefix(k, "_") {
			continue
		}
		settings = append(settings, Setting{Key: k, Value: settingValue(v)})
	}
	sort.Slice(settings, func(i, j int) bool { return settings[i].Key < settings[j].Key })

	return settings, nil
}

func settingValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		// the remote application expects .NET style booleans
		if t {
			return "True"
		}
		return "False"
	case json.Number:
		return t.String()
	case nil:
		return ""
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

// stripInlineComments removes // and # comments that are outside string literals
func stripInlineComments(data []byte) []byte {
	var out bytes.Buffer
	for _, line := range strings.Split(string(data), "\n") {
		inString, escaped := false, false
		cut := len(line)
	scan:
		for i := 0; i < len(line); i++ {
			c := line[i]
			switch {
			case escaped:
				escaped = false
			case c == '\\' && inString:
				escaped = true
			case c == '"':
				inString = !inString
			case !inString && c == '#':
				cut = i
				break scan
			case !inString && c == '/' && i+1 < len(line) && line[i+1] == '/':
				cut = i
				break scan
			}
		}
		out.WriteString(line[:cut])
		out.WriteByte('\n')
	}
	return out.Bytes()
}
