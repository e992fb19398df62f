package batchconfig

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"gitlab.com/dutbench.net/internal/domain"
)

const (
	runsKey        = "runs"
	dutCommandsKey = "dut_commands"
)

// object is a JSON object with its members kept raw and in file order
type object struct {
	keys   []string
	values map[string]json.RawMessage
}

func decodeObject(data []byte) (*object, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("expected a JSON object")
	}

	obj := &object{values: make(map[string]json.RawMessage)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		// last duplicate wins, as with encoding/json
		if _, dup := obj.values[key]; !dup {
			obj.keys = append(obj.keys, key)
		}
		obj.values[key] = value
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return obj, nil
}

func (o *object) encode(buf *bytes.Buffer) error {
	buf.WriteByte('{')
	for i, key := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := marshal(key)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(o.values[key])
	}
	buf.WriteByte('}')
	return nil
}

// marshal encodes v without escaping <, > and &
func marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func encodeJSONTree(root *object, runs []domain.RunSpec) ([]byte, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(root.values[runsKey], &items); err != nil {
		return nil, fmt.Errorf("runs: %w", err)
	}
	if len(items) != len(runs) {
		return nil, fmt.Errorf("document has %d runs, config has %d", len(items), len(runs))
	}

	var runsBuf bytes.Buffer
	runsBuf.WriteByte('[')
	for i, item := range items {
		run, err := decodeObject(item)
		if err != nil {
			return nil, fmt.Errorf("run #%d: %w", i+1, err)
		}
		if err := setCommands(run, runs[i].DutCommands); err != nil {
			return nil, err
		}

		if i > 0 {
			runsBuf.WriteByte(',')
		}
		if err := run.encode(&runsBuf); err != nil {
			return nil, err
		}
	}
	runsBuf.WriteByte(']')
	root.values[runsKey] = runsBuf.Bytes()

	var compact bytes.Buffer
	if err := root.encode(&compact); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "    "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func setCommands(run *object, commands []string) error {
	if commands == nil {
		commands = []string{}
	}
	raw, err := marshal(commands)
	if err != nil {
		return err
	}
	if _, ok := run.values[dutCommandsKey]; !ok {
		run.keys = append(run.keys, dutCommandsKey)
	}
	run.values[dutCommandsKey] = raw
	return nil
}

// parseYAMLTree keeps # comments unless the file also uses // comments,
// which YAML itself cannot carry
func parseYAMLTree(data []byte) (*yaml.Node, error) {
	if hasSlashComments(data) {
		data = StripComments(data)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	return &root, nil
}

func hasSlashComments(data []byte) bool {
	for _, line := range bytes.Split(data, []byte("\n")) {
		if bytes.HasPrefix(bytes.TrimSpace(line), []byte("//")) {
			return true
		}
	}
	return false
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	if m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func encodeYAMLTree(root *yaml.Node, runs []domain.RunSpec) ([]byte, error) {
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, errors.New("empty YAML document")
	}

	seq := mappingValue(root.Content[0], runsKey)
	if seq == nil || seq.Kind != yaml.SequenceNode {
		return nil, errors.New("runs is not a list")
	}
	if len(seq.Content) != len(runs) {
		return nil, fmt.Errorf("document has %d runs, config has %d", len(seq.Content), len(runs))
	}

	for i, item := range seq.Content {
		lines := make([]*yaml.Node, 0, len(runs[i].DutCommands))
		for _, line := range runs[i].DutCommands {
			lines = append(lines, &yaml.Node{
				Kind:  yaml.ScalarNode,
				Tag:   "!!str",
				Style: yaml.DoubleQuotedStyle,
				Value: line,
			})
		}

		if commands := mappingValue(item, dutCommandsKey); commands != nil {
			commands.Kind = yaml.SequenceNode
			commands.Tag = "!!seq"
			commands.Value = ""
			commands.Content = lines
			continue
		}
		if item.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("run #%d is not a mapping", i+1)
		}
		item.Content = append(item.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: dutCommandsKey},
			&yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Content: lines},
		)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
