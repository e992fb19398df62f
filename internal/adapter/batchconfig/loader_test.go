package batchconfig

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/dutbench.net/internal/domain"
	"gitlab.com/dutbench.net/internal/static/errs"
)

const sampleJSON = `{
    // bench 3
    "common_settings": {
        "dut_server_ip": "10.0.0.5",
        "instrument_ip": "10.0.0.9",
        "default_test_ids": [100, 101]
    },
    # sweep runs
    "runs": [
        {
            "name": "A",
            "dut_commands": [
                "// setup",
                "write_register(0x7c, 0x02, 0x01)",
                "//default value",
                "eq 3"
            ],
            "project_name": "projA",
            "report_name": "repA"
        },
        {
            "name": "B",
            "dut_commands": [],
            "project_name": "projB",
            "report_name": "repB",
            "test_ids": [200]
        }
    ]
}`

const sampleYAML = `# bench 3
common_settings:
  dut_server_ip: 10.0.0.5
  dut_server_port: 14000
  instrument_ip: 10.0.0.9
  default_test_ids: [100]
runs:
  - name: A
    dut_commands:
      - "write_register(0x7c, 0x02, 0x01)"
      - "//default value"
    project_name: projA
    report_name: repA
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_JSON(t *testing.T) {
	cfg, err := Load(writeFile(t, "batch_config.json", sampleJSON))
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.5", cfg.CommonSettings.DutServerAddress)
	assert.Equal(t, domain.DefaultDutServerPort, cfg.CommonSettings.DutServerPort)
	assert.Equal(t, []int{100, 101}, cfg.CommonSettings.DefaultTestIDs)
	assert.Equal(t, []string{"A", "B"}, cfg.RunNames())

	// comment strings inside values survive
	assert.Equal(t, []string{
		"// setup",
		"write_register(0x7c, 0x02, 0x01)",
		domain.DefaultValueMarker,
		"eq 3",
	}, cfg.Runs[0].DutCommands)

	assert.Nil(t, cfg.Runs[0].TestIDs)
	assert.Equal(t, []int{200}, cfg.Runs[1].TestIDs)
}

func TestLoad_YAML(t *testing.T) {
	cfg, err := Load(writeFile(t, "batch.yml", sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 14000, cfg.CommonSettings.DutServerPort)
	require.Len(t, cfg.Runs, 1)
	assert.Equal(t, domain.DefaultValueMarker, cfg.Runs[0].DutCommands[1])
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{name: "no runs key", content: `{"common_settings": {}}`, wantErr: errs.ErrNoRuns},
		{name: "broken json", content: `{"runs": [`, wantErr: errs.ErrInvalidConfig},
		{name: "empty name", content: `{"runs": [{"name": ""}]}`, wantErr: errs.ErrInvalidConfig},
		{name: "duplicate name", content: `{"runs": [{"name": "A"}, {"name": "A"}]}`, wantErr: errs.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "batch.json", tt.content))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, errs.ErrConfigNotFound)
}

func TestLoad_EmptyRunsIsValid(t *testing.T) {
	cfg, err := Load(writeFile(t, "batch.json", `{"runs": []}`))
	require.NoError(t, err)
	assert.Empty(t, cfg.Runs)
}

func TestStripComments(t *testing.T) {
	in := "a\n  // x\n# y\n\"//default value\",\nb"
	assert.Equal(t, "a\n\"//default value\",\nb\n", string(StripComments([]byte(in))))
}

func TestSaveDocument_RoundTrip(t *testing.T) {
	for _, name := range []string{"batch.json", "batch.yaml"} {
		t.Run(name, func(t *testing.T) {
			content := sampleJSON
			if FormatFor(name) == FormatYAML {
				content = sampleYAML
			}
			path := writeFile(t, name, content)

			doc, err := LoadDocument(path)
			require.NoError(t, err)
			doc.Config.Runs[0].DutCommands = append(doc.Config.Runs[0].DutCommands, "write_register(0x7c, 0x15, 0x00)")
			require.NoError(t, SaveDocument(doc))

			again, err := LoadDocument(path)
			require.NoError(t, err)
			assert.Equal(t, doc.Config, again.Config)
		})
	}
}

func TestSaveDocument_JSONIndent(t *testing.T) {
	path := writeFile(t, "batch.json", `{"runs": [{"name": "A", "dut_commands": []}]}`)

	doc, err := LoadDocument(path)
	require.NoError(t, err)
	doc.Config.Runs[0].DutCommands = []string{"a<b"}
	require.NoError(t, SaveDocument(doc))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n    \"runs\": [")
	assert.Contains(t, string(data), `"a<b"`)
}

func TestSaveDocument_KeepsUntouchedJSON(t *testing.T) {
	path := writeFile(t, "batch.json", `{
    "operator": {"shift": "night", "badge": 42},
    "common_settings": {"dut_server_ip": "10.0.0.2", "report_dir_note": "keep me"},
    "runs": [
        {"name": "A", "test_ids": [], "retries": 3, "dut_commands": ["write_register(0x7c, 0x15, 0x01)"]}
    ]
}`)

	doc, err := LoadDocument(path)
	require.NoError(t, err)
	doc.Config.Runs[0].DutCommands = append(doc.Config.Runs[0].DutCommands, "//default value")
	require.NoError(t, SaveDocument(doc))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var saved map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, map[string]interface{}{"shift": "night", "badge": float64(42)}, saved["operator"])
	assert.Equal(t, "keep me", saved["common_settings"].(map[string]interface{})["report_dir_note"])

	run := saved["runs"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, []interface{}{}, run["test_ids"])
	assert.Equal(t, float64(3), run["retries"])
	assert.Equal(t, []interface{}{"write_register(0x7c, 0x15, 0x01)", "//default value"}, run["dut_commands"])

	// key order follows the file
	assert.Less(t, strings.Index(string(data), `"operator"`), strings.Index(string(data), `"common_settings"`))

	again, err := LoadDocument(path)
	require.NoError(t, err)
	require.NotNil(t, again.Config.Runs[0].TestIDs)
	assert.Empty(t, again.Config.Runs[0].EffectiveTestIDs(again.Config.CommonSettings.DefaultTestIDs))
}

func TestSaveDocument_KeepsUntouchedYAML(t *testing.T) {
	path := writeFile(t, "batch.yaml", `# bench 3
operator: night-shift
common_settings:
  dut_server_ip: 10.0.0.2
  default_test_ids: [1, 2]
runs:
  - name: A
    test_ids: []
    dut_commands:
      - write_register(0x7c, 0x15, 0x01)
  - name: B
`)

	doc, err := LoadDocument(path)
	require.NoError(t, err)
	doc.Config.Runs[1].DutCommands = []string{"write_register(0x7c, 0x15, 0x00)"}
	require.NoError(t, SaveDocument(doc))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# bench 3")
	assert.Contains(t, string(data), "operator: night-shift")
	assert.Contains(t, string(data), "test_ids: []")

	again, err := LoadDocument(path)
	require.NoError(t, err)
	require.Len(t, again.Config.Runs, 2)
	assert.Empty(t, again.Config.Runs[0].EffectiveTestIDs(again.Config.CommonSettings.DefaultTestIDs))
	assert.Equal(t, []string{"write_register(0x7c, 0x15, 0x00)"}, again.Config.Runs[1].DutCommands)
}
