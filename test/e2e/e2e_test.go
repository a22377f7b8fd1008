package e2e_test

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// runCLI runs keycase with args and stdin, returning stdout, stderr and the error
func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := exec.Command("go", append([]string{"run", "../../main.go"}, args...)...)
	cmd.Stdin = strings.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// TestEndToEnd_NestedDocument normalizes a nested JSON document read from a file
func TestEndToEnd_NestedDocument(t *testing.T) {
	tempDir := t.TempDir()

	jsonContent := `{
		"ID": 12345,
		"CreatedAt": "2023-05-20T14:56:23Z",
		"UpdatedAt": null,
		"Config": {
			"Enabled": true,
			"TimeoutSeconds": 30,
			"Features": ["Logging", "Metrics"],
			"RateLimits": {"PerSecond": 100, "PerMinute": 1000}
		},
		"Users": [
			{"ID": 1, "Name": "Alice", "Roles": ["admin", "user"]},
			{"ID": 2, "Name": "Bob", "Roles": ["user"]}
		],
		"Stats": {"SuccessRate": 0.9999, "ResponseTimes": [0.045, 0.067]},
		"Active": true
	}`

	jsonFile := filepath.Join(tempDir, "nested.json")
	require.NoError(t, os.WriteFile(jsonFile, []byte(jsonContent), 0644))
	outputFile := filepath.Join(tempDir, "nested_output.json")

	_, stderr, err := runCLI(t, "", "-i", jsonFile, "-o", outputFile, "-c", "snake")
	require.NoError(t, err, "CLI command failed: %s", stderr)
	assert.Contains(t, stderr, "written to "+outputFile)

	data, err := os.ReadFile(outputFile)
	require.NoError(t, err)

	output := string(data)
	for _, key := range []string{`"id"`, `"created_at"`, `"updated_at": null`, `"timeout_seconds"`, `"rate_limits"`, `"per_second"`, `"success_rate"`, `"response_times"`} {
		assert.Contains(t, output, key)
	}
	// Values are untouched
	assert.Contains(t, output, `"Logging"`)
	assert.Contains(t, output, `0.9999`)
	assert.Less(t, strings.Index(output, `"id"`), strings.Index(output, `"active"`), "key order is kept")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	users := decoded["users"].([]any)
	require.Len(t, users, 2)
	assert.Equal(t, "Bob", users[1].(map[string]any)["name"])
}

// TestEndToEnd_StdinCollision checks the last colliding key wins through the CLI
func TestEndToEnd_StdinCollision(t *testing.T) {
	stdout, stderr, err := runCLI(t, `{"UserId": 123, "userid": 456}`, "--stats")
	require.NoError(t, err, "CLI command failed: %s", stderr)

	assert.Equal(t, "{\n  \"userid\": 456\n}\n", stdout)
	assert.Contains(t, stderr, "$: userid <- UserId, userid")
}

// TestEndToEnd_YAMLToJSON converts formats while normalizing
func TestEndToEnd_YAMLToJSON(t *testing.T) {
	stdout, stderr, err := runCLI(t, "", "-i", "../../testdata/samples/deployment.yaml", "--to", "json")
	require.NoError(t, err, "CLI command failed: %s", stderr)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &decoded))
	assert.Equal(t, "apps/v1", decoded["apiversion"])
	spec := decoded["spec"].(map[string]any)
	assert.EqualValues(t, 2, spec["replicas"])
}

// TestEndToEnd_ConfigFile applies settings from --config
func TestEndToEnd_ConfigFile(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "keycase.yml")
	require.NoError(t, os.WriteFile(configFile, []byte(`
normalize:
  case: kebab
  exclude: [raw]
output:
  format: yaml
`), 0644))

	stdout, stderr, err := runCLI(t, `{"MaxRetries": 3, "Raw": {"KeepMe": true}}`, "--config", configFile)
	require.NoError(t, err, "CLI command failed: %s", stderr)

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &decoded))
	assert.Equal(t, 3, decoded["max-retries"])
	assert.Equal(t, map[string]any{"KeepMe": true}, decoded["raw"])
}

// TestEndToEnd_Errors checks user-facing error output and exit status
func TestEndToEnd_Errors(t *testing.T) {
	tests := []struct {
		name     string
		stdin    string
		args     []string
		expected string
	}{
		{"invalid json", `{"a": }`, nil, "Parsing error:"},
		{"empty input", "", nil, "Parsing error:"},
		{"unknown case", `{}`, []string{"-c", "title"}, "Configuration error:"},
		{"missing file", "", []string{"-i", "does-not-exist.json"}, "Input error:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, stderr, err := runCLI(t, tt.stdin, tt.args...)
			require.Error(t, err)
			assert.Empty(t, stdout)
			assert.Contains(t, stderr, tt.expected)
			assert.Contains(t, stderr, "For help, run: keycase --help")
		})
	}
}

// TestEndToEnd_FileCommands exercises the file helpers through the CLI
func TestEndToEnd_FileCommands(t *testing.T) {
	tempDir := t.TempDir()
	image := filepath.Join(tempDir, "photo.png")
	require.NoError(t, os.WriteFile(image, make([]byte, 2048), 0644))

	stdout, stderr, err := runCLI(t, "", "file", "inspect", "--allow", "png", image)
	require.NoError(t, err, "CLI command failed: %s", stderr)
	assert.Regexp(t, `photo\.png\s+2\.0 KiB\s+image/png\s+image\s+png\s+ok`, stdout)

	_, stderr, err = runCLI(t, "", "file", "inspect", "--max-size", "1 KiB", "--strict", image)
	require.Error(t, err)
	assert.Contains(t, stderr, "File error:")

	stdout, stderr, err = runCLI(t, "", "file", "name", "--prefix", "uploads/", "Report.PDF")
	require.NoError(t, err, "CLI command failed: %s", stderr)
	assert.Regexp(t, `^uploads/[0-9a-f-]{36}\.pdf\n$`, stdout)
}

// TestEndToEnd_Version prints the version
func TestEndToEnd_Version(t *testing.T) {
	stdout, _, err := runCLI(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "keycase version "))
}
