package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
)

func TestExpandEnv(t *testing.T) {
	tests := []struct {
		name  string
		input string
		env   map[string]string
		want  string
	}{
		{
			name:  "braced substitution",
			input: "roots: [\"${SCENARIO_ROOT}\"]",
			env:   map[string]string{"SCENARIO_ROOT": "/data/scenarios"},
			want:  "roots: [\"/data/scenarios\"]",
		},
		{
			name:  "bare $VAR substitution",
			input: "agent: $DEFAULT_AGENT",
			env:   map[string]string{"DEFAULT_AGENT": "scripted"},
			want:  "agent: scripted",
		},
		{
			name:  "multiple substitutions in one line",
			input: "url: ${PROTOCOL}://${HOST}:${PORT}",
			env: map[string]string{
				"PROTOCOL": "https",
				"HOST":     "example.com",
				"PORT":     "443",
			},
			want: "url: https://example.com:443",
		},
		{
			name:  "missing variable expands to empty",
			input: "endpoint: ${MISSING_VAR}",
			env:   map[string]string{},
			want:  "endpoint: ",
		},
		{
			name:  "no substitution when no variables",
			input: "static: value",
			env:   map[string]string{"UNUSED": "value"},
			want:  "static: value",
		},
		{
			name:  "variables in YAML array",
			input: "args:\n  - ${ARG1}\n  - ${ARG2}",
			env: map[string]string{
				"ARG1": "value1",
				"ARG2": "value2",
			},
			want: "args:\n  - value1\n  - value2",
		},
		{
			name:  "variables in nested YAML structure",
			input: "log:\n  level: ${LOG_LEVEL}\n  format: ${LOG_FORMAT}",
			env: map[string]string{
				"LOG_LEVEL":  "debug",
				"LOG_FORMAT": "json",
			},
			want: "log:\n  level: debug\n  format: json",
		},
		{
			name:  "environment variable with underscores",
			input: "key: ${MY_LONG_VAR_NAME}",
			env:   map[string]string{"MY_LONG_VAR_NAME": "value"},
			want:  "key: value",
		},
		{
			name:  "adjacent variables without separator",
			input: "${VAR1}${VAR2}",
			env: map[string]string{
				"VAR1": "hello",
				"VAR2": "world",
			},
			want: "helloworld",
		},
		{
			name:  "variable in quoted string",
			input: `message: "hello ${NAME}"`,
			env:   map[string]string{"NAME": "world"},
			want:  `message: "hello world"`,
		},
		{
			name:  "empty string variable",
			input: "value: ${EMPTY}",
			env:   map[string]string{"EMPTY": ""},
			want:  "value: ",
		},
		{
			name: "complex YAML with multiple variables",
			input: `
roots:
  - ${ROOT_A}
  - ${ROOT_B}
defaults:
  agent: ${AGENT}
  seed: ${SEED}
`,
			env: map[string]string{
				"ROOT_A": "./scenarios",
				"ROOT_B": "./fixtures",
				"AGENT":  "random",
				"SEED":   "7",
			},
			want: `
roots:
  - ./scenarios
  - ./fixtures
defaults:
  agent: random
  seed: 7
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			result := ExpandEnv([]byte(tt.input))
			assert.Equal(t, tt.want, string(result))
		})
	}
}

func TestExpandEnvPreservesOriginalWhenNoVariables(t *testing.T) {
	input := `
# a comment
key: value
nested:
  field: "string value"
  number: 123
  boolean: true
array:
  - item1
  - item2
`
	result := ExpandEnv([]byte(input))
	assert.Equal(t, input, string(result), "content without variables should be unchanged")
}

func TestExpandEnvWithEmptyInput(t *testing.T) {
	result := ExpandEnv([]byte(""))
	assert.Equal(t, "", string(result), "empty input should return empty output")
}

// TestExpandEnvPassThroughToYAMLParser verifies ExpandEnv's output is
// handed to yaml.Unmarshal unchanged by loadBiospecYAML.
func TestExpandEnvPassThroughToYAMLParser(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	input := "log:\n  level: ${LOG_LEVEL}\n"

	expanded := ExpandEnv([]byte(input))

	var result map[string]any
	require := assert.New(t)
	require.NoError(yaml.Unmarshal(expanded, &result))
	require.NotNil(result)
}

func TestExpandEnvThreadSafety(t *testing.T) {
	input := []byte("key: ${TEST_VAR}")
	t.Setenv("TEST_VAR", "value")

	const goroutines = 100
	results := make([]string, goroutines)
	done := make(chan bool)

	for i := 0; i < goroutines; i++ {
		go func(index int) {
			results[index] = string(ExpandEnv(input))
			done <- true
		}(i)
	}
	for i := 0; i < goroutines; i++ {
		<-done
	}

	expected := "key: value"
	for i, result := range results {
		assert.Equal(t, expected, result, "result %d should match", i)
	}
}
