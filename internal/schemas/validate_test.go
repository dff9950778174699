package schemas

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	for _, name := range []string{Evaluation, Profile} {
		t.Run(name, func(t *testing.T) {
			schema, err := Load(name)
			require.NoError(t, err)
			assert.Contains(t, schema, `"$schema"`)
		})
	}

	_, err := Load("resume")
	require.Error(t, err)
	var loadErr *SchemaLoadError
	assert.ErrorAs(t, err, &loadErr)
}

func TestValidate_Evaluation(t *testing.T) {
	tests := []struct {
		name      string
		json      string
		wantField string
	}{
		{
			name: "valid",
			json: `{"recommendation":"RECOMMEND_SUBMIT","rationale":"Good fit","red_flags":[],"confidence":"high"}`,
		},
		{
			name: "minimal",
			json: `{"recommendation":"RECOMMEND_SKIP","rationale":"Location mismatch"}`,
		},
		{
			name:      "unknown recommendation",
			json:      `{"recommendation":"MAYBE","rationale":"x"}`,
			wantField: "recommendation",
		},
		{
			name:      "missing rationale",
			json:      `{"recommendation":"RECOMMEND_SKIP"}`,
			wantField: "(root)",
		},
		{
			name:      "red flags wrong type",
			json:      `{"recommendation":"RECOMMEND_SKIP","rationale":"x","red_flags":"none"}`,
			wantField: "red_flags",
		},
		{
			name:      "bad confidence",
			json:      `{"recommendation":"RECOMMEND_SKIP","rationale":"x","confidence":"certain"}`,
			wantField: "confidence",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(Evaluation, tt.json)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.NotEmpty(t, verr.Errors)
			assert.Equal(t, tt.wantField, verr.Errors[0].Field)
			assert.Contains(t, verr.Error(), "validation failed")
		})
	}
}

func TestValidate_MalformedDocument(t *testing.T) {
	err := Validate(Evaluation, "{ not json")
	require.Error(t, err)
	var loadErr *SchemaLoadError
	assert.ErrorAs(t, err, &loadErr)
}

func TestValidateFile_Profile(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "profile.json")
	require.NoError(t, os.WriteFile(valid, []byte(`{
		"_comment": "fill me in",
		"personal": {"first_name": "Ada", "last_name": "Lovelace", "email": "ada@example.com"},
		"education": [{"institution": "State U", "gpa": 3.8}],
		"work_authorization": {"authorized_us": true, "requires_sponsorship": false}
	}`), 0o600))
	assert.NoError(t, ValidateFile(Profile, valid))

	invalid := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`{
		"personal": {"first_name": "Ada", "email": "ada@example.com"},
		"education": [{"gpa": "high"}]
	}`), 0o600))
	err := ValidateFile(Profile, invalid)
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Errors, 2)

	err = ValidateFile(Profile, filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}

func TestValidateJSONString(t *testing.T) {
	schema := `{"type":"object","required":["name"],"properties":{"name":{"type":"string"}}}`
	assert.NoError(t, ValidateJSONString(schema, `{"name":"x"}`))
	assert.Error(t, ValidateJSONString(schema, `{"name":1}`))
}
