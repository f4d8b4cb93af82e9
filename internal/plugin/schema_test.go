// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Crosscall Contributors

package plugin

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSchema(t *testing.T) {
	ResetSchemaCache()
	data, err := GenerateSchema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))
	assert.Equal(t, SchemaID(), schema["$id"])
	assert.Equal(t, "Crosscall Plugin Manifest", schema["title"])
}

func TestValidateSchema_Valid(t *testing.T) {
	ResetSchemaCache()
	assert.NoError(t, ValidateSchema(validManifestYAML()))
}

func TestValidateSchema_MissingRequired(t *testing.T) {
	ResetSchemaCache()
	err := ValidateSchema([]byte("name: echo\n"))
	assert.Error(t, err)
}

func TestValidateSchema_Empty(t *testing.T) {
	assert.Error(t, ValidateSchema(nil))
}

func TestFormatSchemaError(t *testing.T) {
	assert.Empty(t, FormatSchemaError(nil))

	err := ValidateSchema([]byte("name: echo\n"))
	require.Error(t, err)
	assert.NotContains(t, FormatSchemaError(err), "schema validation failed:")
}
