package handler

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaMessage(t *testing.T) {
	var doc any
	require.NoError(t, json.Unmarshal([]byte(`{"title":7}`), &doc))

	err := taskCreateSchema.Validate(doc)
	require.Error(t, err)
	assert.Contains(t, schemaMessage(err), "title: ")
}

func TestSchemas_AcceptExtraFields(t *testing.T) {
	var doc any
	require.NoError(t, json.Unmarshal([]byte(`{"title":"x","id":"y","createdAt":1}`), &doc))

	assert.NoError(t, taskCreateSchema.Validate(doc))
	assert.NoError(t, taskUpdateSchema.Validate(doc))
}
