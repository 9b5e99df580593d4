package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeColumns(t *testing.T) {
	cp := &Checkpoint{
		ID:       "cp-1",
		State:    map[string]any{"current_problem": "hire or train"},
		Metadata: map[string]any{MetadataExecutionID: "thread-9"},
	}

	cols, err := EncodeColumns(cp)
	require.NoError(t, err)
	assert.Equal(t, "thread-9", cols.ExecutionID)

	var out Checkpoint
	require.NoError(t, DecodeColumns(&out, cols.State, cols.Metadata))
	assert.Equal(t, "hire or train", out.State.(map[string]any)["current_problem"])
	assert.Equal(t, "thread-9", out.ExecutionID())
}

func TestDecodeColumns_EmptyMetadata(t *testing.T) {
	var out Checkpoint
	require.NoError(t, DecodeColumns(&out, []byte(`{}`), nil))
	assert.Nil(t, out.Metadata)

	assert.ErrorContains(t, DecodeColumns(&out, []byte(`{`), nil), "failed to unmarshal state")
	assert.ErrorContains(t, DecodeColumns(&out, []byte(`{}`), []byte(`[`)), "failed to unmarshal metadata")
}

func TestEncodeColumns_MarshalError(t *testing.T) {
	_, err := EncodeColumns(&Checkpoint{State: func() {}})
	assert.ErrorContains(t, err, "failed to marshal state")
}
