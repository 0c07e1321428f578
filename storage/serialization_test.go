package storage

import (
	"testing"
	"time"

	"github.com/poiesic/policyrag/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalChunk(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	tests := []struct {
		name  string
		chunk *core.Chunk
	}{
		{
			name: "full chunk",
			chunk: &core.Chunk{
				Id:           core.IDFromContent("chunk"),
				Text:         "Employees are entitled to 12 days of casual leave per year.",
				SectionTitle: "4. Leave Policy",
				Category:     core.CategoryLeavePolicy,
				ChunkIndex:   2,
				Ordinal:      7,
				Offset:       1234,
				Metadata: core.DocumentMetadata{
					Filename:     "handbook.pdf",
					UploadedBy:   "hr-admin",
					UploadDate:   now,
					DocumentID:   "1700000000_handbook.pdf",
					DocumentType: core.DefaultDocumentType,
					Source:       "/uploads/1700000000_handbook.pdf",
					Extra:        map[string]string{"region": "IN", "version": "2024"},
				},
				Vector:     []float32{0.25, -0.5, 1, 0},
				InsertedAt: now,
				UpdatedAt:  now.Add(time.Minute),
			},
		},
		{
			name:  "minimal chunk",
			chunk: &core.Chunk{Text: "x", Metadata: core.DocumentMetadata{DocumentID: "d"}},
		},
		{
			name:  "unicode text",
			chunk: &core.Chunk{Text: "Café policy, naïve résumé", Category: core.CategoryGeneral},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalChunk(tt.chunk)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalChunk(data)
			require.NoError(t, err)
			assert.Equal(t, tt.chunk, decoded)
		})
	}
}

func TestMarshalChunk_Deterministic(t *testing.T) {
	chunk := &core.Chunk{
		Text: "text",
		Metadata: core.DocumentMetadata{
			Extra: map[string]string{"a": "1", "b": "2", "c": "3", "d": "4"},
		},
	}
	first := MarshalChunk(chunk)
	for range 10 {
		assert.Equal(t, first, MarshalChunk(chunk))
	}
}

func TestUnmarshalChunk_Invalid(t *testing.T) {
	valid := MarshalChunk(&core.Chunk{Text: "some text", Vector: []float32{1, 2, 3}})

	tests := []struct {
		name string
		data []byte
	}{
		{"empty data", []byte{}},
		{"truncated", valid[:len(valid)/2]},
		{"wrong version", append([]byte{0x7e}, valid[1:]...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalChunk(tt.data)
			assert.ErrorIs(t, err, ErrSerializationFailed)
		})
	}
}
