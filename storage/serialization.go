// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/policyrag/core"
)

// chunkFormatVersion prefixes every serialized chunk.
const chunkFormatVersion = 1

// MarshalChunk serializes a Chunk to bytes.
func MarshalChunk(chunk *core.Chunk) []byte {
	buf := make([]byte, sizeChunk(chunk))
	w := writer{bs: buf}
	w.int(chunkFormatVersion)
	w.uint64(uint64(chunk.Id))
	w.string(chunk.Text)
	w.string(chunk.SectionTitle)
	w.string(string(chunk.Category))
	w.int(chunk.ChunkIndex)
	w.int(chunk.Ordinal)
	w.int(chunk.Offset)
	w.metadata(chunk.Metadata)
	w.vector(chunk.Vector)
	w.time(chunk.InsertedAt)
	w.time(chunk.UpdatedAt)
	return buf[:w.n]
}

// UnmarshalChunk deserializes a Chunk from bytes.
func UnmarshalChunk(data []byte) (*core.Chunk, error) {
	r := reader{bs: data}
	if v := r.int(); r.err == nil && v != chunkFormatVersion {
		return nil, fmt.Errorf("%w: unsupported chunk format %d", ErrSerializationFailed, v)
	}
	chunk := &core.Chunk{
		Id:           core.ID(r.uint64()),
		Text:         r.string(),
		SectionTitle: r.string(),
		Category:     core.Category(r.string()),
		ChunkIndex:   r.int(),
		Ordinal:      r.int(),
		Offset:       r.int(),
		Metadata:     r.metadata(),
		Vector:       r.vector(),
		InsertedAt:   r.time(),
		UpdatedAt:    r.time(),
	}
	if r.err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, r.err)
	}
	return chunk, nil
}

func sizeChunk(chunk *core.Chunk) int {
	size := varint.Int.Size(chunkFormatVersion) +
		varint.Uint64.Size(uint64(chunk.Id)) +
		ord.String.Size(chunk.Text) +
		ord.String.Size(chunk.SectionTitle) +
		ord.String.Size(string(chunk.Category)) +
		varint.Int.Size(chunk.ChunkIndex) +
		varint.Int.Size(chunk.Ordinal) +
		varint.Int.Size(chunk.Offset) +
		sizeMetadata(chunk.Metadata) +
		varint.Int.Size(len(chunk.Vector)) +
		sizeTime(chunk.InsertedAt) +
		sizeTime(chunk.UpdatedAt)
	for _, f := range chunk.Vector {
		size += varint.Uint32.Size(math.Float32bits(f))
	}
	return size
}

func sizeMetadata(m core.DocumentMetadata) int {
	size := ord.String.Size(m.Filename) +
		ord.String.Size(m.UploadedBy) +
		sizeTime(m.UploadDate) +
		ord.String.Size(m.DocumentID) +
		ord.String.Size(m.DocumentType) +
		ord.String.Size(m.Source) +
		varint.Int.Size(len(m.Extra))
	for k, v := range m.Extra {
		size += ord.String.Size(k) + ord.String.Size(v)
	}
	return size
}

// Zero times are stored as 0 so they round-trip as time.Time{}.
func unixMicro(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func sizeTime(t time.Time) int {
	return varint.Int64.Size(unixMicro(t))
}

type writer struct {
	bs []byte
	n  int
}

func (w *writer) int(v int)         { w.n += varint.Int.Marshal(v, w.bs[w.n:]) }
func (w *writer) uint64(v uint64)   { w.n += varint.Uint64.Marshal(v, w.bs[w.n:]) }
func (w *writer) string(v string)   { w.n += ord.String.Marshal(v, w.bs[w.n:]) }
func (w *writer) time(v time.Time)  { w.n += varint.Int64.Marshal(unixMicro(v), w.bs[w.n:]) }
func (w *writer) float32(v float32) { w.n += varint.Uint32.Marshal(math.Float32bits(v), w.bs[w.n:]) }

func (w *writer) vector(v []float32) {
	w.int(len(v))
	for _, f := range v {
		w.float32(f)
	}
}

func (w *writer) metadata(m core.DocumentMetadata) {
	w.string(m.Filename)
	w.string(m.UploadedBy)
	w.time(m.UploadDate)
	w.string(m.DocumentID)
	w.string(m.DocumentType)
	w.string(m.Source)
	keys := make([]string, 0, len(m.Extra))
	for k := range m.Extra {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	w.int(len(keys))
	for _, k := range keys {
		w.string(k)
		w.string(m.Extra[k])
	}
}

// reader decodes sequential fields, latching the first error.
type reader struct {
	bs  []byte
	n   int
	err error
}

func (r *reader) int() int {
	if r.err != nil {
		return 0
	}
	v, m, err := varint.Int.Unmarshal(r.bs[r.n:])
	r.n += m
	r.err = err
	return v
}

func (r *reader) uint64() uint64 {
	if r.err != nil {
		return 0
	}
	v, m, err := varint.Uint64.Unmarshal(r.bs[r.n:])
	r.n += m
	r.err = err
	return v
}

func (r *reader) string() string {
	if r.err != nil {
		return ""
	}
	v, m, err := ord.String.Unmarshal(r.bs[r.n:])
	r.n += m
	r.err = err
	return v
}

func (r *reader) time() time.Time {
	if r.err != nil {
		return time.Time{}
	}
	v, m, err := varint.Int64.Unmarshal(r.bs[r.n:])
	r.n += m
	r.err = err
	if err != nil || v == 0 {
		return time.Time{}
	}
	return time.UnixMicro(v).UTC()
}

func (r *reader) length() int {
	l := r.int()
	if r.err == nil && (l < 0 || l > len(r.bs)-r.n) {
		r.err = ErrTruncatedData
		return 0
	}
	return l
}

func (r *reader) vector() []float32 {
	l := r.length()
	if r.err != nil || l == 0 {
		return nil
	}
	v := make([]float32, l)
	for i := range v {
		if r.err != nil {
			return nil
		}
		bits, m, err := varint.Uint32.Unmarshal(r.bs[r.n:])
		r.n += m
		r.err = err
		v[i] = math.Float32frombits(bits)
	}
	if r.err != nil {
		return nil
	}
	return v
}

func (r *reader) metadata() core.DocumentMetadata {
	m := core.DocumentMetadata{
		Filename:     r.string(),
		UploadedBy:   r.string(),
		UploadDate:   r.time(),
		DocumentID:   r.string(),
		DocumentType: r.string(),
		Source:       r.string(),
	}
	l := r.length()
	if r.err != nil || l == 0 {
		return m
	}
	m.Extra = make(map[string]string, l)
	for range l {
		k := r.string()
		v := r.string()
		if r.err != nil {
			return m
		}
		m.Extra[k] = v
	}
	return m
}
