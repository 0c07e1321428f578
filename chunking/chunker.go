package chunking

import (
	"errors"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/policyrag/core"
)

const (
	// DefaultChunkSize is the maximum window size in characters.
	DefaultChunkSize = 500
	// DefaultChunkOverlap is the maximum overlap between adjacent windows.
	DefaultChunkOverlap = 100
	// DefaultSectionLimit is the largest section kept as a single chunk.
	DefaultSectionLimit = core.MaxChunkChars
)

// Header patterns: "2. Work Hours & Attendance" and "4.1 Casual Leave".
// A header ends at the end of its line or its first period.
var headerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d+\.\s+[A-Z][^.\n]*`),
	regexp.MustCompile(`\d+\.\d+\s+[A-Z][^.\n]*`),
}

// ErrInvalidWindow is returned for inconsistent window settings.
var ErrInvalidWindow = errors.New("invalid chunk window")

// Chunker cuts documents into section-aware chunks.
// It holds no mutable state and is safe for concurrent use.
type Chunker struct {
	splitter     Splitter
	sectionLimit int
	logger       *slog.Logger
}

// Option configures a Chunker.
type Option func(*Chunker) error

// WithWindow sets the window size and overlap used to split long sections.
func WithWindow(size, overlap int) Option {
	return func(c *Chunker) error {
		if size < 2 || overlap < 0 || overlap >= size {
			return ErrInvalidWindow
		}
		c.splitter = Splitter{Size: size, Overlap: overlap}
		return nil
	}
}

// WithSectionLimit sets the size above which a section is split.
func WithSectionLimit(limit int) Option {
	return func(c *Chunker) error {
		if limit < 1 {
			return ErrInvalidWindow
		}
		c.sectionLimit = limit
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Chunker) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

// New creates a Chunker with the default 500/100 window and 600 character
// section limit.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{
		splitter:     Splitter{Size: DefaultChunkSize, Overlap: DefaultChunkOverlap},
		sectionLimit: DefaultSectionLimit,
		logger:       slog.Default().With("component", "chunker"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Result is the output of chunking one document.
type Result struct {
	Chunks []*core.Chunk
	// Sections is the number of headers found. Zero means the document
	// was split by window alone.
	Sections int
}

type header struct {
	offset int
	title  string
}

// Chunk cuts doc into chunks. Every chunk receives a copy of the document
// metadata with DocumentID and DocumentType filled in.
func (c *Chunker) Chunk(doc *core.Document) Result {
	meta := doc.Metadata.Clone()
	if meta.DocumentID == "" {
		meta.DocumentID = doc.ID
	}
	if meta.DocumentType == "" {
		meta.DocumentType = core.DefaultDocumentType
	}

	b := builder{docID: meta.DocumentID, meta: meta, text: doc.Text}
	headers := findHeaders(doc.Text)

	if len(headers) == 0 {
		b.keepBlank = true
		b.addWindows(c.splitter, 0, len(doc.Text), "", core.CategoryGeneral)
		c.logger.Debug("chunked document without headers", "document", meta.DocumentID, "chunks", len(b.chunks))
		return Result{Chunks: b.chunks}
	}

	if first := headers[0].offset; strings.TrimSpace(doc.Text[:first]) != "" {
		b.addSection(c, 0, first, "", core.CategoryGeneral)
	}
	for i, h := range headers {
		end := len(doc.Text)
		if i+1 < len(headers) {
			end = headers[i+1].offset
		}
		b.addSection(c, h.offset, end, h.title, core.CategorizeHeader(h.title))
	}

	c.logger.Debug("chunked document", "document", meta.DocumentID, "sections", len(headers), "chunks", len(b.chunks))
	return Result{Chunks: b.chunks, Sections: len(headers)}
}

// findHeaders returns header matches of all patterns ordered by offset.
// When two patterns match at the same offset the first pattern wins.
func findHeaders(text string) []header {
	var headers []header
	for _, re := range headerPatterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			headers = append(headers, header{
				offset: loc[0],
				title:  strings.TrimSpace(text[loc[0]:loc[1]]),
			})
		}
	}
	slices.SortStableFunc(headers, func(a, b header) int {
		return a.offset - b.offset
	})
	return slices.CompactFunc(headers, func(a, b header) bool {
		return a.offset == b.offset
	})
}

type builder struct {
	docID  string
	meta   core.DocumentMetadata
	text   string
	chunks []*core.Chunk

	// keepBlank keeps whitespace-only windows so headerless documents
	// stay fully covered.
	keepBlank bool
}

func (b *builder) addSection(c *Chunker, start, end int, title string, category core.Category) {
	if utf8.RuneCountInString(b.text[start:end]) > c.sectionLimit {
		b.addWindows(c.splitter, start, end, title, category)
		return
	}
	b.add(start, end, title, category, 0)
}

func (b *builder) addWindows(s Splitter, start, end int, title string, category core.Category) {
	index := 0
	for _, span := range s.Split(b.text[start:end]) {
		if b.add(start+span.Start, start+span.End, title, category, index) {
			index++
		}
	}
}

// add appends the chunk covering text[start:end]. Blank text is skipped
// unless keepBlank is set.
func (b *builder) add(start, end int, title string, category core.Category, index int) bool {
	text := b.text[start:end]
	if start == end || (!b.keepBlank && strings.TrimSpace(text) == "") {
		return false
	}
	ordinal := len(b.chunks)
	b.chunks = append(b.chunks, &core.Chunk{
		Id:           core.ChunkID(b.docID, ordinal, text),
		Text:         text,
		SectionTitle: title,
		Category:     category,
		ChunkIndex:   index,
		Ordinal:      ordinal,
		Offset:       start,
		Metadata:     b.meta.Clone(),
	})
	return true
}
