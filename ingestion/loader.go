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


package ingestion

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// SupportedExtensions lists the file types LoadFile understands.
var SupportedExtensions = []string{".pdf", ".txt", ".md"}

// pageSeparator joins PDF pages so each page starts a new paragraph.
const pageSeparator = "\n\n"

// Loaded is the text extracted from a file.
type Loaded struct {
	Text  string
	Pages int
}

// IsSupported reports whether path has an extension LoadFile accepts.
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// LoadFile extracts the text of a PDF, text or markdown file. Text files
// count as a single page.
func LoadFile(path string) (Loaded, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return loadPDF(path)
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return Loaded{}, fmt.Errorf("read %s: %w", path, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			return Loaded{}, fmt.Errorf("%s: %w", path, ErrNoText)
		}
		return Loaded{Text: string(data), Pages: 1}, nil
	default:
		return Loaded{}, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
}

func loadPDF(path string) (Loaded, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return Loaded{}, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) != "" {
			pages = append(pages, strings.TrimSpace(text))
		}
	}

	if len(pages) == 0 {
		return Loaded{}, fmt.Errorf("%s: %w", path, ErrNoText)
	}
	return Loaded{Text: strings.Join(pages, pageSeparator), Pages: len(pages)}, nil
}
