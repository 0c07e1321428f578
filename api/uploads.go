package api

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrUploadExists is returned when an upload with the same document ID is
// already on disk.
var ErrUploadExists = errors.New("upload already exists")

// UploadInfo describes one file in the uploads directory.
type UploadInfo struct {
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// UploadStore keeps uploaded documents on disk under their document IDs.
type UploadStore struct {
	dir string
	now func() time.Time
}

// NewUploadStore creates the uploads directory if needed.
func NewUploadStore(dir string) (*UploadStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating uploads dir: %w", err)
	}
	return &UploadStore{dir: dir, now: time.Now}, nil
}

// DocumentID derives the "timestamp_filename" ID of a new upload.
func (u *UploadStore) DocumentID(filename string) string {
	return strconv.FormatInt(u.now().Unix(), 10) + "_" + filename
}

// Save writes data under documentID and returns its path.
func (u *UploadStore) Save(documentID string, data []byte) (string, error) {
	path := filepath.Join(u.dir, documentID)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("%w: %s", ErrUploadExists, documentID)
		}
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// Remove deletes the uploads matching id: the file named id itself, or
// any "timestamp_id" file when id is an original filename. It returns the
// number of files removed.
func (u *UploadStore) Remove(id string) (int, error) {
	id = sanitizeFilename(id)
	entries, err := os.ReadDir(u.dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	var errs []error
	for _, e := range entries {
		if e.IsDir() || !matchesUpload(e.Name(), id) {
			continue
		}
		if err := os.Remove(filepath.Join(u.dir, e.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

func matchesUpload(name, id string) bool {
	if name == id {
		return true
	}
	prefix, rest, ok := strings.Cut(name, "_")
	if !ok || rest != id {
		return false
	}
	_, err := strconv.ParseInt(prefix, 10, 64)
	return err == nil
}

// Clear deletes every file in the uploads directory.
func (u *UploadStore) Clear() (int, error) {
	entries, err := os.ReadDir(u.dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	var errs []error
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(u.dir, e.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

// List returns the stored uploads ordered by name.
func (u *UploadStore) List() ([]UploadInfo, error) {
	entries, err := os.ReadDir(u.dir)
	if err != nil {
		return nil, err
	}
	files := make([]UploadInfo, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, UploadInfo{
			Filename:   e.Name(),
			Size:       info.Size(),
			UploadedAt: info.ModTime(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Filename < files[j].Filename })
	return files, nil
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
