// Package storage keeps uploaded blobs on local disk and issues their public
// URLs.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MaxFileSize   = 5 * 1024 * 1024 // 5MB
	MaxAvatarSize = 2 * 1024 * 1024 // 2MB
)

// Kinds of blob. Each is stored under its own directory.
const (
	KindImage  = "image"
	KindVideo  = "video"
	KindAudio  = "audio"
	KindFile   = "file"
	KindAvatar = "avatar"
)

var (
	ErrUnknownKind = errors.New("storage: unknown blob kind")
	ErrExtension   = errors.New("storage: extension not allowed")
	ErrTooLarge    = errors.New("storage: blob too large")
	ErrNotFound    = errors.New("storage: blob not found")
)

var allowedExts = map[string][]string{
	KindImage:  {".jpg", ".jpeg", ".png", ".gif", ".webp"},
	KindVideo:  {".mp4", ".webm", ".mov"},
	KindAudio:  {".mp3", ".wav", ".ogg", ".m4a"},
	KindFile:   {".pdf", ".doc", ".docx", ".txt", ".zip"},
	KindAvatar: {".jpg", ".jpeg", ".png", ".gif", ".webp"},
}

var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".m4a":  "audio/mp4",
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".txt":  "text/plain",
	".zip":  "application/zip",
}

// Blob describes a stored upload
type Blob struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Type     string `json:"type"`
	URL      string `json:"url"`
}

// Local stores blobs under dir and serves them below baseURL/uploads
type Local struct {
	dir     string
	baseURL string
}

// NewLocal creates a Local rooted at dir
func NewLocal(dir, baseURL string) *Local {
	return &Local{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

// Folder returns the directory name of kind
func Folder(kind string) string {
	return kind + "s"
}

// ContentType maps a file extension to its MIME type
func ContentType(ext string) string {
	if ct, ok := contentTypes[strings.ToLower(ext)]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Allowed reports whether ext may be stored as kind
func Allowed(kind, ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range allowedExts[kind] {
		if e == ext {
			return true
		}
	}
	return false
}

func limitFor(kind string) int64 {
	if kind == KindAvatar {
		return MaxAvatarSize
	}
	return MaxFileSize
}

// Save writes r as a new blob of kind. size is the declared length; the
// written length is checked against the limit as well.
func (l *Local) Save(kind, originalName string, size int64, r io.Reader) (*Blob, error) {
	if _, ok := allowedExts[kind]; !ok {
		return nil, ErrUnknownKind
	}
	limit := limitFor(kind)
	if size > limit {
		return nil, ErrTooLarge
	}
	ext := strings.ToLower(filepath.Ext(originalName))
	if !Allowed(kind, ext) {
		return nil, fmt.Errorf("%w: %s for %s", ErrExtension, ext, kind)
	}

	folder := filepath.Join(l.dir, Folder(kind))
	if err := os.MkdirAll(folder, 0755); err != nil {
		return nil, fmt.Errorf("storage: create directory: %w", err)
	}

	filename := fmt.Sprintf("%s-%d%s", uuid.New().String(), time.Now().Unix(), ext)
	fullPath := filepath.Join(folder, filename)
	f, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("storage: create file: %w", err)
	}

	written, err := io.Copy(f, io.LimitReader(r, limit+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && written > limit {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(fullPath)
		return nil, err
	}

	return &Blob{
		Filename: originalName,
		Size:     written,
		Type:     kind,
		URL:      l.URL(Folder(kind), filename),
	}, nil
}

// URL returns the public URL of a stored blob
func (l *Local) URL(folder, filename string) string {
	return fmt.Sprintf("%s/uploads/%s/%s", l.baseURL, folder, filename)
}

// Open opens a stored blob for reading
func (l *Local) Open(folder, filename string) (*os.File, os.FileInfo, error) {
	if !validFolder(folder) || filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return nil, nil, ErrNotFound
	}
	f, err := os.Open(filepath.Join(l.dir, folder, filename))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, nil, ErrNotFound
	}
	return f, info, nil
}

func validFolder(folder string) bool {
	for kind := range allowedExts {
		if Folder(kind) == folder {
			return true
		}
	}
	return false
}
