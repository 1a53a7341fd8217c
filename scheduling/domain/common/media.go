package common

import (
	"path/filepath"
	"strings"
	"time"
)

// MediaKind define los tipos de media que el motor sabe publicar
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

var (
	imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}
	videoExtensions = map[string]bool{".mp4": true, ".mov": true, ".avi": true, ".mkv": true, ".webm": true}
)

// Publishable is anything a platform client can post.
type Publishable interface {
	Path() string
	Kind() MediaKind
	IsVideo() bool
}

type ImagePayload struct {
	path string
}

func (p ImagePayload) Path() string    { return p.path }
func (p ImagePayload) Kind() MediaKind { return MediaKindImage }
func (p ImagePayload) IsVideo() bool   { return false }

type VideoPayload struct {
	path string
}

func (p VideoPayload) Path() string    { return p.path }
func (p VideoPayload) Kind() MediaKind { return MediaKindVideo }
func (p VideoPayload) IsVideo() bool   { return true }

// NewPayload picks the variant for path from its extension.
func NewPayload(path string) (Publishable, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case imageExtensions[ext]:
		return ImagePayload{path: path}, nil
	case videoExtensions[ext]:
		return VideoPayload{path: path}, nil
	default:
		return nil, ErrUnsupportedMedia
	}
}

// IsSupportedMedia reports whether the extension belongs to the supported set.
func IsSupportedMedia(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return imageExtensions[ext] || videoExtensions[ext]
}

// SupportedExtensions lists every accepted extension, images first.
func SupportedExtensions() []string {
	return []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".mp4", ".mov", ".avi", ".mkv", ".webm"}
}

// MediaFile describes one publishable file in a media directory.
type MediaFile struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Kind      MediaKind `json:"kind"`
	Size      int64     `json:"size"`
	HumanSize string    `json:"human_size"`
	ModTime   time.Time `json:"mod_time"`
}

// MediaStats summarizes a media directory.
type MediaStats struct {
	Images    int    `json:"images"`
	Videos    int    `json:"videos"`
	TotalSize string `json:"total_size"`
}
