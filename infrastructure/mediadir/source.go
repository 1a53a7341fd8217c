package mediadir

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/AzielCF/az-social/scheduling/application"
	"github.com/AzielCF/az-social/scheduling/domain/common"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// Source lists the supported media files found directly inside Dir.
type Source struct {
	Dir string
}

func New(dir string) *Source {
	return &Source{Dir: dir}
}

// Factory builds a MediaSourceFactory that maps the empty directory to fallback.
func Factory(fallback string) application.MediaSourceFactory {
	return func(dir string) application.MediaSource {
		if dir == "" {
			dir = fallback
		}
		return New(dir)
	}
}

// ListAvailable returns the full paths of supported files, sorted by name.
// A missing directory is an empty pool.
func (s *Source) ListAvailable(ctx context.Context) ([]string, error) {
	files, err := s.Files(ctx)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	return paths, nil
}

func (s *Source) Files(ctx context.Context) ([]common.MediaFile, error) {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		logrus.Warnf("[MEDIA_DIR] %s does not exist", s.Dir)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read media directory: %w", err)
	}

	var files []common.MediaFile
	var total int64
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(s.Dir, entry.Name())
		payload, err := common.NewPayload(path)
		if err != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue // Skip files we can't stat
		}
		files = append(files, common.MediaFile{
			Name:      entry.Name(),
			Path:      path,
			Kind:      payload.Kind(),
			Size:      info.Size(),
			HumanSize: humanize.Bytes(uint64(info.Size())),
			ModTime:   info.ModTime(),
		})
		total += info.Size()
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	logrus.Debugf("[MEDIA_DIR] %s: %d file(s), %s", s.Dir, len(files), humanize.Bytes(uint64(total)))
	return files, nil
}

func (s *Source) Stats(ctx context.Context) (common.MediaStats, error) {
	files, err := s.Files(ctx)
	if err != nil {
		return common.MediaStats{}, err
	}
	var st common.MediaStats
	var total uint64
	for _, f := range files {
		if f.Kind == common.MediaKindVideo {
			st.Videos++
		} else {
			st.Images++
		}
		total += uint64(f.Size)
	}
	st.TotalSize = humanize.Bytes(total)
	return st, nil
}
