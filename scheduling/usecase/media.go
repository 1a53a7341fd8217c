package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	domainMedia "github.com/AzielCF/az-social/domains/media"
	"github.com/AzielCF/az-social/infrastructure/mediadir"
	pkgError "github.com/AzielCF/az-social/pkg/error"
	"github.com/AzielCF/az-social/pkg/kvstore"
	"github.com/AzielCF/az-social/pkg/utils"
	"github.com/AzielCF/az-social/scheduling/domain/common"
	"github.com/disintegration/imaging"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
	_ "golang.org/x/image/webp"
)

const (
	DefaultPreviewWidth = 320
	DefaultPreviewTTL   = 30 * time.Minute
)

type MediaServiceConfig struct {
	Dir           string
	MaxUploadSize int64
	PreviewWidth  int
	PreviewTTL    time.Duration
}

type mediaService struct {
	cfg MediaServiceConfig
	kv  kvstore.Store
}

func NewMediaService(cfg MediaServiceConfig, kv kvstore.Store) domainMedia.IMediaUsecase {
	if cfg.PreviewWidth <= 0 {
		cfg.PreviewWidth = DefaultPreviewWidth
	}
	if cfg.PreviewTTL <= 0 {
		cfg.PreviewTTL = DefaultPreviewTTL
	}
	return &mediaService{cfg: cfg, kv: kv}
}

func (s *mediaService) List(ctx context.Context, dir string) (domainMedia.MediaListResponse, error) {
	if dir == "" {
		dir = s.cfg.Dir
	}
	src := mediadir.New(dir)
	files, err := src.Files(ctx)
	if err != nil {
		return domainMedia.MediaListResponse{}, err
	}
	if files == nil {
		files = []common.MediaFile{}
	}
	stats, err := src.Stats(ctx)
	if err != nil {
		return domainMedia.MediaListResponse{}, err
	}
	return domainMedia.MediaListResponse{Dir: dir, Stats: stats, Files: files}, nil
}

// Upload stores the file in the default media directory. A name clash gets a short
// random suffix instead of overwriting.
func (s *mediaService) Upload(_ context.Context, file *multipart.FileHeader) (common.MediaFile, error) {
	if file == nil {
		return common.MediaFile{}, pkgError.ValidationError("file is required")
	}
	name := filepath.Base(file.Filename)
	payload, err := common.NewPayload(name)
	if err != nil {
		return common.MediaFile{}, pkgError.ValidationError(fmt.Sprintf("%s: %v", name, err))
	}
	if s.cfg.MaxUploadSize > 0 && file.Size > s.cfg.MaxUploadSize {
		return common.MediaFile{}, pkgError.ValidationError(fmt.Sprintf("file is %s, the limit is %s",
			humanize.Bytes(uint64(file.Size)), humanize.Bytes(uint64(s.cfg.MaxUploadSize))))
	}
	if err := utils.CreateFolder(s.cfg.Dir); err != nil {
		return common.MediaFile{}, err
	}

	dest, err := utils.ResolveMediaPath(s.cfg.Dir, name)
	if err != nil {
		return common.MediaFile{}, pkgError.ValidationError(err.Error())
	}
	if _, err := os.Stat(dest); err == nil {
		ext := filepath.Ext(name)
		name = strings.TrimSuffix(name, ext) + "-" + uuid.NewString()[:8] + ext
		dest = filepath.Join(s.cfg.Dir, name)
	}

	if err := fasthttp.SaveMultipartFile(file, dest); err != nil {
		return common.MediaFile{}, pkgError.InternalServerError(fmt.Sprintf("failed to store upload: %v", err))
	}
	info, err := os.Stat(dest)
	if err != nil {
		return common.MediaFile{}, err
	}

	logrus.Infof("[MEDIA] stored %s (%s)", name, humanize.Bytes(uint64(info.Size())))
	return common.MediaFile{
		Name:      name,
		Path:      dest,
		Kind:      payload.Kind(),
		Size:      info.Size(),
		HumanSize: humanize.Bytes(uint64(info.Size())),
		ModTime:   info.ModTime(),
	}, nil
}

// Preview returns a JPEG thumbnail of an image in the media directory, cached in the KV
// store keyed by name and modification time.
func (s *mediaService) Preview(ctx context.Context, name string) (domainMedia.Preview, error) {
	path, err := utils.ResolveMediaPath(s.cfg.Dir, name)
	if err != nil {
		return domainMedia.Preview{}, pkgError.ValidationError(err.Error())
	}
	payload, err := common.NewPayload(path)
	if err != nil {
		return domainMedia.Preview{}, pkgError.ValidationError(err.Error())
	}
	if payload.IsVideo() {
		return domainMedia.Preview{}, pkgError.ValidationError("previews are only available for images")
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return domainMedia.Preview{}, pkgError.NotFoundError(fmt.Sprintf("media %s not found", name))
	}
	if err != nil {
		return domainMedia.Preview{}, err
	}

	key := "media_preview:" + name + ":" + strconv.FormatInt(info.ModTime().UnixNano(), 10) + ":" + strconv.Itoa(s.cfg.PreviewWidth)
	preview := domainMedia.Preview{Name: filepath.Base(path), ContentType: "image/jpeg"}
	if data, ok, err := s.kv.Get(ctx, key); err == nil && ok {
		preview.Data = data
		return preview, nil
	}

	src, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return domainMedia.Preview{}, pkgError.ValidationError(fmt.Sprintf("cannot decode %s: %v", name, err))
	}
	thumb := src
	if src.Bounds().Dx() > s.cfg.PreviewWidth {
		thumb = imaging.Resize(src, s.cfg.PreviewWidth, 0, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return domainMedia.Preview{}, err
	}
	preview.Data = buf.Bytes()

	if err := s.kv.Put(ctx, key, preview.Data, s.cfg.PreviewTTL); err != nil {
		logrus.WithError(err).Warn("[MEDIA] failed to cache preview")
	}
	return preview, nil
}
