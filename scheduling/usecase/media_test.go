package usecase

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	pkgError "github.com/AzielCF/az-social/pkg/error"
	"github.com/AzielCF/az-social/pkg/kvstore"
	"github.com/AzielCF/az-social/scheduling/domain/common"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multipartFile(t *testing.T, name string, data []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["file"][0]
}

func newMediaService(t *testing.T, maxUpload int64) (*mediaService, *kvstore.MemoryStore, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "media")
	kv := kvstore.NewMemoryStore(0)
	t.Cleanup(kv.Close)
	svc := NewMediaService(MediaServiceConfig{Dir: dir, MaxUploadSize: maxUpload, PreviewWidth: 100}, kv).(*mediaService)
	return svc, kv, dir
}

func TestMediaService_UploadAndList(t *testing.T) {
	svc, _, dir := newMediaService(t, 1024)
	ctx := context.Background()

	first, err := svc.Upload(ctx, multipartFile(t, "../../photo.png", []byte("png-bytes")))
	require.NoError(t, err)
	assert.Equal(t, "photo.png", first.Name)
	assert.Equal(t, filepath.Join(dir, "photo.png"), first.Path)
	assert.Equal(t, common.MediaKindImage, first.Kind)

	second, err := svc.Upload(ctx, multipartFile(t, "photo.png", []byte("other")))
	require.NoError(t, err)
	assert.NotEqual(t, first.Name, second.Name)
	assert.True(t, strings.HasPrefix(second.Name, "photo-"))

	list, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, dir, list.Dir)
	assert.Len(t, list.Files, 2)
	assert.Equal(t, 2, list.Stats.Images)
}

func TestMediaService_UploadRejections(t *testing.T) {
	svc, _, _ := newMediaService(t, 4)
	ctx := context.Background()

	_, err := svc.Upload(ctx, multipartFile(t, "notes.txt", []byte("x")))
	assert.IsType(t, pkgError.ValidationError(""), err)

	_, err = svc.Upload(ctx, multipartFile(t, "big.jpg", []byte("too large")))
	assert.IsType(t, pkgError.ValidationError(""), err)

	_, err = svc.Upload(ctx, nil)
	assert.IsType(t, pkgError.ValidationError(""), err)
}

func TestMediaService_PreviewIsResizedAndCached(t *testing.T) {
	svc, kv, dir := newMediaService(t, 0)
	require.NoError(t, os.MkdirAll(dir, 0755))
	img := imaging.New(400, 200, color.NRGBA{R: 200, A: 255})
	require.NoError(t, imaging.Save(img, filepath.Join(dir, "wide.png")))
	ctx := context.Background()

	preview, err := svc.Preview(ctx, "wide.png")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", preview.ContentType)
	decoded, _, err := image.Decode(bytes.NewReader(preview.Data))
	require.NoError(t, err)
	assert.Equal(t, 100, decoded.Bounds().Dx())
	assert.Equal(t, 50, decoded.Bounds().Dy())
	assert.Equal(t, 1, kv.Len())

	again, err := svc.Preview(ctx, "wide.png")
	require.NoError(t, err)
	assert.Equal(t, preview.Data, again.Data)
	assert.Equal(t, 1, kv.Len())
}

func TestMediaService_PreviewErrors(t *testing.T) {
	svc, _, _ := newMediaService(t, 0)
	ctx := context.Background()

	_, err := svc.Preview(ctx, "clip.mp4")
	assert.IsType(t, pkgError.ValidationError(""), err)

	_, err = svc.Preview(ctx, "missing.jpg")
	assert.IsType(t, pkgError.NotFoundError(""), err)
}
