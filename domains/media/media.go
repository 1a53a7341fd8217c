package media

import (
	"context"
	"mime/multipart"

	"github.com/AzielCF/az-social/scheduling/domain/common"
)

type MediaListResponse struct {
	Dir   string             `json:"dir"`
	Stats common.MediaStats  `json:"stats"`
	Files []common.MediaFile `json:"files"`
}

// Preview is an encoded JPEG thumbnail.
type Preview struct {
	Name        string
	ContentType string
	Data        []byte
}

type IMediaUsecase interface {
	List(ctx context.Context, dir string) (MediaListResponse, error)
	Upload(ctx context.Context, file *multipart.FileHeader) (common.MediaFile, error)
	Preview(ctx context.Context, name string) (Preview, error)
}
