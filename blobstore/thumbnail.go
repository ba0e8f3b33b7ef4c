package blobstore

import (
	"bytes"
	"context"
	"image/jpeg"
	"strings"

	"github.com/disintegration/imaging"
)

const thumbnailMaxDim = 256

// writeThumbnail renders a small preview next to image uploads. Failure here
// never fails the ingestion; the descriptor simply carries no thumbnail key.
func (p *Pipeline) writeThumbnail(ctx context.Context, objectKey, mimeType string, data []byte) string {
	if mimeType != "image/jpeg" && mimeType != "image/png" {
		return ""
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		p.logger.WithField("objectKey", objectKey).Warnf("thumbnail decode failed: %v", err)
		return ""
	}
	thumb := imaging.Fit(img, thumbnailMaxDim, thumbnailMaxDim, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 85}); err != nil {
		p.logger.WithField("objectKey", objectKey).Warnf("thumbnail encode failed: %v", err)
		return ""
	}

	thumbKey := thumbnailKeyFor(objectKey)
	if _, err := p.objects.Write(ctx, thumbKey, "image/jpeg", nil, buf.Bytes()); err != nil {
		p.logger.WithField("objectKey", objectKey).Warnf("thumbnail upload failed: %v", err)
		return ""
	}
	return thumbKey
}

func thumbnailKeyFor(objectKey string) string {
	if i := strings.LastIndex(objectKey, "."); i > 0 {
		objectKey = objectKey[:i]
	}
	return objectKey + "_thumb.jpg"
}
