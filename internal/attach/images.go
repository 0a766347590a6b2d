package attach

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strings"

	"github.com/nfnt/resize"
)

const maxImageSize = 5 * 1024 * 1024 // 5 MB (the max the APIs allow per image)

// maxDownloadSize caps how much of a remote image is read before resizing.
const maxDownloadSize = 50 * 1024 * 1024

// LoadImage returns the bytes of the image at path, which is either an http(s)
// URL or a local file. JPEG and PNG images over the size limit are scaled
// down to fit.
func LoadImage(ctx context.Context, path string, logger *slog.Logger) ([]byte, error) {
	var (
		imgBytes []byte
		err      error
	)
	if strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "http://") {
		imgBytes, err = downloadImage(ctx, path)
	} else {
		imgBytes, err = os.ReadFile(path)
		if err != nil {
			err = fmt.Errorf("reading image: %w", err)
		}
	}
	if err != nil {
		return nil, err
	}

	// We immediately send the bytes back if we don't need to resize the image
	if len(imgBytes) <= maxImageSize {
		return imgBytes, nil
	}

	logger.Info("re-sizing image", "path", path, "bytes", len(imgBytes))
	return shrinkImage(path, imgBytes)
}

// shrinkImage re-encodes data at a scale that brings it under maxImageSize.
// The format is sniffed from the bytes, since URLs rarely carry a reliable
// extension.
func shrinkImage(path string, data []byte) ([]byte, error) {
	// Area scales with the square of each side.
	scale := math.Sqrt(float64(maxImageSize) / float64(len(data)))

	var buffer bytes.Buffer
	switch http.DetectContentType(data) {
	case "image/jpeg":
		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding jpeg: %w", err)
		}
		err = jpeg.Encode(&buffer, resizeImg(img, scale), &jpeg.Options{Quality: jpeg.DefaultQuality})
		if err != nil {
			return nil, fmt.Errorf("encoding jpeg: %w", err)
		}

	case "image/png":
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding png: %w", err)
		}
		encoder := png.Encoder{CompressionLevel: png.BestCompression}
		if err := encoder.Encode(&buffer, resizeImg(img, scale)); err != nil {
			return nil, fmt.Errorf("encoding png: %w", err)
		}

	default:
		return nil, fmt.Errorf("image %s is over %d bytes and not a jpeg or png", path, maxImageSize)
	}

	return buffer.Bytes(), nil
}

func downloadImage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	rsp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading image: %w", err)
	}
	defer rsp.Body.Close()

	if rsp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading image: unexpected status code %d", rsp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(rsp.Body, maxDownloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("downloading image: %w", err)
	}
	if len(data) > maxDownloadSize {
		return nil, fmt.Errorf("downloading image: %s is over %d bytes", url, maxDownloadSize)
	}

	return data, nil
}

func resizeImg(img image.Image, scale float64) image.Image {
	width := uint(float64(img.Bounds().Dx()) * scale)
	height := uint(float64(img.Bounds().Dy()) * scale)

	return resize.Resize(width, height, img, resize.Lanczos3)
}
