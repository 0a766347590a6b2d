// Package attach loads the images and documents a prompt refers to.
package attach

import (
	"context"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"
)

type Image struct {
	Path      string
	MediaType string
	Data      []byte
}

type Attachments struct {
	Images []Image
	// Documents holds the extracted text of every document, in order.
	Documents []string
}

// Load fetches all images and documents concurrently. Results keep the order
// of the paths they came from.
func Load(ctx context.Context, imagePaths, docPaths []string, logger *slog.Logger) (*Attachments, error) {
	out := &Attachments{
		Images:    make([]Image, len(imagePaths)),
		Documents: make([]string, len(docPaths)),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i, path := range imagePaths {
		i, path := i, path
		g.Go(func() error {
			data, err := LoadImage(ctx, path, logger)
			if err != nil {
				return err
			}
			out.Images[i] = Image{
				Path:      path,
				MediaType: http.DetectContentType(data),
				Data:      data,
			}
			return nil
		})
	}

	for i, path := range docPaths {
		i, path := i, path
		g.Go(func() error {
			logger.Debug("reading document", "path", path)
			text, err := LoadDocument(path)
			if err != nil {
				return err
			}
			out.Documents[i] = text
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}
