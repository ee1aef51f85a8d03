// Package covers fetches book cover images from the OpenLibrary covers API.
package covers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/lepinkainen/alexandria/internal/isbn"
)

const (
	defaultBaseURL = "https://covers.openlibrary.org"

	// thumbnailWidth is the width thumbnails are resized to; height
	// follows the source aspect ratio.
	thumbnailWidth = 200
)

// ErrNoCover is returned when the covers API has no image for an ISBN.
var ErrNoCover = errors.New("no cover available")

// Fetcher downloads covers and writes them, plus a thumbnail, under a
// local directory.
type Fetcher struct {
	client    *http.Client
	baseURL   string
	outputDir string
}

// NewFetcher returns a Fetcher writing into outputDir.
func NewFetcher(client *http.Client, outputDir string) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client, baseURL: defaultBaseURL, outputDir: outputDir}
}

// URL returns the large cover URL for an ISBN, or "" when the ISBN does
// not normalize to a valid identifier.
func (f *Fetcher) URL(rawISBN string) string {
	id := isbn.NormalizeForCover(rawISBN)
	if id == "" {
		return ""
	}
	return fmt.Sprintf("%s/b/isbn/%s-L.jpg", f.baseURL, id)
}

// Download fetches the cover for an ISBN, saves it as <isbn>.jpg and a
// 200px-wide thumbnail as <isbn>_thumb.jpg. It returns the cover path.
func (f *Fetcher) Download(ctx context.Context, rawISBN string) (string, error) {
	url := f.URL(rawISBN)
	if url == "" {
		return "", fmt.Errorf("invalid ISBN %q", rawISBN)
	}
	id := isbn.NormalizeForCover(rawISBN)

	// default=false makes the API 404 instead of serving a blank image.
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"?default=false", nil)
	if err != nil {
		return "", fmt.Errorf("building cover request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching cover for %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrNoCover
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("cover API returned %d for %s", resp.StatusCode, id)
	}

	if err := os.MkdirAll(f.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating cover directory: %w", err)
	}

	coverPath := filepath.Join(f.outputDir, id+".jpg")
	out, err := os.Create(coverPath)
	if err != nil {
		return "", fmt.Errorf("creating cover file: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return "", fmt.Errorf("writing cover: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("closing cover file: %w", err)
	}

	if err := f.writeThumbnail(coverPath, id); err != nil {
		// A missing thumbnail is not worth failing the download over.
		slog.Warn("Thumbnail generation failed", "isbn", id, "error", err)
	}
	return coverPath, nil
}

func (f *Fetcher) writeThumbnail(coverPath, id string) error {
	img, err := imaging.Open(coverPath)
	if err != nil {
		return fmt.Errorf("decoding cover: %w", err)
	}
	thumb := imaging.Resize(img, thumbnailWidth, 0, imaging.Lanczos)
	thumbPath := filepath.Join(f.outputDir, id+"_thumb.jpg")
	if err := imaging.Save(thumb, thumbPath); err != nil {
		return fmt.Errorf("saving thumbnail: %w", err)
	}
	return nil
}
