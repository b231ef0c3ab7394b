package imagehost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/tymenu/tymenu/internal/domain/recipe"
	"github.com/tymenu/tymenu/internal/infrastructure/config"
)

// ImgBB uploads images to an imgbb-compatible API.
type ImgBB struct {
	uploadURL string
	apiKey    string
	maxSize   int64
	client    *http.Client
	logger    *zap.Logger
}

func NewImgBB(cfg config.ImageHostConfig, logger *zap.Logger) *ImgBB {
	return &ImgBB{
		uploadURL: cfg.UploadURL,
		apiKey:    cfg.APIKey,
		maxSize:   cfg.MaxUploadSize,
		client:    &http.Client{Timeout: cfg.Timeout},
		logger:    logger,
	}
}

type imgbbResponse struct {
	Success bool `json:"success"`
	Status  int  `json:"status"`
	Data    struct {
		DisplayURL string `json:"display_url"`
		DeleteURL  string `json:"delete_url"`
		URLViewer  string `json:"url_viewer"`
		Thumb      struct {
			URL string `json:"url"`
		} `json:"thumb"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload posts the image as multipart form data.
func (h *ImgBB) Upload(ctx context.Context, filename string, image io.Reader) (recipe.ImageURLs, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("image", filepath.Base(filename))
	if err != nil {
		return recipe.ImageURLs{}, err
	}
	src := image
	if h.maxSize > 0 {
		src = io.LimitReader(image, h.maxSize+1)
	}
	n, err := io.Copy(part, src)
	if err != nil {
		return recipe.ImageURLs{}, fmt.Errorf("failed to read image: %w", err)
	}
	if h.maxSize > 0 && n > h.maxSize {
		return recipe.ImageURLs{}, fmt.Errorf("image exceeds %d bytes", h.maxSize)
	}
	if err := form.WriteField("name", filename); err != nil {
		return recipe.ImageURLs{}, err
	}
	if err := form.Close(); err != nil {
		return recipe.ImageURLs{}, err
	}

	endpoint, err := url.Parse(h.uploadURL)
	if err != nil {
		return recipe.ImageURLs{}, fmt.Errorf("invalid upload url: %w", err)
	}
	q := endpoint.Query()
	q.Set("key", h.apiKey)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), &body)
	if err != nil {
		return recipe.ImageURLs{}, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := h.client.Do(req)
	if err != nil {
		return recipe.ImageURLs{}, fmt.Errorf("image upload failed: %w", err)
	}
	defer resp.Body.Close()

	var payload imgbbResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return recipe.ImageURLs{}, fmt.Errorf("failed to decode image host response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !payload.Success {
		return recipe.ImageURLs{}, fmt.Errorf("image host returned %d: %s", resp.StatusCode, payload.Error.Message)
	}

	urls := recipe.ImageURLs{
		Display:   payload.Data.DisplayURL,
		Delete:    payload.Data.DeleteURL,
		Thumbnail: payload.Data.Thumb.URL,
		Viewer:    payload.Data.URLViewer,
	}
	h.logger.Info("Image uploaded", zap.String("filename", filename), zap.String("display_url", urls.Display))
	return urls, nil
}

// Delete only logs: imgbb deletions happen through the delete page a user
// opens in the browser.
func (h *ImgBB) Delete(_ context.Context, image recipe.ImageURLs) error {
	if image.Delete != "" {
		h.logger.Info("Hosted image must be removed manually", zap.String("delete_url", image.Delete))
	}
	return nil
}
