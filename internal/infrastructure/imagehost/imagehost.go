// Package imagehost stores recipe images with an external provider.
package imagehost

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/tymenu/tymenu/internal/domain/recipe"
	"github.com/tymenu/tymenu/internal/infrastructure/config"
	"github.com/tymenu/tymenu/internal/ports/outbound"
)

// ErrDisabled is returned by uploads when no provider is configured.
var ErrDisabled = errors.New("image hosting is disabled")

// New builds the image host selected by image_host.provider.
func New(cfg *config.Config, logger *zap.Logger) (outbound.ImageHost, error) {
	logger = logger.Named("imagehost")
	switch cfg.ImageHost.Provider {
	case "", "none":
		logger.Info("Image hosting disabled")
		return Disabled{}, nil
	case "imgbb":
		return NewImgBB(cfg.ImageHost, logger), nil
	case "s3":
		return NewS3(cfg.ImageHost, logger)
	default:
		return nil, fmt.Errorf("unknown image host provider %q", cfg.ImageHost.Provider)
	}
}

// Disabled rejects uploads and ignores deletions.
type Disabled struct{}

func (Disabled) Upload(context.Context, string, io.Reader) (recipe.ImageURLs, error) {
	return recipe.ImageURLs{}, ErrDisabled
}

func (Disabled) Delete(context.Context, recipe.ImageURLs) error { return nil }
