package cmd

import (
	"github.com/toolinger/toolinger/internal/article"
	"github.com/toolinger/toolinger/internal/config"
	"github.com/toolinger/toolinger/internal/content"
	"github.com/toolinger/toolinger/internal/logging"
	"github.com/toolinger/toolinger/internal/sanitizer"
)

// pipeline is the content stack shared by serve, list and render.
type pipeline struct {
	locator *content.Locator
	service *article.Service
}

func newPipeline(cfg *config.Config, logger logging.Logger) (*pipeline, error) {
	s, err := sanitizer.New(sanitizer.OptionsFromConfig(cfg.Sanitizer))
	if err != nil {
		return nil, err
	}

	locator := content.NewDirLocator(cfg.Content.Root)
	return &pipeline{
		locator: locator,
		service: article.NewService(locator, s, logger),
	}, nil
}
