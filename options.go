package markedit

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/novohool/MarkEdit/fonts"
)

// Config carries the paths of the external tools the pipelines shell out
// to. The zero value resolves every tool through PATH under its
// conventional name.
type Config struct {
	// PandocPath is the document compiler.
	PandocPath string `env:"PANDOC_PATH"`

	// WkhtmltopdfPath is the HTML-to-PDF converter used by the
	// wkhtmltopdf build engine.
	WkhtmltopdfPath string `env:"WKHTMLTOPDF_PATH"`

	// RsvgConvertPath is the SVG rasterizer used when importing
	// inline SVG images.
	RsvgConvertPath string `env:"RSVG_CONVERT_PATH"`

	// FcListPath is the font inventory probe used for PDF builds.
	FcListPath string `env:"FC_LIST_PATH"`
}

// FromEnv reads tool paths from the environment. Unset variables leave
// the corresponding tool resolved through PATH.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("markedit: parsing environment: %w", err)
	}
	return cfg, nil
}

func (c Config) fontResolver() *fonts.Resolver {
	return fonts.NewResolver(c.FcListPath)
}
