package selector

import (
	"context"

	"tray-translate-llm/config"
	"tray-translate-llm/screenshot"
)

// Selector defines a synchronous region-selection API owned by the event loop.
// Returns (region, cancelled, error). If cancelled is true, region is
// undefined and err is nil.
type Selector interface {
	Select(ctx context.Context) (screenshot.Region, bool, error)
}

// New returns the selector for the given configuration: the fixed region when
// CAPTURE_REGION is set, otherwise the whole primary display.
func New(cfg *config.Config) Selector {
	if cfg != nil && cfg.CaptureRegion.Width > 0 && cfg.CaptureRegion.Height > 0 {
		r := cfg.CaptureRegion
		return Fixed{Region: screenshot.Region{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}}
	}
	return PrimaryDisplay{}
}

// Fixed always selects the same configured rectangle.
type Fixed struct {
	Region screenshot.Region
}

func (f Fixed) Select(ctx context.Context) (screenshot.Region, bool, error) {
	if err := ctx.Err(); err != nil {
		return screenshot.Region{}, false, err
	}
	return f.Region, false, nil
}

// PrimaryDisplay selects the full bounds of the primary display.
type PrimaryDisplay struct{}

func (PrimaryDisplay) Select(ctx context.Context) (screenshot.Region, bool, error) {
	if err := ctx.Err(); err != nil {
		return screenshot.Region{}, false, err
	}
	region, err := screenshot.PrimaryDisplayRegion()
	if err != nil {
		return screenshot.Region{}, false, err
	}
	return region, false, nil
}
