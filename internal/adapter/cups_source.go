package adapter

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"printkeeper/internal/domain"
)

// DeviceLister lists the device URIs the spooler's backends can see
type DeviceLister interface {
	ListDevices(ctx context.Context) ([]string, error)
}

// CUPSSource asks the print spooler which raw socket devices it knows about
// (`lpinfo -v`). The backends do their own passive browsing.
type CUPSSource struct {
	lister DeviceLister
	logger zerolog.Logger
}

// NewCUPSSource creates a spooler-backed source
func NewCUPSSource(lister DeviceLister, logger zerolog.Logger) *CUPSSource {
	return &CUPSSource{
		lister: lister,
		logger: logger.With().Str("component", "cups-source").Logger(),
	}
}

// Name returns the source identifier
func (c *CUPSSource) Name() string {
	return "cups"
}

// Kind returns the source kind
func (c *CUPSSource) Kind() SourceKind {
	return SourceKindPassive
}

// Discover reports every socket:// device URI. The URI is kept as the
// spooler printed it so it compares equal to registered targets.
func (c *CUPSSource) Discover(ctx context.Context, _ Target, report ReportFunc) error {
	uris, err := c.lister.ListDevices(ctx)
	if err != nil {
		return fmt.Errorf("cups: list devices: %w", err)
	}

	found := 0
	for _, raw := range uris {
		dev, err := domain.ParseDeviceURI(raw)
		if err != nil || dev.Scheme != domain.SchemeSocket || dev.Host == "" {
			continue
		}
		report(domain.Endpoint{
			IP:     dev.Host,
			Port:   dev.Port,
			URI:    dev.Raw,
			Source: c.Name(),
		})
		found++
	}
	c.logger.Debug().Int("devices", len(uris)).Int("found", found).Msg("Spooler device listing complete")
	return nil
}
