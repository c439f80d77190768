package compose

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"pushpipe/internal/payload"
	logx "pushpipe/pkg/logx"
)

// maxImageBytes caps a fetched remote image.
const maxImageBytes = 5 << 20

// AssetStore opens bundled application assets by name.
type AssetStore interface {
	Open(name string) (io.ReadCloser, error)
}

// ResourceChecker reports whether an image resource exists under the given
// name (drawable analog).
type ResourceChecker interface {
	HasImage(name string) bool
}

type ImageConfig struct {
	Timeout    time.Duration // 0 means 15s, matching the upstream fetch
	RatePerSec int           // 0 disables throttling
}

// ImageFetcher resolves the large-image field: remote URL first, then a
// bundled asset, then a plain resource reference. Every failure degrades to
// an absent image.
type ImageFetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	timeout time.Duration

	assets    AssetStore
	resources ResourceChecker
	log       logx.Logger
}

func NewImageFetcher(cfg ImageConfig, assets AssetStore, resources ResourceChecker, log logx.Logger) *ImageFetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	var limiter *rate.Limiter
	if cfg.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	}
	return &ImageFetcher{
		client:    &http.Client{Timeout: timeout},
		limiter:   limiter,
		timeout:   timeout,
		assets:    assets,
		resources: resources,
		log:       log,
	}
}

// Resolve returns the image for ref, or nil when nothing resolves.
func (f *ImageFetcher) Resolve(ctx context.Context, ref, imageType string, report payload.Reporter) *Image {
	if strings.TrimSpace(ref) == "" {
		return nil
	}

	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		data, err := f.fetchRemote(ctx, ref)
		if err != nil {
			f.log.Debug("remote image fetch failed", logx.String("url", ref), logx.Err(err))
			if report != nil {
				report(payload.DiagFetchFailure, payload.KeyImage, err.Error())
			}
			return nil
		}
		return &Image{Source: ImageRemote, Ref: ref, Type: imageType, Data: data}
	}

	if f.assets != nil {
		if rc, err := f.assets.Open(ref); err == nil {
			defer rc.Close()
			data, err := io.ReadAll(io.LimitReader(rc, maxImageBytes))
			if err == nil {
				return &Image{Source: ImageAsset, Ref: ref, Type: imageType, Data: data}
			}
			f.log.Debug("asset image read failed", logx.String("asset", ref), logx.Err(err))
		}
	}

	if f.resources != nil && f.resources.HasImage(ref) {
		return &Image{Source: ImageResource, Ref: ref, Type: imageType}
	}

	f.log.Debug("no large image resolved", logx.String("ref", ref))
	return nil
}

func (f *ImageFetcher) fetchRemote(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
}
