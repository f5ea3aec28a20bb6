// Package asset resolves opaque image locators carried by feed items into file contents.
package asset

import (
	"context"
	"fmt"
	"github.com/Borislavv/infinite-feed/pkg/config"
	"github.com/Borislavv/infinite-feed/pkg/prometheus/metrics"
	"github.com/dgraph-io/ristretto"
	"github.com/rs/zerolog/log"
	"github.com/zeebo/xxh3"
	xrate "golang.org/x/time/rate"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const sniffLen = 512

// Asset is a resolved file. Body must not be modified, it is shared through the cache.
type Asset struct {
	Path        string
	ContentType string
	Body        []byte
}

type Resolver struct {
	scheme  string
	roots   []string
	exts    map[string]struct{}
	cfg     config.Assets
	cache   *ristretto.Cache
	limiter *xrate.Limiter
	meter   metrics.Meter
}

func NewResolver(cfg config.Assets, meter metrics.Meter) (*Resolver, error) {
	roots := make([]string, 0, len(cfg.AllowedDirs))
	for _, dir := range cfg.AllowedDirs {
		abs, err := filepath.Abs(filepath.Clean(dir))
		if err != nil {
			return nil, fmt.Errorf("resolve allowed dir %q: %w", dir, err)
		}
		roots = append(roots, abs)
		if real, err := filepath.EvalSymlinks(abs); err == nil && real != abs {
			roots = append(roots, real)
		}
	}

	exts := make(map[string]struct{}, len(cfg.Extensions))
	for _, ext := range cfg.Extensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[ext] = struct{}{}
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     cfg.CacheSize,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("init asset cache: %w", err)
	}

	return &Resolver{
		scheme:  cfg.Scheme,
		roots:   roots,
		exts:    exts,
		cfg:     cfg,
		cache:   cache,
		limiter: xrate.NewLimiter(xrate.Limit(cfg.ReadRate), cfg.ReadBurst),
		meter:   meter,
	}, nil
}

// Resolve turns a locator into an asset. Every failure wraps one of the package sentinel errors.
func (r *Resolver) Resolve(ctx context.Context, locator string) (*Asset, error) {
	clean, err := Clean(locator, r.scheme)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(clean))
	if _, ok := r.exts[ext]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}

	path, err := filepath.Abs(clean)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadRequest, err.Error())
	}
	if !r.allowed(path) {
		return nil, fmt.Errorf("%w: %s", ErrForbidden, clean)
	}

	key := hashKey(path)
	if v, ok := r.cache.Get(key); ok {
		r.meter.IncAssetCacheHit()
		return v.(*Asset), nil
	}
	r.meter.IncAssetCacheMiss()

	asset, err := r.read(ctx, path)
	if err != nil {
		return nil, err
	}

	r.cache.SetWithTTL(key, asset, int64(len(asset.Body)), r.cfg.CacheTTL)
	return asset, nil
}

func (r *Resolver) read(ctx context.Context, path string) (*Asset, error) {
	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	case err != nil:
		return nil, fmt.Errorf("%w: %s", ErrIO, err.Error())
	case info.IsDir():
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotFound, path)
	}

	// a symlink inside an allowed dir must not lead out of it
	if real, err := filepath.EvalSymlinks(path); err == nil && !r.allowed(real) {
		return nil, fmt.Errorf("%w: %s", ErrForbidden, path)
	}

	if err = r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrIO, err.Error())
	}

	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrIO, err.Error())
	}

	log.Debug().Msgf("[asset] read %s (%d bytes)", path, len(body))
	return &Asset{Path: path, ContentType: contentType(path, body), Body: body}, nil
}

func (r *Resolver) allowed(path string) bool {
	for _, root := range r.roots {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			continue
		}
		if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (r *Resolver) Close() {
	r.cache.Close()
}

// Clean strips the scheme prefix ("scheme://", "/scheme/" or "scheme/") and percent-decodes the rest.
func Clean(locator, scheme string) (string, error) {
	if locator == "" {
		return "", fmt.Errorf("%w: empty locator", ErrBadRequest)
	}

	decoded, err := url.PathUnescape(locator)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrBadRequest, err.Error())
	}

	for _, prefix := range []string{scheme + "://", "/" + scheme + "/", scheme + "/"} {
		if strings.HasPrefix(decoded, prefix) {
			decoded = decoded[len(prefix):]
			break
		}
	}

	if decoded == "" || strings.ContainsRune(decoded, 0) {
		return "", fmt.Errorf("%w: %q", ErrBadRequest, locator)
	}
	return filepath.Clean(filepath.FromSlash(decoded)), nil
}

func contentType(path string, body []byte) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	if len(body) > sniffLen {
		body = body[:sniffLen]
	}
	return http.DetectContentType(body)
}

// hashKey content-addresses a clean absolute path.
func hashKey(path string) uint64 {
	return xxh3.HashString(path)
}
