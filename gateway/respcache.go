package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/PheelaV/kr-notebook-sub000/store/cache"
)

// cachedResponse is one stored upstream response.
type cachedResponse struct {
	Status      int       `json:"status"`
	ContentType string    `json:"content_type"`
	Body        []byte    `json:"body"`
	URL         string    `json:"url"`
	CachedAt    time.Time `json:"cached_at"`
}

// responseCache stores upstream responses on disk under versioned namespace
// directories, with an in-memory L1 in front. Namespaces from prior versions
// are purged at activation so a deploy never serves stale assets.
type responseCache struct {
	root    string
	version string
	l1      *cache.Cache
}

func newResponseCache(dataDir, version string) (*responseCache, error) {
	root := filepath.Join(dataDir, "gateway-cache")
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create cache dir")
	}
	rc := &responseCache{
		root:    root,
		version: version,
		l1: cache.New(cache.Config{
			DefaultTTL:      5 * time.Minute,
			CleanupInterval: time.Minute,
			MaxItems:        256,
		}),
	}
	if err := rc.purgeOldVersions(); err != nil {
		return nil, err
	}
	return rc, nil
}

func (rc *responseCache) Close() error {
	return rc.l1.Close()
}

// namespace returns the versioned directory name for a cache class.
func (rc *responseCache) namespace(class string) string {
	return class + "-" + rc.version
}

// purgeOldVersions removes every namespace directory that does not carry the
// current version suffix.
func (rc *responseCache) purgeOldVersions() error {
	entries, err := os.ReadDir(rc.root)
	if err != nil {
		return errors.Wrap(err, "failed to list cache dir")
	}
	suffix := "-" + rc.version
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(rc.root, entry.Name())); err != nil {
			return errors.Wrapf(err, "failed to purge %s", entry.Name())
		}
	}
	return nil
}

// cacheKey strips the query string so cache-busting parameters still hit a
// warmed entry, then hashes to a stable filename.
func cacheKey(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		rawURL = rawURL[:i]
	}
	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:16])
}

func (rc *responseCache) path(class, key string) string {
	return filepath.Join(rc.root, rc.namespace(class), key+".json")
}

// Get returns the cached response for the URL, consulting the L1 first.
func (rc *responseCache) Get(ctx context.Context, class, rawURL string) (*cachedResponse, bool) {
	key := cacheKey(rawURL)
	if hit, ok := rc.l1.Get(ctx, rc.namespace(class)+"/"+key); ok {
		return hit.(*cachedResponse), true
	}

	data, err := os.ReadFile(rc.path(class, key))
	if err != nil {
		return nil, false
	}
	response := &cachedResponse{}
	if err := json.Unmarshal(data, response); err != nil {
		return nil, false
	}
	rc.l1.Set(ctx, rc.namespace(class)+"/"+key, response)
	return response, true
}

// Put stores the response durably and in the L1.
func (rc *responseCache) Put(ctx context.Context, class, rawURL string, response *cachedResponse) error {
	key := cacheKey(rawURL)
	dir := filepath.Join(rc.root, rc.namespace(class))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create namespace dir")
	}

	data, err := json.Marshal(response)
	if err != nil {
		return errors.Wrap(err, "failed to marshal response")
	}
	tmp := filepath.Join(dir, key+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write cache entry")
	}
	if err := os.Rename(tmp, rc.path(class, key)); err != nil {
		return errors.Wrap(err, "failed to finalize cache entry")
	}

	rc.l1.Set(ctx, rc.namespace(class)+"/"+key, response)
	return nil
}

// Clear wipes every namespace of the current version plus the L1.
func (rc *responseCache) Clear(ctx context.Context) error {
	rc.l1.Clear(ctx)
	entries, err := os.ReadDir(rc.root)
	if err != nil {
		return errors.Wrap(err, "failed to list cache dir")
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(rc.root, entry.Name())); err != nil {
			return errors.Wrapf(err, "failed to remove %s", entry.Name())
		}
	}
	return nil
}

// PageURLs lists the original URLs cached in the given class.
func (rc *responseCache) PageURLs(class string) ([]string, error) {
	dir := filepath.Join(rc.root, rc.namespace(class))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to list namespace dir")
	}

	var urls []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		response := &cachedResponse{}
		if err := json.Unmarshal(data, response); err != nil {
			continue
		}
		urls = append(urls, response.URL)
	}
	return urls, nil
}
