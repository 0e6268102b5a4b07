package model

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strconv"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/sync/singleflight"

	"github.com/cambricon/easydk-go/internal/constants"
	"github.com/cambricon/easydk-go/internal/logging"

	easydk "github.com/cambricon/easydk-go/internal/status"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FetchFunc retrieves the raw manifest bytes for a model URL. Model
// URLs are opaque strings; the default FetchFunc treats them as
// filesystem paths, which is what every example/demo model package in
// this ecosystem uses, but callers can swap in an HTTP or registry
// fetcher.
type FetchFunc func(url string) ([]byte, error)

// FileFetch reads a model manifest from the local filesystem.
func FileFetch(url string) ([]byte, error) {
	return os.ReadFile(url)
}

// Loader parses model manifests and keeps an LRU cache of loaded
// models bounded by CNIS_MODEL_CACHE_LIMIT (default
// constants.DefaultModelCacheLimit).
type Loader struct {
	fetch FetchFunc
	limit int
	log   *logging.Logger

	mu       sync.Mutex
	order    *list.List // front = most recently used
	elements map[string]*list.Element
	urlToKey map[string]string

	group singleflight.Group
}

type cacheEntry struct {
	key  string
	info *Info
}

// NewLoader creates a model loader. limit <= 0 means "read
// CNIS_MODEL_CACHE_LIMIT from the environment, falling back to the
// package default".
func NewLoader(fetch FetchFunc, limit int) *Loader {
	if fetch == nil {
		fetch = FileFetch
	}
	if limit <= 0 {
		limit = cacheLimitFromEnv()
	}
	return &Loader{
		fetch:    fetch,
		limit:    limit,
		log:      logging.Default().WithComponent("model"),
		order:    list.New(),
		elements: make(map[string]*list.Element),
		urlToKey: make(map[string]string),
	}
}

func cacheLimitFromEnv() int {
	v := os.Getenv(constants.ModelCacheLimitEnv)
	if v == "" {
		return constants.DefaultModelCacheLimit
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return constants.DefaultModelCacheLimit
	}
	return n
}

// LoadModel loads the model named by url, returning its cached Info if
// already loaded, or parsing its manifest otherwise. Concurrent loads
// of the same url are coalesced into a single fetch+parse: only one
// caller does the work, and all callers observe the same resulting
// Info and cache entry.
func (l *Loader) LoadModel(ctx context.Context, url string) (*Info, error) {
	if cached := l.lookupByURL(url); cached != nil {
		return cached, nil
	}

	v, err, _ := l.group.Do(url, func() (interface{}, error) {
		if cached := l.lookupByURL(url); cached != nil {
			return cached, nil
		}
		raw, ferr := l.fetch(url)
		if ferr != nil {
			return nil, easydk.NewError("model", "load_model", easydk.KindBackend, "fetch manifest: "+ferr.Error())
		}
		var m manifest
		if perr := json.Unmarshal(raw, &m); perr != nil {
			return nil, easydk.NewError("model", "load_model", easydk.KindInvalidArg, "parse manifest: "+perr.Error())
		}
		sum := sha256.Sum256(raw)
		info := &Info{
			Key:     hex.EncodeToString(sum[:]),
			URL:     url,
			Inputs:  m.Inputs,
			Outputs: m.Outputs,
		}
		l.insert(url, info)
		return info, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Info), nil
}

func (l *Loader) lookupByURL(url string) *Info {
	l.mu.Lock()
	defer l.mu.Unlock()
	key, ok := l.urlToKey[url]
	if !ok {
		return nil
	}
	elem, ok := l.elements[key]
	if !ok {
		return nil
	}
	l.order.MoveToFront(elem)
	return elem.Value.(*cacheEntry).info
}

func (l *Loader) insert(url string, info *Info) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if elem, ok := l.elements[info.Key]; ok {
		l.order.MoveToFront(elem)
		l.urlToKey[url] = info.Key
		return
	}

	elem := l.order.PushFront(&cacheEntry{key: info.Key, info: info})
	l.elements[info.Key] = elem
	l.urlToKey[url] = info.Key

	for l.order.Len() > l.limit {
		tail := l.order.Back()
		if tail == nil {
			break
		}
		l.evictElement(tail)
	}
}

// evictElement must be called with l.mu held.
func (l *Loader) evictElement(elem *list.Element) {
	entry := elem.Value.(*cacheEntry)
	l.order.Remove(elem)
	delete(l.elements, entry.key)
	for u, k := range l.urlToKey {
		if k == entry.key {
			delete(l.urlToKey, u)
		}
	}
	l.log.Debug("evicted model from cache", "key", entry.key)
}

// UnloadModel removes a model from the cache by its content-addressed key.
func (l *Loader) UnloadModel(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if elem, ok := l.elements[key]; ok {
		l.evictElement(elem)
	}
}

// ClearModelCache empties the cache entirely.
func (l *Loader) ClearModelCache() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.order.Init()
	l.elements = make(map[string]*list.Element)
	l.urlToKey = make(map[string]string)
}

// Len reports how many models are currently cached.
func (l *Loader) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.order.Len()
}

// List returns every cached model's Info, most recently used first —
// the `models ls` subcommand's view onto the cache.
func (l *Loader) List() []*Info {
	l.mu.Lock()
	defer l.mu.Unlock()
	infos := make([]*Info, 0, l.order.Len())
	for e := l.order.Front(); e != nil; e = e.Next() {
		infos = append(infos, e.Value.(*cacheEntry).info)
	}
	return infos
}
