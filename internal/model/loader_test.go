package model

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func manifestFetch(bodies map[string]string, calls *int32, mu *sync.Mutex) FetchFunc {
	return func(url string) ([]byte, error) {
		mu.Lock()
		*calls++
		mu.Unlock()
		body, ok := bodies[url]
		if !ok {
			return nil, fmt.Errorf("no such model: %s", url)
		}
		return []byte(body), nil
	}
}

const sampleManifest = `{
  "inputs": [{"shape": [1,3,224,224], "dtype": "f32", "order": "NCHW"}],
  "outputs": [{"shape": [1,1000], "dtype": "f32", "order": "NONE"}]
}`

func TestLoadModelParsesManifest(t *testing.T) {
	var calls int32
	var mu sync.Mutex
	loader := NewLoader(manifestFetch(map[string]string{"a.model": sampleManifest}, &calls, &mu), 3)

	info, err := loader.LoadModel(context.Background(), "a.model")
	require.NoError(t, err)
	assert.Equal(t, 1, info.InputCount())
	assert.Equal(t, 1, info.OutputCount())
	assert.Equal(t, LayoutNCHW, info.Inputs[0].Order)
	assert.NotEmpty(t, info.Key)
}

func TestLoadModelCachesByURL(t *testing.T) {
	var calls int32
	var mu sync.Mutex
	loader := NewLoader(manifestFetch(map[string]string{"a.model": sampleManifest}, &calls, &mu), 3)

	_, err := loader.LoadModel(context.Background(), "a.model")
	require.NoError(t, err)
	_, err = loader.LoadModel(context.Background(), "a.model")
	require.NoError(t, err)

	assert.EqualValues(t, 1, calls, "second load of the same url must hit the cache, not fetch again")
}

func TestConcurrentLoadsOfSameURLCoalesce(t *testing.T) {
	var calls int32
	var mu sync.Mutex
	loader := NewLoader(manifestFetch(map[string]string{"a.model": sampleManifest}, &calls, &mu), 3)

	var wg sync.WaitGroup
	results := make([]*Info, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			info, err := loader.LoadModel(context.Background(), "a.model")
			require.NoError(t, err)
			results[i] = info
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Same(t, results[0], r)
	}
	assert.LessOrEqual(t, calls, int32(2), "concurrent loads of the same url should coalesce into at most one fetch")
}

func TestLRUEvictsOldestOverLimit(t *testing.T) {
	var calls int32
	var mu sync.Mutex
	bodies := map[string]string{
		"m1": sampleManifest,
		"m2": `{"inputs":[{"shape":[2],"dtype":"u8","order":"NONE"}],"outputs":[{"shape":[2],"dtype":"u8","order":"NONE"}]}`,
		"m3": `{"inputs":[{"shape":[3],"dtype":"u8","order":"NONE"}],"outputs":[{"shape":[3],"dtype":"u8","order":"NONE"}]}`,
	}
	loader := NewLoader(manifestFetch(bodies, &calls, &mu), 2)

	_, err := loader.LoadModel(context.Background(), "m1")
	require.NoError(t, err)
	_, err = loader.LoadModel(context.Background(), "m2")
	require.NoError(t, err)
	assert.Equal(t, 2, loader.Len())

	_, err = loader.LoadModel(context.Background(), "m3")
	require.NoError(t, err)
	assert.Equal(t, 2, loader.Len(), "cache must stay bounded at the configured limit")

	assert.Nil(t, loader.lookupByURL("m1"), "oldest entry should have been evicted")
	assert.NotNil(t, loader.lookupByURL("m2"))
	assert.NotNil(t, loader.lookupByURL("m3"))
}

func TestListReturnsCachedModelsMostRecentFirst(t *testing.T) {
	var calls int32
	var mu sync.Mutex
	bodies := map[string]string{
		"m1": sampleManifest,
		"m2": `{"inputs":[{"shape":[1],"dtype":"f32","order":"NONE"}],"outputs":[{"shape":[1],"dtype":"f32","order":"NONE"}]}`,
	}
	loader := NewLoader(manifestFetch(bodies, &calls, &mu), 3)

	info1, err := loader.LoadModel(context.Background(), "m1")
	require.NoError(t, err)
	info2, err := loader.LoadModel(context.Background(), "m2")
	require.NoError(t, err)

	list := loader.List()
	require.Len(t, list, 2)
	assert.Equal(t, info2.Key, list[0].Key, "most recently loaded model comes first")
	assert.Equal(t, info1.Key, list[1].Key)
}

func TestUnloadModelAndClearCache(t *testing.T) {
	var calls int32
	var mu sync.Mutex
	loader := NewLoader(manifestFetch(map[string]string{"a.model": sampleManifest}, &calls, &mu), 3)

	info, err := loader.LoadModel(context.Background(), "a.model")
	require.NoError(t, err)

	loader.UnloadModel(info.Key)
	assert.Equal(t, 0, loader.Len())

	_, err = loader.LoadModel(context.Background(), "a.model")
	require.NoError(t, err)
	loader.ClearModelCache()
	assert.Equal(t, 0, loader.Len())
}

func TestLoadModelFetchError(t *testing.T) {
	var calls int32
	var mu sync.Mutex
	loader := NewLoader(manifestFetch(map[string]string{}, &calls, &mu), 3)

	_, err := loader.LoadModel(context.Background(), "missing.model")
	assert.Error(t, err)
}

func TestCacheLimitFromEnvDefault(t *testing.T) {
	t.Setenv("CNIS_MODEL_CACHE_LIMIT", "")
	assert.Equal(t, 3, cacheLimitFromEnv())
	t.Setenv("CNIS_MODEL_CACHE_LIMIT", "7")
	assert.Equal(t, 7, cacheLimitFromEnv())
	t.Setenv("CNIS_MODEL_CACHE_LIMIT", "not-a-number")
	assert.Equal(t, 3, cacheLimitFromEnv())
}
