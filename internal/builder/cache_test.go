package builder

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_GetBuildsOnce(t *testing.T) {
	c := NewCache(nil)
	mtime := time.Now()
	var builds atomic.Int32

	build := func(path string) (*Template, error) {
		builds.Add(1)
		return &Template{Path: path, MTime: mtime}, nil
	}

	first, err := c.Get("a.tm", mtime, build)
	require.NoError(t, err)
	second, err := c.Get("a.tm", mtime, build)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int32(1), builds.Load())
	assert.True(t, c.Ready("a.tm", mtime))
	assert.Equal(t, 1, c.Len())
}

func TestCache_MTimeInvalidates(t *testing.T) {
	c := NewCache(nil)
	old := time.Now()
	newer := old.Add(time.Second)
	var builds atomic.Int32

	_, err := c.Get("a.tm", old, func(path string) (*Template, error) {
		builds.Add(1)
		return &Template{Path: path, MTime: old}, nil
	})
	require.NoError(t, err)
	assert.False(t, c.Ready("a.tm", newer))

	rebuilt, err := c.Get("a.tm", newer, func(path string) (*Template, error) {
		builds.Add(1)
		return &Template{Path: path, MTime: newer}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, newer, rebuilt.MTime)
	assert.Equal(t, int32(2), builds.Load())
}

func TestCache_FailedBuildKeepsStaleEntry(t *testing.T) {
	c := NewCache(nil)
	old := time.Now()

	stale, err := c.Get("a.tm", old, func(path string) (*Template, error) {
		return &Template{Path: path, MTime: old}, nil
	})
	require.NoError(t, err)

	_, err = c.Get("a.tm", old.Add(time.Second), func(string) (*Template, error) {
		return nil, errors.New("syntax error")
	})
	require.Error(t, err)

	got, ok := c.Peek("a.tm")
	require.True(t, ok)
	assert.Same(t, stale, got)
}

func TestCache_ConcurrentGetsShareBuild(t *testing.T) {
	c := NewCache(nil)
	mtime := time.Now()
	var builds atomic.Int32
	release := make(chan struct{})

	build := func(path string) (*Template, error) {
		builds.Add(1)
		<-release
		return &Template{Path: path, MTime: mtime}, nil
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tpl, err := c.Get("a.tm", mtime, build)
			assert.NoError(t, err)
			assert.NotNil(t, tpl)
		}()
	}
	// Give the flight time to collect waiters before letting it finish.
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), builds.Load())
}

func TestCache_ClearAndClearAll(t *testing.T) {
	c := NewCache(nil)
	mtime := time.Now()
	build := func(path string) (*Template, error) {
		return &Template{Path: path, MTime: mtime}, nil
	}
	_, err := c.Get("a.tm", mtime, build)
	require.NoError(t, err)
	_, err = c.Get("b.tm", mtime, build)
	require.NoError(t, err)

	c.Clear("a.tm")
	assert.False(t, c.Ready("a.tm", mtime))
	assert.True(t, c.Ready("b.tm", mtime))

	c.ClearAll()
	assert.Equal(t, 0, c.Len())
}
