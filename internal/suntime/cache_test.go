package suntime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheBuildsOncePerKey(t *testing.T) {
	p := &dayOfYearProvider{}
	c := NewCache(p, time.Hour)

	var wg sync.WaitGroup
	tables := make([]*Table, 8)
	for i := range tables {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			tb, err := c.Table(context.Background(), 1.29, 103.85, 2025)
			assert.NoError(t, err)
			tables[i] = tb
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 365, p.calls.Load())
	for _, tb := range tables {
		assert.Same(t, tables[0], tb)
	}
	assert.Equal(t, 1, c.Len())
}

func TestCacheSeparatesYearsAndLocations(t *testing.T) {
	p := &dayOfYearProvider{}
	c := NewCache(p, 0)

	a, err := c.Table(context.Background(), 1, 2, 2024)
	require.NoError(t, err)
	b, err := c.Table(context.Background(), 1, 2, 2025)
	require.NoError(t, err)
	_, err = c.Table(context.Background(), 3, 2, 2025)
	require.NoError(t, err)

	assert.Equal(t, 366, a.Len())
	assert.Equal(t, 365, b.Len())
	assert.Equal(t, 3, c.Len())
}

func TestCacheDoesNotStoreFailures(t *testing.T) {
	p := &dayOfYearProvider{failOn: "01-01"}
	c := NewCache(p, time.Hour)

	_, err := c.Table(context.Background(), 0, 0, 2025)
	assert.ErrorIs(t, err, ErrLocationResolution)
	assert.Equal(t, 0, c.Len())
}

// gatedProvider blocks every lookup until release is closed.
type gatedProvider struct {
	dayOfYearProvider
	started chan struct{}
	once    sync.Once
	release chan struct{}
}

func (p *gatedProvider) SunTimes(lat, lon float64, date time.Time) (Day, error) {
	p.once.Do(func() { close(p.started) })
	<-p.release
	return p.dayOfYearProvider.SunTimes(lat, lon, date)
}

func TestCacheWaiterSurvivesFirstCallerCancel(t *testing.T) {
	p := &gatedProvider{started: make(chan struct{}), release: make(chan struct{})}
	c := NewCache(p, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Table(ctx, 1, 2, 2025)
		firstErr <- err
	}()
	<-p.started

	type result struct {
		table *Table
		err   error
	}
	second := make(chan result, 1)
	go func() {
		tb, err := c.Table(context.Background(), 1, 2, 2025)
		second <- result{tb, err}
	}()

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	time.Sleep(20 * time.Millisecond)
	close(p.release)

	res := <-second
	require.NoError(t, res.err)
	assert.Equal(t, 365, res.table.Len())
	assert.Equal(t, 1, c.Len())
}

func TestProviderSource(t *testing.T) {
	p := &dayOfYearProvider{}
	src := ProviderSource{Provider: p}

	_, err := src.Table(context.Background(), 0, 0, 2025)
	require.NoError(t, err)
	_, err = src.Table(context.Background(), 0, 0, 2025)
	require.NoError(t, err)
	assert.EqualValues(t, 730, p.calls.Load())
}

func TestLazyCreatesProviderOnce(t *testing.T) {
	p := &dayOfYearProvider{}
	created := 0
	l := &Lazy{New: func() (Provider, error) {
		created++
		return p, nil
	}}
	assert.Equal(t, 0, created)

	_, err := l.Table(context.Background(), 0, 0, 2025)
	require.NoError(t, err)
	_, err = l.Table(context.Background(), 0, 0, 2025)
	require.NoError(t, err)

	assert.Equal(t, 1, created)
	assert.EqualValues(t, 365, p.calls.Load())
}

func TestLazyKeepsConstructorError(t *testing.T) {
	boom := errors.New("no tz data")
	l := &Lazy{New: func() (Provider, error) { return nil, boom }}

	_, err := l.Table(context.Background(), 0, 0, 2025)
	assert.ErrorIs(t, err, boom)
	_, err = l.Table(context.Background(), 0, 0, 2025)
	assert.ErrorIs(t, err, boom)
}
