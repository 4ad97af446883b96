package companies

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jimdaga/tophive/internal/content"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixtureSourceSearch(t *testing.T) {
	src := NewFixtureSource("")

	t.Run("substring match ignores case", func(t *testing.T) {
		got, err := src.Search(context.Background(), "sno")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Snowflake", got[0].Name)
		assert.Equal(t, "https://logo.clearbit.com/snowflake.com", got[0].Logo)
	})

	t.Run("several matches keep directory order", func(t *testing.T) {
		got, err := src.Search(context.Background(), "A")
		require.NoError(t, err)
		var names []string
		for _, c := range got {
			names = append(names, c.Name)
		}
		assert.Equal(t, []string{"Snowflake", "Salesforce", "Adobe", "Slack", "Amazon", "Apple", "Facebook", "Tesla"}, names)
	})

	t.Run("blank query is empty", func(t *testing.T) {
		got, err := src.Search(context.Background(), "  ")
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("by id", func(t *testing.T) {
		c, ok := src.ByID("6")
		require.True(t, ok)
		assert.Equal(t, "Google", c.Name)

		_, ok = src.ByID("missing")
		assert.False(t, ok)
	})
}

func TestHTTPSourceSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/companies/suggest", r.URL.Path)
		assert.Equal(t, "snow flake", r.URL.Query().Get("query"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"name":"Snowflake","domain":"snowflake.com","logo":"https://img.example/snow.png"},
			{"name":"Snow Peak","domain":"snowpeak.com"},
			{"name":"","domain":"broken.example"}
		]`))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL, "logos.example", 100)
	got, err := src.Search(context.Background(), "snow flake")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, content.Company{
		ID: "snowflake.com", Name: "Snowflake", Logo: "https://img.example/snow.png",
		Domain: "snowflake.com", Website: "https://snowflake.com",
	}, got[0])
	assert.Equal(t, "https://logos.example/snowpeak.com", got[1].Logo)
}

func TestHTTPSourceErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL, "", 100)
	_, err := src.Search(context.Background(), "acme")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestHTTPSourceBlankQuerySkipsNetwork(t *testing.T) {
	src := NewHTTPSource("http://127.0.0.1:1", "", 1)
	got, err := src.Search(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

type countingSource struct {
	calls   int
	queries []string
	results []content.Company
}

func (s *countingSource) Search(ctx context.Context, query string) ([]content.Company, error) {
	s.calls++
	s.queries = append(s.queries, query)
	return s.results, nil
}

func TestCachedSource(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	inner := &countingSource{results: []content.Company{{ID: "1", Name: "Snowflake"}}}
	src := NewCachedSource(inner, rdb, time.Minute)

	first, err := src.Search(context.Background(), "Sno")
	require.NoError(t, err)
	second, err := src.Search(context.Background(), "sno")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
	assert.True(t, mr.Exists("companies:lookup:sno"))

	mr.FastForward(2 * time.Minute)
	_, err = src.Search(context.Background(), "sno")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedSourceBypassesBrokenCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	mr.Close()

	inner := &countingSource{results: []content.Company{{ID: "1", Name: "Snowflake"}}}
	src := NewCachedSource(inner, rdb, time.Minute)

	got, err := src.Search(context.Background(), "sno")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 1, inner.calls)
}
