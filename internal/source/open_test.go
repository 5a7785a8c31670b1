package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JonMunkholm/catalog/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		kind string
		want string
	}{
		{config.SourceFile, "file:data/catalog.csv"},
		{config.SourceHTTP, "http:https://example.com/export.csv"},
		{config.SourceSQLite, "sqlite:catalog.db"},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			cfg := &config.Config{Catalog: config.CatalogConfig{
				Source:       tt.kind,
				CSVPath:      "data/catalog.csv",
				URL:          "https://example.com/export.csv",
				SnapshotPath: "catalog.db",
			}}
			src, closeFn, err := Open(context.Background(), cfg, testPipeline())
			require.NoError(t, err)
			defer closeFn()
			assert.Equal(t, tt.want, src.Name())
		})
	}
}

func TestOpen_None(t *testing.T) {
	cfg := &config.Config{Catalog: config.CatalogConfig{Source: config.SourceNone}}
	src, closeFn, err := Open(context.Background(), cfg, testPipeline())
	require.NoError(t, err)
	require.NotNil(t, closeFn)
	assert.Nil(t, src)
}

func TestOpen_Unknown(t *testing.T) {
	cfg := &config.Config{Catalog: config.CatalogConfig{Source: "ftp"}}
	_, _, err := Open(context.Background(), cfg, testPipeline())
	assert.ErrorIs(t, err, ErrUnknownSource)
}

func TestOpen_HTTPSendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(sampleCSV))
	}))
	defer srv.Close()

	cfg := &config.Config{Catalog: config.CatalogConfig{
		Source:     config.SourceHTTP,
		URL:        srv.URL,
		FetchToken: "export-token",
	}}
	src, closeFn, err := Open(context.Background(), cfg, testPipeline())
	require.NoError(t, err)
	defer closeFn()

	res, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Products, 2)
	assert.Equal(t, "Bearer export-token", gotAuth)
}

func TestFallback(t *testing.T) {
	cfg := &config.Config{Catalog: config.CatalogConfig{Source: config.SourceHTTP}}
	assert.Nil(t, Fallback(cfg, testPipeline()))

	cfg.Catalog.SnapshotPath = "catalog.db"
	fb := Fallback(cfg, testPipeline())
	require.NotNil(t, fb)
	assert.Equal(t, "sqlite:catalog.db", fb.Name())

	cfg.Catalog.Source = config.SourceSQLite
	assert.Nil(t, Fallback(cfg, testPipeline()))
}
