package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/catalog/internal/catalog"
	"github.com/JonMunkholm/catalog/internal/config"
	"github.com/JonMunkholm/catalog/internal/ingest"
	"github.com/JonMunkholm/catalog/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "secret-key"

const testCSV = "product_id,name,category,subcategory,price,age_min,age_max,materials,stock_status,image_1\n" +
	"P1,Pikler Triangle,Climbing & Active Play,Pikler Triangles,49.99,12,72,Beech Wood,In Stock,http://a/1.jpg\n" +
	"P2,Floor Bed,Little Dreamers,Floor Beds,150,18,120,Pine,Out of Stock,http://a/2.jpg\n" +
	"P3,Balance Board,Climbing & Active Play,Balance Boards,89,36,144,Birch Plywood,In Stock,http://a/3.jpg\n"

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{RequestTimeout: 5 * time.Second},
		Catalog:  config.CatalogConfig{LoadTimeout: 5 * time.Second},
		Upload:   config.UploadConfig{MaxFileSize: 1 << 20, Timeout: 5 * time.Second},
		Rate:     config.RateLimitConfig{Enabled: false},
		Security: config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{testAPIKey}, EnableCSP: true},
	}
}

type stubSource struct {
	csv string
	err error
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Load(ctx context.Context) (ingest.Result, error) {
	if s.err != nil {
		return ingest.Result{}, s.err
	}
	pl := ingest.NewPipeline(ingest.Options{Mappings: ingest.DefaultMappings(), Logger: slog.New(slog.DiscardHandler)})
	return pl.Run(ctx, strings.NewReader(s.csv))
}

// newTestServer returns a server over a catalog loaded with testCSV.
func newTestServer(t *testing.T, cfg *config.Config, src *stubSource) (*Server, *service.Catalog) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	opts := service.Options{
		Pipeline: ingest.NewPipeline(ingest.Options{Mappings: ingest.DefaultMappings(), Logger: logger}),
		Logger:   logger,
	}
	if src != nil {
		opts.Source = src
	}
	cat := service.New(opts)
	_, err := cat.Ingest(context.Background(), "seed.csv", strings.NewReader(testCSV), 0)
	require.NoError(t, err)

	srv := NewServer(cat, cfg)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return srv, cat
}

func do(t *testing.T, srv *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, srv *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, srv, httptest.NewRequest(http.MethodGet, target, nil))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

type productPage struct {
	Products []catalog.Product `json:"products"`
	Total    int               `json:"total"`
	Offset   int               `json:"offset"`
	Limit    int               `json:"limit"`
}

func productIDs(t *testing.T, rec *httptest.ResponseRecorder) []string {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var page productPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	ids := make([]string, len(page.Products))
	for i, p := range page.Products {
		ids[i] = p.ID
	}
	return ids
}

func TestHealth(t *testing.T) {
	srv, cat := newTestServer(t, testConfig(), nil)

	rec := get(t, srv, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, cat.Snapshot().ID, body.SnapshotID)
	assert.Equal(t, 3, body.Products)

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestProducts(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), nil)

	tests := []struct {
		name   string
		target string
		want   []string
	}{
		{"all in catalog order", "/api/products", []string{"P1", "P2", "P3"}},
		{"category", "/api/products?category=little-dreamers", []string{"P2"}},
		{"category list", "/api/products?category=little-dreamers,brave-explorers", []string{"P1", "P2", "P3"}},
		{"age range", "/api/products?age=0-12", []string{"P1"}},
		{"repeated age ranges", "/api/products?age=0-12&age=130-200", []string{"P1", "P3"}},
		{"price range inclusive", "/api/products?price_min=49.99&price_max=89", []string{"P1", "P3"}},
		{"price min only", "/api/products?price_min=100", []string{"P2"}},
		{"material", "/api/products?material=birch", []string{"P3"}},
		{"in stock", "/api/products?in_stock=true", []string{"P1", "P3"}},
		{"search", "/api/products?q=bed", []string{"P2"}},
		{"sort by price desc", "/api/products?sort=price&dir=desc", []string{"P2", "P3", "P1"}},
		{"sort by name", "/api/products?sort=name", []string{"P3", "P2", "P1"}},
		{"paging", "/api/products?sort=price&offset=1&limit=1", []string{"P3"}},
		{"combined", "/api/products?category=brave-explorers&in_stock=1&sort=price&dir=desc", []string{"P3", "P1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, productIDs(t, get(t, srv, tt.target)))
		})
	}
}

func TestProducts_TotalBeforePaging(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), nil)

	rec := get(t, srv, "/api/products?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var page productPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Products, 2)
	assert.Equal(t, 2, page.Limit)
}

func TestProducts_BadParameters(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), nil)

	tests := []struct {
		name     string
		target   string
		wantCode string
	}{
		{"unsupported sort", "/api/products?sort=rating", "QRY001"},
		{"newest without dates", "/api/products?sort=newest", "QRY001"},
		{"bad age", "/api/products?age=old", "QRY002"},
		{"inverted age", "/api/products?age=36-12", "QRY002"},
		{"bad price", "/api/products?price_min=cheap", "QRY002"},
		{"inverted price", "/api/products?price_min=100&price_max=10", "QRY002"},
		{"bad in_stock", "/api/products?in_stock=maybe", "QRY002"},
		{"negative offset", "/api/products?offset=-1", "QRY002"},
		{"limit too large", "/api/products?limit=100000", "QRY002"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, srv, tt.target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, rec).Code)
		})
	}
}

func TestProduct(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), nil)

	rec := get(t, srv, "/api/products/P3")
	require.Equal(t, http.StatusOK, rec.Code)
	var p catalog.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "Balance Board", p.Name)
	assert.Equal(t, "balance-boards", p.Subcategory)
	assert.Equal(t, "89", p.Price.String())

	rec = get(t, srv, "/api/products/NOPE")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "QRY003", decodeError(t, rec).Code)
}

func TestCategories(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), nil)

	rec := get(t, srv, "/api/categories")
	require.Equal(t, http.StatusOK, rec.Code)

	var cats []catalog.Category
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cats))

	counts := map[string]int{}
	for _, c := range cats {
		counts[c.Slug] = c.ProductCount
		for _, child := range c.Children {
			counts[c.Slug+"/"+child.Slug] = child.ProductCount
		}
	}
	assert.Equal(t, 2, counts["brave-explorers"])
	assert.Equal(t, 1, counts["brave-explorers/balance-boards"])
	assert.Equal(t, 1, counts["little-dreamers"])
	assert.Equal(t, 1, counts["little-dreamers/floor-beds"])
}

func TestReportAndStatus(t *testing.T) {
	srv, cat := newTestServer(t, testConfig(), nil)

	rec := get(t, srv, "/api/catalog/report")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap struct {
		ID     string        `json:"id"`
		Source string        `json:"source"`
		Report ingest.Report `json:"report"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, cat.Snapshot().ID, snap.ID)
	assert.Equal(t, "upload:seed.csv", snap.Source)
	assert.Equal(t, 3, snap.Report.Accepted)

	rec = get(t, srv, "/api/catalog/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var status service.LimiterStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, 0, status.Active)
}

func uploadRequest(t *testing.T, field, filename, body string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = io.WriteString(part, body)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/catalog/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-API-Key", testAPIKey)
	return req
}

func TestUpload(t *testing.T) {
	srv, cat := newTestServer(t, testConfig(), nil)

	csv := "product_id,name,category,price,image_1\n" +
		"N1,Toy Chest,Tidy Nests,100,http://a/n1.jpg\n" +
		"N1,Toy Chest Again,Tidy Nests,100,http://a/n1.jpg\n" +
		"N2,Bad Row,Tidy Nests\n"

	rec := do(t, srv, uploadRequest(t, "file", "new.csv", csv))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body replaceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Products)
	assert.Equal(t, "upload:new.csv", body.Source)
	assert.Equal(t, 1, body.Report.Duplicates)
	assert.Equal(t, 1, body.Report.Malformed)

	assert.Equal(t, body.SnapshotID, cat.Snapshot().ID)
	assert.Equal(t, []string{"N1"}, productIDs(t, get(t, srv, "/api/products")))
}

func TestUpload_Rejected(t *testing.T) {
	tests := []struct {
		name     string
		req      func(t *testing.T) *http.Request
		status   int
		wantCode string
	}{
		{"no header", func(t *testing.T) *http.Request {
			return uploadRequest(t, "file", "x.csv", "")
		}, http.StatusUnprocessableEntity, "ING001"},
		{"header only", func(t *testing.T) *http.Request {
			return uploadRequest(t, "file", "x.csv", "product_id,name\n")
		}, http.StatusUnprocessableEntity, "FILE005"},
		{"wrong field", func(t *testing.T) *http.Request {
			return uploadRequest(t, "upload", "x.csv", testCSV)
		}, http.StatusBadRequest, "FILE004"},
		{"not multipart", func(t *testing.T) *http.Request {
			req := httptest.NewRequest(http.MethodPost, "/api/catalog/upload", strings.NewReader(testCSV))
			req.Header.Set("X-API-Key", testAPIKey)
			return req
		}, http.StatusBadRequest, "FILE004"},
		{"too large", func(t *testing.T) *http.Request {
			return uploadRequest(t, "file", "x.csv", testCSV+strings.Repeat("x", 2<<20))
		}, http.StatusRequestEntityTooLarge, "FILE001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, cat := newTestServer(t, testConfig(), nil)
			before := cat.Snapshot()

			rec := do(t, srv, tt.req(t))
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantCode, decodeError(t, rec).Code)
			assert.Same(t, before, cat.Snapshot())
		})
	}
}

func TestUpload_RequiresAPIKey(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), nil)

	req := uploadRequest(t, "file", "x.csv", testCSV)
	req.Header.Del("X-API-Key")
	assert.Equal(t, http.StatusUnauthorized, do(t, srv, req).Code)

	req = uploadRequest(t, "file", "x.csv", testCSV)
	req.Header.Set("X-API-Key", "wrong")
	assert.Equal(t, http.StatusForbidden, do(t, srv, req).Code)
}

func TestReload(t *testing.T) {
	src := &stubSource{csv: "product_id,name,category,price,image_1\nR1,Rocker,Brave Explorers,60,http://a/r.jpg\n"}
	srv, _ := newTestServer(t, testConfig(), src)

	req := httptest.NewRequest(http.MethodPost, "/api/catalog/reload", nil)
	req.Header.Set("X-API-Key", testAPIKey)
	rec := do(t, srv, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"R1"}, productIDs(t, get(t, srv, "/api/products")))

	src.err = errors.New("fetch catalog: GET http://x (status: 500)")
	req = httptest.NewRequest(http.MethodPost, "/api/catalog/reload", nil)
	req.Header.Set("X-API-Key", testAPIKey)
	rec = do(t, srv, req)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "SRC002", decodeError(t, rec).Code)
	assert.Equal(t, []string{"R1"}, productIDs(t, get(t, srv, "/api/products")))
}

func TestReload_NoSource(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/catalog/reload", nil)
	req.Header.Set("X-API-Key", testAPIKey)
	rec := do(t, srv, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "SRC001", decodeError(t, rec).Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2, UploadLimit: 1}
	srv, _ := newTestServer(t, cfg, nil)

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, get(t, srv, "/healthz").Code)
	}
	rec := get(t, srv, "/healthz")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE001", decodeError(t, rec).Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	other := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	other.RemoteAddr = "198.51.100.7:1234"
	assert.Equal(t, http.StatusOK, do(t, srv, other).Code, "limits are per client")
}

func TestRateLimiter_Evict(t *testing.T) {
	rl := newRateLimiter(1)
	now := time.Now()

	assert.True(t, rl.allow("1.2.3.4", now))
	assert.False(t, rl.allow("1.2.3.4", now))

	rl.evict(now.Add(time.Hour))
	assert.Empty(t, rl.visitors)
	assert.True(t, rl.allow("1.2.3.4", now.Add(time.Hour)))
}

func TestUnknownRoute(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), nil)

	rec := get(t, srv, "/api/nothing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "REQ003", decodeError(t, rec).Code)

	rec = do(t, srv, httptest.NewRequest(http.MethodDelete, "/api/products", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "REQ004", decodeError(t, rec).Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{catalog.ErrUnsupportedSortKey, http.StatusBadRequest},
		{catalog.ErrProductNotFound, http.StatusNotFound},
		{service.ErrTooManyIngests, http.StatusServiceUnavailable},
		{service.ErrNoHeader, http.StatusUnprocessableEntity},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
