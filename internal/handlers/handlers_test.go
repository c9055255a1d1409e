package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"yell/internal/repository"
	"yell/internal/service"
	"yell/internal/worker"
	"yell/pkg/database"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := RegisterValidators(); err != nil {
		panic(err)
	}
}

type staticProbe struct {
	result worker.ProbeResult
}

func (p staticProbe) LastResult() worker.ProbeResult { return p.result }

func newRouter(t *testing.T, db *gorm.DB, probe StoreProbe) *gin.Engine {
	t.Helper()

	svc := service.NewEntryService(repository.NewEntryRepository(db), nil, service.EntryServiceConfig{})

	r := gin.New()
	NewEntryHandler(svc).RegisterRoutes(r)
	NewHealthHandler(probe, svc, nil).RegisterRoutes(r)
	return r
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Discard,
		NowFunc: database.Now,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	return newRouter(t, db, staticProbe{})
}

func request(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var body []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

const cafeBody = `{
	"title": "Cafe Nord",
	"description": "Family run",
	"profile_image": "https://img.example/cafe.png",
	"location": "Mitte",
	"mobiles": ["+49 30 1234"],
	"reaching_video": null,
	"social": {"instagram": "@cafenord"},
	"type": {"main": "food", "sub": "cafe"}
}`

func createEntry(t *testing.T, r http.Handler, title string) map[string]interface{} {
	t.Helper()
	rec := request(r, http.MethodPost, "/entries", `{"title": "`+title+`", "type": {"main": "food", "sub": "cafe"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode(t, rec)
}

func TestRoot(t *testing.T) {
	r := newTestRouter(t)

	rec := request(r, http.MethodGet, "/", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Entry Store Service is running", decode(t, rec)["message"])
}

func TestCreateEntry(t *testing.T) {
	r := newTestRouter(t)

	rec := request(r, http.MethodPost, "/entries", cafeBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.NotZero(t, body["id"])
	assert.Equal(t, "Cafe Nord", body["title"])
	assert.Equal(t, "Mitte", body["location"])
	assert.Nil(t, body["reaching_video"])
	assert.Equal(t, []interface{}{"+49 30 1234"}, body["mobiles"])
	assert.Equal(t, "@cafenord", body["social"].(map[string]interface{})["instagram"])
	assert.Equal(t, map[string]interface{}{"main": "food", "sub": "cafe"}, body["type"])
	assert.Equal(t, body["created_at"], body["updated_at"])

	// the stored entry reads back identically
	get := request(r, http.MethodGet, "/entries/1", "")
	require.Equal(t, http.StatusOK, get.Code)
	assert.JSONEq(t, rec.Body.String(), get.Body.String())
}

func TestCreateEntry_Defaults(t *testing.T) {
	r := newTestRouter(t)

	body := createEntry(t, r, "Bare")

	assert.Equal(t, []interface{}{}, body["mobiles"])
	assert.NotNil(t, body["social"])
	assert.Nil(t, body["description"])
}

func TestCreateEntry_Rejected(t *testing.T) {
	r := newTestRouter(t)

	cases := map[string]string{
		"empty body":     ``,
		"malformed":      `{"title": `,
		"missing title":  `{"type": {"main": "food", "sub": "cafe"}}`,
		"blank title":    `{"title": "   ", "type": {"main": "food", "sub": "cafe"}}`,
		"missing type":   `{"title": "Cafe"}`,
		"blank type sub": `{"title": "Cafe", "type": {"main": "food", "sub": ""}}`,
		"wrong mobiles":  `{"title": "Cafe", "mobiles": "+49", "type": {"main": "food", "sub": "cafe"}}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := request(r, http.MethodPost, "/entries", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Contains(t, decode(t, rec), "error")
		})
	}

	list := request(r, http.MethodGet, "/entries", "")
	assert.Empty(t, decodeList(t, list))
}

func TestListEntries(t *testing.T) {
	r := newTestRouter(t)
	for _, title := range []string{"A", "B", "C"} {
		createEntry(t, r, title)
	}

	titles := func(rec *httptest.ResponseRecorder) []string {
		var out []string
		for _, e := range decodeList(t, rec) {
			out = append(out, e["title"].(string))
		}
		return out
	}

	assert.Equal(t, []string{"C", "B", "A"}, titles(request(r, http.MethodGet, "/entries", "")))
	assert.Equal(t, []string{"C", "B"}, titles(request(r, http.MethodGet, "/entries?limit=2", "")))
	assert.Equal(t, []string{"A"}, titles(request(r, http.MethodGet, "/entries?limit=2&offset=2", "")))
	assert.Equal(t, []string{"C", "B", "A"}, titles(request(r, http.MethodGet, "/entries?limit=0", "")))
	assert.Equal(t, []string{"C", "B", "A"}, titles(request(r, http.MethodGet, "/entries?limit=abc&offset=-3", "")))

	rec := request(r, http.MethodGet, "/entries?offset=10", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", rec.Body.String())
}

func TestGetEntry_NotFound(t *testing.T) {
	r := newTestRouter(t)

	for _, path := range []string{"/entries/42", "/entries/abc", "/entries/0", "/entries/-1"} {
		rec := request(r, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, "Entry not found", decode(t, rec)["error"])
	}
}

func TestUpdateEntry(t *testing.T) {
	r := newTestRouter(t)
	create := request(r, http.MethodPost, "/entries", cafeBody)
	require.Equal(t, http.StatusOK, create.Code)
	created := decode(t, create)

	rec := request(r, http.MethodPut, "/entries/1", `{"location": "Kreuzberg", "description": null}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode(t, rec)

	assert.Equal(t, "Kreuzberg", updated["location"])
	assert.Nil(t, updated["description"])
	for _, field := range []string{"id", "title", "profile_image", "mobiles", "social", "type", "created_at"} {
		assert.Equal(t, created[field], updated[field], field)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, created["updated_at"].(string))
	require.NoError(t, err)
	updatedAt, err := time.Parse(time.RFC3339Nano, updated["updated_at"].(string))
	require.NoError(t, err)
	assert.True(t, updatedAt.After(createdAt))
}

func TestUpdateEntry_EmptyUpdate(t *testing.T) {
	r := newTestRouter(t)
	created := createEntry(t, r, "Cafe")

	for _, body := range []string{`{}`, ``, `{"unknown": 1}`} {
		rec := request(r, http.MethodPut, "/entries/1", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "No fields to update", decode(t, rec)["error"])
	}

	get := decode(t, request(r, http.MethodGet, "/entries/1", ""))
	assert.Equal(t, created["updated_at"], get["updated_at"])
}

func TestUpdateEntry_NotFound(t *testing.T) {
	r := newTestRouter(t)

	for _, body := range []string{`{"title": "x"}`, `{}`, ``, `{"title": `, `{"mobiles": "+49"}`, `{"title": null}`} {
		rec := request(r, http.MethodPut, "/entries/99", body)
		assert.Equal(t, http.StatusNotFound, rec.Code, body)
	}
}

func TestUpdateEntry_Rejected(t *testing.T) {
	r := newTestRouter(t)
	createEntry(t, r, "Cafe")

	for _, body := range []string{
		`{"title": null}`,
		`{"title": " "}`,
		`{"type": null}`,
		`{"type": {"main": "food"}}`,
		`{"mobiles": "+49"}`,
	} {
		rec := request(r, http.MethodPut, "/entries/1", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestDeleteEntry(t *testing.T) {
	r := newTestRouter(t)
	createEntry(t, r, "Cafe")

	rec := request(r, http.MethodDelete, "/entries/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Entry deleted successfully", decode(t, rec)["message"])

	assert.Equal(t, http.StatusNotFound, request(r, http.MethodGet, "/entries/1", "").Code)
	assert.Equal(t, http.StatusNotFound, request(r, http.MethodDelete, "/entries/1", "").Code)
}

func TestExportEntries(t *testing.T) {
	r := newTestRouter(t)
	createEntry(t, r, "Cafe")

	rec := request(r, http.MethodGet, "/export/entries", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment; filename=entries_export_")
	assert.Contains(t, rec.Body.String(), "Cafe")

	rec = request(r, http.MethodGet, "/export/entries?format=pdf", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStoreErrorIsInternal(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	r := newRouter(t, db, staticProbe{})

	mock.ExpectQuery(`SELECT \* FROM "entries"`).WillReturnError(errors.New("connection refused"))

	rec := request(r, http.MethodGet, "/entries", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "internal server error", body["error"])
	assert.Contains(t, body["message"], "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealth(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	t.Run("before first probe", func(t *testing.T) {
		rec := request(newRouter(t, db, staticProbe{}), http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, "unknown", body["services"].(map[string]interface{})["database"].(map[string]interface{})["status"])
	})

	t.Run("healthy", func(t *testing.T) {
		probe := staticProbe{worker.ProbeResult{Healthy: true, CheckedAt: time.Now()}}
		rec := request(newRouter(t, db, probe), http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.EqualValues(t, 0, body["entries"])
		services := body["services"].(map[string]interface{})
		assert.Equal(t, "connected", services["database"].(map[string]interface{})["status"])
		assert.Equal(t, "disabled", services["cache"].(map[string]interface{})["status"])
	})

	t.Run("store down", func(t *testing.T) {
		probe := staticProbe{worker.ProbeResult{Healthy: false, CheckedAt: time.Now(), Error: "dial tcp: refused"}}
		rec := request(newRouter(t, db, probe), http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "unavailable", body["status"])
		assert.NotContains(t, body, "entries")
	})
}
