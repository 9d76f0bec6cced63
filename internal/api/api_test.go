package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"dirsage/internal/auth"
	"dirsage/internal/cleanup"
	"dirsage/internal/database"
	"dirsage/internal/disk"
	"dirsage/internal/execdir"
	"dirsage/internal/fsops"
	"dirsage/internal/scan"
)

type mockEraser struct {
	mock.Mock
}

func (m *mockEraser) DeleteAll(paths []string) error {
	args := m.Called(paths)
	return args.Error(0)
}

type mockHistory struct {
	mock.Mock
}

func (m *mockHistory) GetDeletionsPaginated(f database.Filter) ([]database.DeletionRecord, int, error) {
	args := m.Called(f)
	records, _ := args.Get(0).([]database.DeletionRecord)
	return records, args.Int(1), args.Error(2)
}

func (m *mockHistory) GetDeletionStats(days int) (*database.DeletionStats, error) {
	args := m.Called(days)
	stats, _ := args.Get(0).(*database.DeletionStats)
	return stats, args.Error(1)
}

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
}

func jsonRequest(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestListDirectory(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "d")
	writeFile(t, filepath.Join(dir, "a"), 10)
	writeFile(t, filepath.Join(dir, "b", "c"), 20)

	h := NewHandler(Options{Scanner: scan.NewScanner(nil, nil)})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/directory?path="+dir, nil)
	rec := httptest.NewRecorder()
	h.ListDirectory(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var entries []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 3)

	assert.Equal(t, "..", entries[0]["name"])
	assert.Equal(t, "-", entries[0]["human_readable_size"])
	assert.Equal(t, "b", entries[1]["name"])
	assert.Equal(t, true, entries[1]["is_dir"])
	assert.Equal(t, float64(20), entries[1]["size_bytes"])
	assert.Equal(t, "20 B", entries[1]["human_readable_size"])
	assert.Equal(t, "a", entries[2]["name"])
	assert.Equal(t, false, entries[2]["is_dir"])
}

func TestListDirectoryErrors(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "plain.txt")
	writeFile(t, file, 1)
	missing := filepath.Join(root, "missing")

	h := NewHandler(Options{Scanner: scan.NewScanner(nil, nil)})

	tests := []struct {
		name    string
		query   string
		status  int
		message string
	}{
		{"no path", "", http.StatusNotFound, "Path does not exist: "},
		{"missing", "?path=" + missing, http.StatusNotFound, "Path does not exist: " + missing},
		{"not a directory", "?path=" + file, http.StatusInternalServerError, "Failed to read directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ListDirectory(rec, httptest.NewRequest(http.MethodGet, "/api/v1/directory"+tt.query, nil))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, decodeError(t, rec))
		})
	}
}

func TestScanStatus(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, scanStatus(&scan.Error{Kind: scan.KindUnresolvable}))
	assert.Equal(t, http.StatusNotFound, scanStatus(&scan.Error{Kind: scan.KindNotFound}))
	assert.Equal(t, http.StatusInternalServerError, scanStatus(&scan.Error{Kind: scan.KindReadFailure}))
	assert.Equal(t, http.StatusInternalServerError, scanStatus(errors.New("boom")))
}

func TestExecutableDirectory(t *testing.T) {
	h := NewHandler(Options{})
	h.execDir = func() (string, error) { return "/opt/dirsage/bin", nil }

	rec := httptest.NewRecorder()
	h.ExecutableDirectory(rec, httptest.NewRequest(http.MethodGet, "/api/v1/executable-directory", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body ExecutableDirectoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "/opt/dirsage/bin", body.Path)

	h.execDir = func() (string, error) { return "", execdir.ErrUnavailable }
	rec = httptest.NewRecorder()
	h.ExecutableDirectory(rec, httptest.NewRequest(http.MethodGet, "/api/v1/executable-directory", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to get executable directory", decodeError(t, rec))
}

func TestDeletePathsRemovesFiles(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a")
	b := filepath.Join(root, "b")
	writeFile(t, a, 1)
	writeFile(t, filepath.Join(b, "c"), 1)

	h := NewHandler(Options{Eraser: cleanup.NewEraser(nil)})

	body := `{"paths":["` + a + `","` + b + `"]}`
	rec := httptest.NewRecorder()
	h.DeletePaths(rec, jsonRequest(http.MethodPost, "/api/v1/delete", strings.NewReader(body)))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NoFileExists(t, a)
	assert.NoDirExists(t, b)
}

func TestDeletePathsErrorMapping(t *testing.T) {
	root := t.TempDir()
	missing := filepath.Join(root, "gone")
	file := filepath.Join(root, "f")
	writeFile(t, file, 1)

	fake := &fsops.FakeDeleter{Fail: map[string]error{file: os.ErrPermission}}
	failing := cleanup.NewEraser(nil)
	failing.SetDeleter(fake)

	tests := []struct {
		name    string
		eraser  Eraser
		body    string
		status  int
		message string
	}{
		{"bad json", failing, "{", http.StatusBadRequest, "invalid request body"},
		{"missing path", failing, `{"paths":["` + missing + `"]}`, http.StatusNotFound, "Path does not exist: " + missing},
		{"delete failure", failing, `{"paths":["` + file + `"]}`, http.StatusInternalServerError, "Failed to delete file: " + file},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(Options{Eraser: tt.eraser})
			rec := httptest.NewRecorder()
			h.DeletePaths(rec, jsonRequest(http.MethodPost, "/api/v1/delete", strings.NewReader(tt.body)))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, decodeError(t, rec))
		})
	}
}

func TestDeletePathsRequiresJSON(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "keep")
	writeFile(t, target, 1)

	h := NewHandler(Options{Eraser: cleanup.NewEraser(nil)})
	body := `{"paths":["` + target + `"]}`

	for _, ct := range []string{"", "text/plain", "application/x-www-form-urlencoded", "multipart/form-data; boundary=x"} {
		t.Run("content-type "+ct, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/delete", strings.NewReader(body))
			if ct != "" {
				req.Header.Set("Content-Type", ct)
			}
			rec := httptest.NewRecorder()
			h.DeletePaths(rec, req)

			assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
			assert.FileExists(t, target)
		})
	}

	req := jsonRequest(http.MethodPost, "/api/v1/delete", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec := httptest.NewRecorder()
	h.DeletePaths(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NoFileExists(t, target)
}

func TestDeletePathsBlocked(t *testing.T) {
	m := new(mockEraser)
	m.On("DeleteAll", []string{"/etc/passwd"}).Return(&cleanup.Error{Kind: cleanup.KindBlocked, Path: "/etc/passwd"})

	h := NewHandler(Options{Eraser: m})
	rec := httptest.NewRecorder()
	h.DeletePaths(rec, jsonRequest(http.MethodPost, "/api/v1/delete", strings.NewReader(`{"paths":["/etc/passwd"]}`)))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	m.AssertExpectations(t)
}

func TestDeletePathsBodyTooLarge(t *testing.T) {
	h := NewHandler(Options{Eraser: new(mockEraser)})

	req := jsonRequest(http.MethodPost, "/api/v1/delete", strings.NewReader(`{"paths":["/tmp/aaaaaaaaaaaaaaaa"]}`))
	rec := httptest.NewRecorder()
	req.Body = http.MaxBytesReader(rec, req.Body, 8)
	h.DeletePaths(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestDiskUsage(t *testing.T) {
	h := NewHandler(Options{})
	h.diskUsage = func(path string) (*disk.Usage, error) {
		switch path {
		case "/stale":
			return nil, disk.ErrStale
		case "/missing":
			return nil, os.ErrNotExist
		}
		return &disk.Usage{Path: path, TotalBytes: 100, FreeBytes: 40}, nil
	}
	h.allDiskUsage = func() ([]disk.Usage, error) {
		return []disk.Usage{{Path: "/"}, {Path: "/home"}}, nil
	}

	tests := []struct {
		query  string
		status int
	}{
		{"?path=/data", http.StatusOK},
		{"?path=/stale", http.StatusServiceUnavailable},
		{"?path=/missing", http.StatusNotFound},
		{"", http.StatusOK},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.DiskUsage(rec, httptest.NewRequest(http.MethodGet, "/api/v1/disk"+tt.query, nil))
		assert.Equal(t, tt.status, rec.Code, tt.query)
	}

	rec := httptest.NewRecorder()
	h.DiskUsage(rec, httptest.NewRequest(http.MethodGet, "/api/v1/disk", nil))
	var all []disk.Usage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, 2)
}

func TestDeletionsLog(t *testing.T) {
	m := new(mockHistory)
	records := []database.DeletionRecord{{ID: 1, Action: database.ActionDelete, Path: "/tmp/d/a"}}
	m.On("GetDeletionsPaginated", database.Filter{Action: "DELETE", Path: "%/tmp/d%", Limit: 10, Offset: 10}).
		Return(records, 21, nil)

	h := NewHandler(Options{History: m})
	rec := httptest.NewRecorder()
	h.DeletionsLog(rec, httptest.NewRequest(http.MethodGet, "/api/v1/deletions/log?limit=10&page=2&action=delete&path=/tmp/d", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body DeletionsLogResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 21, body.TotalCount)
	assert.Equal(t, 2, body.Page)
	assert.Equal(t, 10, body.PageSize)
	assert.True(t, body.HasMore)
	require.Len(t, body.Entries, 1)
	assert.Equal(t, "/tmp/d/a", body.Entries[0].Path)
	m.AssertExpectations(t)
}

func TestDeletionsLogDefaultsAndEmpty(t *testing.T) {
	m := new(mockHistory)
	m.On("GetDeletionsPaginated", database.Filter{Limit: defaultPageSize}).Return(nil, 0, nil)

	h := NewHandler(Options{History: m})
	rec := httptest.NewRecorder()
	h.DeletionsLog(rec, httptest.NewRequest(http.MethodGet, "/api/v1/deletions/log?limit=5000&page=-1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"entries":[]`)
	m.AssertExpectations(t)
}

func TestHistoryDisabled(t *testing.T) {
	h := NewHandler(Options{})

	rec := httptest.NewRecorder()
	h.DeletionsLog(rec, httptest.NewRequest(http.MethodGet, "/api/v1/deletions/log", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	h.DeletionStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/deletions/stats", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDeletionStats(t *testing.T) {
	m := new(mockHistory)
	m.On("GetDeletionStats", 30).Return(&database.DeletionStats{TotalDeletions: 4, TotalSpaceFreed: 1024}, nil)
	m.On("GetDeletionStats", defaultStatsDays).Return(nil, errors.New("db closed"))

	h := NewHandler(Options{History: m})

	rec := httptest.NewRecorder()
	h.DeletionStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/deletions/stats?days=30", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var stats database.DeletionStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 4, stats.TotalDeletions)
	assert.Equal(t, int64(1024), stats.TotalSpaceFreed)

	rec = httptest.NewRecorder()
	h.DeletionStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/deletions/stats?days=abc", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	m.AssertExpectations(t)
}

func TestHistoryAgainstSQLite(t *testing.T) {
	db, err := database.NewDeletionDB(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer db.Close()

	root := t.TempDir()
	target := filepath.Join(root, "victim")
	writeFile(t, target, 64)

	eraser := cleanup.NewEraser(nil)
	eraser.SetRecorder(db)
	h := NewHandler(Options{Eraser: eraser, History: db})

	rec := httptest.NewRecorder()
	h.DeletePaths(rec, jsonRequest(http.MethodPost, "/api/v1/delete", strings.NewReader(`{"paths":["`+target+`"]}`)))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.DeletionsLog(rec, httptest.NewRequest(http.MethodGet, "/api/v1/deletions/log", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body DeletionsLogResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Entries, 1)
	assert.Equal(t, target, body.Entries[0].Path)
	assert.Equal(t, database.ActionDelete, body.Entries[0].Action)
	assert.Equal(t, int64(64), body.Entries[0].Size)
}

func TestLogin(t *testing.T) {
	jm, err := auth.NewJWTManager("login-secret", time.Hour)
	require.NoError(t, err)

	h := NewHandler(Options{
		Tokens:      jm,
		Credentials: Credentials{Username: "admin", Password: "s3cret"},
	})

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"valid", `{"username":"admin","password":"s3cret"}`, http.StatusOK},
		{"wrong password", `{"username":"admin","password":"nope"}`, http.StatusUnauthorized},
		{"wrong user", `{"username":"root","password":"s3cret"}`, http.StatusUnauthorized},
		{"bad body", `not json`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Login(rec, jsonRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(tt.body)))
			assert.Equal(t, tt.status, rec.Code)

			if tt.status == http.StatusOK {
				var resp LoginResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				claims, err := jm.ValidateToken(resp.Token)
				require.NoError(t, err)
				assert.Equal(t, "admin", claims.Username)
				assert.Equal(t, []string{auth.RoleAdmin}, resp.User.Roles)
			}
		})
	}
}

func TestLoginRequiresJSON(t *testing.T) {
	jm, err := auth.NewJWTManager("login-secret", time.Hour)
	require.NoError(t, err)
	h := NewHandler(Options{Tokens: jm, Credentials: Credentials{Username: "admin", Password: "s3cret"}})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"admin","password":"s3cret"}`))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	h.Login(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestLoginDisabled(t *testing.T) {
	h := NewHandler(Options{})
	rec := httptest.NewRecorder()
	h.Login(rec, jsonRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	Health(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	Health(rec, httptest.NewRequest(http.MethodHead, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}
