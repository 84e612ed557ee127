package rest

import (
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/nvkalinin/fantasy-calendar/almanac"
	"github.com/nvkalinin/fantasy-calendar/calendar"
	"github.com/nvkalinin/fantasy-calendar/store"
	"github.com/nvkalinin/fantasy-calendar/store/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testOpts = Opts{
	LogRequests: false,
	AdminPasswd: "pass",
	RateLimiter: true,
	ReqLimit:    100,
	LimitWindow: 1 * time.Second,
}

var cfg = calendar.Default()

func newTestServer(t *testing.T, backup Backuper) *httptest.Server {
	mem := engine.NewMemory()
	alm := almanac.New(almanac.Opts{
		Config: cfg,
		Store:  mem,
		Today:  cfg.MustDate(1318, 1, 1),
	})

	rest := &Server{Config: cfg, Almanac: alm, Backup: backup, Opts: testOpts}
	srv := httptest.NewServer(rest.routes())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (int, string) {
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func adminReq(t *testing.T, method, url, body, passwd string) (int, string) {
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.SetBasicAuth("admin", passwd)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(respBody)
}

func TestServer_Ping(t *testing.T) {
	srv := newTestServer(t, nil)

	status, _ := get(t, srv.URL+"/ping")
	assert.Equal(t, 200, status)
}

func TestServer_Day(t *testing.T) {
	srv := newTestServer(t, nil)

	// Нормальный случай.
	status, body := get(t, srv.URL+"/api/cal/0/1/1")
	require.Equal(t, 200, status)

	day := struct {
		Date struct {
			Text string `json:"text"`
		} `json:"date"`
		Weekday string `json:"weekday"`
		Times   struct {
			Salos struct {
				RiseAt string `json:"riseAt"`
				SetAt  string `json:"setAt"`
			} `json:"salos"`
		} `json:"times"`
		Salos struct {
			Name string `json:"name"`
		} `json:"salos"`
	}{}
	require.NoError(t, json.Unmarshal([]byte(body), &day))
	assert.Equal(t, "1 Naeril, 0 YD", day.Date.Text)
	assert.Equal(t, "Aesdin", day.Weekday)
	assert.Equal(t, "8:00 AM", day.Times.Salos.RiseAt)
	assert.Equal(t, "6:00 PM", day.Times.Salos.SetAt)
	assert.Equal(t, "first quarter", day.Salos.Name)

	// Отрицательный год допустим.
	status, _ = get(t, srv.URL+"/api/cal/-20/13/32")
	assert.Equal(t, 200, status)

	// Невалидные даты.
	status, body = get(t, srv.URL+"/api/cal/1318/3/20")
	assert.Equal(t, 400, status)
	assert.JSONEq(t, `{"msg": "invalid day"}`, body)

	status, body = get(t, srv.URL+"/api/cal/1318/14/1")
	assert.Equal(t, 400, status)
	assert.JSONEq(t, `{"msg": "invalid month"}`, body)

	status, _ = get(t, srv.URL+"/api/cal/abc/1/1")
	assert.Equal(t, 400, status)
}

func TestServer_Month(t *testing.T) {
	srv := newTestServer(t, nil)

	status, body := get(t, srv.URL+"/api/cal/1318/1?d=5")
	require.Equal(t, 200, status)

	month := struct {
		Label    string   `json:"label"`
		Weekdays []string `json:"weekdays"`
		Cells    []struct {
			Day      int    `json:"day"`
			Place    string `json:"place"`
			Selected bool   `json:"selected"`
			Today    bool   `json:"today"`
		} `json:"cells"`
	}{}
	require.NoError(t, json.Unmarshal([]byte(body), &month))
	assert.Equal(t, "Naeril, 1318 YD", month.Label)
	assert.Len(t, month.Weekdays, 7)
	require.Len(t, month.Cells, 42)

	assert.Equal(t, "prev", month.Cells[0].Place)
	assert.Equal(t, 28, month.Cells[0].Day)
	assert.True(t, month.Cells[5].Today)
	assert.True(t, month.Cells[9].Selected)
	assert.Equal(t, "next", month.Cells[41].Place)

	status, _ = get(t, srv.URL+"/api/cal/1318/14")
	assert.Equal(t, 400, status)

	status, _ = get(t, srv.URL+"/api/cal/1318/3?d=20")
	assert.Equal(t, 400, status)
}

func TestServer_Today(t *testing.T) {
	srv := newTestServer(t, nil)

	status, body := get(t, srv.URL+"/api/today")
	assert.Equal(t, 200, status)
	assert.Contains(t, body, `"text":"1 Naeril, 1318 YD"`)

	status, body = adminReq(t, http.MethodPut, srv.URL+"/api/admin/today/1320/2/5", "", "pass")
	assert.Equal(t, 200, status)
	assert.Contains(t, body, `"text":"5 Golus, 1320 YD"`)

	status, body = adminReq(t, http.MethodPost, srv.URL+"/api/admin/today/advance?days=28", "", "pass")
	assert.Equal(t, 200, status)
	assert.Contains(t, body, `"text":"1 Abhainn, 1320 YD"`)

	status, body = get(t, srv.URL+"/api/today")
	assert.Equal(t, 200, status)
	assert.Contains(t, body, `"text":"1 Abhainn, 1320 YD"`)

	status, _ = adminReq(t, http.MethodPost, srv.URL+"/api/admin/today/advance?days=x", "", "pass")
	assert.Equal(t, 400, status)

	status, body = adminReq(t, http.MethodPost, srv.URL+"/api/admin/today/advance?days=1000000000000", "", "pass")
	assert.Equal(t, 400, status)
	assert.Contains(t, body, "days must be within")

	status, body = adminReq(t, http.MethodPost, srv.URL+"/api/admin/today/advance?days=-1000001", "", "pass")
	assert.Equal(t, 400, status)

	// Сдвиг на границе диапазона: 1000000 = 2739*365 + 265 дней.
	status, body = adminReq(t, http.MethodPost, srv.URL+"/api/admin/today/advance?days=1000000", "", "pass")
	assert.Equal(t, 200, status)
	assert.Contains(t, body, `"year":4059`)
}

func TestServer_Parse(t *testing.T) {
	srv := newTestServer(t, nil)

	status, body := get(t, srv.URL+"/api/parse?q=5+Golus+1320")
	assert.Equal(t, 200, status)
	assert.Contains(t, body, `"text":"5 Golus, 1320 YD"`)
	assert.Contains(t, body, `"ok":true`)

	// Относительно заданной даты.
	status, body = get(t, srv.URL+"/api/parse?q=7+golus&y=1400&m=1&d=1")
	assert.Equal(t, 200, status)
	assert.Contains(t, body, `"text":"7 Golus, 1400 YD"`)

	// Опечатка: дата не меняется, но есть подсказка.
	status, body = get(t, srv.URL+"/api/parse?q=5+Golsu+1+2+3")
	assert.Equal(t, 200, status)
	assert.Contains(t, body, `"ok":false`)
	assert.Contains(t, body, `"text":"1 Naeril, 1318 YD"`)
	assert.Contains(t, body, `"Golsu":"Golus"`)

	status, _ = get(t, srv.URL+"/api/parse?q=1&y=1&m=14&d=1")
	assert.Equal(t, 400, status)
}

func TestServer_Notes(t *testing.T) {
	srv := newTestServer(t, nil)
	url := srv.URL + "/api/admin/notes/1318/1/10"

	// Без пароля.
	status, _ := adminReq(t, http.MethodPut, url, `{"text": "ярмарка"}`, "wrong")
	assert.Equal(t, 401, status)

	status, body := adminReq(t, http.MethodPut, url, `{"text": "ярмарка"}`, "pass")
	assert.Equal(t, 200, status)
	assert.JSONEq(t, `{"stored": true}`, body)

	status, body = get(t, srv.URL+"/api/cal/1318/1/10")
	assert.Equal(t, 200, status)
	assert.Contains(t, body, `"text":"ярмарка"`)

	_, body = get(t, srv.URL+"/api/cal/1318/1")
	assert.Contains(t, body, `"hasNotes":true`)

	// Пустая заметка удаляет.
	status, body = adminReq(t, http.MethodPut, url, `{"text": "<div><br></div>"}`, "pass")
	assert.Equal(t, 200, status)
	assert.JSONEq(t, `{"stored": false}`, body)

	_, body = get(t, srv.URL+"/api/cal/1318/1/10")
	assert.NotContains(t, body, `"note"`)

	_, _ = adminReq(t, http.MethodPut, url, `{"text": "ярмарка"}`, "pass")
	status, _ = adminReq(t, http.MethodDelete, url, "", "pass")
	assert.Equal(t, 200, status)
	_, body = get(t, srv.URL+"/api/cal/1318/1/10")
	assert.NotContains(t, body, `"note"`)

	status, _ = adminReq(t, http.MethodPut, url, `not json`, "pass")
	assert.Equal(t, 400, status)

	status, _ = adminReq(t, http.MethodPut, srv.URL+"/api/admin/notes/1318/3/25", `{"text": "x"}`, "pass")
	assert.Equal(t, 400, status)
}

func TestServer_Backup(t *testing.T) {
	srv := newTestServer(t, nil)
	status, _ := adminReq(t, http.MethodGet, srv.URL+"/api/admin/backup", "", "pass")
	assert.Equal(t, 400, status)

	dir := t.TempDir()
	b, err := engine.NewBolt(dir + "/notes.bolt")
	require.NoError(t, err)
	defer b.Close()
	require.NoError(t, b.PutNote(cfg.MustDate(1318, 1, 1), store.Note{Text: "Новый год"}))

	srv = newTestServer(t, b)
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/admin/backup", http.NoBody)
	require.NoError(t, err)
	req.SetBasicAuth("admin", "pass")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "notes_")

	gz, err := gzip.NewReader(resp.Body)
	require.NoError(t, err)
	data, err := io.ReadAll(gz)
	require.NoError(t, err)

	// Восстановленная БД содержит заметку.
	require.NoError(t, os.WriteFile(dir+"/restored.bolt", data, 0600))
	restored, err := engine.NewBolt(dir + "/restored.bolt")
	require.NoError(t, err)
	defer restored.Close()

	n, ok := restored.FindNote(cfg.MustDate(1318, 1, 1))
	assert.True(t, ok)
	assert.Equal(t, "Новый год", n.Text)
}

func TestServer_adminDisabled(t *testing.T) {
	rest := &Server{
		Config:  cfg,
		Almanac: almanac.New(almanac.Opts{Config: cfg, Store: engine.NewMemory()}),
		Opts:    Opts{},
	}
	srv := httptest.NewServer(rest.routes())
	defer srv.Close()

	status, _ := adminReq(t, http.MethodPut, srv.URL+"/api/admin/today/1/1/1", "", "")
	assert.Equal(t, 404, status)
}
