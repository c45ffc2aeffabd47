package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"shiftfund/pkg/config"
	"shiftfund/pkg/ocr"
	"shiftfund/pkg/pipeline"
	"shiftfund/pkg/shift"

	"github.com/gin-gonic/gin"
)

// helper to perform requests with auth token
func performRequest(r http.Handler, method, path string, body io.Reader, token string, contentType string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func setupTestServer(t *testing.T) *gin.Engine {
	// integration tests are opt-in. Set DB_DSN_TEST=1 and SHIFTFUND_DATABASE_DSN to run them.
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	gin.SetMode(gin.TestMode)
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	appCfg = cfg
	jwtSecret = []byte("test-secret")
	initDB(cfg.Database.DSN, true)
	_ = os.Setenv("UPLOAD_BASE", t.TempDir())

	cal, err := shift.NewCalendar(cfg.Shifts.Timezone)
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	pipe = pipeline.New(ocr.NewEngine(cfg.OCR.Language), cal)

	r := gin.Default()
	setupRoutes(r)
	return r
}

func TestCampaignFlow(t *testing.T) {
	r := setupTestServer(t)
	username := fmt.Sprintf("user-%d", time.Now().UnixNano())

	// 1. Register
	regBody, _ := json.Marshal(map[string]string{"username": username, "password": "passw0rd"})
	resp := performRequest(r, http.MethodPost, "/register", bytes.NewBuffer(regBody), "", "application/json")
	if resp.Code != 200 {
		t.Fatalf("register failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 2. Login
	resp = performRequest(r, http.MethodPost, "/login", bytes.NewBuffer(regBody), "", "application/json")
	if resp.Code != 200 {
		t.Fatalf("login failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var loginResp map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &loginResp)
	token, _ := loginResp["token"].(string)
	if token == "" {
		t.Fatalf("empty token in login response: %+v", loginResp)
	}

	// 3. Create campaign with a far deadline
	deadline := time.Now().AddDate(0, 1, 0).Format("2006-01-02")
	campBody, _ := json.Marshal(map[string]string{"name": "church fund", "deadline": deadline})
	resp = performRequest(r, http.MethodPost, "/campaigns", bytes.NewBuffer(campBody), token, "application/json")
	if resp.Code != 200 {
		t.Fatalf("create campaign failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var campResp map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &campResp)
	campID := int(campResp["id"].(float64))
	if campID == 0 {
		t.Fatalf("missing campaign id: %+v", campResp)
	}

	// 4. Record an adjustment
	adjBody, _ := json.Marshal(map[string]any{"remove": 25.0})
	resp = performRequest(r, http.MethodPost, fmt.Sprintf("/campaigns/%d/adjustment", campID), bytes.NewBuffer(adjBody), token, "application/json")
	if resp.Code != 200 {
		t.Fatalf("adjustment failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var adjResp map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &adjResp)
	if got := int64(adjResp["adjustment_minor"].(float64)); got != 2500 {
		t.Fatalf("adjustment_minor = %d, want 2500", got)
	}

	// 5. Targets without a snapshot: total is zero, remaining is the adjustment
	resp = performRequest(r, http.MethodGet, fmt.Sprintf("/campaigns/%d/targets", campID), nil, token, "")
	if resp.Code != 200 {
		t.Fatalf("targets failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var tgt map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &tgt)
	if got := int64(tgt["remaining_minor"].(float64)); got != 2500 {
		t.Fatalf("remaining_minor = %d, want 2500", got)
	}
	if days := int(tgt["days_left"].(float64)); days < 1 {
		t.Fatalf("days_left = %d, want >= 1", days)
	}

	// 6. days_left override changes the horizon
	resp = performRequest(r, http.MethodGet, fmt.Sprintf("/campaigns/%d/targets?days_left=5", campID), nil, token, "")
	if resp.Code != 200 {
		t.Fatalf("targets override failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	_ = json.Unmarshal(resp.Body.Bytes(), &tgt)
	if days := int(tgt["days_left"].(float64)); days != 5 {
		t.Fatalf("days_left = %d, want 5", days)
	}

	// 7. Other users cannot see this campaign
	other := username + "-b"
	otherBody, _ := json.Marshal(map[string]string{"username": other, "password": "passw0rd2"})
	if resp = performRequest(r, http.MethodPost, "/register", bytes.NewBuffer(otherBody), "", "application/json"); resp.Code != 200 {
		t.Fatalf("second register failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	resp = performRequest(r, http.MethodPost, "/login", bytes.NewBuffer(otherBody), "", "application/json")
	_ = json.Unmarshal(resp.Body.Bytes(), &loginResp)
	otherToken, _ := loginResp["token"].(string)
	resp = performRequest(r, http.MethodGet, fmt.Sprintf("/campaigns/%d", campID), nil, otherToken, "")
	if resp.Code != http.StatusForbidden {
		t.Fatalf("cross-user read status=%d, want 403", resp.Code)
	}
}

// An upload against a campaign with no deadline and no days_left is a
// configuration error; it must be rejected before the image is stored.
func TestUploadWithoutDeadlineLeavesNoFile(t *testing.T) {
	r := setupTestServer(t)
	username := fmt.Sprintf("nodl-%d", time.Now().UnixNano())

	body, _ := json.Marshal(map[string]string{"username": username, "password": "passw0rd"})
	if resp := performRequest(r, http.MethodPost, "/register", bytes.NewBuffer(body), "", "application/json"); resp.Code != 200 {
		t.Fatalf("register failed status=%d", resp.Code)
	}
	resp := performRequest(r, http.MethodPost, "/login", bytes.NewBuffer(body), "", "application/json")
	var loginResp map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &loginResp)
	token, _ := loginResp["token"].(string)

	campBody, _ := json.Marshal(map[string]string{"name": "no deadline"})
	resp = performRequest(r, http.MethodPost, "/campaigns", bytes.NewBuffer(campBody), token, "application/json")
	if resp.Code != 200 {
		t.Fatalf("create campaign failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var campResp map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &campResp)
	campID := int(campResp["id"].(float64))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "table.png")
	_, _ = fw.Write([]byte("not a real image"))
	_ = mw.Close()
	resp = performRequest(r, http.MethodPost, fmt.Sprintf("/campaigns/%d/snapshots", campID), &buf, token, mw.FormDataContentType())
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("upload status=%d, want 400; body=%s", resp.Code, resp.Body.String())
	}

	entries, err := os.ReadDir(filepath.Join(os.Getenv("UPLOAD_BASE"), "snapshots"))
	if err == nil && len(entries) > 0 {
		t.Fatalf("rejected upload left %d file(s) on disk", len(entries))
	}
}

func TestRefreshRotation(t *testing.T) {
	r := setupTestServer(t)
	username := fmt.Sprintf("rot-%d", time.Now().UnixNano())

	body, _ := json.Marshal(map[string]string{"username": username, "password": "passw0rd"})
	if resp := performRequest(r, http.MethodPost, "/register", bytes.NewBuffer(body), "", "application/json"); resp.Code != 200 {
		t.Fatalf("register failed status=%d", resp.Code)
	}
	resp := performRequest(r, http.MethodPost, "/login", bytes.NewBuffer(body), "", "application/json")
	var loginResp map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &loginResp)
	refresh, _ := loginResp["refresh_token"].(string)
	if refresh == "" {
		t.Fatalf("no refresh token in login response")
	}

	refBody, _ := json.Marshal(map[string]string{"refresh_token": refresh})
	resp = performRequest(r, http.MethodPost, "/refresh", bytes.NewBuffer(refBody), "", "application/json")
	if resp.Code != 200 {
		t.Fatalf("refresh failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// old token was rotated out
	resp = performRequest(r, http.MethodPost, "/refresh", bytes.NewBuffer(refBody), "", "application/json")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("reused refresh token status=%d, want 401", resp.Code)
	}
}
