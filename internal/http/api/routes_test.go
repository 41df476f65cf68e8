package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shaiyaportal/accountd/internal/db"
	"github.com/shaiyaportal/accountd/internal/models"
	"github.com/shaiyaportal/accountd/internal/ratelimit"
	"github.com/shaiyaportal/accountd/internal/reconcile"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestRouter(t *testing.T, loginLimit int) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	router := gin.New()
	RegisterRoutes(router, Options{
		Engine:         reconcile.NewEngine(conn, nil, time.Second),
		DB:             conn,
		Limiter:        ratelimit.NewMemoryLimiter(),
		LoginRateLimit: loginLimit,
	})
	return router, conn
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "10.0.0.1:52000"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &out); errDecode != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), errDecode)
	}
	return out
}

func seedWebAccount(t *testing.T, conn *gorm.DB, username, password string) *models.WebAccount {
	t.Helper()
	account := &models.WebAccount{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: password,
		CreatedAt:    time.Now().UTC(),
	}
	if errCreate := conn.Create(account).Error; errCreate != nil {
		t.Fatalf("seed web account: %v", errCreate)
	}
	return account
}

func TestLoginEndpoint_Success(t *testing.T) {
	router, conn := newTestRouter(t, 0)
	seedWebAccount(t, conn, "alice", "pw1")

	rec := doJSON(t, router, http.MethodPost, "/game/login", `{"username":"alice","password":"pw1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["success"] != true {
		t.Fatalf("expected success response, got %v", body)
	}
	user, ok := body["user"].(map[string]any)
	if !ok {
		t.Fatalf("expected user payload, got %v", body)
	}
	if user["username"] != "alice" || user["isNewGameUser"] != true {
		t.Fatalf("unexpected user payload %v", user)
	}
}

func TestLoginEndpoint_UniformUnauthorizedBody(t *testing.T) {
	router, conn := newTestRouter(t, 0)
	seedWebAccount(t, conn, "alice", "pw1")

	unknown := doJSON(t, router, http.MethodPost, "/game/login", `{"username":"ghost","password":"pw1"}`)
	mismatch := doJSON(t, router, http.MethodPost, "/game/login", `{"username":"alice","password":"wrong"}`)

	if unknown.Code != http.StatusUnauthorized || mismatch.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", unknown.Code, mismatch.Code)
	}
	if unknown.Body.String() != mismatch.Body.String() {
		t.Fatalf("401 bodies must be indistinguishable: %q vs %q", unknown.Body.String(), mismatch.Body.String())
	}
}

func TestLoginEndpoint_MissingFields(t *testing.T) {
	router, _ := newTestRouter(t, 0)

	rec := doJSON(t, router, http.MethodPost, "/game/login", `{"username":"alice"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestLoginEndpoint_RateLimited(t *testing.T) {
	router, conn := newTestRouter(t, 1)
	seedWebAccount(t, conn, "alice", "pw1")

	first := doJSON(t, router, http.MethodPost, "/game/login", `{"username":"alice","password":"pw1"}`)
	if first.Code != http.StatusOK {
		t.Fatalf("first attempt expected 200, got %d", first.Code)
	}
	second := doJSON(t, router, http.MethodPost, "/game/login", `{"username":"alice","password":"pw1"}`)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second attempt expected 429, got %d", second.Code)
	}
}

func TestRegistrationEndpoint_FlowAndReplay(t *testing.T) {
	router, _ := newTestRouter(t, 0)

	payload := `{"supabaseUserId":"7f6e1fbc-6e0f-4bd2-9f3e-2f1a07a1be55","username":"alice","email":"alice@example.com","password":"pw"}`
	first := doJSON(t, router, http.MethodPost, "/api/post-registration", payload)
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", first.Code, first.Body.String())
	}
	firstBody := decodeBody(t, first)

	replay := doJSON(t, router, http.MethodPost, "/api/post-registration", payload)
	if replay.Code != http.StatusOK {
		t.Fatalf("replay expected 200, got %d", replay.Code)
	}
	replayBody := decodeBody(t, replay)
	if firstBody["userId"] != replayBody["userId"] {
		t.Fatalf("replay returned different user id: %v vs %v", firstBody["userId"], replayBody["userId"])
	}
}

func TestRegistrationEndpoint_BadUUID(t *testing.T) {
	router, conn := newTestRouter(t, 0)

	rec := doJSON(t, router, http.MethodPost, "/api/post-registration",
		`{"supabaseUserId":"not-a-uuid","username":"alice","email":"alice@example.com","password":"pw"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var count int64
	if errCount := conn.Model(&models.WebAccount{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if count != 0 {
		t.Fatalf("store must stay untouched on validation failure, found %d rows", count)
	}
}

func TestRegistrationEndpoint_DuplicateUsername(t *testing.T) {
	router, _ := newTestRouter(t, 0)

	first := doJSON(t, router, http.MethodPost, "/api/post-registration",
		`{"supabaseUserId":"7f6e1fbc-6e0f-4bd2-9f3e-2f1a07a1be55","username":"alice","email":"alice@example.com","password":"pw"}`)
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", first.Code)
	}
	second := doJSON(t, router, http.MethodPost, "/api/post-registration",
		`{"supabaseUserId":"0b51b6b2-9c2a-4f74-8a64-0d8f5d2f2a1c","username":"alice","email":"other@example.com","password":"pw"}`)
	if second.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", second.Code, second.Body.String())
	}
}

func TestServerStatusEndpoint_Online(t *testing.T) {
	router, conn := newTestRouter(t, 0)

	rows := []any{
		&models.GameAccount{UserID: "alice", Password: "pw", UserType: "U", Status: models.GameStatusOnline, JoinDate: time.Now().UTC()},
		&models.GameAccount{UserID: "bob", Password: "pw", UserType: "U", Status: models.GameStatusOffline, JoinDate: time.Now().UTC()},
		&models.Character{UserUID: 1, CharName: "Stabby", Level: 15},
		&models.Character{UserUID: 1, CharName: "Deleted", Level: 80, Del: 1},
		&models.Guild{GuildName: "Vanguard", Rank: 3},
	}
	for _, row := range rows {
		if errCreate := conn.Create(row).Error; errCreate != nil {
			t.Fatalf("seed: %v", errCreate)
		}
	}

	rec := doJSON(t, router, http.MethodGet, "/api/server/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data := decodeBody(t, rec)["data"].(map[string]any)
	if data["serverStatus"] != "ONLINE" {
		t.Fatalf("expected ONLINE, got %v", data["serverStatus"])
	}
	if data["playersOnline"] != float64(1) || data["totalCharacters"] != float64(1) || data["totalGuilds"] != float64(1) {
		t.Fatalf("unexpected counters: %v", data)
	}
}

func TestServerStatusEndpoint_DegradesToOffline(t *testing.T) {
	router, conn := newTestRouter(t, 0)

	sqlDB, errDB := conn.DB()
	if errDB != nil {
		t.Fatalf("access pool: %v", errDB)
	}
	if errClose := sqlDB.Close(); errClose != nil {
		t.Fatalf("close pool: %v", errClose)
	}

	rec := doJSON(t, router, http.MethodGet, "/api/server/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("degraded status must still return 200, got %d", rec.Code)
	}
	data := decodeBody(t, rec)["data"].(map[string]any)
	if data["serverStatus"] != "OFFLINE" {
		t.Fatalf("expected OFFLINE fallback, got %v", data["serverStatus"])
	}
}

func TestGRBEndpoint_Scheduled(t *testing.T) {
	router, conn := newTestRouter(t, 0)

	info := models.WorldInfo{
		LastWorldTime: time.Now().Add(-time.Hour).Unix(),
		GodBlessLight: 120,
		GodBlessDark:  80,
	}
	if errCreate := conn.Create(&info).Error; errCreate != nil {
		t.Fatalf("seed world info: %v", errCreate)
	}

	rec := doJSON(t, router, http.MethodGet, "/api/server/grb", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data := decodeBody(t, rec)["data"].(map[string]any)
	if data["status"] != "Scheduled" {
		t.Fatalf("expected Scheduled, got %v", data["status"])
	}
	if data["lightGodBlessing"] != float64(120) || data["darkGodBlessing"] != float64(80) {
		t.Fatalf("unexpected blessings: %v", data)
	}
}

func TestGRBEndpoint_NoSnapshot(t *testing.T) {
	router, _ := newTestRouter(t, 0)

	rec := doJSON(t, router, http.MethodGet, "/api/server/grb", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data := decodeBody(t, rec)["data"].(map[string]any)
	if data["status"] != "Unknown" {
		t.Fatalf("expected Unknown without snapshots, got %v", data["status"])
	}
}

func TestCharactersEndpoint(t *testing.T) {
	router, conn := newTestRouter(t, 0)

	rows := []models.Character{
		{UserUID: 7, CharName: "Stabby", Level: 15, Job: 6, Family: 2, Slot: 1},
		{UserUID: 7, CharName: "Holy", Level: 40, Job: 5, Family: 0, Slot: 0},
		{UserUID: 7, CharName: "Gone", Level: 80, Del: 1, Slot: 2},
		{UserUID: 8, CharName: "Other", Level: 10, Slot: 0},
	}
	for i := range rows {
		if errCreate := conn.Create(&rows[i]).Error; errCreate != nil {
			t.Fatalf("seed: %v", errCreate)
		}
	}

	rec := doJSON(t, router, http.MethodGet, "/api/user/7/characters", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data := decodeBody(t, rec)["data"].(map[string]any)
	if data["count"] != float64(2) {
		t.Fatalf("expected 2 characters, got %v", data["count"])
	}
	characters := data["characters"].([]any)
	first := characters[0].(map[string]any)
	if first["name"] != "Holy" || first["job"] != "Priest" || first["faction"] != "Human" {
		t.Fatalf("expected slot ordering and name mapping, got %v", first)
	}

	bad := doJSON(t, router, http.MethodGet, "/api/user/abc/characters", "")
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad uid, got %d", bad.Code)
	}
}

func TestRankingsEndpoints(t *testing.T) {
	router, conn := newTestRouter(t, 0)

	rows := []models.Character{
		{UserUID: 1, CharName: "Top", Level: 80, Kills: 5},
		{UserUID: 2, CharName: "Mid", Level: 50, Kills: 900},
		{UserUID: 3, CharName: "Hidden", Level: 99, Kills: 9999, Del: 1},
	}
	for i := range rows {
		if errCreate := conn.Create(&rows[i]).Error; errCreate != nil {
			t.Fatalf("seed: %v", errCreate)
		}
	}

	level := doJSON(t, router, http.MethodGet, "/api/rankings/level", "")
	if level.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", level.Code)
	}
	levelData := decodeBody(t, level)["data"].([]any)
	if len(levelData) != 2 {
		t.Fatalf("deleted characters must be excluded, got %d rows", len(levelData))
	}
	if levelData[0].(map[string]any)["CharName"] != "Top" {
		t.Fatalf("expected level board ordered by level, got %v", levelData)
	}

	kills := doJSON(t, router, http.MethodGet, "/api/rankings/kills", "")
	killsData := decodeBody(t, kills)["data"].([]any)
	if killsData[0].(map[string]any)["CharName"] != "Mid" {
		t.Fatalf("expected kills board ordered by kills, got %v", killsData)
	}

	limited := doJSON(t, router, http.MethodGet, "/api/rankings/level?limit=1", "")
	if got := len(decodeBody(t, limited)["data"].([]any)); got != 1 {
		t.Fatalf("expected limit=1 to cap results, got %d", got)
	}
}

func TestGuildRankingsEndpoint(t *testing.T) {
	router, conn := newTestRouter(t, 0)

	guilds := []models.Guild{
		{GuildName: "Vanguard", Rank: 10},
		{GuildName: "Drifters", Rank: 3},
	}
	for i := range guilds {
		if errCreate := conn.Create(&guilds[i]).Error; errCreate != nil {
			t.Fatalf("seed guild: %v", errCreate)
		}
	}
	members := []models.GuildMember{
		{GuildID: guilds[0].GuildID, CharID: 1},
		{GuildID: guilds[0].GuildID, CharID: 2},
		{GuildID: guilds[1].GuildID, CharID: 3},
	}
	for i := range members {
		if errCreate := conn.Create(&members[i]).Error; errCreate != nil {
			t.Fatalf("seed member: %v", errCreate)
		}
	}

	rec := doJSON(t, router, http.MethodGet, "/api/rankings/guilds", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data := decodeBody(t, rec)["data"].([]any)
	if len(data) != 2 {
		t.Fatalf("expected 2 guilds, got %d", len(data))
	}
	first := data[0].(map[string]any)
	if first["GuildName"] != "Vanguard" || first["MemberCount"] != float64(2) {
		t.Fatalf("expected Vanguard first with 2 members, got %v", first)
	}
}

func TestHealthEndpoints(t *testing.T) {
	router, _ := newTestRouter(t, 0)

	for _, path := range []string{"/health", "/api/health"} {
		rec := doJSON(t, router, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
		if decodeBody(t, rec)["status"] != "ok" {
			t.Fatalf("%s: expected ok status", path)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	router, _ := newTestRouter(t, 0)

	req := httptest.NewRequest(http.MethodOptions, "/api/post-registration", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 preflight, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected CORS headers on preflight")
	}
}
