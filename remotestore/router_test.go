package remotestore

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/tradebooks/config"
	"bitbucket.org/mmdatafocus/tradebooks/middlewares"
	"bitbucket.org/mmdatafocus/tradebooks/utils"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// redisRouter serves the router with redis backed by miniredis.
func redisRouter(t *testing.T, settings config.ServerSettings) (*miniredis.Miniredis, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	db, err := config.OpenRemoteSQLite(":memory:")
	if err != nil {
		t.Fatalf("open remote db: %v", err)
	}
	s := New(db, config.NewLogger(""), WithRedis(rdb))
	if err := s.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	srv := httptest.NewServer(s.Router(settings))
	t.Cleanup(srv.Close)
	return mr, srv
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	resp.Body.Close()
	return resp
}

func post(t *testing.T, url, token string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodPost, url, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	resp.Body.Close()
	return resp
}

func TestRateLimitAnswers429WithRetryAfter(t *testing.T) {
	mr, srv := redisRouter(t, config.ServerSettings{RateLimit: 2, RateWindow: time.Minute})
	url := srv.URL + "/v1/actions/create_record"

	for i := 0; i < 2; i++ {
		if resp := post(t, url, ""); resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("request %d: status %d", i+1, resp.StatusCode)
		}
	}
	resp := post(t, url, "")
	if resp.StatusCode != http.StatusTooManyRequests || resp.Header.Get("Retry-After") != "60" {
		t.Fatalf("over the limit: status %d retry-after %q", resp.StatusCode, resp.Header.Get("Retry-After"))
	}

	keys := mr.Keys()
	if len(keys) != 1 || mr.TTL(keys[0]) <= 0 {
		t.Fatalf("rate limit counter must carry its window: keys=%v", keys)
	}

	for i := 0; i < 5; i++ {
		if resp := get(t, srv.URL+"/healthz"); resp.StatusCode != http.StatusOK {
			t.Fatalf("healthz must not be throttled: status %d", resp.StatusCode)
		}
	}

	mr.FastForward(time.Minute + time.Second)
	if resp := post(t, url, ""); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("new window: status %d", resp.StatusCode)
	}
}

func TestRateLimitLetsRequestsThroughWhenRedisFails(t *testing.T) {
	mr, srv := redisRouter(t, config.ServerSettings{RateLimit: 1, RateWindow: time.Minute})
	mr.Close()

	for i := 0; i < 3; i++ {
		if resp := post(t, srv.URL+"/v1/actions/create_record", ""); resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("request %d: status %d", i+1, resp.StatusCode)
		}
	}
}

func TestRevokedTokenIsUnauthorized(t *testing.T) {
	mr, srv := redisRouter(t, config.ServerSettings{})
	url := srv.URL + "/v1/actions/create_record"

	token, err := utils.JwtGenerate("acc-revoked", "device-1", time.Hour)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if resp := post(t, url, token); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("live token should reach the handler, status %d", resp.StatusCode)
	}

	if err := mr.Set(middlewares.RevokedTokenKey(token), "1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if resp := post(t, url, token); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("revoked token: status %d", resp.StatusCode)
	}
}
