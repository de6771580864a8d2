package metrics

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func scrape(t *testing.T, h http.Handler) []byte {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status=%d", rr.Code)
	}
	return rr.Body.Bytes()
}

func TestHandler_ExposesChatCollectors(t *testing.T) {
	ObserveTurn(OutcomeStopped, 3, 40*time.Millisecond)
	IncClear()
	ObserveQueryTokens(12)
	ObserveModelLoad("adapter", "llamaserver", time.Second)

	body := scrape(t, Handler(nil))
	for _, name := range []string{
		`glmchat_chat_turns_total{outcome="stopped"}`,
		"glmchat_chat_clears_total",
		"glmchat_chat_stream_steps_total",
		"glmchat_chat_generation_duration_seconds_bucket",
		"glmchat_chat_query_tokens_count",
		`glmchat_model_load_duration_seconds_count{backend="llamaserver",strategy="adapter"}`,
	} {
		if !bytes.Contains(body, []byte(name)) {
			t.Fatalf("expected %s in metrics output", name)
		}
	}
}

func TestHandler_Healthz(t *testing.T) {
	rr := httptest.NewRecorder()
	Handler(nil).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing nosniff header")
	}
}

func TestHandler_CORS(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://dash.local")

	rr := httptest.NewRecorder()
	Handler([]string{"http://dash.local"}).ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://dash.local" {
		t.Fatalf("allow-origin: %q", got)
	}

	rr = httptest.NewRecorder()
	Handler(nil).ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("cors enabled without origins: %q", got)
	}
}

func TestStart_ServesAndShutsDown(t *testing.T) {
	s, err := Start("127.0.0.1:0", nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	resp, err := http.Get("http://" + s.Addr() + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(b) != "ok" {
		t.Fatalf("body: %q", b)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if _, err := http.Get("http://" + s.Addr() + "/healthz"); err == nil {
		t.Fatalf("expected connection error after shutdown")
	}
}
