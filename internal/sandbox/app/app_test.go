package app

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestNew_WiresFromEnv(t *testing.T) {
	t.Setenv("SANDBOX_HTTP_ADDR", "127.0.0.1:0")
	t.Setenv("SANDBOX_DB_DSN", "file:app_new?mode=memory&cache=shared")
	t.Setenv("SANDBOX_JWT_SECRET", "app-test")
	t.Setenv("SANDBOX_LOG_LEVEL", "warn")

	a, err := New("v1", "today", zerolog.Nop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer a.repoClose.Close()
	if a.server.Addr != "127.0.0.1:0" {
		t.Fatalf("addr: %q", a.server.Addr)
	}
	if a.server.WriteTimeout != 0 {
		t.Fatalf("write timeout must stay unset for websockets: %v", a.server.WriteTimeout)
	}
	if a.server.Handler == nil {
		t.Fatal("no handler")
	}
}

func TestNew_BadConfig(t *testing.T) {
	t.Setenv("SANDBOX_ACCESS_TTL", "soon")
	if _, err := New("v1", "today", zerolog.Nop()); err == nil {
		t.Fatal("want config error")
	}
}
