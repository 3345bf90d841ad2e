package matrix

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
)

type testLogger struct {
	t *testing.T
}

func (l *testLogger) LogDebug(message string, keyValuePairs ...any) {
	l.t.Logf("[DEBUG] %s %v", message, keyValuePairs)
}

func (l *testLogger) LogInfo(message string, keyValuePairs ...any) {
	l.t.Logf("[INFO] %s %v", message, keyValuePairs)
}

func (l *testLogger) LogWarn(message string, keyValuePairs ...any) {
	l.t.Logf("[WARN] %s %v", message, keyValuePairs)
}

func (l *testLogger) LogError(message string, keyValuePairs ...any) {
	l.t.Logf("[ERROR] %s %v", message, keyValuePairs)
}

// newTestHomeserver serves router and returns a client pointed at it.
func newTestHomeserver(t *testing.T, router *mux.Router) *Client {
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return NewClient(server.URL, &testLogger{t: t}, DisabledRateLimitConfig())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeMatrixError(w http.ResponseWriter, status int, errcode, message string) {
	writeJSON(w, status, map[string]string{"errcode": errcode, "error": message})
}
