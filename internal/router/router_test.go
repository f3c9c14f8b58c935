package router

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/republik/appshell/internal/controller"
	"github.com/republik/appshell/internal/handlers"
	"github.com/republik/appshell/internal/models"
		"github.com/republik/appshell/internal/state"
)

type fakeInspector struct {
	requested []string
}

func (f *fakeInspector) State(context.Context) (models.ShellState, error) {
	return models.ShellState{
		Persisted:  state.PersistedState{URL: "https://www.republik.ch/feed", PlaybackRate: 1},
		Gates:      map[state.Gate]bool{state.GatePush: true},
		AudioPhase: "noTrack",
	}, nil
}

func (f *fakeInspector) Queue(context.Context) ([]models.QueuedMessage, error) {
	return nil, nil
}

func (f *fakeInspector) History(context.Context) ([]string, error) {
	return []string{"https://www.republik.ch/"}, nil
}

func (f *fakeInspector) RequestURL(_ context.Context, u string) error {
	if !strings.HasPrefix(u, "https://www.republik.ch") {
		return fmt.Errorf("%w: %q", controller.ErrForeignURL, u)
	}
	f.requested = append(f.requested, u)
	return nil
}

func newTestRouter() (http.Handler, *fakeInspector) {
	insp := &fakeInspector{}
	h := handlers.New(insp, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return New(h), insp
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = "127.0.0.1:51234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestDebugState(t *testing.T) {
	r, _ := newTestRouter()
	rec := do(t, r, http.MethodGet, "/debug/state", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "noTrack", got["audioPhase"])
	require.Equal(t, "https://www.republik.ch/feed", got["persisted"].(map[string]any)["url"])
}

func TestDebugQueueAndHistory(t *testing.T) {
	r, _ := newTestRouter()

	rec := do(t, r, http.MethodGet, "/debug/queue", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, r, http.MethodGet, "/debug/history", "")
	require.JSONEq(t, `["https://www.republik.ch/"]`, rec.Body.String())
}

func TestDebugPendingURL(t *testing.T) {
	r, insp := newTestRouter()

	rec := do(t, r, http.MethodPost, "/debug/pending-url", `{"url":"https://www.republik.ch/suche"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, []string{"https://www.republik.ch/suche"}, insp.requested)

	rec = do(t, r, http.MethodPost, "/debug/pending-url", `{"url":"https://example.com"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPost, "/debug/pending-url", `nope`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRejectsRemoteClients(t *testing.T) {
	r, _ := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/debug/state", nil)
	req.RemoteAddr = "192.168.1.20:5000"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}
