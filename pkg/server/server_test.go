package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/flowscope/pkg/errors"
	"github.com/matzehuels/flowscope/pkg/hgraph"
	"github.com/matzehuels/flowscope/pkg/render"
	"github.com/matzehuels/flowscope/pkg/session"
)

const doc = `{
  "nodes": [{"id": "1"}, {"id": "2"}, {"id": "3"}],
  "edges": [
    {"id": "e1", "source": "1", "target": "3"},
    {"id": "e2", "source": "2", "target": "3"}
  ],
  "containers": [{"id": "A", "children": ["1", "2"]}]
}`

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	mgr := session.NewManager(nil, session.Config{Debounce: -1})
	t.Cleanup(func() { _ = mgr.Close() })
	ts := httptest.NewServer(New(mgr, opts))
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func create(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	resp := do(t, http.MethodPost, ts.URL+"/api/sessions", doc)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	got := decode[createResponse](t, resp)
	if len(got.Render.Elements) != 4 || got.Engine != "layered" {
		t.Fatalf("create = %+v", got)
	}
	return got.ID
}

func hyperLinks(out render.Output) []render.Link {
	var links []render.Link
	for _, l := range out.Links {
		if l.Type == hgraph.KindHyper {
			links = append(links, l)
		}
	}
	return links
}

func TestServer_Transitions(t *testing.T) {
	ts := newTestServer(t, Options{})
	id := create(t, ts)
	base := ts.URL + "/api/sessions/" + id

	resp := do(t, http.MethodPost, base+"/containers/A/collapse", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("collapse status = %d", resp.StatusCode)
	}
	tr := decode[transitionResponse](t, resp)
	if tr.Op != "collapse" || tr.Container != "A" || tr.Pending {
		t.Errorf("collapse = %+v", tr)
	}

	out := decode[render.Output](t, do(t, http.MethodGet, base+"/render", ""))
	hyper := hyperLinks(out)
	if len(hyper) != 1 || hyper[0].ID != "hyper_A_to_3" || hyper[0].Count != 2 {
		t.Errorf("hyper links = %+v", hyper)
	}

	req := decode[map[string]json.RawMessage](t, do(t, http.MethodGet, base+"/layout-request", ""))
	if !strings.Contains(string(req["edges"]), "hyper_A_to_3") {
		t.Errorf("layout request edges = %s", req["edges"])
	}

	if resp := do(t, http.MethodPost, base+"/containers/A/toggle", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("toggle status = %d", resp.StatusCode)
	}
	st := decode[hgraph.Stats](t, do(t, http.MethodGet, base+"/stats", ""))
	if st.Collapsed != 0 || st.HyperEdges != 0 {
		t.Errorf("stats after toggle = %+v", st)
	}

	if resp := do(t, http.MethodPost, base+"/collapse-all", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("collapse-all status = %d", resp.StatusCode)
	}
	if resp := do(t, http.MethodPost, base+"/reset", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("reset status = %d", resp.StatusCode)
	}

	svg := do(t, http.MethodGet, base+"/render?format=svg", "")
	if ct := svg.Header.Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("svg content type = %q", ct)
	}
	body, _ := io.ReadAll(svg.Body)
	if !strings.HasPrefix(string(body), "<svg") {
		t.Errorf("svg body = %.40s", body)
	}

	snap := do(t, http.MethodGet, base+"/snapshot", "")
	if snap.StatusCode != http.StatusOK {
		t.Errorf("snapshot status = %d", snap.StatusCode)
	}

	if resp := do(t, http.MethodDelete, base, ""); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	if resp := do(t, http.MethodGet, base+"/render", ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("render after delete = %d", resp.StatusCode)
	}
}

func TestServer_Errors(t *testing.T) {
	ts := newTestServer(t, Options{})
	id := create(t, ts)
	base := ts.URL + "/api/sessions/"

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantCode   errors.Code
	}{
		{"malformed document", http.MethodPost, "", `{"nodes": [`, 400, errors.ErrCodeInvalidFormat},
		{"dangling edge", http.MethodPost, "", `{"nodes":[{"id":"1"}],"edges":[{"id":"e","source":"1","target":"9"}]}`, 404, errors.ErrCodeNotFound},
		{"bad session id", http.MethodGet, "nope/render", "", 400, errors.ErrCodeInvalidID},
		{"unknown session", http.MethodGet, "00000000-0000-0000-0000-000000000000/render", "", 404, errors.ErrCodeSessionNotFound},
		{"unknown container", http.MethodPost, id + "/containers/Z/collapse", "", 404, errors.ErrCodeNotFound},
		{"unknown container op", http.MethodPost, id + "/containers/A/reset", "", 501, errors.ErrCodeUnsupported},
		{"unknown session op", http.MethodPost, id + "/shuffle", "", 501, errors.ErrCodeUnsupported},
		{"container op without id", http.MethodPost, id + "/collapse", "", 400, errors.ErrCodeInvalidInput},
		{"unknown format", http.MethodGet, id + "/render?format=gif", "", 501, errors.ErrCodeUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, tt.method, base+tt.path, tt.body)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if got := decode[errorBody](t, resp); got.Code != tt.wantCode {
				t.Errorf("code = %s, want %s (%s)", got.Code, tt.wantCode, got.Message)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := map[errors.Code]int{
		errors.ErrCodeCycle:             http.StatusConflict,
		errors.ErrCodeMissingDimensions: http.StatusConflict,
		errors.ErrCodeLayoutFailure:     http.StatusBadGateway,
		errors.ErrCodeInternal:          http.StatusInternalServerError,
		"":                              http.StatusInternalServerError,
	}
	for code, want := range tests {
		if got := statusFor(code); got != want {
			t.Errorf("statusFor(%q) = %d, want %d", code, got, want)
		}
	}
}

func TestServer_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	ts := newTestServer(t, Options{Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})})
	if resp := do(t, http.MethodGet, ts.URL+"/metrics", ""); resp.StatusCode != http.StatusOK {
		t.Errorf("metrics status = %d", resp.StatusCode)
	}
	if resp := do(t, http.MethodGet, ts.URL+"/healthz", ""); resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", resp.StatusCode)
	}
}

func TestServer_WebSocket(t *testing.T) {
	ts := newTestServer(t, Options{})
	id := create(t, ts)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/sessions/" + id + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first wsOutbound
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatal(err)
	}
	if first.Type != "render" || first.Render == nil || len(hyperLinks(*first.Render)) != 0 {
		t.Fatalf("first message = %+v", first)
	}

	if err := conn.WriteJSON(wsInbound{Type: "collapse", Container: "A"}); err != nil {
		t.Fatal(err)
	}
	var acked, rendered bool
	for !acked || !rendered {
		var msg wsOutbound
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		switch msg.Type {
		case "ack":
			acked = true
		case "render":
			if len(hyperLinks(*msg.Render)) == 1 {
				rendered = true
			}
		default:
			t.Fatalf("unexpected message %+v", msg)
		}
	}

	if err := conn.WriteJSON(wsInbound{Type: "expand", Container: "missing"}); err != nil {
		t.Fatal(err)
	}
	var msg wsOutbound
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != "error" || msg.Code != errors.ErrCodeNotFound {
		t.Errorf("error message = %+v", msg)
	}
}
