package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/medpanel/medpanel-go/internal/client/events"
	"github.com/medpanel/medpanel-go/internal/client/session"
	"github.com/medpanel/medpanel-go/internal/telemetry/logger"
	"github.com/medpanel/medpanel-go/internal/telemetry/metric"
)

// countingExpirer records forced logouts and clears the store like the real
// handler does.
type countingExpirer struct {
	mu    sync.Mutex
	store session.Store
	calls int
}

func (e *countingExpirer) Handle(ctx context.Context) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	e.store.Clear(ctx)
}

func (e *countingExpirer) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

type testEnv struct {
	server  *httptest.Server
	client  *Client
	store   *session.MemoryStore
	expirer *countingExpirer
}

func newTestEnv(t *testing.T, handler http.HandlerFunc, opts ...Option) *testEnv {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := session.NewMemoryStore()
	expirer := &countingExpirer{store: store}

	base := []Option{WithStore(store), WithExpirer(expirer)}
	c, err := New(srv.URL+"/api", append(base, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &testEnv{server: srv, client: c, store: store, expirer: expirer}
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}
}

func login(t *testing.T, store session.Store, token string) {
	t.Helper()
	if err := store.Set(context.Background(), session.Credential{Token: token}); err != nil {
		t.Fatal(err)
	}
}

func TestNew_BaseURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", DefaultBaseURL, false},
		{"http://localhost:8081/api/", "http://localhost:8081/api", false},
		{"api.hospital.local/api", "http://api.hospital.local/api", false},
		{"https://api.hospital.local", "https://api.hospital.local", false},
		{"http://", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, err := New(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && c.BaseURL() != tt.want {
				t.Errorf("BaseURL() = %q, want %q", c.BaseURL(), tt.want)
			}
		})
	}
}

func TestDo_Headers(t *testing.T) {
	var got http.Header
	var gotPath string
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		gotPath = r.URL.Path
		respond(200, `{}`)(w, r)
	}, WithUserAgent("medpanel-cli/1.2.3"))

	ctx := context.Background()

	if _, err := Get[map[string]any](ctx, env.client, "/auth/me"); err != nil {
		t.Fatal(err)
	}
	if gotPath != "/api/auth/me" {
		t.Errorf("path = %q, want /api/auth/me", gotPath)
	}
	if got.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", got.Get("Content-Type"))
	}
	if got.Get("Accept") != "application/json" {
		t.Errorf("Accept = %q", got.Get("Accept"))
	}
	if _, ok := got["Authorization"]; ok {
		t.Error("Authorization sent without credential")
	}
	if got.Get("User-Agent") != "medpanel-cli/1.2.3" {
		t.Errorf("User-Agent = %q", got.Get("User-Agent"))
	}
	if len(got.Get("X-Request-ID")) != 26 {
		t.Errorf("X-Request-ID = %q, want a ULID", got.Get("X-Request-ID"))
	}

	login(t, env.store, "T1")
	if _, err := Get[map[string]any](ctx, env.client, "auth/me"); err != nil {
		t.Fatal(err)
	}
	if got.Get("Authorization") != "Bearer T1" {
		t.Errorf("Authorization = %q, want Bearer T1", got.Get("Authorization"))
	}

	env.store.Clear(ctx)
	if _, err := Get[map[string]any](ctx, env.client, "/auth/me"); err != nil {
		t.Fatal(err)
	}
	if _, ok := got["Authorization"]; ok {
		t.Error("Authorization sent after Clear")
	}
}

func TestDo_Body(t *testing.T) {
	var gotBody string
	var gotMethod string
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotMethod = r.Method
		respond(200, `{"status":true}`)(w, r)
	})
	ctx := context.Background()

	payload := map[string]string{"email": "a@b.c"}
	if _, err := Post[Envelope[any]](ctx, env.client, "/auth/login", payload); err != nil {
		t.Fatal(err)
	}
	if gotMethod != http.MethodPost || gotBody != `{"email":"a@b.c"}` {
		t.Errorf("got %s %q", gotMethod, gotBody)
	}

	if _, err := Post[Envelope[any]](ctx, env.client, "/auth/logout", nil); err != nil {
		t.Fatal(err)
	}
	if gotBody != "" {
		t.Errorf("nil body sent as %q", gotBody)
	}

	if _, err := Put[Envelope[any]](ctx, env.client, "/x", payload); err != nil || gotMethod != http.MethodPut {
		t.Errorf("Put: method=%s err=%v", gotMethod, err)
	}
	if _, err := Delete[Envelope[any]](ctx, env.client, "/x"); err != nil || gotMethod != http.MethodDelete {
		t.Errorf("Delete: method=%s err=%v", gotMethod, err)
	}

	if err := env.client.Do(ctx, http.MethodPost, "/x", func() {}, nil); err == nil {
		t.Error("unencodable body should fail")
	}
}

func TestDo_SuccessPassthrough(t *testing.T) {
	type profile struct {
		Name       string `json:"name"`
		IsVerified bool   `json:"isVerified"`
	}

	env := newTestEnv(t, respond(200, `{"status":200,"message":"ok","data":{"name":"dr. x","isVerified":true}}`))
	login(t, env.store, "T1")

	got, err := Get[Envelope[profile]](context.Background(), env.client, "/auth/me")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	want := Envelope[profile]{Status: "200", Message: "ok", Data: profile{Name: "dr. x", IsVerified: true}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if env.expirer.count() != 0 {
		t.Error("expirer invoked on success")
	}
}

func TestDo_EmptySuccessBody(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	got, err := Delete[Envelope[string]](context.Background(), env.client, "/patient/delete-patient?PasienID=1")
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if !reflect.DeepEqual(got, Envelope[string]{}) {
		t.Errorf("got %+v, want zero value", got)
	}
}

func TestDo_401AlwaysExpires(t *testing.T) {
	bodies := []string{
		`{"message":"Invalid credentials"}`,
		`{}`,
		`<html>401</html>`,
		``,
	}

	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			env := newTestEnv(t, respond(401, body))
			login(t, env.store, "T1")

			_, err := Get[Envelope[any]](context.Background(), env.client, "/auth/me")

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want *APIError", err)
			}
			if apiErr.Status != 401 || apiErr.Message != MsgSessionExpired {
				t.Errorf("got {%d, %q}", apiErr.Status, apiErr.Message)
			}
			if !IsSessionExpired(err) || !apiErr.SessionExpired() {
				t.Error("IsSessionExpired() = false")
			}
			if env.expirer.count() != 1 {
				t.Errorf("expirer called %d times, want 1", env.expirer.count())
			}
			if _, err := env.store.Get(context.Background()); !errors.Is(err, session.ErrNoCredential) {
				t.Error("credential not cleared")
			}
		})
	}
}

func TestDo_ExpiryPhrases(t *testing.T) {
	messages := []string{
		"Token Expired",
		"TOKEN INVALID",
		"Unauthorized",
		"JWT expired",
		"Session Expired",
		"Your token has expired",
		"Authentication failed: bad signature",
	}

	for _, status := range []int{400, 403, 500} {
		for _, msg := range messages {
			t.Run(msg, func(t *testing.T) {
				body, _ := json.Marshal(map[string]any{"message": msg, "errors": map[string][]string{"token": {"bad"}}})
				env := newTestEnv(t, respond(status, string(body)))
				login(t, env.store, "T1")

				_, err := Get[Envelope[any]](context.Background(), env.client, "/patient/get-all-patient-by-userid")

				var apiErr *APIError
				if !errors.As(err, &apiErr) {
					t.Fatalf("error = %v", err)
				}
				if apiErr.Status != status || apiErr.Message != MsgSessionExpired {
					t.Errorf("got {%d, %q}, want {%d, %q}", apiErr.Status, apiErr.Message, status, MsgSessionExpired)
				}
				if !reflect.DeepEqual(apiErr.Errors, map[string][]string{"token": {"bad"}}) {
					t.Errorf("Errors = %v", apiErr.Errors)
				}
				if env.expirer.count() != 1 {
					t.Errorf("expirer called %d times", env.expirer.count())
				}
			})
		}
	}
}

func TestDo_OtherErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"server message", 500, `{"message":"Database down"}`, "Database down"},
		{"forbidden", 403, `{"message":"Forbidden"}`, "Forbidden"},
		{"no message", 500, `{"status":false}`, MsgFallback},
		{"empty message", 400, `{"message":""}`, MsgFallback},
		{"non-string message", 400, `{"message":42}`, MsgFallback},
		{"html gateway page", 502, `<html>Bad Gateway</html>`, MsgFallback},
		{"empty body", 503, ``, MsgFallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, respond(tt.status, tt.body))
			login(t, env.store, "T1")

			_, err := Get[Envelope[any]](context.Background(), env.client, "/auth/me")

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want *APIError", err)
			}
			if apiErr.Status != tt.status || apiErr.Message != tt.wantMsg {
				t.Errorf("got {%d, %q}, want {%d, %q}", apiErr.Status, apiErr.Message, tt.status, tt.wantMsg)
			}
			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %q", err.Error())
			}
			if IsSessionExpired(err) {
				t.Error("IsSessionExpired() = true")
			}
			if env.expirer.count() != 0 {
				t.Error("expirer invoked")
			}
			if cred, err := env.store.Get(context.Background()); err != nil || cred.Token != "T1" {
				t.Error("credential touched by a non-expiry error")
			}
		})
	}
}

func TestDo_ValidationErrors(t *testing.T) {
	env := newTestEnv(t, respond(422, `{"status":false,"message":"Validation failed","errors":{"name":["required"]}}`))
	login(t, env.store, "T1")

	_, err := Post[Envelope[any]](context.Background(), env.client, "/patient/save", map[string]string{"name": ""})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v", err)
	}
	if apiErr.Status != 422 || apiErr.Message != "Validation failed" {
		t.Errorf("got {%d, %q}", apiErr.Status, apiErr.Message)
	}
	if !reflect.DeepEqual(apiErr.Errors["name"], []string{"required"}) {
		t.Errorf(`Errors["name"] = %v, want [required]`, apiErr.Errors["name"])
	}
	if got := apiErr.FieldMessages(); !reflect.DeepEqual(got, []string{"name: required"}) {
		t.Errorf("FieldMessages() = %v", got)
	}
	if StatusCode(err) != 422 {
		t.Errorf("StatusCode() = %d", StatusCode(err))
	}
}

func TestDo_TransportErrors(t *testing.T) {
	t.Run("decode", func(t *testing.T) {
		env := newTestEnv(t, respond(200, `<html>maintenance</html>`))

		_, err := Get[Envelope[any]](context.Background(), env.client, "/auth/me")

		var tErr *TransportError
		if !errors.As(err, &tErr) {
			t.Fatalf("error = %v, want *TransportError", err)
		}
		if tErr.Op != OpDecode || tErr.Status != 200 {
			t.Errorf("got op=%s status=%d", tErr.Op, tErr.Status)
		}
		if !strings.Contains(err.Error(), "decode GET") {
			t.Errorf("Error() = %q", err.Error())
		}
	})

	t.Run("send", func(t *testing.T) {
		env := newTestEnv(t, respond(200, `{}`))
		env.server.Close()

		_, err := Get[Envelope[any]](context.Background(), env.client, "/auth/me")

		var tErr *TransportError
		if !errors.As(err, &tErr) || tErr.Op != OpSend {
			t.Fatalf("error = %v, want send *TransportError", err)
		}
		if StatusCode(err) != 0 {
			t.Error("transport error has a status code")
		}
	})

	t.Run("context canceled", func(t *testing.T) {
		env := newTestEnv(t, respond(200, `{}`))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := Get[Envelope[any]](ctx, env.client, "/auth/me")
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled in chain", err)
		}
	})
}

func TestDo_RateLimit(t *testing.T) {
	env := newTestEnv(t, respond(200, `{}`), WithRateLimit(0.001, 1))

	if _, err := Get[Envelope[any]](context.Background(), env.client, "/a"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := Get[Envelope[any]](ctx, env.client, "/b")
	var tErr *TransportError
	if !errors.As(err, &tErr) || tErr.Op != OpSend {
		t.Errorf("error = %v, want rate-limited send *TransportError", err)
	}
}

func TestDo_Metrics(t *testing.T) {
	reg := metric.NewRegistry()
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/ok" {
			respond(200, `{}`)(w, r)
			return
		}
		respond(500, `{}`)(w, r)
	}, WithMetrics(reg))
	ctx := context.Background()

	Get[Envelope[any]](ctx, env.client, "/ok")
	Get[Envelope[any]](ctx, env.client, "/fail")

	var buf strings.Builder
	if err := reg.WriteText(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		`medpanel_api_requests_total{method="GET",status="2xx"} 1`,
		`medpanel_api_requests_total{method="GET",status="5xx"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics missing %q in:\n%s", want, out)
		}
	}
}

func TestDo_DefaultExpiryHandler(t *testing.T) {
	srv := httptest.NewServer(respond(401, `{"message":"jwt expired"}`))
	defer srv.Close()

	store := session.NewMemoryStore()
	login(t, store, "T1")

	c, err := New(srv.URL, WithStore(store))
	if err != nil {
		t.Fatal(err)
	}

	_, err = Get[Envelope[any]](context.Background(), c, "/auth/me")
	if err == nil || err.Error() != MsgSessionExpired {
		t.Fatalf("error = %v", err)
	}
	if _, err := store.Get(context.Background()); !errors.Is(err, session.ErrNoCredential) {
		t.Error("default handler did not clear the store")
	}
}

func TestDo_ExpiryLogsCarryRequestID(t *testing.T) {
	var sentID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sentID = r.Header.Get("X-Request-ID")
		respond(401, `{"message":"Unauthenticated."}`)(w, r)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	log, err := logger.New(logger.Config{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	store := session.NewMemoryStore()
	login(t, store, "T1")

	c, err := New(srv.URL, WithStore(store), WithLogger(log))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Get[Envelope[any]](context.Background(), c, "/auth/me"); !IsSessionExpired(err) {
		t.Fatalf("error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) < 2 {
		t.Fatalf("want executor and handler entries, got:\n%s", buf.String())
	}
	for _, line := range lines {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("parse %q: %v", line, err)
		}
		if entry["request_id"] != sentID {
			t.Errorf("request_id = %v, want %s (%s)", entry["request_id"], sentID, entry["msg"])
		}
	}
}

func TestDo_ConcurrentExpiryIsSingleFlight(t *testing.T) {
	srv := httptest.NewServer(respond(401, `{"message":"jwt expired"}`))
	defer srv.Close()

	store := session.NewMemoryStore()
	login(t, store, "T1")

	d := events.NewInMemoryDispatcher()
	var mu sync.Mutex
	published := 0
	d.Subscribe(events.EventAuthExpired, func(context.Context, events.Event) error {
		mu.Lock()
		published++
		mu.Unlock()
		return nil
	})

	var scheduled []func()
	handler := session.NewExpiryHandler(store,
		session.WithDispatcher(d),
		session.WithAfterFunc(func(_ time.Duration, f func()) {
			mu.Lock()
			scheduled = append(scheduled, f)
			mu.Unlock()
		}),
	)

	c, err := New(srv.URL, WithStore(store), WithExpirer(handler))
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Get[Envelope[any]](context.Background(), c, "/auth/me")
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if published != 1 || len(scheduled) != 1 {
		t.Errorf("published=%d scheduled=%d, want 1/1", published, len(scheduled))
	}
}
