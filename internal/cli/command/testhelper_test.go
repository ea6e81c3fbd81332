package command

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

const testToken = "T1"

// fakeBackend is a stateful stand-in for the admin API.
type fakeBackend struct {
	*httptest.Server

	mu       sync.Mutex
	expired  bool
	patients []map[string]any
	nextID   int
	calls    []string
	bodies   map[string]map[string]any
}

// newFakeBackend starts the fake API with n seeded patients, alternating
// Male and Female.
func newFakeBackend(t *testing.T, n int) *fakeBackend {
	t.Helper()

	b := &fakeBackend{nextID: 1, bodies: make(map[string]map[string]any)}
	for i := 0; i < n; i++ {
		gender := "Male"
		if i%2 == 1 {
			gender = "Female"
		}
		b.addPatient(fmt.Sprintf("Pasien %02d", i+1), gender, "081234567890", "2024-01-15")
	}
	b.Server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.Close)
	return b
}

func (b *fakeBackend) addPatient(name, gender, phone, date string) {
	b.patients = append(b.patients, map[string]any{
		"pasienid":       b.nextID,
		"userid":         7,
		"nama":           name,
		"gender":         gender,
		"phoneNumber":    phone,
		"discharge_date": date,
		"status":         false,
		"response":       "",
	})
	b.nextID++
}

// expire makes every authenticated call answer 401 from now on.
func (b *fakeBackend) expire() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.expired = true
}

func (b *fakeBackend) called(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if c == route {
			n++
		}
	}
	return n
}

func (b *fakeBackend) requests() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

func (b *fakeBackend) body(route string) map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bodies[route]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (b *fakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	route := r.Method + " " + strings.TrimPrefix(r.URL.Path, "/api")
	b.calls = append(b.calls, route)

	var body map[string]any
	json.NewDecoder(r.Body).Decode(&body)
	b.bodies[route] = body

	if route == "POST /auth/login" {
		if body["password"] != "secret" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"status": false, "message": "Email atau password salah"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  true,
			"message": "Login berhasil",
			"data":    map[string]any{"access_token": testToken, "id": 7, "email": body["email"], "name": "Dr. Sari"},
		})
		return
	}
	if route == "POST /auth/register" {
		writeJSON(w, http.StatusCreated, map[string]any{"status": true, "message": "Registrasi berhasil"})
		return
	}

	if b.expired || r.Header.Get("Authorization") != "Bearer "+testToken {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"status": false, "message": "Unauthenticated."})
		return
	}

	switch route {
	case "POST /auth/logout":
		writeJSON(w, http.StatusOK, map[string]any{"status": true, "message": "Logout berhasil"})
	case "GET /auth/me":
		writeJSON(w, http.StatusOK, map[string]any{"status": true, "data": map[string]any{
			"user_id": 7, "name": "Dr. Sari", "phoneNumber": "081234567890",
			"email": "dr@rs.id", "keahlian": "Kardiologi", "isVerified": true,
		}})
	case "PUT /auth/update-profile":
		writeJSON(w, http.StatusOK, map[string]any{"status": true, "message": "Profil diperbarui"})
	case "GET /auth/getQR":
		writeJSON(w, http.StatusOK, map[string]any{"status": true, "data": "2@qr-payload"})
	case "GET /auth/getPair":
		writeJSON(w, http.StatusOK, map[string]any{"status": true, "data": "ABCD-1234"})
	case "GET /patient/get-all-patient-by-userid":
		writeJSON(w, http.StatusOK, map[string]any{"status": true, "data": b.patients})
	case "POST /patient/save":
		phone, _ := body["phoneNumber"].(string)
		if !strings.HasPrefix(phone, "08") {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"status":  false,
				"message": "Validasi gagal",
				"errors":  map[string][]string{"phoneNumber": {"Nomor telepon tidak valid"}},
			})
			return
		}
		b.addPatient(body["name"].(string), body["gender"].(string), phone, body["discharge_date"].(string))
		writeJSON(w, http.StatusCreated, map[string]any{"status": true, "message": "Pasien berhasil ditambahkan"})
	case "PUT /patient/update-patient":
		writeJSON(w, http.StatusOK, map[string]any{"status": true, "message": "Pasien diperbarui"})
	case "DELETE /patient/delete-patient":
		id := r.URL.Query().Get("PasienID")
		kept := b.patients[:0]
		for _, p := range b.patients {
			if fmt.Sprint(p["pasienid"]) != id {
				kept = append(kept, p)
			}
		}
		b.patients = kept
		writeJSON(w, http.StatusOK, map[string]any{"status": true, "message": "Pasien dihapus"})
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"status": false, "message": "route not found"})
	}
}

// testEnv is a HOME directory with a config file pointing at a backend.
type testEnv struct {
	t       *testing.T
	dir     string
	cfgPath string
	backend *fakeBackend
	// opts are appended to every App the env builds.
	opts []Option
}

func newTestEnv(t *testing.T, backend *fakeBackend) *testEnv {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("HOME", dir)

	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := fmt.Sprintf(`api:
  url: %s/api
session:
  backend: badger
  dir: %s
  encrypt: true
  keyfile: %s
expiry:
  delay: 10ms
log:
  level: error
`, backend.URL, filepath.Join(dir, "session"), filepath.Join(dir, "session.key"))
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}
	return &testEnv{t: t, dir: dir, cfgPath: cfgPath, backend: backend}
}

// result is the output of one CLI invocation.
type result struct {
	stdout string
	stderr string
	err    error
}

// run executes one CLI invocation against the env's config file.
func (e *testEnv) run(stdin string, args ...string) result {
	e.t.Helper()
	return e.runRaw(stdin, append([]string{"--config", e.cfgPath}, args...)...)
}

// runRaw executes one CLI invocation with stdin as input.
func (e *testEnv) runRaw(stdin string, args ...string) result {
	e.t.Helper()

	var stdout, stderr bytes.Buffer
	opts := append([]Option{WithAfterFunc(func(_ time.Duration, f func()) { f() })}, e.opts...)
	app := App(opts...)
	app.Writer = &stdout
	app.ErrWriter = &stderr
	app.Reader = strings.NewReader(stdin)

	err := app.RunContext(context.Background(), append([]string{"medpanel-cli"}, args...))
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

// login signs in with the fake backend's password.
func (e *testEnv) login() {
	e.t.Helper()
	if res := e.run("", "auth", "login", "--email", "dr@rs.id", "--password", "secret"); res.err != nil {
		e.t.Fatalf("login: %v\nstderr: %s", res.err, res.stderr)
	}
}

// fakeTerminal pretends the input is a terminal and answers every hidden
// prompt with secret.
type fakeTerminal struct {
	secret string
	reads  int
}

func (f *fakeTerminal) Fd(io.Reader) (int, bool) { return 3, true }

func (f *fakeTerminal) ReadPassword(fd int) ([]byte, error) {
	f.reads++
	return []byte(f.secret), nil
}
