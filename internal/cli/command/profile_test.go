package command

import (
	"errors"
	"strings"
	"testing"

	"github.com/medpanel/medpanel-go/internal/client/service"
)

func TestProfileShow(t *testing.T) {
	env := newTestEnv(t, newFakeBackend(t, 0))
	env.login()

	for _, args := range [][]string{{"profile", "show"}, {"auth", "whoami"}} {
		res := env.run("", args...)
		if res.err != nil {
			t.Fatalf("%v: %v", args, res.err)
		}
		for _, want := range []string{"Dr. Sari", "Kardiologi", "081234567890", "Verified"} {
			if !strings.Contains(res.stdout, want) {
				t.Errorf("%v: missing %q:\n%s", args, want, res.stdout)
			}
		}
		if strings.Contains(res.stdout, "User ID") {
			t.Errorf("%v: user ID shown without --wide", args)
		}
	}

	res := env.run("", "-w", "profile", "show")
	if !strings.Contains(res.stdout, "User ID") {
		t.Errorf("wide output missing user ID:\n%s", res.stdout)
	}
}

func TestProfileUpdate(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantErr  error
		wantBody map[string]any
	}{
		{
			name: "fills omitted fields",
			args: []string{"--name", "Dr. Sari W."},
			wantBody: map[string]any{
				"Name":        "Dr. Sari W.",
				"PhoneNumber": "081234567890",
				"Email":       "dr@rs.id",
				"Keahlian":    "Kardiologi",
			},
		},
		{
			name: "all fields",
			args: []string{"-n", "A", "-p", "0812345678", "-e", "a@b.id", "-k", "Anak"},
			wantBody: map[string]any{
				"Name":        "A",
				"PhoneNumber": "0812345678",
				"Email":       "a@b.id",
				"Keahlian":    "Anak",
			},
		},
		{
			name:    "bad phone",
			args:    []string{"--phone", "+6281234"},
			wantErr: service.ErrInvalidPhone,
		},
		{
			name:    "bad email",
			args:    []string{"--email", "not-an-email"},
			wantErr: service.ErrInvalidEmail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, newFakeBackend(t, 0))
			env.login()

			res := env.run("", append([]string{"profile", "update"}, tt.args...)...)
			if tt.wantErr != nil {
				if !errors.Is(res.err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", res.err, tt.wantErr)
				}
				if n := env.backend.called("PUT /auth/update-profile"); n != 0 {
					t.Errorf("update sent %d times after local validation failed", n)
				}
				return
			}
			if res.err != nil {
				t.Fatalf("update: %v", res.err)
			}
			if got := strings.TrimSpace(res.stdout); got != "Profil diperbarui" {
				t.Errorf("stdout = %q", got)
			}
			body := env.backend.body("PUT /auth/update-profile")
			for k, v := range tt.wantBody {
				if body[k] != v {
					t.Errorf("%s = %v, want %v", k, body[k], v)
				}
			}
		})
	}
}
