// Package buildinfo exposes build-time version information of medpanel-cli.
//
// Values are injected via ldflags:
//
//	go build -ldflags "-X github.com/medpanel/medpanel-go/internal/infra/buildinfo.Version=v1.0.0 \
//	  -X github.com/medpanel/medpanel-go/internal/infra/buildinfo.Commit=abc123"
package buildinfo
