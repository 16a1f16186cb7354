package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestGetInfo(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, Date
	defer func() {
		Version, Commit, Date = origVersion, origCommit, origDate
	}()

	Version = "1.0.0"
	Commit = "abc123def456"
	Date = "2026-01-01T12:00:00Z"

	info := GetInfo()
	if info.Version != "1.0.0" || info.Commit != "abc123def456" || info.Date != "2026-01-01T12:00:00Z" {
		t.Errorf("GetInfo() = %+v, want injected values", info)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %v, want %v", info.GoVersion, runtime.Version())
	}
	if info.Platform != runtime.GOOS+"/"+runtime.GOARCH {
		t.Errorf("Platform = %v", info.Platform)
	}
}

func TestInfoString(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want []string
	}{
		{
			name: "long commit is truncated",
			info: Info{Version: "1.0.0", Commit: "abc123def456", Date: "2026-01-01", GoVersion: "go1.24.6", Platform: "linux/amd64"},
			want: []string{"ghgate 1.0.0", "(abc123de)", "2026-01-01", "go1.24.6", "linux/amd64"},
		},
		{
			name: "short commit kept",
			info: Info{Version: "dev", Commit: "abc", Date: "unknown", GoVersion: "go1.24.6", Platform: "darwin/arm64"},
			want: []string{"ghgate dev", "(abc)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.info.String()
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("String() = %q, missing %q", got, want)
				}
			}
		})
	}
}

func TestUserAgent(t *testing.T) {
	info := Info{Version: "1.2.3", Platform: "linux/amd64"}
	if got := info.UserAgent(); got != "ghgate/1.2.3 (linux/amd64)" {
		t.Errorf("UserAgent() = %q", got)
	}
}
