package apkportal

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValidVersion(t *testing.T) {
	cases := []struct {
		version string
		want    bool
	}{
		{"2.692.843", true},
		{"2.0.0", true},
		{"3.692.843", false},
		{"2.692", false},
		{"2.692.843.1", false},
		{"2.abc.843", false},
		{"", false},
		{"2..843", false},
	}
	for _, c := range cases {
		require.Equal(t, c.want, ValidVersion(c.version), c.version)
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Options{
		BaseURL:  server.URL,
		Attempts: 2,
		Delay:    time.Millisecond,
	})
}

func TestLatestVersionFromDownloadLink(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(
		[]byte("https://download.example/Roblox_2.692.843_apkcombo.com.xapk"),
	)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body>
			<a href="/download?url=%s">Download APK</a>
		</body></html>`, encoded)
	})

	version, err := client.LatestVersion(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "2.692.843", version)
}

func TestLatestVersionFromPageText(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<h1>Roblox</h1>
			<div class="version">2.693.100</div>
		</body></html>`)
	})

	version, err := client.LatestVersion(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "2.693.100", version)
}

func TestLatestVersionRetries(t *testing.T) {
	attempts := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			fmt.Fprint(w, `<html><body>Checking your browser...</body></html>`)
			return
		}
		fmt.Fprint(w, `<html><body><div class="version">2.700.001</div></body></html>`)
	})

	version, err := client.LatestVersion(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 2, attempts)
	require.Equal(t, "2.700.001", version)
}

func TestLatestVersionGivesUp(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>nothing useful here</body></html>`)
	})

	_, err := client.LatestVersion(context.Background())
	if err == nil {
		t.Fatal("expected an error when no version is present")
	}
}
