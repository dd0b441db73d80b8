package importer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLFetcher_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			_, _ = w.Write([]byte("payload"))
		case "/moved":
			http.Redirect(w, r, "/ok", http.StatusFound)
		default:
			http.Error(w, "nope", http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	f := NewURLFetcher(srv.Client())

	body, err := f.Fetch(context.Background(), srv.URL+"/ok")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), body)

	body, err = f.Fetch(context.Background(), srv.URL+"/moved")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), body)

	_, err = f.Fetch(context.Background(), srv.URL+"/broken")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
}

func TestURLFetcher_Files(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "feed.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"products":[]}`), 0o600))

	f := NewURLFetcher(nil)

	body, err := f.Fetch(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, `{"products":[]}`, string(body))

	body, err = f.Fetch(context.Background(), "file://"+path)
	require.NoError(t, err)
	assert.Equal(t, `{"products":[]}`, string(body))

	_, err = f.Fetch(context.Background(), filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}

func TestURLFetcher_Rejects(t *testing.T) {
	f := NewURLFetcher(nil)

	for _, u := range []string{"", "ftp://example.com/feed.json", "http://[::1"} {
		_, err := f.Fetch(context.Background(), u)
		assert.Error(t, err, u)
	}
}
