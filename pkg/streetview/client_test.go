package streetview

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/streetview/metadata", r.URL.Path)
		assert.Equal(t, "42.3,-71.1", r.URL.Query().Get("location"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		_, _ = w.Write([]byte(`{"status":"OK","pano_id":"P1","date":"2019-06","location":{"lat":42.30001,"lng":-71.10001}}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	meta, err := c.Metadata(context.Background(), 42.3, -71.1)
	require.NoError(t, err)
	assert.True(t, meta.OK())
	assert.Equal(t, "P1", meta.PanoID)
	assert.Equal(t, "2019-06", meta.Date)
	assert.InDelta(t, 42.30001, meta.Location.Lat, 1e-9)
}

func TestMetadataNoImagery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS"}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	meta, err := c.Metadata(context.Background(), 0, 0)
	require.NoError(t, err, "no imagery is not an error")
	assert.False(t, meta.OK())
}

func TestMetadataHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := c.Metadata(context.Background(), 0, 0)
	assert.Error(t, err)
}

func TestImageRequestParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/streetview", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "P1", q.Get("pano"))
		assert.Equal(t, "120", q.Get("fov"))
		assert.Equal(t, "240", q.Get("heading"))
		assert.Equal(t, "0", q.Get("pitch"))
		assert.Equal(t, "400x400", q.Get("size"))
		_, _ = w.Write([]byte("jpegbytes"))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	data, err := c.Image(context.Background(), "P1", 120, 240, 0, 400)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpegbytes"), data)
}

func TestImageHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := c.Image(context.Background(), "P1", 120, 0, 0, 400)
	assert.Error(t, err)
}

func TestSignURL(t *testing.T) {
	secret := base64.URLEncoding.EncodeToString([]byte("super-secret-key"))
	raw := "https://example.com/streetview/metadata?location=1%2C2&key=k"

	signed, err := SignURL(raw, secret)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(signed, raw+"&signature="))

	// Verify the signature independently.
	u, err := url.Parse(raw)
	require.NoError(t, err)
	mac := hmac.New(sha1.New, []byte("super-secret-key"))
	mac.Write([]byte(u.Path + "?" + u.RawQuery))
	want := base64.URLEncoding.EncodeToString(mac.Sum(nil))
	assert.Equal(t, raw+"&signature="+want, signed)
}

func TestSignURLBadSecret(t *testing.T) {
	_, err := SignURL("https://example.com/a?b=c", "!!! not base64 !!!")
	assert.Error(t, err)
}

func TestSignedRequestCarriesSignature(t *testing.T) {
	var gotSig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.URL.Query().Get("signature")
		_, _ = w.Write([]byte(`{"status":"OK"}`))
	}))
	defer srv.Close()

	secret := base64.URLEncoding.EncodeToString([]byte("k"))
	c := NewClient("test-key", WithBaseURL(srv.URL), WithSigningSecret(secret))
	_, err := c.Metadata(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.NotEmpty(t, gotSig)
}
