// File: internal/network/compression_test.go
package network

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const payload = `{"answers":{"What is your family name (surname)?":"Doe"}}`

func encode(t *testing.T, encoding string, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	var w io.WriteCloser
	switch encoding {
	case "gzip":
		w = gzip.NewWriter(&buf)
	case "br":
		w = brotli.NewWriter(&buf)
	case "deflate":
		w = zlib.NewWriter(&buf)
	case "raw-deflate":
		fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
		require.NoError(t, err)
		w = fw
	default:
		t.Fatalf("unknown encoding %q", encoding)
	}
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestCompressionMiddleware(t *testing.T) {
	cases := []struct {
		name   string
		scheme string
		header string
	}{
		{"gzip", "gzip", "gzip"},
		{"brotli", "br", "br"},
		{"zlib deflate", "deflate", "deflate"},
		{"raw deflate", "raw-deflate", "deflate"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := encode(t, tc.scheme, []byte(payload))
			var gotAccept string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotAccept = r.Header.Get("Accept-Encoding")
				w.Header().Set("Content-Encoding", tc.header)
				_, _ = w.Write(body)
			}))
			defer srv.Close()

			client := &http.Client{Transport: NewCompressionMiddleware(nil)}
			resp, err := client.Get(srv.URL)
			require.NoError(t, err)
			defer resp.Body.Close()

			got, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, payload, string(got))
			assert.Equal(t, AcceptEncoding, gotAccept)
			assert.Empty(t, resp.Header.Get("Content-Encoding"))
			assert.True(t, resp.Uncompressed)
		})
	}
}

func TestDecompressResponse(t *testing.T) {
	t.Run("no encoding leaves body untouched", func(t *testing.T) {
		resp := &http.Response{Header: http.Header{}, Body: io.NopCloser(strings.NewReader("plain"))}
		require.NoError(t, DecompressResponse(resp))
		got, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "plain", string(got))
		assert.False(t, resp.Uncompressed)
	})

	t.Run("layered encodings decode in reverse order", func(t *testing.T) {
		inner := encode(t, "deflate", []byte(payload))
		outer := encode(t, "gzip", inner)
		resp := &http.Response{
			Header: http.Header{"Content-Encoding": []string{"deflate, gzip"}},
			Body:   io.NopCloser(bytes.NewReader(outer)),
		}
		require.NoError(t, DecompressResponse(resp))
		got, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, payload, string(got))
		assert.NoError(t, resp.Body.Close())
	})

	t.Run("unsupported encoding", func(t *testing.T) {
		resp := &http.Response{
			Header: http.Header{"Content-Encoding": []string{"zstd"}},
			Body:   io.NopCloser(strings.NewReader("x")),
		}
		err := DecompressResponse(resp)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported Content-Encoding layer: zstd")
	})

	t.Run("corrupt gzip header", func(t *testing.T) {
		resp := &http.Response{
			Header: http.Header{"Content-Encoding": []string{"gzip"}},
			Body:   io.NopCloser(strings.NewReader("not gzip at all")),
		}
		err := DecompressResponse(resp)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "gzip initialization error")
	})
}

func TestNewClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(encode(t, "gzip", []byte(payload)))
	}))
	defer srv.Close()

	client := NewClient(nil)
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, payload, string(got))
	assert.Equal(t, DefaultRequestTimeout, client.Timeout)
}
