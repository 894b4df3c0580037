package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

// gzipResponseWriter wraps http.ResponseWriter to support gzip compression.
type gzipResponseWriter struct {
	io.Writer
	http.ResponseWriter
	wroteHeader bool
}

func (w *gzipResponseWriter) WriteHeader(status int) {
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *gzipResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.Writer.Write(b)
}

// gzipWriterPool pools gzip writers; both surfaces see bursty small JSON
// envelopes rather than streamed bodies, so per-request allocation would
// dominate.
var gzipWriterPool = sync.Pool{
	New: func() interface{} {
		return gzip.NewWriter(io.Discard)
	},
}

// Compression gzips response bodies for clients that advertise support.
// Tool listings and lint diagnostics are the bodies most likely to cross
// the 1KB mark; single-result execute/call responses usually don't, so the
// Accept-Encoding check alone (no size threshold) is enough to keep the
// common small-body case cheap: gzip.Writer still has to run, but the
// client simply won't request it for those endpoints in practice.
func Compression(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next(w, r)
			return
		}

		// The MCP gateway's /mcp/call can proxy a long-running tool call;
		// never wrap a connection that's being upgraded out from under it.
		if r.Header.Get("Upgrade") != "" {
			next(w, r)
			return
		}

		gz := gzipWriterPool.Get().(*gzip.Writer)
		defer gzipWriterPool.Put(gz)
		gz.Reset(w)
		defer func() {
			_ = gz.Close()
		}()

		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Del("Content-Length")

		gzw := &gzipResponseWriter{Writer: gz, ResponseWriter: w}
		next(gzw, r)
	}
}

// CompressionMiddleware adapts Compression to the func(http.Handler)
// http.Handler shape chi's Router.Use expects.
func CompressionMiddleware(next http.Handler) http.Handler {
	return Compression(next.ServeHTTP)
}
