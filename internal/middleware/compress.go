package middleware

import (
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

const defaultCompressMinLength = 1024

// compressWriter holds output back until it is large enough to be worth
// compressing. Smaller bodies are written as-is when the handler returns.
type compressWriter struct {
	gin.ResponseWriter
	br         *brotli.Writer
	quality    int
	pending    []byte
	minLength  int
	compressed bool
	bypass     bool
}

func (w *compressWriter) Write(data []byte) (int, error) {
	if w.bypass {
		return w.ResponseWriter.Write(data)
	}
	if w.compressed {
		return w.br.Write(data)
	}

	w.pending = append(w.pending, data...)
	if len(w.pending) < w.minLength {
		return len(data), nil
	}

	if isPrecompressed(w.Header().Get("Content-Type")) {
		w.bypass = true
	} else {
		w.compressed = true
		w.Header().Set("Content-Encoding", "br")
		w.Header().Del("Content-Length")
		w.br = brotli.NewWriterLevel(w.ResponseWriter, w.quality)
	}

	pending := w.pending
	w.pending = nil
	if w.compressed {
		_, err := w.br.Write(pending)
		return len(data), err
	}
	_, err := w.ResponseWriter.Write(pending)
	return len(data), err
}

func (w *compressWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// Flush switches the response to pass-through so streamed output is not held.
func (w *compressWriter) Flush() {
	if w.compressed {
		w.br.Flush()
	} else {
		w.bypass = true
		if len(w.pending) > 0 {
			_, _ = w.ResponseWriter.Write(w.pending)
			w.pending = nil
		}
	}
	w.ResponseWriter.Flush()
}

func (w *compressWriter) finish() error {
	if w.compressed {
		return w.br.Close()
	}
	if len(w.pending) == 0 {
		return nil
	}
	_, err := w.ResponseWriter.Write(w.pending)
	w.pending = nil
	return err
}

// Compress brotli-encodes JSON responses larger than minLength for clients
// that accept "br". SSE streams, WebSocket upgrades and already-zipped
// downloads pass through untouched.
func Compress(quality, minLength int) gin.HandlerFunc {
	if quality < brotli.BestSpeed || quality > brotli.BestCompression {
		quality = brotli.DefaultCompression
	}
	if minLength <= 0 {
		minLength = defaultCompressMinLength
	}

	return func(c *gin.Context) {
		if isStreaming(c.Request) || !acceptsBrotli(c.Request) {
			c.Next()
			return
		}

		c.Header("Vary", "Accept-Encoding")
		w := &compressWriter{ResponseWriter: c.Writer, quality: quality, minLength: minLength}
		c.Writer = w
		defer func() {
			if err := w.finish(); err != nil {
				_ = c.Error(err)
			}
		}()
		c.Next()
	}
}

func isStreaming(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		return true
	}
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

func isPrecompressed(contentType string) bool {
	return strings.Contains(contentType, "openxmlformats") ||
		strings.HasPrefix(contentType, "application/zip")
}

func acceptsBrotli(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		if strings.EqualFold(strings.TrimSpace(enc), "br") {
			return true
		}
	}
	return false
}
