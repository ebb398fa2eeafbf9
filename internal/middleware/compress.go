package middleware

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

// DefaultCompressMinLength is the smallest body worth compressing.
const DefaultCompressMinLength = 1024

// bufferedWriter holds the whole body so the encoding can be chosen once the
// final size is known.
type bufferedWriter struct {
	gin.ResponseWriter
	body   bytes.Buffer
	status int
}

func (w *bufferedWriter) WriteHeader(code int) { w.status = code }

func (w *bufferedWriter) WriteHeaderNow() {}

func (w *bufferedWriter) Write(data []byte) (int, error) { return w.body.Write(data) }

func (w *bufferedWriter) WriteString(s string) (int, error) { return w.body.WriteString(s) }

func (w *bufferedWriter) Status() int { return w.status }

func (w *bufferedWriter) Size() int { return w.body.Len() }

func (w *bufferedWriter) Written() bool { return w.body.Len() > 0 }

// Brotli compresses JSON bodies of at least minLength bytes for clients that
// accept "br". Quiz papers and result breakdowns are the large responses.
func Brotli(minLength, quality int) gin.HandlerFunc {
	if minLength <= 0 {
		minLength = DefaultCompressMinLength
	}
	if quality < brotli.BestSpeed || quality > brotli.BestCompression {
		quality = brotli.DefaultCompression
	}

	return func(c *gin.Context) {
		if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") || !acceptsBrotli(c.Request) {
			c.Next()
			return
		}

		original := c.Writer
		bw := &bufferedWriter{ResponseWriter: original, status: http.StatusOK}
		c.Writer = bw
		c.Next()
		c.Writer = original

		c.Header("Vary", "Accept-Encoding")
		body := bw.body.Bytes()
		if len(body) < minLength || !strings.HasPrefix(original.Header().Get("Content-Type"), "application/json") {
			original.WriteHeader(bw.status)
			_, _ = original.Write(body)
			return
		}

		var compressed bytes.Buffer
		zw := brotli.NewWriterLevel(&compressed, quality)
		if _, err := zw.Write(body); err != nil || zw.Close() != nil {
			original.WriteHeader(bw.status)
			_, _ = original.Write(body)
			return
		}

		original.Header().Set("Content-Encoding", "br")
		original.Header().Set("Content-Length", strconv.Itoa(compressed.Len()))
		original.WriteHeader(bw.status)
		_, _ = original.Write(compressed.Bytes())
	}
}

func acceptsBrotli(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		name := strings.TrimSpace(strings.SplitN(enc, ";", 2)[0])
		if strings.EqualFold(name, "br") {
			return true
		}
	}
	return false
}
