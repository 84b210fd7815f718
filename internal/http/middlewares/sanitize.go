package middlewares

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
)

var (
	scriptTagRe    = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	jsProtocolRe   = regexp.MustCompile(`(?i)javascript:`)
	eventHandlerRe = regexp.MustCompile(`(?i)on\w+\s*=`)
)

func sanitizeString(s string) string {
	s = scriptTagRe.ReplaceAllString(s, "")
	s = jsProtocolRe.ReplaceAllString(s, "")
	s = eventHandlerRe.ReplaceAllString(s, "")
	return s
}

func sanitizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case string:
		return sanitizeString(val)
	case map[string]interface{}:
		for k, inner := range val {
			val[k] = sanitizeValue(inner)
		}
		return val
	case []interface{}:
		for i, inner := range val {
			val[i] = sanitizeValue(inner)
		}
		return val
	default:
		return v
	}
}

// SanitizeInput strips script tags, javascript: schemes and inline event
// handlers from JSON body strings and query parameters before binding.
// Non-JSON or unparsable bodies pass through untouched; binding reports
// those on its own.
func SanitizeInput() gin.HandlerFunc {
	return func(c *gin.Context) {
		// query parameters
		q := c.Request.URL.Query()
		dirty := false

		for key, values := range q {
			for i, v := range values {
				clean := sanitizeString(v)
				if clean != v {
					values[i] = clean
					dirty = true
				}
			}
			q[key] = values
		}

		if dirty {
			c.Request.URL.RawQuery = q.Encode()
		}

		// JSON bodies
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			if c.Request.Body == nil || c.Request.ContentLength == 0 {
				break
			}

			raw, err := io.ReadAll(c.Request.Body)

			if err != nil {
				var maxErr *http.MaxBytesError

				if errors.As(err, &maxErr) {
					c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
						"success": false,
						"error": gin.H{
							"code":    "PAYLOAD_TOO_LARGE",
							"message": "Request body exceeds the size limit",
						},
					})
					return
				}

				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
					"success": false,
					"error": gin.H{
						"code":    "VALIDATION_ERROR",
						"message": "Could not read request body",
					},
				})
				return
			}

			var parsed interface{}

			if json.Unmarshal(raw, &parsed) == nil {
				if clean, err := json.Marshal(sanitizeValue(parsed)); err == nil {
					raw = clean
				}
			}

			c.Request.Body = io.NopCloser(bytes.NewReader(raw))
			c.Request.ContentLength = int64(len(raw))
		}

		c.Next()
	}
}
