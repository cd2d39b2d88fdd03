package middleware

import (
    "bytes"
    "context"
    "encoding/binary"
    "encoding/json"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/community-events/internal/cache"
)

// captureWriter captures response body/status while forwarding to the client.
type captureWriter struct {
    http.ResponseWriter
    status   int
    buf      bytes.Buffer
    size     int64
    limit    int64
    overflow bool
}

func (cw *captureWriter) WriteHeader(code int) { cw.status = code; cw.ResponseWriter.WriteHeader(code) }

func (cw *captureWriter) Write(b []byte) (int, error) {
    cw.size += int64(len(b))
    if cw.limit > 0 && cw.size > cw.limit {
        cw.overflow = true
    }
    if !cw.overflow {
        cw.buf.Write(b)
    }
    return cw.ResponseWriter.Write(b)
}

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
    hdrJSON, err := json.Marshal(header)
    if err != nil {
        return nil, err
    }
    out := make([]byte, 8+len(hdrJSON)+len(body))
    binary.BigEndian.PutUint32(out[0:4], uint32(status))
    binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
    copy(out[8:8+len(hdrJSON)], hdrJSON)
    copy(out[8+len(hdrJSON):], body)
    return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
    if len(bs) < 8 {
        return 0, nil, nil, false
    }
    status = int(binary.BigEndian.Uint32(bs[0:4]))
    hlen := int(binary.BigEndian.Uint32(bs[4:8]))
    if hlen < 0 || 8+hlen > len(bs) {
        return 0, nil, nil, false
    }
    hdr := make(http.Header)
    if hlen > 0 {
        if err := json.Unmarshal(bs[8:8+hlen], &hdr); err != nil {
            return 0, nil, nil, false
        }
    }
    return status, hdr, bs[8+hlen:], true
}

// skipReplay reports whether a stored header is left out of a cached
// response.  X-Cache is set per response, Content-Length is recomputed and
// X-Request-Id was already set for the current request.
func skipReplay(k string) bool {
    return strings.EqualFold(k, echo.HeaderContentLength) ||
        strings.EqualFold(k, "X-Cache") ||
        strings.EqualFold(k, echo.HeaderXRequestID)
}

// KeyFunc names the cache entry for a request.  An empty key skips caching.
type KeyFunc func(c echo.Context) string

// NewResponseCache serves GET responses from store under the key named by
// keyFn and stores 200 responses on a miss.  Using named keys rather than
// hashed URLs lets writers invalidate exactly the views they changed.
// Headers and body are stored so clients see identical formatting.  A nil
// store disables caching.
func NewResponseCache(store *cache.Store, maxBodyBytes int, keyFn KeyFunc) echo.MiddlewareFunc {
    if store == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    maxBody := int64(maxBodyBytes)

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if c.Request().Method != http.MethodGet {
                return next(c)
            }
            key := keyFn(c)
            if key == "" {
                return next(c)
            }

            ctx := c.Request().Context()
            if bs, ok := store.Get(ctx, key); ok {
                if status, hdr, body, ok := decodePayload(bs); ok {
                    for k, vals := range hdr {
                        if skipReplay(k) {
                            continue
                        }
                        for _, v := range vals {
                            c.Response().Header().Add(k, v)
                        }
                    }
                    c.Response().Header().Set("X-Cache", "HIT")
                    c.Response().WriteHeader(status)
                    if len(body) > 0 {
                        _, _ = c.Response().Write(body)
                    }
                    return nil
                }
            }

            // Miss: capture
            cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
            c.Response().Writer = cw
            c.Response().Header().Set("X-Cache", "MISS")

            if err := next(c); err != nil {
                return err
            }

            if cw.status == http.StatusOK && !cw.overflow {
                hdr := c.Response().Header().Clone()
                // the request ID belongs to this request only
                hdr.Del(echo.HeaderXRequestID)
                if payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes()); err == nil {
                    _ = store.Set(context.WithoutCancel(ctx), key, payload, 0)
                }
            }
            return nil
        }
    }
}
