package runtimeconfig

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// Script returns an inline script assigning v onto window.__ENV__. Keys
// already present on the global object are left alone, so a value set in
// the browser before the script runs keeps priority.
func Script(v Values) []byte {
	// json.Marshal escapes <, > and & so the payload cannot close the tag.
	payload, err := json.Marshal(v.Public())
	if err != nil {
		payload = []byte("{}")
	}
	var b bytes.Buffer
	b.WriteString(`<script>(function(){var e=window.__ENV__=window.__ENV__||{};var v=`)
	b.Write(payload)
	b.WriteString(`;for(var k in v){if(!e[k]&&v[k]){e[k]=v[k];}}})();</script>`)
	return b.Bytes()
}

// InjectHTML inserts Script(v) right before </head>. Documents without a
// head get it after the opening <body> tag, and anything else gets it
// prepended.
func InjectHTML(doc []byte, v Values) []byte {
	script := Script(v)
	if i := indexFold(doc, "</head>"); i >= 0 {
		return splice(doc, i, script)
	}
	if i := indexFold(doc, "<body"); i >= 0 {
		if j := bytes.IndexByte(doc[i:], '>'); j >= 0 {
			return splice(doc, i+j+1, script)
		}
	}
	out := make([]byte, 0, len(script)+len(doc))
	out = append(out, script...)
	return append(out, doc...)
}

func splice(doc []byte, at int, insert []byte) []byte {
	out := make([]byte, 0, len(doc)+len(insert))
	out = append(out, doc[:at]...)
	out = append(out, insert...)
	return append(out, doc[at:]...)
}

// indexFold is an ASCII case-insensitive bytes.Index.
func indexFold(s []byte, sub string) int {
	n := len(sub)
	for i := 0; i+n <= len(s); i++ {
		if bytes.EqualFold(s[i:i+n], []byte(sub)) {
			return i
		}
	}
	return -1
}

// InjectMiddleware rewrites every uncompressed text/html response through
// InjectHTML using the values returned by values at request time.
func InjectMiddleware(values func() Values) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			res := c.Response()
			orig := res.Writer
			bw := &bufferedWriter{ResponseWriter: orig, code: http.StatusOK}
			res.Writer = bw
			defer func() { res.Writer = orig }()
			err := next(c)
			if !res.Committed {
				// Nothing written; the error handler renders on the real writer.
				return err
			}
			body := bw.buf.Bytes()
			h := orig.Header()
			if strings.HasPrefix(h.Get(echo.HeaderContentType), echo.MIMETextHTML) && h.Get(echo.HeaderContentEncoding) == "" {
				body = InjectHTML(body, values())
				if h.Get(echo.HeaderContentLength) != "" {
					h.Set(echo.HeaderContentLength, strconv.Itoa(len(body)))
				}
			}
			orig.WriteHeader(bw.code)
			if _, werr := orig.Write(body); werr != nil && err == nil {
				err = werr
			}
			return err
		}
	}
}

type bufferedWriter struct {
	http.ResponseWriter
	buf  bytes.Buffer
	code int
}

func (w *bufferedWriter) WriteHeader(code int) {
	w.code = code
}

func (w *bufferedWriter) Write(b []byte) (int, error) {
	return w.buf.Write(b)
}
