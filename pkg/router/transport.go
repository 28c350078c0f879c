package router

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"sync"
)

// maxBodyBytes caps how much of a request payload is read.
const maxBodyBytes = 8 << 20

// Transport supplies the raw payload, parsed form fields and cookies of the
// inbound request.
type Transport interface {
	Body() ([]byte, error)
	Form() url.Values
	Cookie(name string) (string, bool)
}

// HTTPTransport adapts a net/http request. The body is read at most once.
func HTTPTransport(r *http.Request) Transport {
	return &httpTransport{r: r}
}

type httpTransport struct {
	r    *http.Request
	once sync.Once
	body []byte
	form url.Values
	err  error
}

func (t *httpTransport) load() {
	t.once.Do(func() {
		mediaType, _, _ := mime.ParseMediaType(t.r.Header.Get("Content-Type"))

		switch mediaType {
		case "multipart/form-data":
			if err := t.r.ParseMultipartForm(maxBodyBytes); err != nil {
				t.err = fmt.Errorf("parse multipart form: %w", err)
				return
			}
			t.form = t.r.PostForm
		default:
			if t.r.Body == nil {
				return
			}
			data, err := io.ReadAll(io.LimitReader(t.r.Body, maxBodyBytes))
			if err != nil {
				t.err = fmt.Errorf("read request body: %w", err)
				return
			}
			t.body = data

			if mediaType == "application/x-www-form-urlencoded" {
				form, err := url.ParseQuery(string(data))
				if err != nil {
					t.err = fmt.Errorf("parse form: %w", err)
					return
				}
				t.form = form
			}
		}
	})
}

func (t *httpTransport) Body() ([]byte, error) {
	t.load()
	return t.body, t.err
}

func (t *httpTransport) Form() url.Values {
	t.load()
	return t.form
}

func (t *httpTransport) Cookie(name string) (string, bool) {
	c, err := t.r.Cookie(name)
	if err != nil {
		return "", false
	}
	return c.Value, true
}

// StaticTransport is a fixed Transport, mainly for tests and sub-requests.
type StaticTransport struct {
	Payload []byte
	Fields  url.Values
	Cookies map[string]string
}

// Body returns the fixed payload.
func (s StaticTransport) Body() ([]byte, error) {
	return s.Payload, nil
}

// Form returns the fixed form fields.
func (s StaticTransport) Form() url.Values {
	return s.Fields
}

// Cookie returns a fixed cookie value.
func (s StaticTransport) Cookie(name string) (string, bool) {
	v, ok := s.Cookies[name]
	return v, ok
}
