package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmorgan81/cartoonbot/internal/datauri"
	"github.com/dmorgan81/cartoonbot/internal/handler"
	"github.com/dmorgan81/cartoonbot/internal/image"
	"github.com/dmorgan81/cartoonbot/internal/log"
	"github.com/dmorgan81/cartoonbot/internal/page"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

type fakeCartoonizer struct {
	input handler.Input
	out   handler.Output
	err   error
}

func (f *fakeCartoonizer) Cartoonize(_ context.Context, in handler.Input) (handler.Output, error) {
	f.input = in
	return f.out, f.err
}

type fakeSharer struct {
	out handler.ShareOutput
	err error
}

func (f *fakeSharer) Share(context.Context, handler.ShareInput) (handler.ShareOutput, error) {
	return f.out, f.err
}

func newTestServer(c Cartoonizer, s Sharer) http.Handler {
	srv := &Server{cartoonizer: c, sharer: s, templator: &page.Templator{}, maxBytes: 1 << 20}
	return srv.Routes(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func request(t *testing.T, h http.Handler, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestIndex(t *testing.T) {
	h := newTestServer(&fakeCartoonizer{}, nil)

	rec := request(t, h, http.MethodGet, "/", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "CartoonizeMe")

	rec = request(t, h, http.MethodGet, "/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = request(t, h, http.MethodDelete, "/", nil, "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealth(t *testing.T) {
	rec := request(t, newTestServer(&fakeCartoonizer{}, nil), http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCartoonizeJSON(t *testing.T) {
	c := &fakeCartoonizer{out: handler.Output{CartoonDataURI: "data:image/png;base64,Y2FydG9vbg=="}}
	h := newTestServer(c, nil)

	photo := datauri.Encode([]byte("photo"), "image/jpeg")
	rec := request(t, h, http.MethodPost, "/api/cartoonize", jsonBody(t, handler.Input{PhotoDataURI: photo}), "application/json")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"cartoonDataUri":"data:image/png;base64,Y2FydG9vbg=="}`, rec.Body.String())
	assert.Equal(t, photo, c.input.PhotoDataURI)
}

func TestCartoonizeMultipart(t *testing.T) {
	c := &fakeCartoonizer{out: handler.Output{CartoonDataURI: "data:image/png;base64,Y2FydG9vbg=="}}
	h := newTestServer(c, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {`form-data; name="photo"; filename="me.png"`},
		"Content-Type":        {"image/png"},
	})
	require.NoError(t, err)
	_, err = part.Write([]byte("photo"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec := request(t, h, http.MethodPost, "/api/cartoonize", &body, mw.FormDataContentType())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, datauri.Encode([]byte("photo"), "image/png"), c.input.PhotoDataURI)
}

func TestCartoonizeErrors(t *testing.T) {
	tests := map[string]struct {
		method string
		body   string
		err    error
		status int
	}{
		"wrong method":  {method: http.MethodGet, status: http.StatusMethodNotAllowed},
		"bad json":      {method: http.MethodPost, body: "{", status: http.StatusBadRequest},
		"not an image":  {method: http.MethodPost, body: `{}`, err: handler.ErrNotImage, status: http.StatusBadRequest},
		"too large":     {method: http.MethodPost, body: `{}`, err: handler.ErrTooLarge, status: http.StatusRequestEntityTooLarge},
		"model failure": {method: http.MethodPost, body: `{}`, err: image.ErrNoImage, status: http.StatusBadGateway},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			h := newTestServer(&fakeCartoonizer{err: tt.err}, nil)
			rec := request(t, h, tt.method, "/api/cartoonize", strings.NewReader(tt.body), "application/json")
			assert.Equal(t, tt.status, rec.Code)
			resp := decodeError(t, rec)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestCartoonizeModelFailureMessage(t *testing.T) {
	h := newTestServer(&fakeCartoonizer{err: image.ErrNoImage}, nil)
	rec := request(t, h, http.MethodPost, "/api/cartoonize", strings.NewReader(`{}`), "application/json")

	resp := decodeError(t, rec)
	assert.Equal(t, "Bad Gateway", resp.Error)
	assert.Equal(t, "Failed to cartoonize image: "+image.ErrNoImage.Error(), resp.Message)
}

func TestCartoonizeHidesUpstreamDetail(t *testing.T) {
	upstream := errors.New("operation error S3: PutObject, bucket cartoons-prod-1234: AccessDenied")
	h := newTestServer(&fakeCartoonizer{err: upstream}, nil)
	rec := request(t, h, http.MethodPost, "/api/cartoonize", strings.NewReader(`{}`), "application/json")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	resp := decodeError(t, rec)
	assert.True(t, strings.HasPrefix(resp.Message, "Failed to cartoonize image: "))
	assert.NotContains(t, resp.Message, "cartoons-prod-1234")
	assert.NotContains(t, resp.Message, "AccessDenied")
}

func TestCartoonizeBodyLimit(t *testing.T) {
	srv := &Server{cartoonizer: &fakeCartoonizer{}, templator: &page.Templator{}, maxBytes: 16}
	h := srv.Routes(slog.New(slog.NewTextHandler(io.Discard, nil)))

	big := `{"photoDataUri":"` + strings.Repeat("a", 200<<10) + `"}`
	rec := request(t, h, http.MethodPost, "/api/cartoonize", strings.NewReader(big), "application/json")
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestDownload(t *testing.T) {
	h := newTestServer(&fakeCartoonizer{}, nil)

	cartoon := datauri.Encode([]byte("jpegdata"), "image/jpeg")
	rec := request(t, h, http.MethodPost, "/api/download", jsonBody(t, handler.Output{CartoonDataURI: cartoon}), "application/json")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=cartoon_image.jpg", rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "jpegdata", rec.Body.String())
}

func TestDownloadRejects(t *testing.T) {
	h := newTestServer(&fakeCartoonizer{}, nil)

	rec := request(t, h, http.MethodPost, "/api/download", jsonBody(t, handler.Output{CartoonDataURI: "garbage"}), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	text := datauri.Encode([]byte("hi"), "text/plain")
	rec = request(t, h, http.MethodPost, "/api/download", jsonBody(t, handler.Output{CartoonDataURI: text}), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShare(t *testing.T) {
	out := handler.ShareOutput{ID: "abc", PageURL: "https://cdn.example.com/abc.html", TelegramURL: "https://t.me/share/url?url=x"}
	h := newTestServer(&fakeCartoonizer{}, &fakeSharer{out: out})

	rec := request(t, h, http.MethodPost, "/api/share", strings.NewReader(`{"cartoonDataUri":"data:image/png;base64,eA=="}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)

	var got handler.ShareOutput
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, out, got)
}

func TestShareDisabled(t *testing.T) {
	h := newTestServer(&fakeCartoonizer{}, nil)
	rec := request(t, h, http.MethodPost, "/api/share", strings.NewReader(`{}`), "application/json")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSharedFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "abc.html"), []byte("<html>shared</html>"), 0o644))

	srv := &Server{
		cartoonizer: &fakeCartoonizer{},
		sharer:      &fakeSharer{},
		templator:   &page.Templator{},
		maxBytes:    1 << 20,
		shared:      http.Dir(dir),
		sharedPath:  "/shared",
	}
	h := srv.Routes(slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec := request(t, h, http.MethodGet, "/shared/abc.html", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "shared")

	rec = request(t, h, http.MethodGet, "/shared/", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = request(t, h, http.MethodGet, "/shared/missing.png", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeShutsDown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(log.NewContext(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil))))
	srv := &Server{cartoonizer: &fakeCartoonizer{}, templator: &page.Templator{}, maxBytes: 1 << 20}

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	client := &http.Client{Timeout: 5 * time.Second}
	require.Eventually(t, func() bool {
		resp, err := client.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)
	client.CloseIdleConnections()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
