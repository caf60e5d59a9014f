package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dmorgan81/cartoonbot/internal/datauri"
	"github.com/dmorgan81/cartoonbot/internal/handler"
	"github.com/dmorgan81/cartoonbot/internal/log"
	"github.com/dmorgan81/cartoonbot/internal/page"
	"github.com/dmorgan81/cartoonbot/internal/share"
	"github.com/google/uuid"
	"github.com/samber/do"
)

const (
	shutdownTimeout = 10 * time.Second
	// Room for base64 expansion and the JSON or multipart envelope.
	envelopeBytes = 64 << 10
)

var errBadRequest = errors.New("bad request")

type Cartoonizer interface {
	Cartoonize(context.Context, handler.Input) (handler.Output, error)
}

type Sharer interface {
	Share(context.Context, handler.ShareInput) (handler.ShareOutput, error)
}

type Server struct {
	cartoonizer Cartoonizer
	sharer      Sharer
	templator   *page.Templator
	maxBytes    int64
	addr        string

	// shared serves locally written shares under sharedPath.
	shared     http.FileSystem
	sharedPath string
}

func NewServer(i *do.Injector) (*Server, error) {
	s := &Server{
		cartoonizer: do.MustInvoke[*handler.Handler](i),
		templator:   do.MustInvoke[*page.Templator](i),
		maxBytes:    do.MustInvokeNamed[int64](i, "max_upload_bytes"),
		addr:        do.MustInvokeNamed[string](i, "addr"),
	}
	sharer, err := do.Invoke[*handler.Sharer](i)
	switch {
	case err == nil:
		s.sharer = sharer
	case errors.Is(err, handler.ErrSharingDisabled):
	default:
		return nil, fmt.Errorf("build sharer: %w", err)
	}
	if path := do.MustInvokeNamed[string](i, "share_path"); s.sharer != nil && path != "" {
		s.shared = http.Dir(do.MustInvokeNamed[string](i, "share_dir"))
		s.sharedPath = path
	}
	return s, nil
}

func (s *Server) Routes(logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/cartoonize", s.handleCartoonize)
	mux.HandleFunc("/api/download", s.handleDownload)
	mux.HandleFunc("/api/share", s.handleShare)
	if s.shared != nil {
		mux.Handle(s.sharedPath+"/", http.StripPrefix(s.sharedPath, sharedFiles(s.shared)))
	}
	return withLogger(logger, mux)
}

// sharedFiles serves shared images and pages without directory listings.
func sharedFiles(fs http.FileSystem) http.Handler {
	files := http.FileServer(fs)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			sendError(w, http.StatusNotFound, "Not found")
			return
		}
		files.ServeHTTP(w, r)
	})
}

// Run listens on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	logger := log.FromContextOrDiscard(ctx)
	srv := &http.Server{
		Handler:           s.Routes(logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      3 * time.Minute,
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		sendError(w, http.StatusNotFound, "Not found")
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	html, err := s.templator.Index(r.Context(), page.IndexParams{
		Title:        "CartoonizeMe",
		MaxUploadMB:  max(s.maxBytes>>20, 1),
		ShareEnabled: s.sharer != nil,
	})
	if err != nil {
		log.FromContextOrDiscard(r.Context()).Error("rendering index", log.Err(err))
		sendError(w, http.StatusInternalServerError, "Could not render page")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(html)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCartoonize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.bodyLimit())

	input, err := s.readPhoto(r)
	if err != nil {
		s.fail(w, r, "Failed to read photo", err)
		return
	}

	out, err := s.cartoonizer.Cartoonize(r.Context(), input)
	if err != nil {
		s.fail(w, r, "Failed to cartoonize image", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.bodyLimit())

	var in handler.Output
	if err := decodeJSON(r.Body, &in); err != nil {
		s.fail(w, r, "Failed to read cartoon", err)
		return
	}
	cartoon, err := datauri.Parse(in.CartoonDataURI)
	if err != nil {
		s.fail(w, r, "Failed to read cartoon", fmt.Errorf("%w: %w", handler.ErrInvalidPhoto, err))
		return
	}
	if !cartoon.IsImage() {
		s.fail(w, r, "Failed to read cartoon", handler.ErrNotImage)
		return
	}

	w.Header().Set("Content-Type", cartoon.MIMEType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": share.Filename(cartoon.MIMEType),
	}))
	_, _ = w.Write(cartoon.Data)
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.sharer == nil {
		sendError(w, http.StatusNotFound, handler.ErrSharingDisabled.Error())
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.bodyLimit())

	var in handler.ShareInput
	if err := decodeJSON(r.Body, &in); err != nil {
		s.fail(w, r, "Failed to read cartoon", err)
		return
	}
	out, err := s.sharer.Share(r.Context(), in)
	if err != nil {
		s.fail(w, r, "Failed to share image", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) bodyLimit() int64 {
	return s.maxBytes/3*4 + 4 + envelopeBytes
}

// readPhoto accepts either a JSON body carrying a data URI or a multipart
// upload in the "photo" field.
func (s *Server) readPhoto(r *http.Request) (handler.Input, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var in handler.Input
		err := decodeJSON(r.Body, &in)
		return in, err
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		return handler.Input{}, wrapBadRequest(err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return handler.Input{}, wrapBadRequest(err)
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return handler.Input{PhotoDataURI: datauri.Encode(data, contentType)}, nil
}

func decodeJSON(body io.Reader, v any) error {
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return wrapBadRequest(err)
	}
	return nil
}

func wrapBadRequest(err error) error {
	return fmt.Errorf("%w: %w", errBadRequest, err)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func withLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqLogger := logger.With(
			"request_id", uuid.NewString(),
			"method", r.Method,
			"path", r.URL.Path,
		)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(log.NewContext(r.Context(), reqLogger)))
		reqLogger.Info("handled request", "status", rec.status, "duration", time.Since(start))
	})
}
