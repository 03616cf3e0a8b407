package files

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medvault/medvault/pkg/logging"
)

// previewLinger is how long a handle survives after its last read, so a
// viewer's follow-up requests (range fetches, a quick reload) still land.
const previewLinger = 500 * time.Millisecond

// PreviewServer serves transient byte handles over a loopback listener so
// an external viewer can load them, the way a browser loads an object URL.
// Handles are deregistered on release.
type PreviewServer struct {
	logger *logging.Logger
	grace  time.Duration
	ln     net.Listener
	srv    *http.Server

	mu      sync.Mutex
	handles map[string]*Handle
	closed  bool
}

// NewPreviewServer starts listening on addr (use port 0 for an ephemeral
// port). grace bounds how long an unconsumed handle may live.
func NewPreviewServer(addr string, grace time.Duration, logger *logging.Logger) (*PreviewServer, error) {
	if logger == nil {
		logger = logging.Default()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("files: listen %s: %w", addr, err)
	}
	s := &PreviewServer{
		logger:  logger,
		grace:   grace,
		ln:      ln,
		handles: make(map[string]*Handle),
	}

	r := chi.NewRouter()
	r.Get("/preview/{token}", s.serve)
	s.srv = &http.Server{Handler: r}
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Warn("preview server stopped", "error", err)
		}
	}()
	return s, nil
}

// Register creates a handle for the given bytes and arms its grace timer.
func (s *PreviewServer) Register(filename, contentType string, data []byte) *Handle {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	token := uuid.NewString()
	h := &Handle{
		token:       token,
		filename:    filename,
		contentType: contentType,
		data:        data,
		url:         fmt.Sprintf("http://%s/preview/%s", s.ln.Addr().String(), token),
		lingerDelay: previewLinger,
		done:        make(chan struct{}),
		onClose:     s.deregister,
	}
	h.grace = time.AfterFunc(s.grace, func() {
		s.logger.Debug("preview handle expired unconsumed", "filename", filename)
		h.Close()
	})

	s.mu.Lock()
	s.handles[token] = h
	s.mu.Unlock()
	return h
}

func (s *PreviewServer) serve(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	s.mu.Lock()
	h, ok := s.handles[token]
	s.mu.Unlock()
	if !ok || !h.retain() {
		http.NotFound(w, r)
		return
	}
	defer h.release()

	h.mu.Lock()
	data, contentType, filename := h.data, h.contentType, h.filename
	h.mu.Unlock()

	// Inline disposition so viewers render instead of downloading.
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
	w.Write(data)
}

func (s *PreviewServer) deregister(token string) {
	s.mu.Lock()
	delete(s.handles, token)
	s.mu.Unlock()
}

// Close releases all live handles and stops the listener.
func (s *PreviewServer) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	live := make([]*Handle, 0, len(s.handles))
	for _, h := range s.handles {
		live = append(live, h)
	}
	s.mu.Unlock()

	for _, h := range live {
		h.Close()
	}
	return s.srv.Close()
}
