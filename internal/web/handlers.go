package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"io/fs"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cjeanneret/BoothGo/internal/archive"
	"github.com/cjeanneret/BoothGo/internal/booth"
	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/dispatch"
	"github.com/cjeanneret/BoothGo/internal/logic/strip"
	"github.com/disintegration/imaging"
	"github.com/gorilla/websocket"
)

// MaxBodyBytes caps request bodies on POST routes.
const MaxBodyBytes = 1 << 10

// Controller is the booth as seen by the web screen.
type Controller interface {
	Tap()
	Act(a dispatch.Action)
	Status() booth.Status
	StripJPEG() ([]byte, int, error)
}

// StripLister lists archived strips.
type StripLister interface {
	Recent(ctx context.Context, limit int) ([]archive.Record, error)
}

// KioskConfig is what the page needs to draw itself (GET /config).
type KioskConfig struct {
	EventName      string               `json:"event_name"`
	PhotosPerStrip int                  `json:"photos_per_strip"`
	PreviewHeight  int                  `json:"preview_height"`
	TransitionMs   int                  `json:"transition_ms"`
	Actions        []booth.PromptAction `json:"actions"`
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Logs   *Broadcaster
	Events *Broadcaster
	Booth  Controller
	Strips StripLister
	Kiosk  KioskConfig

	cooldown time.Duration
	tapMu    sync.Mutex
	lastTap  time.Time
	now      func() time.Time

	staticFS fs.FS
	upgrader websocket.Upgrader
}

// NewHandlers creates handlers with the given dependencies.
// If ctl is nil, POST /tap and POST /action return 503 Service Unavailable.
func NewHandlers(logs, events *Broadcaster, ctl Controller, strips StripLister, kiosk KioskConfig, cooldown time.Duration, staticFS fs.FS) *Handlers {
	return &Handlers{
		Logs:     logs,
		Events:   events,
		Booth:    ctl,
		Strips:   strips,
		Kiosk:    kiosk,
		cooldown: cooldown,
		now:      time.Now,
		staticFS: staticFS,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The kiosk page is served by this process; other origins are refused.
			CheckOrigin: sameOrigin,
		},
	}
}

func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// HandleConfig returns the kiosk settings (from config) as JSON.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Kiosk)
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// allowTap applies the tap cooldown. Touch screens report bursts of taps.
func (h *Handlers) allowTap() bool {
	h.tapMu.Lock()
	defer h.tapMu.Unlock()
	now := h.now()
	if !h.lastTap.IsZero() && now.Sub(h.lastTap) < h.cooldown {
		return false
	}
	h.lastTap = now
	return true
}

// HandleTap handles POST /tap: start a session or bring back the prompt.
func (h *Handlers) HandleTap(w http.ResponseWriter, r *http.Request) {
	if h.Booth == nil {
		http.Error(w, "booth not configured", http.StatusServiceUnavailable)
		return
	}
	if !h.allowTap() {
		http.Error(w, "too many taps", http.StatusTooManyRequests)
		return
	}
	h.Booth.Tap()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "tapped"})
}

type actionRequest struct {
	Action string `json:"action"`
}

// HandleAction handles POST /action with {"action":"print"}.
func (h *Handlers) HandleAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	a, err := dispatch.ParseAction(req.Action)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if h.Booth == nil {
		http.Error(w, "booth not configured", http.StatusServiceUnavailable)
		return
	}
	h.Booth.Act(a)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "action": a.String()})
}

// HandleStatus returns the booth snapshot.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if h.Booth == nil {
		http.Error(w, "booth not configured", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, h.Booth.Status())
}

// HandleStrip serves the strip on screen. ?height=N scales it to the
// screen height.
func (h *Handlers) HandleStrip(w http.ResponseWriter, r *http.Request) {
	if h.Booth == nil {
		http.Error(w, "booth not configured", http.StatusServiceUnavailable)
		return
	}
	data, version, err := h.Booth.StripJPEG()
	if errors.Is(err, booth.ErrNoStrip) {
		http.Error(w, "no strip", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if hs := r.URL.Query().Get("height"); hs != "" {
		height, err := strconv.Atoi(hs)
		if err != nil || height <= 0 || height > 8192 {
			http.Error(w, "height must be between 1 and 8192", http.StatusBadRequest)
			return
		}
		data, err = preview(data, height)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("ETag", strconv.Quote("strip-"+strconv.Itoa(version)))
	w.Write(data)
}

func preview(data []byte, height int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if img.Bounds().Dy() == height {
		return data, nil
	}
	var out image.Image = strip.Preview(img, height)
	var buf bytes.Buffer
	if err := strip.EncodeJPEG(&buf, out, 90); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// HandleStrips lists archived strips, newest first (?limit=N, max 200).
func (h *Handlers) HandleStrips(w http.ResponseWriter, r *http.Request) {
	if h.Strips == nil {
		http.Error(w, "archive not configured", http.StatusServiceUnavailable)
		return
	}
	limit := 20
	if ls := r.URL.Query().Get("limit"); ls != "" {
		n, err := strconv.Atoi(ls)
		if err != nil || n <= 0 || n > 200 {
			http.Error(w, "limit must be between 1 and 200", http.StatusBadRequest)
			return
		}
		limit = n
	}
	recs, err := h.Strips.Recent(r.Context(), limit)
	if err != nil {
		debug.Error(err)
		http.Error(w, "archive unavailable", http.StatusInternalServerError)
		return
	}
	if recs == nil {
		recs = []archive.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Logs.Subscribe()
	defer unsub()

	// Send initial comment to establish connection
	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
