package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"flagrate-rgb/internal/colour"
	"flagrate-rgb/internal/config"
	"flagrate-rgb/internal/model"
	"flagrate-rgb/internal/service"
	"flagrate-rgb/internal/ws"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	cfg         config.Config
	hub         *ws.Hub
	hardwareHub *ws.HardwareHub
	syncSvc     *service.SyncService
	extractor   *service.Extractor
	mapper      service.LEDMapper
	upgrader    websocket.Upgrader
}

type apiError struct {
	Error string `json:"error"`
}

type statusResponse struct {
	model.Status
	Menu []string `json:"menu"`
}

type extractResponse struct {
	Palette   []model.PaletteEntry `json:"palette"`
	MainColor colour.Color         `json:"main_color"`
	LED       model.LEDMatch       `json:"led"`
	Command   string               `json:"command"`
}

func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	st := h.syncSvc.Status()
	writeJSON(w, http.StatusOK, statusResponse{Status: st, Menu: st.MenuLines()})
}

// Icon renders the tray badge for the current strip colour; white while
// nothing has been applied yet.
func (h *Handler) Icon(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	c := colour.White
	if st := h.syncSvc.Status(); st.Command != "" {
		c = st.LED.Color
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := service.WriteIconPNG(w, c); err != nil {
		log.Error().Err(err).Msg("Failed to encode icon")
	}
}

func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, errors.New("websocket requires GET"))
		return
	}
	if !websocket.IsWebSocketUpgrade(r) {
		writeErr(w, http.StatusBadRequest, errors.New("websocket upgrade required"))
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("remote", r.RemoteAddr).Str("uri", r.RequestURI).Msg("ws upgrade failed")
		return
	}
	client := ws.NewClient(h.hub, conn)
	// A new dashboard gets the current status without waiting for a change.
	if b, err := ws.EncodeEvent(model.Event{Type: service.EventStatusUpdated, Payload: h.syncSvc.Status()}); err == nil {
		client.Enqueue(b)
	}
	h.hub.Register(client)
	log.Debug().Str("remote", r.RemoteAddr).Msg("ws client connected")
	go client.WritePump()
	go client.ReadPump()
}

func (h *Handler) HardwareWebSocket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, errors.New("websocket requires GET"))
		return
	}
	if !websocket.IsWebSocketUpgrade(r) {
		writeErr(w, http.StatusBadRequest, errors.New("websocket upgrade required"))
		return
	}
	deviceID := strings.TrimSpace(r.URL.Query().Get("device_id"))
	if deviceID == "" {
		writeErr(w, http.StatusBadRequest, errors.New("device_id required"))
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("remote", r.RemoteAddr).Str("device", deviceID).Msg("hardware ws upgrade failed")
		return
	}
	client := h.hardwareHub.Register(deviceID, conn)
	log.Info().Str("device", deviceID).Str("remote", r.RemoteAddr).Msg("Hardware device connected")
	go client.WritePump()
	go client.ReadPump()
}

func (h *Handler) HardwareDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	ids := h.hardwareHub.Devices()
	sort.Strings(ids)
	writeJSON(w, http.StatusOK, map[string][]string{"devices": ids})
}

// Extract runs the cover pipeline on an uploaded image without touching the
// strip.
func (h *Handler) Extract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := r.ParseMultipartForm(h.cfg.MaxUploadSizeBytes); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	file, fileHeader, err := r.FormFile("image")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	defer file.Close()

	if err := validateImageUpload(fileHeader); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	b, err := io.ReadAll(file)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	img, err := service.DecodeImage(b)
	if err != nil {
		writeErr(w, http.StatusUnprocessableEntity, err)
		return
	}
	palette, err := h.extractor.ExtractPalette(img)
	if err != nil {
		writeErr(w, http.StatusUnprocessableEntity, err)
		return
	}
	main := h.extractor.MainColor(palette)
	led := service.ResolveLED(h.mapper, main)
	writeJSON(w, http.StatusOK, extractResponse{
		Palette:   palette,
		MainColor: main,
		LED:       led,
		Command:   service.EncodeCommand(led.Code),
	})
}

// Match maps an arbitrary colour given as ?r=&g=&b= onto the strip palette.
// Grayscale input resolves to the white preset, as a gray cover would.
func (h *Handler) Match(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	c, err := colourFromQuery(r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	gray := colour.IsGrayscale(c, h.extractor.Params().Grayscale)
	target := c
	if gray {
		target = colour.White
	}
	led := service.ResolveLED(h.mapper, target)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"color":     c,
		"grayscale": gray,
		"led":       led,
		"command":   service.EncodeCommand(led.Code),
	})
}

func colourFromQuery(r *http.Request) (colour.Color, error) {
	q := r.URL.Query()
	var ch [3]int
	for i, key := range []string{"r", "g", "b"} {
		v := strings.TrimSpace(q.Get(key))
		if v == "" {
			return colour.Color{}, fmt.Errorf("%s required", key)
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return colour.Color{}, fmt.Errorf("%s: not an integer", key)
		}
		ch[i] = n
	}
	return colour.New(ch[0], ch[1], ch[2])
}

func validateImageUpload(header *multipart.FileHeader) error {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return nil
	default:
		return errors.New("unsupported image format")
	}
}

func writeJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, apiError{Error: err.Error()})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeErr(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}
