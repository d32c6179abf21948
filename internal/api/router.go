package api

import (
	"net/http"

	"flagrate-rgb/internal/config"
	"flagrate-rgb/internal/service"
	"flagrate-rgb/internal/ws"
	"github.com/gorilla/websocket"
)

func NewRouter(
	cfg config.Config,
	hub *ws.Hub,
	hardwareHub *ws.HardwareHub,
	syncSvc *service.SyncService,
	extractor *service.Extractor,
	mapper service.LEDMapper,
) http.Handler {
	h := &Handler{
		cfg:         cfg,
		hub:         hub,
		hardwareHub: hardwareHub,
		syncSvc:     syncSvc,
		extractor:   extractor,
		mapper:      mapper,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.Healthz)
	mux.HandleFunc("/v1/status", h.Status)
	mux.HandleFunc("/v1/icon.png", h.Icon)
	mux.HandleFunc("/v1/ws", h.WebSocket)
	mux.HandleFunc("/v1/hardware/ws", h.HardwareWebSocket)
	mux.HandleFunc("/v1/hardware/devices", h.HardwareDevices)
	mux.HandleFunc("/v1/extract", h.Extract)
	mux.HandleFunc("/v1/match", h.Match)

	return limitBody(cfg.MaxUploadSizeBytes, mux)
}

func limitBody(maxSize int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxSize)
		next.ServeHTTP(w, r)
	})
}
