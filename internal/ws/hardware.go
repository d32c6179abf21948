package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"flagrate-rgb/internal/model"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// HardwareHub pushes strip commands to network LED controllers. Each
// controller connects with its device id; every id may have several sockets.
type HardwareHub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	last    *model.HardwareCommand
}

func NewHardwareHub() *HardwareHub {
	return &HardwareHub{clients: map[string]map[*Client]struct{}{}}
}

// Register attaches conn under deviceID and replays the last command so a
// controller that reconnects shows the current colour straight away.
func (h *HardwareHub) Register(deviceID string, conn *websocket.Conn) *Client {
	var c *Client
	c = NewClientWithClose(conn, func() { h.Unregister(deviceID, c) })
	h.mu.Lock()
	if _, ok := h.clients[deviceID]; !ok {
		h.clients[deviceID] = map[*Client]struct{}{}
	}
	h.clients[deviceID][c] = struct{}{}
	last := h.last
	h.mu.Unlock()

	if last != nil {
		cmd := *last
		cmd.DeviceID = deviceID
		if b, err := marshalCommand(cmd); err == nil {
			c.Enqueue(b)
		}
	}
	return c
}

func (h *HardwareHub) Unregister(deviceID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.clients[deviceID]; ok {
		if _, exist := m[c]; exist {
			delete(m, c)
			close(c.send)
		}
		if len(m) == 0 {
			delete(h.clients, deviceID)
		}
	}
}

// Devices lists the ids with at least one open socket.
func (h *HardwareHub) Devices() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.clients))
	for id := range h.clients {
		out = append(out, id)
	}
	return out
}

// PushCommand delivers cmd to the sockets of cmd.DeviceID.
func (h *HardwareHub) PushCommand(cmd model.HardwareCommand) {
	b, err := marshalCommand(cmd)
	if err != nil {
		return
	}

	var slow []*Client
	h.mu.RLock()
	for c := range h.clients[cmd.DeviceID] {
		if !c.Enqueue(b) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range slow {
		log.Warn().Str("device", cmd.DeviceID).Msg("Hardware client too slow, disconnecting")
		h.Unregister(cmd.DeviceID, c)
	}
}

// Send broadcasts an encoded command string ("4.") to every device. A
// string that is not a preset code is rejected before anything is pushed.
func (h *HardwareHub) Send(_ context.Context, command string) error {
	code, err := strconv.Atoi(strings.TrimSuffix(command, "."))
	if err != nil || !strings.HasSuffix(command, ".") || code <= 0 {
		return fmt.Errorf("hardware hub: invalid command %q", command)
	}
	cmd := model.HardwareCommand{Command: command, Code: code, CreatedAt: time.Now().UnixMilli()}

	h.mu.Lock()
	last := cmd
	h.last = &last
	h.mu.Unlock()

	for _, id := range h.Devices() {
		cmd.DeviceID = id
		h.PushCommand(cmd)
	}
	return nil
}

func marshalCommand(cmd model.HardwareCommand) ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"type":       "hardware.command",
		"created_at": cmd.CreatedAt,
		"payload":    cmd,
	})
}
