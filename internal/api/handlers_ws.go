// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

package api

import (
	"net/http"

	gorillaws "github.com/gorilla/websocket"

	"github.com/geocity-dev/geocity/internal/logging"
	"github.com/geocity-dev/geocity/internal/websocket"
)

// upgrader checks the Origin header against the configured CORS
// origins; the live map page itself is same-origin.
func (h *Handler) upgrader() *gorillaws.Upgrader {
	return &gorillaws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range h.cfg.Security.CORSOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			return false
		},
	}
}

// WebSocket upgrades the connection and attaches the client to the hub.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader().Upgrade(w, r, nil)
	if err != nil {
		logging.CtxErr(r.Context(), err).Msg("websocket upgrade failed")
		return
	}

	client := websocket.NewClient(h.hub, conn)
	h.hub.Register <- client
	client.Start()
}
