/*
Package handler provides the HTTP handler function for WebSocket connection upgrading and initialization.

This file contains HandleWebSocket, which upgrades the request, registers the
connection with the room and runs the connection's pumps.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"livechat/internal/app/chat"
)

// HandleWebSocket creates an HTTP HandlerFunc that upgrades the request and
// serves the connection until it closes.
func HandleWebSocket(room *chat.Room, upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := zerolog.Ctx(r.Context())

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already written the HTTP error.
			logger.Warn().Err(err).Msg("Failed to upgrade connection to WebSocket")
			return
		}

		client := chat.NewClient(room, conn)

		if !room.Connect(client) {
			logger.Warn().Str("connection_id", client.ID()).Msg("Room stopped, closing new connection")
			_ = conn.Close()
			return
		}

		go client.WritePump()

		logger.Debug().Str("connection_id", client.ID()).Msg("WebSocket connection established")

		client.ReadPump()
	}
}
