// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

/*
Package websocket provides real-time push updates for the live city map.

This package implements WebSocket support for broadcasting report lifecycle
events (new, resolved, expired) and aggregate statistics to connected browser
clients. It uses the gorilla/websocket library with a hub-client architecture
for efficient message broadcasting.

Key Components:

  - Hub: Central message broker that manages client connections and broadcasts
  - Client: Represents a single WebSocket connection with read/write goroutines
  - Message: Typed message structure for different event types
  - RegisterBridge: Subscribes the hub to the report event bus

Each client has two goroutines:
  - readPump: Reads from WebSocket, handles pings
  - writePump: Writes to WebSocket, sends pongs

Message Types:

  - report_new: A report was submitted and is live on the map
  - report_resolved: A report was resolved by its author or a moderator
  - report_expired: A report passed its expiry window and left the map
  - stats_update: Aggregate report counts changed
  - ping / pong: Application-level keepalive

Connection Lifecycle:

 1. Client connects via HTTP upgrade
 2. Hub registers client
 3. Client starts read/write goroutines
 4. Hub broadcasts messages to all clients
 5. Client disconnects (network error or explicit close)
 6. Hub unregisters client and cleans up

Thread Safety:

The Hub uses a mutex for client map access; channels coordinate goroutine
communication, and each client has separate read and write goroutines with
no shared mutable state between clients.
*/
package websocket
