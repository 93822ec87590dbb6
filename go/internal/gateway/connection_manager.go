package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ConnectionManager manages WebSocket connections for trial clients.
type ConnectionManager struct {
	// Connection pools organized by trial ID.
	trialConnections map[uuid.UUID]map[*Connection]bool
	mu               sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	broadcastCh chan BroadcastMessage

	// inbound receives client messages for routing into the controls.
	inbound InboundHandler
}

// InboundHandler routes messages received from web clients.
type InboundHandler interface {
	HandleClientMessage(conn *Connection, data []byte)
}

// Connection represents a WebSocket connection to a web client.
type Connection struct {
	ID        string
	ActorName string
	TrialID   uuid.UUID
	Conn      *websocket.Conn
	Send      chan []byte
	Manager   *ConnectionManager

	ConnectedAt time.Time
	LastPing    time.Time
}

// BroadcastMessage is a pre-marshaled message for every connection of a trial.
type BroadcastMessage struct {
	TrialID uuid.UUID
	Data    []byte
}

// ConnectionConfig holds configuration for WebSocket connections.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager. The
// inbound handler is bound separately because the gateway service broadcasting
// through this manager is also the handler for its inbound messages.
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		trialConnections: make(map[uuid.UUID]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan BroadcastMessage, 256),
	}
}

// SetInboundHandler binds the handler for client messages. Must be called
// before any connection is accepted.
func (cm *ConnectionManager) SetInboundHandler(inbound InboundHandler) {
	cm.inbound = inbound
}

// Start begins processing broadcast messages until the context is cancelled.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket and registers it
// against the given trial.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, actorName string, trialID uuid.UUID) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		ActorName:   actorName,
		TrialID:     trialID,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("actor", actorName).
		Str("trial_id", trialID.String()).
		Msg("WebSocket connection established")

	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.trialConnections[conn.TrialID] == nil {
		cm.trialConnections[conn.TrialID] = make(map[*Connection]bool)
	}
	cm.trialConnections[conn.TrialID][conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Str("trial_id", conn.TrialID.String()).
		Int("total_connections", len(cm.trialConnections[conn.TrialID])).
		Msg("connection registered")
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if connections, exists := cm.trialConnections[conn.TrialID]; exists {
		if _, exists := connections[conn]; exists {
			delete(connections, conn)
			close(conn.Send)

			if len(connections) == 0 {
				delete(cm.trialConnections, conn.TrialID)
			}

			log.Info().
				Str("connection_id", conn.ID).
				Str("actor", conn.ActorName).
				Str("trial_id", conn.TrialID.String()).
				Msg("connection unregistered")
		}
	}
}

// BroadcastToTrial sends data to all connections of a trial.
func (cm *ConnectionManager) BroadcastToTrial(trialID uuid.UUID, data []byte) {
	select {
	case cm.broadcastCh <- BroadcastMessage{TrialID: trialID, Data: data}:
	default:
		log.Warn().Str("trial_id", trialID.String()).Msg("broadcast channel full, dropping message")
	}
}

func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	cm.mu.RLock()
	connections, exists := cm.trialConnections[message.TrialID]
	if !exists {
		cm.mu.RUnlock()
		return
	}

	// Snapshot to avoid holding the lock during sends.
	targets := make([]*Connection, 0, len(connections))
	for conn := range connections {
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	for _, conn := range targets {
		select {
		case conn.Send <- message.Data:
		default:
			// Connection is slow/dead, close it.
			log.Warn().
				Str("connection_id", conn.ID).
				Msg("connection send buffer full, closing connection")
			cm.unregisterConnection(conn)
			conn.Conn.Close()
		}
	}
}

// GetConnectionStats returns statistics about active connections.
func (cm *ConnectionManager) GetConnectionStats() (total int, trials int) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	for _, connections := range cm.trialConnections {
		total += len(connections)
	}
	return total, len(cm.trialConnections)
}

// writePump handles sending messages to the WebSocket connection.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
			c.LastPing = time.Now()
		}
	}
}

// readPump handles reading messages from the WebSocket connection.
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		c.LastPing = time.Now()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		if c.Manager.inbound != nil {
			c.Manager.inbound.HandleClientMessage(c, message)
		}
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
