package realtime

import (
	"errors"
	"sync"

	"github.com/calmora/sessionhub/internal/ierr"
	"go.uber.org/zap"
)

// Registry tracks live connections, their optional user binding and routes
// outbound envelopes. Delivery is best-effort fire-and-forget: a dead
// connection discovered during a send is pruned, never retried.
type Registry interface {
	Connect(connection *Connection) string
	Bind(connectionId string, userId string) error
	Disconnect(connectionId string)
	SendToConnection(connectionId string, envelope Envelope)
	SendToUser(userId string, envelope Envelope)
	Broadcast(envelope Envelope, targetUserIds ...string)
}

type InMemoryRegistry struct {
	logger *zap.Logger
	mu     sync.RWMutex

	connections       map[string]*Connection
	connectionsByUser map[string]map[string]struct{}
	userByConnection  map[string]string
}

func NewInMemoryRegistry(
	logger *zap.Logger,
) *InMemoryRegistry {
	return &InMemoryRegistry{
		logger:            logger,
		connections:       make(map[string]*Connection),
		connectionsByUser: make(map[string]map[string]struct{}),
		userByConnection:  make(map[string]string),
	}
}

func (r *InMemoryRegistry) Connect(connection *Connection) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.connections[connection.Id] = connection

	return connection.Id
}

// Bind associates an already registered connection with a user identity.
// Binding the same connection to the same user again is a no-op; rebinding
// to a different user is rejected, since overwriting would silently orphan
// the old entry in connectionsByUser.
func (r *InMemoryRegistry) Bind(connectionId string, userId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	connection, ok := r.connections[connectionId]
	if !ok {
		return ierr.New(ierr.ErrorCodeNotFound, errors.New("connection not registered"))
	}

	if existing, ok := r.userByConnection[connectionId]; ok {
		if existing == userId {
			return nil
		}

		return ierr.New(ierr.ErrorCodeFailedPrecondition, errors.New("connection already bound to another user"))
	}

	if _, ok := r.connectionsByUser[userId]; !ok {
		r.connectionsByUser[userId] = make(map[string]struct{})
	}

	r.connectionsByUser[userId][connectionId] = struct{}{}
	r.userByConnection[connectionId] = userId
	connection.setUserId(userId)

	return nil
}

// Disconnect is safe to call more than once and for connections that were
// never bound.
func (r *InMemoryRegistry) Disconnect(connectionId string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.disconnectLocked(connectionId)
}

// IMPORTANT: It must be called only when a write lock is already held.
func (r *InMemoryRegistry) disconnectLocked(connectionId string) {
	connection, ok := r.connections[connectionId]
	if !ok {
		return
	}

	if userId, ok := r.userByConnection[connectionId]; ok {
		userConnections, ok := r.connectionsByUser[userId]
		if !ok {
			panic("inconsistent state: user not found in connectionsByUser")
		}

		delete(userConnections, connectionId)
		if len(userConnections) == 0 {
			delete(r.connectionsByUser, userId)
		}

		delete(r.userByConnection, connectionId)
	}

	delete(r.connections, connectionId)
	close(connection.Send)
}

// SendToConnection delivers the envelope to a single connection. An unknown
// or already disconnected connection drops the message silently. Callers
// must never write to Connection.Send directly: disconnectLocked closes the
// channel under the write lock, so only sends under the registry's lock are
// safe.
func (r *InMemoryRegistry) SendToConnection(connectionId string, envelope Envelope) {
	r.mu.RLock()

	connection, ok := r.connections[connectionId]
	if !ok {
		r.mu.RUnlock()

		return
	}

	staleConnectionIds := r.deliver([]*Connection{connection}, envelope)

	r.mu.RUnlock()

	r.pruneStale(staleConnectionIds)
}

// SendToUser delivers the envelope to every connection bound to userId. A
// user with zero live connections drops the message silently.
func (r *InMemoryRegistry) SendToUser(userId string, envelope Envelope) {
	r.mu.RLock()

	connectionIds, ok := r.connectionsByUser[userId]
	if !ok {
		r.mu.RUnlock()

		r.logger.Debug("no live connections for user, dropping message",
			zap.String("userId", userId))

		return
	}

	connections := make([]*Connection, 0, len(connectionIds))
	for connectionId := range connectionIds {
		if connection, ok := r.connections[connectionId]; ok {
			connections = append(connections, connection)
		}
	}

	staleConnectionIds := r.deliver(connections, envelope)

	r.mu.RUnlock()

	r.pruneStale(staleConnectionIds)
}

// Broadcast delivers the envelope to the connections of every listed user,
// or to every registered connection regardless of authentication state when
// no targets are given.
func (r *InMemoryRegistry) Broadcast(envelope Envelope, targetUserIds ...string) {
	if len(targetUserIds) > 0 {
		for _, userId := range targetUserIds {
			r.SendToUser(userId, envelope)
		}

		return
	}

	r.mu.RLock()

	connections := make([]*Connection, 0, len(r.connections))
	for _, connection := range r.connections {
		connections = append(connections, connection)
	}

	staleConnectionIds := r.deliver(connections, envelope)

	r.mu.RUnlock()

	r.pruneStale(staleConnectionIds)
}

// deliver attempts a non-blocking send to each connection and returns the
// ones whose send buffer was full. A failed connection never aborts delivery
// to the others. Must be called with at least a read lock held.
func (r *InMemoryRegistry) deliver(connections []*Connection, envelope Envelope) []string {
	var staleConnectionIds []string

	for _, connection := range connections {
		select {
		case connection.Send <- envelope:
		default:
			r.logger.Warn("connection send channel is full, closing connection",
				zap.String("connectionId", connection.Id))

			staleConnectionIds = append(staleConnectionIds, connection.Id)
		}
	}

	return staleConnectionIds
}

func (r *InMemoryRegistry) pruneStale(connectionIds []string) {
	if len(connectionIds) == 0 {
		return
	}

	r.mu.Lock()

	for _, connectionId := range connectionIds {
		r.disconnectLocked(connectionId)
	}

	r.mu.Unlock()
}
