package realtime

import (
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const sendBufferSize = 16

// Connection is the server side entry for one open channel. The Send
// channel is owned by the registry and closed on disconnect.
type Connection struct {
	Id   string
	Send chan Envelope

	mu     sync.RWMutex
	userId string
}

func NewConnection() *Connection {
	return &Connection{
		Id:   gonanoid.Must(),
		Send: make(chan Envelope, sendBufferSize),
	}
}

// UserId returns the bound user identity, or "" while unbound.
func (c *Connection) UserId() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.userId
}

func (c *Connection) setUserId(userId string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.userId = userId
}
