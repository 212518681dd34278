package gateway

// Registry is the set of connections that receive broadcasts. It is owned by
// the hub goroutine; implementations need not be safe for concurrent use.
type Registry interface {
	Add(c *Client)
	// Remove reports whether c was registered.
	Remove(c *Client) bool
	// Broadcast queues payload on every registered client and returns the
	// clients whose queue was full.
	Broadcast(payload []byte) []*Client
	Clients() []*Client
	Len() int
}

type memoryRegistry struct {
	clients map[*Client]struct{}
}

// NewRegistry returns the in-process registry used by the gateway.
func NewRegistry() Registry {
	return &memoryRegistry{clients: make(map[*Client]struct{})}
}

func (r *memoryRegistry) Add(c *Client) {
	r.clients[c] = struct{}{}
}

func (r *memoryRegistry) Remove(c *Client) bool {
	if _, ok := r.clients[c]; !ok {
		return false
	}
	delete(r.clients, c)
	return true
}

func (r *memoryRegistry) Broadcast(payload []byte) []*Client {
	var full []*Client
	for c := range r.clients {
		if !c.enqueue(payload) {
			full = append(full, c)
		}
	}
	return full
}

func (r *memoryRegistry) Clients() []*Client {
	out := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		out = append(out, c)
	}
	return out
}

func (r *memoryRegistry) Len() int { return len(r.clients) }
