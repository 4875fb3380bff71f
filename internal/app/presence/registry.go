/*
Package presence tracks which connections have joined the room and under what name.

A Registry is not safe for concurrent use. It belongs to one chat room and is only
read and written from that room's event loop.
*/
package presence

// Registry maps a connection id to the display name it joined with.
// Its size is the user count announced to clients.
type Registry struct {
	names map[string]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]string)}
}

// Set records name for connectionID, replacing any earlier name.
// An empty name means "not joined" and removes the entry.
func (r *Registry) Set(connectionID, name string) {
	if name == "" {
		delete(r.names, connectionID)
		return
	}
	r.names[connectionID] = name
}

// Get returns the name connectionID joined with.
func (r *Registry) Get(connectionID string) (string, bool) {
	name, ok := r.names[connectionID]
	return name, ok
}

// Remove deletes the entry for connectionID. Removing an unknown id is a no-op.
func (r *Registry) Remove(connectionID string) {
	delete(r.names, connectionID)
}

// Size returns the number of joined connections.
func (r *Registry) Size() int {
	return len(r.names)
}
