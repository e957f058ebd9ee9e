package server

import (
	"net"
	"sync"
)

// Registry guarda as conexões vivas, para poder fechá-las no shutdown
type Registry struct {
	mu    sync.Mutex
	conns map[string]net.Conn
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]net.Conn)}
}

func (r *Registry) Add(id string, c net.Conn) {
	r.mu.Lock()
	r.conns[id] = c
	r.mu.Unlock()
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.conns, id)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// CloseAll fecha todas as conexões registradas e devolve quantas eram.
// Fechar desbloqueia reads/writes pendentes nas goroutines das sessões.
func (r *Registry) CloseAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.conns)
	for id, c := range r.conns {
		_ = c.Close()
		delete(r.conns, id)
	}
	return n
}
