package profile

import (
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// DefaultPort is assumed for addresses without one.
const DefaultPort = 25565

// ServerHotList remembers multiplayer servers by display name.
type ServerHotList struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewServerHotList() *ServerHotList {
	return &ServerHotList{entries: make(map[string]string)}
}

// Register stores name → addr.  Without overwrite an existing name is kept,
// which makes re-importing a server list a no-op.  It reports whether the
// list changed.
func (h *ServerHotList) Register(name, addr string, overwrite bool) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	old, exists := h.entries[name]
	if exists && (!overwrite || old == addr) {
		return false
	}
	h.entries[name] = addr
	return true
}

// Import registers every entry of servers and returns how many were added
// or changed.
func (h *ServerHotList) Import(servers map[string]string, overwrite bool) int {
	n := 0
	for name, addr := range servers {
		if h.Register(name, addr, overwrite) {
			n++
		}
	}
	return n
}

func (h *ServerHotList) Get(name string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	addr, ok := h.entries[name]
	return addr, ok
}

func (h *ServerHotList) Remove(name string) {
	h.mu.Lock()
	delete(h.entries, name)
	h.mu.Unlock()
}

// Names returns the registered names, sorted.
func (h *ServerHotList) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.entries))
	for n := range h.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Entries returns a copy of the list.
func (h *ServerHotList) Entries() map[string]string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]string, len(h.entries))
	for k, v := range h.entries {
		out[k] = v
	}
	return out
}

// SplitAddress parses "host" or "host:port".
func SplitAddress(addr string) (string, int, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" || strings.ContainsAny(addr, " \t/") {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		// no port
		if strings.Count(addr, ":") > 0 && !strings.HasPrefix(addr, "[") {
			return "", 0, fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
		}
		return strings.Trim(addr, "[]"), DefaultPort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 || host == "" {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	return host, port, nil
}
