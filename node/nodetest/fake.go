// Package nodetest provides an in-process fake node for tests.
package nodetest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Call is one request received by the fake.
type Call struct {
	Method string
	Path   string
	Query  string
	Body   string
}

// Node is a programmable fake of the node REST API. Unregistered routes
// answer 404 with the node's error body.
type Node struct {
	*httptest.Server

	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	calls  []Call
}

// New starts a fake node that is closed when the test ends.
func New(t testing.TB) *Node {
	t.Helper()
	n := &Node{routes: make(map[string]http.HandlerFunc)}
	n.Server = httptest.NewServer(http.HandlerFunc(n.serve))
	t.Cleanup(n.Close)
	return n
}

func (n *Node) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	n.mu.Lock()
	n.calls = append(n.calls, Call{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: string(body)})
	h := n.routes[r.Method+" "+r.URL.Path]
	n.mu.Unlock()

	if h == nil {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, `{"error":404,"message":"no route for %s %s"}`, r.Method, r.URL.Path)
		return
	}
	r.Body = io.NopCloser(strings.NewReader(string(body)))
	h(w, r)
}

// Handle registers h for method and exact path.
func (n *Node) Handle(method, path string, h http.HandlerFunc) {
	n.mu.Lock()
	n.routes[method+" "+path] = h
	n.mu.Unlock()
}

// JSON registers a route answering v as JSON.
func (n *Node) JSON(method, path string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	n.Handle(method, path, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})
}

// Text registers a route answering text.
func (n *Node) Text(method, path, text string) {
	n.Handle(method, path, func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, text)
	})
}

// Fail registers a route answering status with the node's error body.
func (n *Node) Fail(method, path string, status, code int, message string) {
	n.Handle(method, path, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"error":%d,"message":%q}`, code, message)
	})
}

// Calls returns every request received so far.
func (n *Node) Calls() []Call {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Call(nil), n.calls...)
}

// Count returns how many requests matched method and path.
func (n *Node) Count(method, path string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, call := range n.calls {
		if call.Method == method && call.Path == path {
			c++
		}
	}
	return c
}

// CountPrefix returns how many requests had a path starting with prefix.
func (n *Node) CountPrefix(prefix string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, call := range n.calls {
		if strings.HasPrefix(call.Path, prefix) {
			c++
		}
	}
	return c
}

// Mutations returns the calls that would change chain or node state.
func (n *Node) Mutations() []Call {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []Call
	for _, call := range n.calls {
		if call.Method != http.MethodGet && !readOnlyPost(call.Path) {
			out = append(out, call)
		}
	}
	return out
}

// readOnlyPost lists POST endpoints that only compute or read.
func readOnlyPost(path string) bool {
	return strings.HasSuffix(path, "/walletbalance") || path == "/arbitrary/compute"
}
