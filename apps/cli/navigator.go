package main

import (
	"fmt"
	"io"
	"sync"
)

// navigator tracks the surface the user is on. On a terminal, "redirecting" to the login surface
// means telling the user to log in again.
type navigator struct {
	mu        sync.Mutex
	location  string
	loginPath string
	out       io.Writer
}

func newNavigator(out io.Writer, loginPath string) *navigator {
	return &navigator{out: out, loginPath: loginPath}
}

func (n *navigator) Location() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.location
}

func (n *navigator) Redirect(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.location == path {
		return
	}
	n.location = path
	if path == n.loginPath {
		fmt.Fprintln(n.out, "Your session has ended. Run `classwork login -email EMAIL` to log in again.")
	}
}

// visit records the surface a command runs on.
func (n *navigator) visit(path string) {
	n.mu.Lock()
	n.location = path
	n.mu.Unlock()
}
