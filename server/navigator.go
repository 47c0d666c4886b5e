package server

import (
	"sync"

	"github.com/thriftyclothings/storefront/apiclient"
)

var _ apiclient.Navigator = (*Navigator)(nil)

// Navigator is the shell's router as seen by the API client. It remembers
// the page the browser is on; a navigation requested by the client is held
// until the next page request, which is redirected to it.
type Navigator struct {
	lock    sync.Mutex
	current string
	pending string
}

func NewNavigator() *Navigator {
	return &Navigator{current: RouteLanding}
}

func (n *Navigator) CurrentPath() string {
	n.lock.Lock()
	defer n.lock.Unlock()
	return n.current
}

// NavigateTo requests a navigation. A later request replaces an earlier one
// that has not been applied yet.
func (n *Navigator) NavigateTo(path string) {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.pending = path
}

// Visit records path as the current page and returns a pending navigation,
// if any, clearing it. Visiting the pending target itself clears it too.
func (n *Navigator) Visit(path string) (redirect string, ok bool) {
	n.lock.Lock()
	defer n.lock.Unlock()

	pending := n.pending
	n.pending = ""
	if pending != "" && pending != path {
		n.current = pending
		return pending, true
	}
	n.current = path
	return "", false
}
