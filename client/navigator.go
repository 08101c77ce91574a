package client

import "sync"

// LoginRoute is where an expired session is sent.
const LoginRoute = "/login"

// Navigator is the routing surface the client needs from its host UI.
type Navigator interface {
	CurrentRoute() string
	GoToLogin()
}

// RouteNavigator only remembers the current route. The CLI uses it to know
// whether a command ended on the login screen.
type RouteNavigator struct {
	mu    sync.Mutex
	route string
}

func NewRouteNavigator(initial string) *RouteNavigator {
	return &RouteNavigator{route: initial}
}

func (n *RouteNavigator) Navigate(route string) {
	n.mu.Lock()
	n.route = route
	n.mu.Unlock()
}

func (n *RouteNavigator) CurrentRoute() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.route
}

func (n *RouteNavigator) GoToLogin() {
	n.Navigate(LoginRoute)
}
