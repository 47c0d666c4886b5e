package apiclient

import "strings"

// LoginPath is where an unrecoverable 401 sends the user
const LoginPath = "/login"

var authPages = []string{"/login", "/register"}

// Navigator is the view layer's router as seen by the client
type Navigator interface {
	CurrentPath() string
	NavigateTo(path string)
}

// IsAuthPage reports whether path is one of the authentication screens,
// where a forced login navigation would be pointless.
func IsAuthPage(path string) bool {
	for _, p := range authPages {
		if strings.Contains(path, p) {
			return true
		}
	}
	return false
}
