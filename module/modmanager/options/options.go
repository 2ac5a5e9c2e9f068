// Package modmanageroptions provides Options for configuring a mod manager
package modmanageroptions

// Library is an opened module library. Only symbol lookup and release are exposed.
type Library interface {
	Lookup(symbol string) (interface{}, error)
	Close() error
}

// Opener opens the library at path.
type Opener func(path string) (Library, error)

// Options configures a modManager.
type Options struct {
	// Opener defaults to the Go plugin loader.
	Opener Opener
	// Extensions overrides the library file extensions considered by LoadAll.
	Extensions []string
}
