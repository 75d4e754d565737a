// Package osopen dispatches launch descriptors to the OS default handler for
// their URI scheme.
package osopen

import (
	"fmt"
	"io"
	"strings"

	"github.com/cli/browser"

	"github.com/ericfisherdev/ramn/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.URIOpener = (*Opener)(nil)

// openURL is replaced in tests.
var openURL = browser.OpenURL

func init() {
	// The handler's own output is not ours to show.
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
}

// Opener hands URIs to the registered protocol handler.
type Opener struct{}

// New returns an Opener.
func New() *Opener {
	return &Opener{}
}

// Open dispatches uri. It returns once the handler has been started, not when
// the launched program exits.
func (o *Opener) Open(uri string) error {
	scheme, _, ok := strings.Cut(uri, ":")
	if !ok || scheme == "" {
		return fmt.Errorf("open %q: missing uri scheme", uri)
	}
	if err := openURL(uri); err != nil {
		return fmt.Errorf("open %s uri: %w", scheme, err)
	}
	return nil
}
