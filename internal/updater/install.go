package updater

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lvlagency/gforms-gtm/internal/constants"
)

// InstallArgs identify the package the host is about to install.
type InstallArgs struct {
	Plugin string `json:"plugin,omitempty"`
	Theme  string `json:"theme,omitempty"`
}

// PreInstall refuses to overwrite this package when its install directory is a version control checkout.
// Installs of other packages, and of this one outside a checkout, get response back unchanged.
func (c *Checker) PreInstall(response any, args InstallArgs) (any, error) {
	isPlugin := args.Plugin != "" && strings.HasPrefix(args.Plugin, c.slug+"/")
	isTheme := args.Theme != "" && args.Theme == c.slug
	if !isPlugin && !isTheme {
		return response, nil
	}

	fi, err := os.Stat(filepath.Join(c.installDir, constants.VCSMarker))
	if err != nil || !fi.IsDir() {
		return response, nil
	}

	c.log.Warn("Refusing to update a version control checkout", "slug", c.slug, "dir", c.installDir)
	return nil, fmt.Errorf("%w: %s contains a %s directory", ErrVCSCheckout, c.slug, constants.VCSMarker)
}
