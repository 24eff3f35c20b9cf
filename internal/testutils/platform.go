package testutils

import (
	"os"
	"runtime"
	"testing"
)

// IsUnixNonRoot returns true if the current operating system is Unix-like and not running as root,
// where file permissions are enforced on the test process.
func IsUnixNonRoot() bool {
	return runtime.GOOS != "windows" && os.Getuid() != 0
}

// SkipUnlessPermissionsEnforced skips the test when file permissions can't deny access to the test process.
func SkipUnlessPermissionsEnforced(t *testing.T) {
	t.Helper()

	if !IsUnixNonRoot() {
		t.Skip("File permissions are only enforced for non root users on Unix")
	}
}
