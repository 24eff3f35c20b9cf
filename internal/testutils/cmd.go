// Package testutils provides helper functions for testing
package testutils

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
)

// CmdTestCase describes a cobra flag expected on a command.
type CmdTestCase struct {
	Name           string
	Short          string
	Default        string
	Required       bool
	Filename       bool
	PersistentFlag bool
	BaseCmd        *cobra.Command
}

// FlagTestHelper checks the flag described by testCase exists on its command, with the expected shorthand,
// default and completion annotations. An empty Default is not checked.
func FlagTestHelper(t *testing.T, testCase CmdTestCase) {
	t.Helper()

	flags := testCase.BaseCmd.Flags()
	if testCase.PersistentFlag {
		flags = testCase.BaseCmd.PersistentFlags()
	}
	flag := flags.Lookup(testCase.Name)
	if !assert.NotNil(t, flag, "flag %q should exist", testCase.Name) {
		return
	}

	assert.Equal(t, testCase.Short, flag.Shorthand, "unexpected shorthand for %q", testCase.Name)
	if testCase.Default != "" {
		assert.Equal(t, testCase.Default, flag.DefValue, "unexpected default for %q", testCase.Name)
	}

	assertAnnotation(t, flag, cobra.BashCompOneRequiredFlag, testCase.Required)
	assertAnnotation(t, flag, cobra.BashCompFilenameExt, testCase.Filename)
}

func assertAnnotation(t *testing.T, flag *pflag.Flag, annotation string, want bool) {
	t.Helper()

	_, got := flag.Annotations[annotation]
	assert.Equal(t, want, got, "unexpected %s annotation on %q", annotation, flag.Name)
}
