//go:build mage

package main

import (
	"flag"
	"os"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Test groups the test targets.
type Test mg.Namespace

const (
	unitTarget   = "test:unit"
	coverProfile = "coverage.out"
)

// unitArgs holds the words after "test:unit" on the mage command line. Mage
// treats every word as a target, so they are cut from os.Args before mage
// parses it.
var unitArgs []string

func init() {
	os.Args, unitArgs = cutAfter(os.Args, unitTarget)
}

// cutAfter splits args after the first word equal to target, ignoring case.
// Without target, args is returned whole.
func cutAfter(args []string, target string) (head, tail []string) {
	for i, arg := range args {
		if strings.EqualFold(arg, target) {
			return args[:i+1], args[i+1:]
		}
	}
	return args, nil
}

// All runs every test.
func (Test) All() error {
	return sh.RunV(binGo, "test", "./...")
}

// Unit runs tests verbosely. Pass --run <pattern> and --pkg <pattern> to
// narrow the selection.
//
// Example: mage test:unit --run TestLend --pkg ./internal/ledger/...
func (Test) Unit() error {
	fs := flag.NewFlagSet(unitTarget, flag.ContinueOnError)
	run := fs.String("run", "", "only tests matching this regexp")
	pkg := fs.String("pkg", "./...", "package pattern")
	if err := fs.Parse(unitArgs); err != nil {
		return err
	}

	args := []string{"test", "-v", "-count=1"}
	if *run != "" {
		args = append(args, "-run", *run)
	}
	return sh.RunV(binGo, append(args, *pkg)...)
}

// Cover runs every test with a coverage profile and prints the per-function
// summary.
func (Test) Cover() error {
	if err := sh.RunV(binGo, "test", "-coverprofile="+coverProfile, "./..."); err != nil {
		return err
	}
	return sh.RunV(binGo, "tool", "cover", "-func="+coverProfile)
}
