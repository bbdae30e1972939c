//go:build mage

package main

import "github.com/magefile/mage/sh"

// Test runs the full test suite with race detection.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}
