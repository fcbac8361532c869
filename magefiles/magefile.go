// Package main provides build targets for yinkun using Mage.
//
// Usage:
//
//	mage build      Compile the yinkun binary to bin/
//	mage test       Run all tests
//	mage race       Run all tests with the race detector
//	mage cover      Write coverage to bin/coverage.out and print a summary
//	mage lint       Run go vet and golangci-lint
//	mage serve      Build and run the HTTP service against ./.yinkun-data
//	mage clean      Remove build artifacts
//	mage install    Install yinkun to GOPATH/bin
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binaryName = "yinkun"
	binaryDir  = "bin"
	cmdDir     = "./cmd/yinkun"
)

var coverProfile = filepath.Join(binaryDir, "coverage.out")

// Build compiles the yinkun binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV("go", "build", "-v", "-o", binaryPath(), cmdDir)
}

// Test runs all tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Race runs all tests with the race detector. The card store's concurrency
// tests are most useful here.
func Race() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Cover runs all tests with coverage and prints the per-function summary.
func Cover() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	if err := sh.RunV("go", "test", "-coverprofile", coverProfile, "./..."); err != nil {
		return err
	}
	return sh.RunV("go", "tool", "cover", "-func", coverProfile)
}

// Lint runs go vet and golangci-lint.
func Lint() error {
	if err := sh.RunV("go", "vet", "./..."); err != nil {
		return err
	}
	return sh.RunV("golangci-lint", "run", "./...")
}

// Serve builds the binary and runs the HTTP service with a local data dir.
func Serve() error {
	mg.Deps(Build)
	env := map[string]string{"YINKUN_DEBUG": "1"}
	return sh.RunWithV(env, binaryPath(), "serve", "--config-dir", ".yinkun", "--data-dir", ".yinkun-data")
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV("go", "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output("go", "env", "GOPATH")
	if err != nil {
		return err
	}
	return sh.Copy(filepath.Join(gopath, "bin", binaryName), binaryPath())
}

func binaryPath() string {
	return filepath.Join(binaryDir, binaryName)
}
