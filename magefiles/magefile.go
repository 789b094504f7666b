//go:build mage

// Package main provides build targets for studysync using Mage.
//
// Usage:
//
//	mage build         Compile the studysync binary to bin/
//	mage test          Run all tests
//	mage testUnit      Run tests with -short, skipping slow timing tests
//	mage testPostgres  Run the postgres driver tests against $STUDYSYNC_TEST_POSTGRES_DSN
//	mage lint          Run golangci-lint
//	mage clean         Remove build artifacts
//	mage install       Install studysync to GOPATH/bin
package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binaryName = "studysync"
	binaryDir  = "bin"
	cmdDir     = "./cmd/studysync"
	versionVar = "github.com/monalisamaguruwada102-web/studysync/pkg/studysync.Version"
)

func ldflags() string {
	version := os.Getenv("STUDYSYNC_VERSION")
	if version == "" {
		return ""
	}
	return "-X " + versionVar + "=" + version
}

// Build compiles the studysync binary to bin/. Set STUDYSYNC_VERSION to stamp
// the version.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV("go", "build", "-ldflags", ldflags(), "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Test runs every test.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// TestUnit runs the tests in short mode.
func TestUnit() error {
	return sh.RunV("go", "test", "-short", "./...")
}

// TestPostgres runs the postgres driver tests against a live database.
func TestPostgres() error {
	if os.Getenv("STUDYSYNC_TEST_POSTGRES_DSN") == "" {
		return errors.New("STUDYSYNC_TEST_POSTGRES_DSN is not set")
	}
	return sh.RunV("go", "test", "-count=1", "-v", "./internal/postgres/...")
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
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
	return sh.Copy(filepath.Join(gopath, "bin", binaryName), filepath.Join(binaryDir, binaryName))
}
