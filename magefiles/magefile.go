//go:build mage

// Package main contains Mage build targets for knowledge-engine developer tooling.
package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// projectDirs lists the working directories the CLI expects.
var projectDirs = []string{
	".secrets",
	"warehouse",
}

// Init creates the project directories and a starter config file.
func Init() error {
	for _, dir := range projectDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err := os.WriteFile(configFile, []byte(starterConfig), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", configFile, err)
		}
		fmt.Println("  ", configFile)
	}
	fmt.Println("Project directories initialized.")
	return nil
}

const configFile = "knowledge-engine.yaml"

const starterConfig = `default_limit: 5
default_mode: all
log_level: info

warehouse:
  backend: sqlite
  project: local
  dataset: research
  table: patents

answer:
  provider: openai
`

const (
	binDir  = "bin"
	binName = "knowledge-engine"
	cmdPkg  = "./cmd/knowledge-engine"
)

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	ldflags := "-X main.version=" + gitVersion()
	if err := sh.RunV("go", "build", "-ldflags", ldflags, "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// gitVersion returns the current tag or commit, or "dev" outside a checkout.
func gitVersion() string {
	v, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil || v == "" {
		return "dev"
	}
	return v
}

// Test runs every test, including the Postgres container test.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// TestShort runs the tests that need no Docker daemon.
func TestShort() error {
	return sh.RunV("go", "test", "-short", "./...")
}

// Serve builds the binary and starts the web form.
func Serve() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "serve")
}

// Query builds the binary and runs one submission. The query text comes
// from the QUERY environment variable; MODE and QUESTION are optional.
func Query() error {
	mg.Deps(Build)
	text := os.Getenv("QUERY")
	if text == "" {
		return fmt.Errorf("set QUERY to the search text")
	}
	args := []string{"query", text}
	if m := os.Getenv("MODE"); m != "" {
		args = append(args, "--mode", m)
	}
	if q := os.Getenv("QUESTION"); q != "" {
		args = append(args, "--question", q)
	}
	return sh.RunV(filepath.Join(binDir, binName), args...)
}

// Stats prints project metrics: Go packages, test functions and documentation word count.
func Stats() error {
	pkgs, tests, err := countGo(".")
	if err != nil {
		return err
	}
	docWords, err := countDocWords(".")
	if err != nil {
		return err
	}

	fmt.Printf("Go packages:           %d\n", pkgs)
	fmt.Printf("Test functions:        %d\n", tests)
	fmt.Printf("Words (documentation): %d\n", docWords)
	return nil
}

// countGo walks the tree and counts directories holding Go files and
// top-level Test functions.
func countGo(root string) (int, int, error) {
	dirs := map[string]bool{}
	tests := 0
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if strings.HasPrefix(info.Name(), "_") || (info.Name() != "." && strings.HasPrefix(info.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		dirs[filepath.Dir(path)] = true
		if !strings.HasSuffix(path, "_test.go") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		tests += bytes.Count(data, []byte("\nfunc Test"))
		return nil
	})
	return len(dirs), tests, err
}

// countDocWords counts words in the Markdown files at root.
func countDocWords(root string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(root, "*.md"))
	if err != nil {
		return 0, err
	}
	total := 0
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return 0, fmt.Errorf("reading %s: %w", path, err)
		}
		total += len(strings.Fields(string(data)))
	}
	return total, nil
}
