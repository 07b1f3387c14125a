// Command depscheck enforces the layering of the world core: the grid,
// entity, path, and save packages must stay free of hub and transport
// imports so they remain embeddable on their own.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

type packageInfo struct {
	ImportPath string
	Imports    []string
}

var corePrefixes = []string{
	"deepwarren/server/internal/grid",
	"deepwarren/server/internal/entity",
	"deepwarren/server/internal/path",
	"deepwarren/server/internal/save",
}

var forbiddenPrefixes = []string{
	"deepwarren/server/internal/hub",
	"deepwarren/server/internal/net",
	"deepwarren/server/internal/app",
}

func isCore(importPath string) bool {
	for _, prefix := range corePrefixes {
		if strings.HasPrefix(importPath, prefix) {
			return true
		}
	}
	return false
}

func isForbidden(importPath string) bool {
	for _, prefix := range forbiddenPrefixes {
		if strings.HasPrefix(importPath, prefix) {
			return true
		}
	}
	return false
}

func main() {
	cmd := exec.Command("go", "list", "-json", "./internal/...")
	cmd.Env = os.Environ()
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Stderr.Write(exitErr.Stderr)
		}
		fmt.Fprintf(os.Stderr, "depscheck: failed to list packages: %v\n", err)
		os.Exit(1)
	}

	decoder := json.NewDecoder(bytes.NewReader(output))

	var violations []string
	for {
		var pkg packageInfo
		if err := decoder.Decode(&pkg); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			fmt.Fprintf(os.Stderr, "depscheck: failed to decode package info: %v\n", err)
			os.Exit(1)
		}
		if !isCore(pkg.ImportPath) {
			continue
		}
		for _, imp := range pkg.Imports {
			if isForbidden(imp) {
				violations = append(violations, fmt.Sprintf("%s -> %s", pkg.ImportPath, imp))
			}
		}
	}

	if len(violations) > 0 {
		sort.Strings(violations)
		fmt.Fprintln(os.Stderr, "depscheck: found forbidden imports:")
		for _, violation := range violations {
			fmt.Fprintf(os.Stderr, "  %s\n", violation)
		}
		os.Exit(1)
	}
}
