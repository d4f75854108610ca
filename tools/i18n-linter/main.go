// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

// i18n-linter checks the translation files against the source tree. It
// reports keys passed to i18n.T that the primary locale lacks, keys the
// other locales lack, and keys nothing refers to any more.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	localesDir    = "internal/i18n/locales"
	primaryLocale = "en.yaml"
	projectRoot   = "."
)

var (
	callRe    = regexp.MustCompile(`i18n\.T\("([^"]+)"`)
	literalRe = regexp.MustCompile(`"([a-z]+\.[a-z_.]+)"`)
)

// report is the outcome of one lint run.
type report struct {
	Undefined []string
	Orphaned  []string
	// Missing maps a secondary locale file to the primary keys it lacks.
	Missing map[string][]string
}

func (r *report) failed() bool {
	if len(r.Undefined) > 0 {
		return true
	}
	for _, keys := range r.Missing {
		if len(keys) > 0 {
			return true
		}
	}
	return false
}

func main() {
	fmt.Println("🔍 Running i18n linter...")
	r, err := lint(projectRoot, localesDir)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}

	printSection("Undefined keys (used with i18n.T but not in "+primaryLocale+")", r.Undefined)
	printSection("Orphaned keys (in "+primaryLocale+" but never referenced)", r.Orphaned)
	files := make([]string, 0, len(r.Missing))
	for f := range r.Missing {
		files = append(files, f)
	}
	sort.Strings(files)
	for _, f := range files {
		printSection("Missing keys in "+f, r.Missing[f])
	}

	fmt.Println("--- Linter Finished ---")
	switch {
	case r.failed():
		fmt.Println("❌ Found issues that need to be addressed.")
		os.Exit(1)
	case len(r.Orphaned) > 0:
		fmt.Println("⚠️  Found orphaned keys. Please consider removing them.")
	default:
		fmt.Println("✅ All translation files are consistent!")
	}
}

func printSection(title string, keys []string) {
	fmt.Printf("--- %s ---\n", title)
	if len(keys) == 0 {
		fmt.Println("  ✨ None found.")
	}
	for _, k := range keys {
		fmt.Printf("  - %s\n", k)
	}
	fmt.Println()
}

// lint compares the keys referenced below root with the locale files in dir.
func lint(root, dir string) (*report, error) {
	called, referenced, err := findUsedKeys(root)
	if err != nil {
		return nil, fmt.Errorf("scan sources: %w", err)
	}
	primary, err := loadKeysFromLocale(filepath.Join(dir, primaryLocale))
	if err != nil {
		return nil, fmt.Errorf("load primary locale %s: %w", primaryLocale, err)
	}

	r := &report{Missing: map[string][]string{}}
	for k := range called {
		if _, ok := primary[k]; !ok {
			r.Undefined = append(r.Undefined, k)
		}
	}
	for k := range primary {
		_, isCalled := called[k]
		_, isReferenced := referenced[k]
		if !isCalled && !isReferenced {
			r.Orphaned = append(r.Orphaned, k)
		}
	}
	sort.Strings(r.Undefined)
	sort.Strings(r.Orphaned)

	files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if filepath.Base(f) == primaryLocale {
			continue
		}
		keys, err := loadKeysFromLocale(f)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
		var missing []string
		for k := range primary {
			if _, ok := keys[k]; !ok {
				missing = append(missing, k)
			}
		}
		sort.Strings(missing)
		r.Missing[filepath.Base(f)] = missing
	}
	return r, nil
}

// findUsedKeys scans the non-test .go files below root. called holds the
// literal arguments of i18n.T; referenced holds every other string literal
// shaped like a key, such as ids kept in tables.
func findUsedKeys(root string) (called, referenced map[string]struct{}, err error) {
	called = map[string]struct{}{}
	referenced = map[string]struct{}{}
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			name := info.Name()
			if path != root && (name == "tools" || strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		for _, m := range callRe.FindAllStringSubmatch(string(content), -1) {
			called[m[1]] = struct{}{}
		}
		for _, m := range literalRe.FindAllStringSubmatch(string(content), -1) {
			referenced[m[1]] = struct{}{}
		}
		return nil
	})
	return called, referenced, err
}

// loadKeysFromLocale reads a YAML file and returns a flat map of its keys.
func loadKeysFromLocale(path string) (map[string]struct{}, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data map[string]interface{}
	if err := yaml.Unmarshal(content, &data); err != nil {
		return nil, err
	}
	keys := make(map[string]struct{})
	flattenYAML("", data, keys)
	return keys, nil
}

// flattenYAML converts a nested map into dot-separated keys.
func flattenYAML(prefix string, node interface{}, keys map[string]struct{}) {
	switch v := node.(type) {
	case map[string]interface{}:
		for k, val := range v {
			next := k
			if prefix != "" {
				next = prefix + "." + k
			}
			flattenYAML(next, val, keys)
		}
	default:
		if prefix != "" {
			keys[prefix] = struct{}{}
		}
	}
}
