// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package function holds the persisted function record and the
// name-parsing helpers (constructor classification, class/name
// splitting) shared by the orchestrator and the test adapter.
package function

import (
	"bufio"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Record is a function as persisted between runs: its demangled name,
// the source file it was defined in, and a structural checksum.
type Record struct {
	Name       string
	SourceFile string
	Checksum   uint64
}

// GetModified returns every name present in exactly one of old and
// new, plus every name present in both whose checksum differs.
func GetModified(old, new map[string]Record) map[string]struct{} {
	modified := make(map[string]struct{})

	for name, o := range old {
		n, ok := new[name]
		if !ok || n.Checksum != o.Checksum {
			modified[name] = struct{}{}
		}
	}
	for name := range new {
		if _, ok := old[name]; !ok {
			modified[name] = struct{}{}
		}
	}

	return modified
}

// Itanium ABI constructor tags.
const (
	ctorTagComplete  = "C1"
	ctorTagBase      = "C2"
	ctorTagAllocator = "C3"
)

// IsConstructor reports whether mangled names an Itanium-ABI
// constructor whose trailing demangled-name component matches its
// containing class. demangled is the function's human-readable name,
// used to compare the short name against the class name.
func IsConstructor(mangled, demangled string) bool {
	if !hasConstructorTag(mangled) {
		return false
	}
	class, short := SplitClassName(demangled, false)
	if class == "" || short == "" {
		return false
	}
	return lastComponent(class) == short
}

func hasConstructorTag(mangled string) bool {
	for _, tag := range []string{ctorTagComplete, ctorTagBase, ctorTagAllocator} {
		if strings.Contains(mangled, tag) {
			return true
		}
	}
	return false
}

func lastComponent(qualified string) string {
	idx := strings.LastIndex(qualified, "::")
	if idx < 0 {
		return qualified
	}
	return qualified[idx+2:]
}

// SplitClassName splits fun (a demangled name, or a mangled one when
// demangle reports it has already been demangled by the caller) into
// its qualified class name and short function name: find the first
// '(' marking the argument list, then the last "::" at or before that
// position. If no "::" precedes the argument list, the whole prefix is
// the class name and the short name is empty.
//
// The demangle parameter is accepted for call-site symmetry with the
// original tool's optional demangling step; this package never
// demangles internally, so it is otherwise unused.
func SplitClassName(fun string, demangle bool) (class, short string) {
	_ = demangle

	parenIdx := strings.Index(fun, "(")
	prefix := fun
	if parenIdx >= 0 {
		prefix = fun[:parenIdx]
	}

	sepIdx := strings.LastIndex(prefix, "::")
	if sepIdx < 0 {
		return prefix, ""
	}
	return prefix[:sepIdx], prefix[sepIdx+2:]
}

// Save writes records to path as "name;filename;checksum" lines,
// sorted by name.
func Save(path string, records map[string]Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	defer w.Flush()

	names := make([]string, 0, len(records))
	for name := range records {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		r := records[name]
		if _, err := w.WriteString(formatRecord(r) + "\n"); err != nil {
			return err
		}
	}
	return nil
}

func formatRecord(r Record) string {
	return r.Name + ";" + r.SourceFile + ";" + strconv.FormatUint(r.Checksum, 10)
}

// Load reads records previously written by Save. A missing file yields
// an empty map and no error. Malformed lines are skipped.
func Load(path string) (map[string]Record, error) {
	records := make(map[string]Record)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return records, nil
		}
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, ";")
		if len(fields) != 3 {
			continue
		}
		checksum, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			continue
		}
		records[fields[0]] = Record{
			Name:       fields[0],
			SourceFile: fields[1],
			Checksum:   checksum,
		}
	}
	return records, scanner.Err()
}
