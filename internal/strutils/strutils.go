// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package strutils provides small helpers for working with string lists.
package strutils

import "strings"

// StrListContains looks for a string in a list of strings.
func StrListContains(haystack []string, needle string) bool {
	for _, item := range haystack {
		if item == needle {
			return true
		}
	}
	return false
}

// TrimStrings takes a slice of strings and returns a slice of strings
// with trimmed spaces and empty entries removed.
func TrimStrings(items []string) []string {
	ret := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			ret = append(ret, s)
		}
	}
	return ret
}
