package iam

import "strings"

// matchWildcard performs simple wildcard matching with * and ?
func matchWildcard(pattern, value string) bool {
	// Handle exact match
	if pattern == value {
		return true
	}

	// Handle full wildcard
	if pattern == "*" {
		return true
	}

	// Simple prefix/suffix wildcard (most common cases)
	if strings.HasSuffix(pattern, "*") && !strings.ContainsAny(pattern[:len(pattern)-1], "*?") {
		return strings.HasPrefix(value, pattern[:len(pattern)-1])
	}
	if strings.HasPrefix(pattern, "*") && !strings.ContainsAny(pattern[1:], "*?") {
		return strings.HasSuffix(value, pattern[1:])
	}

	// Full wildcard matching for complex patterns
	return wildcardMatch(pattern, value)
}

// wildcardMatch performs full wildcard matching
func wildcardMatch(pattern, value string) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case '*':
			// Try matching zero or more characters
			for i := 0; i <= len(value); i++ {
				if wildcardMatch(pattern[1:], value[i:]) {
					return true
				}
			}
			return false
		case '?':
			if len(value) == 0 {
				return false
			}
			pattern = pattern[1:]
			value = value[1:]
		default:
			if len(value) == 0 || pattern[0] != value[0] {
				return false
			}
			pattern = pattern[1:]
			value = value[1:]
		}
	}
	return len(value) == 0
}
