// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package fsstore

import (
	"path/filepath"
	"strings"
)

const maxKeyLength = 1024

// Internal directories under the storage root. Bucket name validation keeps
// user buckets from colliding with them.
const (
	stagingDir   = ".staging"
	metaDir      = ".meta"
	multipartDir = ".multipart"
)

// ValidateBucketName enforces S3 bucket naming: 3 to 63 characters, lowercase
// letters, digits, hyphens, and dots, starting and ending with a letter or
// digit. Names never start with a dot, so internal directories are
// unreachable through the API.
func ValidateBucketName(bucket string) error {
	if len(bucket) < 3 || len(bucket) > 63 {
		return &Error{Kind: KindInvalidBucketName, Bucket: bucket}
	}
	for i := 0; i < len(bucket); i++ {
		c := bucket[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case c == '-' || c == '.':
			if i == 0 || i == len(bucket)-1 {
				return &Error{Kind: KindInvalidBucketName, Bucket: bucket}
			}
		default:
			return &Error{Kind: KindInvalidBucketName, Bucket: bucket}
		}
	}
	if strings.Contains(bucket, "..") {
		return &Error{Kind: KindInvalidBucketName, Bucket: bucket}
	}
	return nil
}

// ValidateObjectKey rejects keys that could escape the bucket directory or
// that have no stable filesystem representation. Every key passes through
// here before any path is built from it.
func ValidateObjectKey(bucket, key string) error {
	if key == "" || len(key) > maxKeyLength {
		return &Error{Kind: KindInvalidObjectName, Bucket: bucket, Key: key}
	}
	if strings.ContainsRune(key, '\x00') || strings.ContainsRune(key, '\\') {
		return &Error{Kind: KindInvalidObjectName, Bucket: bucket, Key: key}
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return &Error{Kind: KindInvalidObjectName, Bucket: bucket, Key: key}
		}
	}
	return nil
}

func (s *Store) bucketPath(bucket string) string {
	return filepath.Join(s.root, bucket)
}

func (s *Store) objectPath(bucket, key string) string {
	return filepath.Join(s.root, bucket, filepath.FromSlash(key))
}

func (s *Store) metaPath(bucket, key string) string {
	return filepath.Join(s.root, metaDir, bucket, filepath.FromSlash(key)+".json")
}
