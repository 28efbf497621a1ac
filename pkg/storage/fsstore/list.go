// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package fsstore

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ListOptions are the paging controls for a bucket listing.
type ListOptions struct {
	Prefix    string
	Delimiter string
	Marker    string // only keys strictly after Marker are returned
	MaxKeys   int
}

// ListResult is one page of a bucket listing. Objects and CommonPrefixes
// together hold at most MaxKeys entries in lexicographic key order.
type ListResult struct {
	Objects        []ObjectInfo
	CommonPrefixes []string
	IsTruncated    bool
	NextMarker     string
}

// ListObjects lists a bucket page. Keys sharing a prefix up to the first
// delimiter occurrence after Prefix collapse into a single common prefix
// entry, which counts toward MaxKeys like a key does.
func (s *Store) ListObjects(ctx context.Context, bucket string, opts ListOptions) (*ListResult, error) {
	if err := ValidateBucketName(bucket); err != nil {
		return nil, err
	}
	exists, err := s.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &Error{Kind: KindBucketNotFound, Bucket: bucket}
	}

	keys, err := s.bucketKeys(bucket)
	if err != nil {
		return nil, err
	}

	result := &ListResult{}
	if opts.MaxKeys <= 0 {
		return result, nil
	}

	seenPrefixes := make(map[string]struct{})
	count := 0
	lastAdded := ""

	for _, key := range keys {
		if opts.Marker != "" && key <= opts.Marker {
			continue
		}
		if !strings.HasPrefix(key, opts.Prefix) {
			continue
		}

		// Collapse into a common prefix when a delimiter follows the prefix.
		if opts.Delimiter != "" {
			rest := key[len(opts.Prefix):]
			if idx := strings.Index(rest, opts.Delimiter); idx >= 0 {
				common := key[:len(opts.Prefix)+idx] + opts.Delimiter
				// A page that ended on this prefix must not repeat it.
				if opts.Marker != "" && common <= opts.Marker {
					continue
				}
				if _, seen := seenPrefixes[common]; seen {
					continue
				}
				if count == opts.MaxKeys {
					result.IsTruncated = true
					result.NextMarker = lastAdded
					return result, nil
				}
				seenPrefixes[common] = struct{}{}
				result.CommonPrefixes = append(result.CommonPrefixes, common)
				count++
				lastAdded = common
				continue
			}
		}

		if count == opts.MaxKeys {
			result.IsTruncated = true
			result.NextMarker = lastAdded
			return result, nil
		}
		info, err := s.statObject(bucket, key)
		if err != nil {
			// The object vanished between the scan and the stat.
			if IsKind(err, KindObjectNotFound) {
				continue
			}
			return nil, err
		}
		result.Objects = append(result.Objects, *info)
		count++
		lastAdded = key
	}

	return result, nil
}

// bucketKeys returns every object key in the bucket in lexicographic order.
func (s *Store) bucketKeys(bucket string) ([]string, error) {
	root := s.bucketPath(bucket)
	var keys []string
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, &Error{Kind: KindIOFailure, Bucket: bucket, Err: err}
	}
	sort.Strings(keys)
	return keys, nil
}
