// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package fsstore implements the object storage engine on a local
// filesystem. Buckets are directories under the storage root, objects are
// regular files, and writes go through a staging directory followed by an
// atomic rename so readers never observe partial content.
package fsstore

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/LeeDigitalWorks/zapgate/pkg/utils"
)

const defaultContentType = "application/octet-stream"

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string // quoted, as returned on the wire
	LastModified time.Time
	ContentType  string
}

// BucketInfo describes a bucket.
type BucketInfo struct {
	Name      string
	CreatedAt time.Time
}

// PutOptions carries optional metadata for a write. An empty ContentType is
// derived from the key extension; an empty ETag means the store computes the
// SHA-256 of the content. When ExpectedSHA256 is set (lowercase hex, no
// quotes), the write fails unless the streamed content hashes to it.
type PutOptions struct {
	ContentType    string
	ETag           string
	ExpectedSHA256 string
}

// objectMeta is the sidecar record kept alongside each object so HEAD and
// listing return the original ETag and content type without re-reading data.
type objectMeta struct {
	ETag        string `json:"etag"`
	ContentType string `json:"content_type,omitempty"`
}

// Store is the filesystem object store rooted at a single directory.
// commitMu serializes the sidecar-write plus data-rename commit step so a
// reader never sees one write's bytes paired with another write's metadata.
type Store struct {
	root     string
	commitMu sync.Mutex
}

// New opens a store at root, creating the root and its internal directories
// if needed.
func New(root string) (*Store, error) {
	for _, dir := range []string{root, filepath.Join(root, stagingDir), filepath.Join(root, metaDir)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	return &Store{root: root}, nil
}

// Root returns the storage root directory.
func (s *Store) Root() string {
	return s.root
}

// MultipartRoot returns the staging area reserved for multipart uploads.
func (s *Store) MultipartRoot() string {
	return filepath.Join(s.root, multipartDir)
}

// CreateBucket creates a bucket directory. Creating an existing bucket fails.
func (s *Store) CreateBucket(ctx context.Context, bucket string) error {
	if err := ValidateBucketName(bucket); err != nil {
		return err
	}
	if err := os.Mkdir(s.bucketPath(bucket), 0755); err != nil {
		if os.IsExist(err) {
			return &Error{Kind: KindBucketAlreadyExists, Bucket: bucket}
		}
		return &Error{Kind: KindIOFailure, Bucket: bucket, Err: err}
	}
	return nil
}

// BucketExists reports whether the bucket exists.
func (s *Store) BucketExists(ctx context.Context, bucket string) (bool, error) {
	if err := ValidateBucketName(bucket); err != nil {
		return false, err
	}
	info, err := os.Stat(s.bucketPath(bucket))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, &Error{Kind: KindIOFailure, Bucket: bucket, Err: err}
	}
	return info.IsDir(), nil
}

// ListBuckets returns all buckets sorted by name.
func (s *Store) ListBuckets(ctx context.Context) ([]BucketInfo, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, &Error{Kind: KindIOFailure, Err: err}
	}

	buckets := make([]BucketInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name()[0] == '.' {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		buckets = append(buckets, BucketInfo{Name: entry.Name(), CreatedAt: info.ModTime().UTC()})
	}
	return buckets, nil
}

// DeleteBucket removes an empty bucket. A bucket holding any object is not
// deletable; leftover empty directories from deleted objects do not count.
func (s *Store) DeleteBucket(ctx context.Context, bucket string) error {
	if err := ValidateBucketName(bucket); err != nil {
		return err
	}
	exists, err := s.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if !exists {
		return &Error{Kind: KindBucketNotFound, Bucket: bucket}
	}

	empty := true
	err = filepath.WalkDir(s.bucketPath(bucket), func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			empty = false
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return &Error{Kind: KindIOFailure, Bucket: bucket, Err: err}
	}
	if !empty {
		return &Error{Kind: KindBucketNotEmpty, Bucket: bucket}
	}

	if err := os.RemoveAll(s.bucketPath(bucket)); err != nil {
		return &Error{Kind: KindIOFailure, Bucket: bucket, Err: err}
	}
	if err := os.RemoveAll(filepath.Join(s.root, metaDir, bucket)); err != nil {
		return &Error{Kind: KindIOFailure, Bucket: bucket, Err: err}
	}
	return nil
}

// PutObject stores an object, replacing any existing one under the same key.
// Content is staged to a temporary file, fsynced, and renamed into place, so
// a concurrent reader sees either the previous object or the new one.
func (s *Store) PutObject(ctx context.Context, bucket, key string, r io.Reader, opts PutOptions) (*ObjectInfo, error) {
	if err := ValidateBucketName(bucket); err != nil {
		return nil, err
	}
	if err := ValidateObjectKey(bucket, key); err != nil {
		return nil, err
	}
	exists, err := s.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &Error{Kind: KindBucketNotFound, Bucket: bucket}
	}

	tmp, err := os.CreateTemp(filepath.Join(s.root, stagingDir), "put-*")
	if err != nil {
		return nil, &Error{Kind: KindIOFailure, Bucket: bucket, Key: key, Err: err}
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	h := utils.Sha256PoolGetHasher()
	defer utils.Sha256PoolPutHasher(h)

	size, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err != nil {
		cleanup()
		return nil, &Error{Kind: KindIOFailure, Bucket: bucket, Key: key, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return nil, &Error{Kind: KindIOFailure, Bucket: bucket, Key: key, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, &Error{Kind: KindIOFailure, Bucket: bucket, Key: key, Err: err}
	}

	digest := hex.EncodeToString(h.Sum(nil))
	if opts.ExpectedSHA256 != "" && !strings.EqualFold(opts.ExpectedSHA256, digest) {
		os.Remove(tmpPath)
		return nil, &Error{Kind: KindContentHashMismatch, Bucket: bucket, Key: key}
	}

	etag := opts.ETag
	if etag == "" {
		etag = `"` + digest + `"`
	}
	contentType := opts.ContentType
	if contentType == "" {
		contentType = contentTypeForKey(key)
	}

	// Sidecar and data commit under one lock so concurrent writers to the
	// same key cannot interleave one write's bytes with another's metadata.
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	meta := objectMeta{ETag: etag, ContentType: contentType}
	if err := s.writeMeta(bucket, key, meta); err != nil {
		os.Remove(tmpPath)
		return nil, err
	}

	dst := s.objectPath(bucket, key)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		os.Remove(tmpPath)
		os.Remove(s.metaPath(bucket, key))
		return nil, &Error{Kind: KindIOFailure, Bucket: bucket, Key: key, Err: err}
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		os.Remove(s.metaPath(bucket, key))
		return nil, &Error{Kind: KindIOFailure, Bucket: bucket, Key: key, Err: err}
	}

	return &ObjectInfo{
		Key:          key,
		Size:         size,
		ETag:         etag,
		LastModified: time.Now().UTC(),
		ContentType:  contentType,
	}, nil
}

// GetObject opens an object for reading. The caller owns the returned
// ReadCloser.
func (s *Store) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, *ObjectInfo, error) {
	info, err := s.HeadObject(ctx, bucket, key)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(s.objectPath(bucket, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, &Error{Kind: KindObjectNotFound, Bucket: bucket, Key: key}
		}
		return nil, nil, &Error{Kind: KindIOFailure, Bucket: bucket, Key: key, Err: err}
	}
	return f, info, nil
}

// HeadObject returns object metadata without opening the content.
func (s *Store) HeadObject(ctx context.Context, bucket, key string) (*ObjectInfo, error) {
	if err := ValidateBucketName(bucket); err != nil {
		return nil, err
	}
	if err := ValidateObjectKey(bucket, key); err != nil {
		return nil, err
	}
	exists, err := s.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &Error{Kind: KindBucketNotFound, Bucket: bucket}
	}
	return s.statObject(bucket, key)
}

// DeleteObject removes an object. Deleting a missing key succeeds, matching
// S3 delete semantics.
func (s *Store) DeleteObject(ctx context.Context, bucket, key string) error {
	if err := ValidateBucketName(bucket); err != nil {
		return err
	}
	if err := ValidateObjectKey(bucket, key); err != nil {
		return err
	}
	exists, err := s.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if !exists {
		return &Error{Kind: KindBucketNotFound, Bucket: bucket}
	}

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	if err := os.Remove(s.objectPath(bucket, key)); err != nil && !os.IsNotExist(err) {
		return &Error{Kind: KindIOFailure, Bucket: bucket, Key: key, Err: err}
	}
	if err := os.Remove(s.metaPath(bucket, key)); err != nil && !os.IsNotExist(err) {
		return &Error{Kind: KindIOFailure, Bucket: bucket, Key: key, Err: err}
	}

	s.pruneEmptyDirs(filepath.Dir(s.objectPath(bucket, key)), s.bucketPath(bucket))
	s.pruneEmptyDirs(filepath.Dir(s.metaPath(bucket, key)), filepath.Join(s.root, metaDir, bucket))
	return nil
}

// statObject builds ObjectInfo from the file and its sidecar. A missing
// sidecar falls back to hashing the content so the ETag stays correct.
func (s *Store) statObject(bucket, key string) (*ObjectInfo, error) {
	fi, err := os.Stat(s.objectPath(bucket, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &Error{Kind: KindObjectNotFound, Bucket: bucket, Key: key}
		}
		return nil, &Error{Kind: KindIOFailure, Bucket: bucket, Key: key, Err: err}
	}
	if fi.IsDir() {
		return nil, &Error{Kind: KindObjectNotFound, Bucket: bucket, Key: key}
	}

	meta, err := s.readMeta(bucket, key)
	if err != nil {
		return nil, err
	}
	if meta.ETag == "" {
		etag, err := s.computeETag(bucket, key)
		if err != nil {
			return nil, err
		}
		meta.ETag = etag
	}
	if meta.ContentType == "" {
		meta.ContentType = contentTypeForKey(key)
	}

	return &ObjectInfo{
		Key:          key,
		Size:         fi.Size(),
		ETag:         meta.ETag,
		LastModified: fi.ModTime().UTC(),
		ContentType:  meta.ContentType,
	}, nil
}

func (s *Store) writeMeta(bucket, key string, meta objectMeta) error {
	metaPath := s.metaPath(bucket, key)
	if err := os.MkdirAll(filepath.Dir(metaPath), 0755); err != nil {
		return &Error{Kind: KindIOFailure, Bucket: bucket, Key: key, Err: err}
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return &Error{Kind: KindIOFailure, Bucket: bucket, Key: key, Err: err}
	}
	if err := os.WriteFile(metaPath, data, 0644); err != nil {
		return &Error{Kind: KindIOFailure, Bucket: bucket, Key: key, Err: err}
	}
	return nil
}

func (s *Store) readMeta(bucket, key string) (objectMeta, error) {
	var meta objectMeta
	data, err := os.ReadFile(s.metaPath(bucket, key))
	if err != nil {
		if os.IsNotExist(err) {
			return meta, nil
		}
		return meta, &Error{Kind: KindIOFailure, Bucket: bucket, Key: key, Err: err}
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		// A corrupt sidecar degrades to recomputed metadata.
		return objectMeta{}, nil
	}
	return meta, nil
}

func (s *Store) computeETag(bucket, key string) (string, error) {
	f, err := os.Open(s.objectPath(bucket, key))
	if err != nil {
		return "", &Error{Kind: KindIOFailure, Bucket: bucket, Key: key, Err: err}
	}
	defer f.Close()

	h := utils.Sha256PoolGetHasher()
	defer utils.Sha256PoolPutHasher(h)
	if _, err := io.Copy(h, f); err != nil {
		return "", &Error{Kind: KindIOFailure, Bucket: bucket, Key: key, Err: err}
	}
	return `"` + hex.EncodeToString(h.Sum(nil)) + `"`, nil
}

// pruneEmptyDirs removes now-empty parent directories up to, but not
// including, stop. Failures are ignored; a leftover directory only costs a
// directory entry.
func (s *Store) pruneEmptyDirs(dir, stop string) {
	for dir != stop && len(dir) > len(stop) {
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

func contentTypeForKey(key string) string {
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return defaultContentType
}
