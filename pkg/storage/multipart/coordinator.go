// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package multipart coordinates multipart uploads over the filesystem store.
// Each upload stages its parts under a private directory; completing an
// upload assembles the parts into a single object through the store's atomic
// write path and tears the staging area down. An upload reaches at most one
// terminal state: completed, aborted, or expired by the sweeper.
package multipart

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/LeeDigitalWorks/zapgate/pkg/logger"
	"github.com/LeeDigitalWorks/zapgate/pkg/s3api/s3consts"
	"github.com/LeeDigitalWorks/zapgate/pkg/storage/fsstore"
	"github.com/LeeDigitalWorks/zapgate/pkg/utils"

	"github.com/google/uuid"
)

const uploadMetaFile = "upload.json"

// PartInfo describes one uploaded part.
type PartInfo struct {
	PartNumber   int
	ETag         string // unquoted hex
	Size         int64
	LastModified time.Time
}

// CompletedPart is one (part number, etag) pair the client declares when
// completing an upload.
type CompletedPart struct {
	PartNumber int
	ETag       string
}

// UploadInfo describes an in-progress upload.
type UploadInfo struct {
	UploadID    string
	Bucket      string
	Key         string
	ContentType string
	Initiated   time.Time
}

// uploadMeta is persisted as upload.json inside the staging directory so the
// registry survives a restart.
type uploadMeta struct {
	Bucket      string    `json:"bucket"`
	Key         string    `json:"key"`
	ContentType string    `json:"content_type,omitempty"`
	Initiated   time.Time `json:"initiated"`
}

// upload is the in-memory record of an in-progress upload. Its mutex
// serializes part writes against terminal transitions, and done flips exactly
// once.
type upload struct {
	mu    sync.Mutex
	id    string
	meta  uploadMeta
	parts map[int]PartInfo
	done  bool
}

// Coordinator tracks in-progress multipart uploads and drives them to a
// single terminal state.
type Coordinator struct {
	store *fsstore.Store
	root  string

	mu      sync.Mutex
	uploads map[string]*upload

	now func() time.Time
}

// New creates a coordinator over the store's multipart staging area and
// recovers any uploads left behind by a previous run.
func New(store *fsstore.Store) (*Coordinator, error) {
	c := &Coordinator{
		store:   store,
		root:    store.MultipartRoot(),
		uploads: make(map[string]*upload),
		now:     time.Now,
	}
	if err := os.MkdirAll(c.root, 0755); err != nil {
		return nil, fmt.Errorf("create multipart root: %w", err)
	}
	if err := c.recover(); err != nil {
		return nil, err
	}
	return c, nil
}

// recover rebuilds the upload registry from staging directories on disk.
// Unreadable entries are removed rather than resurrected half-broken.
func (c *Coordinator) recover() error {
	entries, err := os.ReadDir(c.root)
	if err != nil {
		return fmt.Errorf("scan multipart root: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		uploadID := entry.Name()
		up, err := c.loadUpload(uploadID)
		if err != nil {
			logger.Warn().Err(err).Str("upload_id", uploadID).Msg("discarding unrecoverable multipart upload")
			os.RemoveAll(filepath.Join(c.root, uploadID))
			continue
		}
		c.uploads[uploadID] = up
	}

	if len(c.uploads) > 0 {
		logger.Info().Int("uploads", len(c.uploads)).Msg("recovered in-progress multipart uploads")
	}
	return nil
}

func (c *Coordinator) loadUpload(uploadID string) (*upload, error) {
	dir := filepath.Join(c.root, uploadID)

	data, err := os.ReadFile(filepath.Join(dir, uploadMetaFile))
	if err != nil {
		return nil, err
	}
	var meta uploadMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	up := &upload{id: uploadID, meta: meta, parts: make(map[int]PartInfo)}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "part-") || strings.HasSuffix(name, ".etag") {
			continue
		}
		partNumber, err := strconv.Atoi(strings.TrimPrefix(name, "part-"))
		if err != nil {
			return nil, fmt.Errorf("stray part file %s", name)
		}
		fi, err := entry.Info()
		if err != nil {
			return nil, err
		}
		etagBytes, err := os.ReadFile(filepath.Join(dir, name+".etag"))
		if err != nil {
			return nil, err
		}
		up.parts[partNumber] = PartInfo{
			PartNumber:   partNumber,
			ETag:         strings.TrimSpace(string(etagBytes)),
			Size:         fi.Size(),
			LastModified: fi.ModTime().UTC(),
		}
	}
	return up, nil
}

// Initiate starts a multipart upload and returns its upload ID.
func (c *Coordinator) Initiate(ctx context.Context, bucket, key, contentType string) (string, error) {
	if err := fsstore.ValidateBucketName(bucket); err != nil {
		return "", err
	}
	if err := fsstore.ValidateObjectKey(bucket, key); err != nil {
		return "", err
	}
	exists, err := c.store.BucketExists(ctx, bucket)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", &fsstore.Error{Kind: fsstore.KindBucketNotFound, Bucket: bucket}
	}

	uploadUUID := uuid.New()
	uploadID := base64.RawURLEncoding.EncodeToString(uploadUUID[:])

	meta := uploadMeta{
		Bucket:      bucket,
		Key:         key,
		ContentType: contentType,
		Initiated:   c.now().UTC(),
	}

	dir := filepath.Join(c.root, uploadID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", &Error{Kind: KindIOFailure, UploadID: uploadID, Err: err}
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return "", &Error{Kind: KindIOFailure, UploadID: uploadID, Err: err}
	}
	if err := os.WriteFile(filepath.Join(dir, uploadMetaFile), data, 0644); err != nil {
		os.RemoveAll(dir)
		return "", &Error{Kind: KindIOFailure, UploadID: uploadID, Err: err}
	}

	c.mu.Lock()
	c.uploads[uploadID] = &upload{id: uploadID, meta: meta, parts: make(map[int]PartInfo)}
	c.mu.Unlock()

	return uploadID, nil
}

// lookup returns the live upload or an UploadNotFound error. The bucket and
// key must match what the upload was initiated with.
func (c *Coordinator) lookup(bucket, key, uploadID string) (*upload, error) {
	c.mu.Lock()
	up, ok := c.uploads[uploadID]
	c.mu.Unlock()
	if !ok || up.meta.Bucket != bucket || up.meta.Key != key {
		return nil, &Error{Kind: KindUploadNotFound, UploadID: uploadID}
	}
	return up, nil
}

// PartOptions carries optional checks for a part write. When ExpectedSHA256
// is set (lowercase hex, no quotes), the part is discarded unless its content
// hashes to it.
type PartOptions struct {
	ExpectedSHA256 string
}

// UploadPart stores one part and returns its unquoted hex ETag. Re-uploading
// a part number replaces the previous content: last write wins.
func (c *Coordinator) UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int, r io.Reader, opts PartOptions) (string, error) {
	if partNumber < 1 || partNumber > s3consts.MaxPartID {
		return "", &Error{Kind: KindInvalidPartNumber, UploadID: uploadID}
	}
	up, err := c.lookup(bucket, key, uploadID)
	if err != nil {
		return "", err
	}

	up.mu.Lock()
	defer up.mu.Unlock()
	if up.done {
		return "", &Error{Kind: KindUploadNotFound, UploadID: uploadID}
	}

	dir := filepath.Join(c.root, uploadID)
	tmp, err := os.CreateTemp(dir, "staging-*")
	if err != nil {
		return "", &Error{Kind: KindIOFailure, UploadID: uploadID, Err: err}
	}
	tmpPath := tmp.Name()

	h := utils.Sha256PoolGetHasher()
	defer utils.Sha256PoolPutHasher(h)

	size, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", &Error{Kind: KindIOFailure, UploadID: uploadID, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", &Error{Kind: KindIOFailure, UploadID: uploadID, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", &Error{Kind: KindIOFailure, UploadID: uploadID, Err: err}
	}

	etag := hex.EncodeToString(h.Sum(nil))
	if opts.ExpectedSHA256 != "" && !strings.EqualFold(opts.ExpectedSHA256, etag) {
		os.Remove(tmpPath)
		return "", &Error{Kind: KindContentHashMismatch, UploadID: uploadID}
	}

	partPath := filepath.Join(dir, "part-"+strconv.Itoa(partNumber))
	if err := os.WriteFile(partPath+".etag", []byte(etag), 0644); err != nil {
		os.Remove(tmpPath)
		return "", &Error{Kind: KindIOFailure, UploadID: uploadID, Err: err}
	}
	if err := os.Rename(tmpPath, partPath); err != nil {
		os.Remove(tmpPath)
		return "", &Error{Kind: KindIOFailure, UploadID: uploadID, Err: err}
	}

	up.parts[partNumber] = PartInfo{
		PartNumber:   partNumber,
		ETag:         etag,
		Size:         size,
		LastModified: c.now().UTC(),
	}
	return etag, nil
}

// Complete assembles the declared parts into the final object. The declared
// list must be non-empty and strictly ascending by part number, and every
// declared (part number, etag) pair must match an uploaded part. The final
// ETag is the MD5 of the concatenated part ETags suffixed with the part
// count, which distinguishes multipart objects from single-shot writes.
func (c *Coordinator) Complete(ctx context.Context, bucket, key, uploadID string, parts []CompletedPart) (*fsstore.ObjectInfo, error) {
	up, err := c.lookup(bucket, key, uploadID)
	if err != nil {
		return nil, err
	}

	up.mu.Lock()
	defer up.mu.Unlock()
	if up.done {
		return nil, &Error{Kind: KindUploadNotFound, UploadID: uploadID}
	}

	if len(parts) == 0 {
		return nil, &Error{Kind: KindInvalidPart, UploadID: uploadID}
	}
	for i := 1; i < len(parts); i++ {
		if parts[i].PartNumber <= parts[i-1].PartNumber {
			return nil, &Error{Kind: KindInvalidPartOrder, UploadID: uploadID}
		}
	}

	dir := filepath.Join(c.root, uploadID)
	readers := make([]io.Reader, 0, len(parts))
	files := make([]*os.File, 0, len(parts))
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}

	var etagParts []string
	for _, reqPart := range parts {
		stored, exists := up.parts[reqPart.PartNumber]
		if !exists {
			closeAll()
			return nil, &Error{Kind: KindInvalidPart, UploadID: uploadID}
		}
		if strings.Trim(reqPart.ETag, "\"") != stored.ETag {
			closeAll()
			return nil, &Error{Kind: KindInvalidPart, UploadID: uploadID}
		}

		f, err := os.Open(filepath.Join(dir, "part-"+strconv.Itoa(reqPart.PartNumber)))
		if err != nil {
			closeAll()
			return nil, &Error{Kind: KindIOFailure, UploadID: uploadID, Err: err}
		}
		files = append(files, f)
		readers = append(readers, f)
		etagParts = append(etagParts, stored.ETag)
	}

	h := utils.Md5PoolGetHasher()
	h.Write([]byte(strings.Join(etagParts, "")))
	finalETag := `"` + hex.EncodeToString(h.Sum(nil)) + "-" + strconv.Itoa(len(parts)) + `"`
	utils.Md5PoolPutHasher(h)

	info, err := c.store.PutObject(ctx, up.meta.Bucket, up.meta.Key, io.MultiReader(readers...), fsstore.PutOptions{
		ContentType: up.meta.ContentType,
		ETag:        finalETag,
	})
	closeAll()
	if err != nil {
		return nil, err
	}

	up.done = true
	c.remove(uploadID)
	if err := os.RemoveAll(dir); err != nil {
		logger.Warn().Err(err).Str("upload_id", uploadID).Msg("failed to remove multipart staging dir")
	}

	return info, nil
}

// Abort discards an upload and its staged parts. Aborting an unknown or
// already-terminated upload succeeds, so retried aborts are harmless.
func (c *Coordinator) Abort(ctx context.Context, bucket, key, uploadID string) error {
	up, err := c.lookup(bucket, key, uploadID)
	if err != nil {
		return nil
	}

	up.mu.Lock()
	defer up.mu.Unlock()
	if up.done {
		return nil
	}

	up.done = true
	c.remove(uploadID)
	if err := os.RemoveAll(filepath.Join(c.root, uploadID)); err != nil {
		return &Error{Kind: KindIOFailure, UploadID: uploadID, Err: err}
	}
	return nil
}

// ListParts returns the uploaded parts sorted by part number.
func (c *Coordinator) ListParts(ctx context.Context, bucket, key, uploadID string) ([]PartInfo, error) {
	up, err := c.lookup(bucket, key, uploadID)
	if err != nil {
		return nil, err
	}

	up.mu.Lock()
	defer up.mu.Unlock()
	if up.done {
		return nil, &Error{Kind: KindUploadNotFound, UploadID: uploadID}
	}

	parts := make([]PartInfo, 0, len(up.parts))
	for _, p := range up.parts {
		parts = append(parts, p)
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].PartNumber < parts[j].PartNumber })
	return parts, nil
}

// ListUploads returns the in-progress uploads, optionally filtered by bucket,
// sorted by key then upload ID.
func (c *Coordinator) ListUploads(ctx context.Context, bucket string) []UploadInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	uploads := make([]UploadInfo, 0, len(c.uploads))
	for _, up := range c.uploads {
		if bucket != "" && up.meta.Bucket != bucket {
			continue
		}
		uploads = append(uploads, UploadInfo{
			UploadID:    up.id,
			Bucket:      up.meta.Bucket,
			Key:         up.meta.Key,
			ContentType: up.meta.ContentType,
			Initiated:   up.meta.Initiated,
		})
	}
	sort.Slice(uploads, func(i, j int) bool {
		if uploads[i].Key != uploads[j].Key {
			return uploads[i].Key < uploads[j].Key
		}
		return uploads[i].UploadID < uploads[j].UploadID
	})
	return uploads
}

// Sweep aborts uploads initiated more than maxAge ago and returns how many it
// expired.
func (c *Coordinator) Sweep(ctx context.Context, maxAge time.Duration) int {
	cutoff := c.now().Add(-maxAge)

	c.mu.Lock()
	var stale []*upload
	for _, up := range c.uploads {
		if up.meta.Initiated.Before(cutoff) {
			stale = append(stale, up)
		}
	}
	c.mu.Unlock()

	expired := 0
	for _, up := range stale {
		if err := c.Abort(ctx, up.meta.Bucket, up.meta.Key, up.id); err != nil {
			logger.Warn().Err(err).Str("upload_id", up.id).Msg("failed to expire multipart upload")
			continue
		}
		expired++
	}
	if expired > 0 {
		logger.Info().Int("expired", expired).Msg("expired stale multipart uploads")
	}
	return expired
}

func (c *Coordinator) remove(uploadID string) {
	c.mu.Lock()
	delete(c.uploads, uploadID)
	c.mu.Unlock()
}
