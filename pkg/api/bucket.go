// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"net/http"
	"strconv"

	"github.com/LeeDigitalWorks/zapgate/pkg/s3api/s3consts"
	"github.com/LeeDigitalWorks/zapgate/pkg/s3api/s3err"
	"github.com/LeeDigitalWorks/zapgate/pkg/storage/fsstore"
)

func (gs *GatewayServer) ListBucketsHandler(d *requestData, w http.ResponseWriter) {
	buckets, err := gs.store.ListBuckets(d.req.Context())
	if err != nil {
		gs.handleStorageError(w, d, err)
		return
	}

	result := listAllMyBucketsResult{
		Owner: owner{ID: d.accessKey, DisplayName: d.accessKey},
	}
	for _, b := range buckets {
		result.Buckets = append(result.Buckets, bucketEntry{
			Name:         b.Name,
			CreationDate: b.CreatedAt.Format(iso8601TimeFormat),
		})
	}
	writeXMLResponse(w, d, result)
}

func (gs *GatewayServer) CreateBucketHandler(d *requestData, w http.ResponseWriter) {
	if err := gs.store.CreateBucket(d.req.Context(), d.bucket); err != nil {
		gs.handleStorageError(w, d, err)
		return
	}
	w.Header().Set("Location", "/"+d.bucket)
	w.WriteHeader(http.StatusOK)
}

func (gs *GatewayServer) HeadBucketHandler(d *requestData, w http.ResponseWriter) {
	exists, err := gs.store.BucketExists(d.req.Context(), d.bucket)
	if err != nil {
		gs.handleStorageError(w, d, err)
		return
	}
	if !exists {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (gs *GatewayServer) DeleteBucketHandler(d *requestData, w http.ResponseWriter) {
	if err := gs.store.DeleteBucket(d.req.Context(), d.bucket); err != nil {
		gs.handleStorageError(w, d, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseListOptions reads the listing controls shared by both listing
// versions. The marker parameter differs between them and is filled by the
// caller.
func parseListOptions(d *requestData) (fsstore.ListOptions, s3err.ErrorCode) {
	query := d.req.URL.Query()
	opts := fsstore.ListOptions{
		Prefix:    query.Get("prefix"),
		Delimiter: query.Get("delimiter"),
		MaxKeys:   s3consts.DefaultMaxKeys,
	}
	if raw := query.Get("max-keys"); raw != "" {
		maxKeys, err := strconv.Atoi(raw)
		if err != nil || maxKeys < 0 {
			return opts, s3err.ErrInvalidMaxKeys
		}
		if maxKeys < opts.MaxKeys {
			opts.MaxKeys = maxKeys
		}
	}
	return opts, s3err.ErrNone
}

func toObjectEntries(objects []fsstore.ObjectInfo) []objectEntry {
	entries := make([]objectEntry, 0, len(objects))
	for _, obj := range objects {
		entries = append(entries, objectEntry{
			Key:          obj.Key,
			LastModified: obj.LastModified.Format(iso8601TimeFormat),
			ETag:         obj.ETag,
			Size:         obj.Size,
			StorageClass: "STANDARD",
		})
	}
	return entries
}

func toCommonPrefixes(prefixes []string) []commonPrefix {
	entries := make([]commonPrefix, 0, len(prefixes))
	for _, p := range prefixes {
		entries = append(entries, commonPrefix{Prefix: p})
	}
	return entries
}

func (gs *GatewayServer) ListObjectsHandler(d *requestData, w http.ResponseWriter) {
	opts, errCode := parseListOptions(d)
	if errCode != s3err.ErrNone {
		writeXMLErrorResponse(w, d, errCode)
		return
	}
	opts.Marker = d.req.URL.Query().Get("marker")

	listing, err := gs.store.ListObjects(d.req.Context(), d.bucket, opts)
	if err != nil {
		gs.handleStorageError(w, d, err)
		return
	}

	writeXMLResponse(w, d, listBucketResult{
		Name:           d.bucket,
		Prefix:         opts.Prefix,
		Marker:         opts.Marker,
		NextMarker:     listing.NextMarker,
		MaxKeys:        opts.MaxKeys,
		Delimiter:      opts.Delimiter,
		IsTruncated:    listing.IsTruncated,
		Contents:       toObjectEntries(listing.Objects),
		CommonPrefixes: toCommonPrefixes(listing.CommonPrefixes),
	})
}

func (gs *GatewayServer) ListObjectsV2Handler(d *requestData, w http.ResponseWriter) {
	opts, errCode := parseListOptions(d)
	if errCode != s3err.ErrNone {
		writeXMLErrorResponse(w, d, errCode)
		return
	}

	query := d.req.URL.Query()
	token := query.Get("continuation-token")
	startAfter := query.Get("start-after")
	opts.Marker = token
	if opts.Marker == "" {
		opts.Marker = startAfter
	}

	listing, err := gs.store.ListObjects(d.req.Context(), d.bucket, opts)
	if err != nil {
		gs.handleStorageError(w, d, err)
		return
	}

	writeXMLResponse(w, d, listBucketV2Result{
		Name:                  d.bucket,
		Prefix:                opts.Prefix,
		StartAfter:            startAfter,
		ContinuationToken:     token,
		NextContinuationToken: listing.NextMarker,
		KeyCount:              len(listing.Objects) + len(listing.CommonPrefixes),
		MaxKeys:               opts.MaxKeys,
		Delimiter:             opts.Delimiter,
		IsTruncated:           listing.IsTruncated,
		Contents:              toObjectEntries(listing.Objects),
		CommonPrefixes:        toCommonPrefixes(listing.CommonPrefixes),
	})
}
