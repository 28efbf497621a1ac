// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"net/http"
	"strings"

	"github.com/LeeDigitalWorks/zapgate/pkg/s3api/s3action"
	"github.com/LeeDigitalWorks/zapgate/pkg/s3api/s3err"
)

// routeRequest resolves the S3 action plus bucket and key from the request
// line, following the path-style addressing scheme: /, /{bucket}, and
// /{bucket}/{key...}. Query parameters distinguish the multipart and listing
// variants.
func routeRequest(r *http.Request) (s3action.Action, string, string, s3err.ErrorCode) {
	path := strings.TrimPrefix(r.URL.Path, "/")
	query := r.URL.Query()

	if path == "" {
		if r.Method == http.MethodGet {
			return s3action.ListBuckets, "", "", s3err.ErrNone
		}
		return s3action.Unknown, "", "", s3err.ErrMethodNotAllowed
	}

	bucket, key, _ := strings.Cut(path, "/")

	if key == "" {
		switch r.Method {
		case http.MethodGet:
			if _, ok := query["uploads"]; ok {
				return s3action.ListMultipartUploads, bucket, "", s3err.ErrNone
			}
			if query.Get("list-type") == "2" {
				return s3action.ListObjectsV2, bucket, "", s3err.ErrNone
			}
			return s3action.ListObjects, bucket, "", s3err.ErrNone
		case http.MethodPut:
			return s3action.CreateBucket, bucket, "", s3err.ErrNone
		case http.MethodDelete:
			return s3action.DeleteBucket, bucket, "", s3err.ErrNone
		case http.MethodHead:
			return s3action.HeadBucket, bucket, "", s3err.ErrNone
		}
		return s3action.Unknown, bucket, "", s3err.ErrMethodNotAllowed
	}

	_, hasUploads := query["uploads"]
	uploadID := query.Get("uploadId")

	switch r.Method {
	case http.MethodPost:
		if hasUploads {
			return s3action.CreateMultipartUpload, bucket, key, s3err.ErrNone
		}
		if uploadID != "" {
			return s3action.CompleteMultipartUpload, bucket, key, s3err.ErrNone
		}
	case http.MethodPut:
		if uploadID != "" {
			return s3action.UploadPart, bucket, key, s3err.ErrNone
		}
		return s3action.PutObject, bucket, key, s3err.ErrNone
	case http.MethodGet:
		if uploadID != "" {
			return s3action.ListParts, bucket, key, s3err.ErrNone
		}
		return s3action.GetObject, bucket, key, s3err.ErrNone
	case http.MethodHead:
		return s3action.HeadObject, bucket, key, s3err.ErrNone
	case http.MethodDelete:
		if uploadID != "" {
			return s3action.AbortMultipartUpload, bucket, key, s3err.ErrNone
		}
		return s3action.DeleteObject, bucket, key, s3err.ErrNone
	}
	return s3action.Unknown, bucket, key, s3err.ErrMethodNotAllowed
}

// resourceFor builds the permission resource string an action is checked
// against.
func resourceFor(action s3action.Action, bucket, key string) string {
	if action == s3action.ListBuckets {
		return "*"
	}
	if action.IsObjectAction() {
		return bucket + "/" + key
	}
	return bucket
}
