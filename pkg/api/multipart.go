// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"encoding/xml"
	"net/http"
	"strconv"

	"github.com/LeeDigitalWorks/zapgate/pkg/s3api/s3err"
	"github.com/LeeDigitalWorks/zapgate/pkg/storage/multipart"
)

func (gs *GatewayServer) CreateMultipartUploadHandler(d *requestData, w http.ResponseWriter) {
	uploadID, err := gs.uploads.Initiate(d.req.Context(), d.bucket, d.key, d.req.Header.Get("Content-Type"))
	if err != nil {
		gs.handleStorageError(w, d, err)
		return
	}

	writeXMLResponse(w, d, initiateMultipartUploadResult{
		Bucket:   d.bucket,
		Key:      d.key,
		UploadID: uploadID,
	})
}

func (gs *GatewayServer) UploadPartHandler(d *requestData, w http.ResponseWriter) {
	query := d.req.URL.Query()
	partNumber, err := strconv.Atoi(query.Get("partNumber"))
	if err != nil {
		writeXMLErrorResponse(w, d, s3err.ErrInvalidPartNumber)
		return
	}

	etag, err := gs.uploads.UploadPart(d.req.Context(), d.bucket, d.key, query.Get("uploadId"), partNumber, d.req.Body, multipart.PartOptions{
		ExpectedSHA256: contentSHA256(d.req),
	})
	if err != nil {
		gs.handleStorageError(w, d, err)
		return
	}

	w.Header().Set("ETag", `"`+etag+`"`)
	w.WriteHeader(http.StatusOK)
}

func (gs *GatewayServer) CompleteMultipartUploadHandler(d *requestData, w http.ResponseWriter) {
	var body completeMultipartUpload
	if err := xml.NewDecoder(d.req.Body).Decode(&body); err != nil {
		writeXMLErrorResponse(w, d, s3err.ErrMalformedXML)
		return
	}

	parts := make([]multipart.CompletedPart, 0, len(body.Parts))
	for _, p := range body.Parts {
		parts = append(parts, multipart.CompletedPart{
			PartNumber: p.PartNumber,
			ETag:       p.ETag,
		})
	}

	info, err := gs.uploads.Complete(d.req.Context(), d.bucket, d.key, d.req.URL.Query().Get("uploadId"), parts)
	if err != nil {
		gs.handleStorageError(w, d, err)
		return
	}

	writeXMLResponse(w, d, completeMultipartUploadResult{
		Location: "/" + d.bucket + "/" + d.key,
		Bucket:   d.bucket,
		Key:      d.key,
		ETag:     info.ETag,
	})
}

func (gs *GatewayServer) ListPartsHandler(d *requestData, w http.ResponseWriter) {
	uploadID := d.req.URL.Query().Get("uploadId")
	parts, err := gs.uploads.ListParts(d.req.Context(), d.bucket, d.key, uploadID)
	if err != nil {
		gs.handleStorageError(w, d, err)
		return
	}

	result := listPartsResult{
		Bucket:   d.bucket,
		Key:      d.key,
		UploadID: uploadID,
		Parts:    make([]partEntry, 0, len(parts)),
	}
	for _, p := range parts {
		result.Parts = append(result.Parts, partEntry{
			PartNumber:   p.PartNumber,
			LastModified: p.LastModified.UTC().Format(iso8601TimeFormat),
			ETag:         `"` + p.ETag + `"`,
			Size:         p.Size,
		})
	}
	writeXMLResponse(w, d, result)
}

func (gs *GatewayServer) ListMultipartUploadsHandler(d *requestData, w http.ResponseWriter) {
	exists, err := gs.store.BucketExists(d.req.Context(), d.bucket)
	if err != nil {
		gs.handleStorageError(w, d, err)
		return
	}
	if !exists {
		writeXMLErrorResponse(w, d, s3err.ErrNoSuchBucket)
		return
	}

	uploads := gs.uploads.ListUploads(d.req.Context(), d.bucket)

	result := listMultipartUploadsResult{
		Bucket:  d.bucket,
		Uploads: make([]uploadEntry, 0, len(uploads)),
	}
	for _, u := range uploads {
		result.Uploads = append(result.Uploads, uploadEntry{
			Key:       u.Key,
			UploadID:  u.UploadID,
			Initiated: u.Initiated.UTC().Format(iso8601TimeFormat),
		})
	}
	writeXMLResponse(w, d, result)
}

func (gs *GatewayServer) AbortMultipartUploadHandler(d *requestData, w http.ResponseWriter) {
	if err := gs.uploads.Abort(d.req.Context(), d.bucket, d.key, d.req.URL.Query().Get("uploadId")); err != nil {
		gs.handleStorageError(w, d, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
