// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/LeeDigitalWorks/zapgate/pkg/logger"
	"github.com/LeeDigitalWorks/zapgate/pkg/s3api/s3consts"
	"github.com/LeeDigitalWorks/zapgate/pkg/s3api/s3err"
	"github.com/LeeDigitalWorks/zapgate/pkg/s3api/signature"
	"github.com/LeeDigitalWorks/zapgate/pkg/storage/fsstore"
)

// contentSHA256 returns the payload digest the client declared for the
// request, or "" when the payload is unsigned and there is nothing to check.
// The signature only binds the declared value; the storage layer compares it
// against the bytes actually received.
func contentSHA256(r *http.Request) string {
	v := r.Header.Get(s3consts.XAmzContentSHA256)
	if v == "" || v == signature.UnsignedPayload {
		return ""
	}
	return v
}

func (gs *GatewayServer) PutObjectHandler(d *requestData, w http.ResponseWriter) {
	if d.req.ContentLength > s3consts.MaxObjectSize {
		writeXMLErrorResponse(w, d, s3err.ErrInvalidArgument)
		return
	}

	info, err := gs.store.PutObject(d.req.Context(), d.bucket, d.key, d.req.Body, fsstore.PutOptions{
		ContentType:    d.req.Header.Get("Content-Type"),
		ExpectedSHA256: contentSHA256(d.req),
	})
	if err != nil {
		gs.handleStorageError(w, d, err)
		return
	}

	w.Header().Set("ETag", info.ETag)
	w.WriteHeader(http.StatusOK)
}

func setObjectHeaders(w http.ResponseWriter, info *fsstore.ObjectInfo) {
	w.Header().Set("Content-Type", info.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	w.Header().Set("ETag", info.ETag)
	w.Header().Set("Last-Modified", info.LastModified.Format(http.TimeFormat))
	w.Header().Set("Accept-Ranges", "none")
}

func (gs *GatewayServer) GetObjectHandler(d *requestData, w http.ResponseWriter) {
	rc, info, err := gs.store.GetObject(d.req.Context(), d.bucket, d.key)
	if err != nil {
		gs.handleStorageError(w, d, err)
		return
	}
	defer rc.Close()

	setObjectHeaders(w, info)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		// Headers are already out; all we can do is log the broken stream.
		logger.Warn().Err(err).Str("request_id", d.requestID).Msg("object stream interrupted")
	}
}

func (gs *GatewayServer) HeadObjectHandler(d *requestData, w http.ResponseWriter) {
	info, err := gs.store.HeadObject(d.req.Context(), d.bucket, d.key)
	if err != nil {
		gs.handleStorageError(w, d, err)
		return
	}

	setObjectHeaders(w, info)
	w.WriteHeader(http.StatusOK)
}

func (gs *GatewayServer) DeleteObjectHandler(d *requestData, w http.ResponseWriter) {
	if err := gs.store.DeleteObject(d.req.Context(), d.bucket, d.key); err != nil {
		gs.handleStorageError(w, d, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
