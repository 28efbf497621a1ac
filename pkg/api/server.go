// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package api serves the S3-compatible HTTP surface: request routing,
// SigV4 authorization, and XML request/response handling over the
// filesystem store and the multipart coordinator.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/LeeDigitalWorks/zapgate/pkg/config"
	"github.com/LeeDigitalWorks/zapgate/pkg/logger"
	"github.com/LeeDigitalWorks/zapgate/pkg/s3api/auth"
	"github.com/LeeDigitalWorks/zapgate/pkg/s3api/s3action"
	"github.com/LeeDigitalWorks/zapgate/pkg/s3api/s3consts"
	"github.com/LeeDigitalWorks/zapgate/pkg/s3api/s3err"
	"github.com/LeeDigitalWorks/zapgate/pkg/storage/fsstore"
	"github.com/LeeDigitalWorks/zapgate/pkg/storage/multipart"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// Handler serves one routed and authorized S3 request.
type Handler func(*requestData, http.ResponseWriter)

// requestData carries the routed request through a handler.
type requestData struct {
	req       *http.Request
	action    s3action.Action
	bucket    string
	key       string
	requestID string
	accessKey string
}

// GatewayServer is the S3 gateway HTTP server.
type GatewayServer struct {
	provider *config.Provider
	store    *fsstore.Store
	uploads  *multipart.Coordinator
	handlers map[s3action.Action]Handler

	metricsRequest         *prometheus.CounterVec
	metricsRequestDuration *prometheus.HistogramVec
	metricsAuthFailures    *prometheus.CounterVec
}

// NewGatewayServer wires the gateway over a config provider, the object
// store, and the multipart coordinator.
func NewGatewayServer(provider *config.Provider, store *fsstore.Store, uploads *multipart.Coordinator) *GatewayServer {
	gs := &GatewayServer{
		provider: provider,
		store:    store,
		uploads:  uploads,
		metricsRequest: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "s3api_requests_counter",
			Help: "Number of S3 API requests received",
		}, []string{"action", "status_code"}),
		metricsRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "s3api_request_duration_seconds",
			Help:    "Duration of S3 API requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"action", "status_code"}),
		metricsAuthFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "s3api_auth_failures_counter",
			Help: "Number of S3 API requests rejected by authentication or authorization",
		}, []string{"code"}),
	}

	gs.handlers = map[s3action.Action]Handler{
		// Bucket actions
		s3action.CreateBucket:  gs.CreateBucketHandler,
		s3action.DeleteBucket:  gs.DeleteBucketHandler,
		s3action.ListBuckets:   gs.ListBucketsHandler,
		s3action.HeadBucket:    gs.HeadBucketHandler,
		s3action.ListObjects:   gs.ListObjectsHandler,
		s3action.ListObjectsV2: gs.ListObjectsV2Handler,

		// Object actions
		s3action.PutObject:    gs.PutObjectHandler,
		s3action.GetObject:    gs.GetObjectHandler,
		s3action.HeadObject:   gs.HeadObjectHandler,
		s3action.DeleteObject: gs.DeleteObjectHandler,

		// Multipart upload actions
		s3action.CreateMultipartUpload:   gs.CreateMultipartUploadHandler,
		s3action.UploadPart:              gs.UploadPartHandler,
		s3action.CompleteMultipartUpload: gs.CompleteMultipartUploadHandler,
		s3action.AbortMultipartUpload:    gs.AbortMultipartUploadHandler,
		s3action.ListParts:               gs.ListPartsHandler,
		s3action.ListMultipartUploads:    gs.ListMultipartUploadsHandler,
	}

	return gs
}

// Collectors returns the server's metrics for registration.
func (gs *GatewayServer) Collectors() []prometheus.Collector {
	return []prometheus.Collector{gs.metricsRequest, gs.metricsRequestDuration, gs.metricsAuthFailures}
}

func (gs *GatewayServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	wrappedWriter := &wrappedResponseRecorder{
		ResponseWriter: w,
		statusCode:     0,
	}

	d := &requestData{
		req:       r,
		requestID: uuid.NewString(),
	}
	wrappedWriter.Header().Set(s3consts.XAmzRequestID, d.requestID)

	defer func() {
		// A client-cancelled request is not a server error.
		if wrappedWriter.statusCode == http.StatusInternalServerError && errors.Is(r.Context().Err(), context.Canceled) {
			wrappedWriter.statusCode = 0
		}
		code := strconv.FormatInt(int64(wrappedWriter.statusCode), 10)
		gs.metricsRequest.WithLabelValues(d.action.String(), code).Inc()
		gs.metricsRequestDuration.WithLabelValues(d.action.String(), code).Observe(time.Since(start).Seconds())

		logger.Debug().
			Str("request_id", d.requestID).
			Str("action", d.action.String()).
			Str("bucket", d.bucket).
			Str("key", d.key).
			Str("access_key", d.accessKey).
			Int("status", wrappedWriter.statusCode).
			Int64("bytes", wrappedWriter.bytesWritten).
			Dur("duration", time.Since(start)).
			Msg("request served")
	}()

	action, bucket, key, errCode := routeRequest(r)
	d.action, d.bucket, d.key = action, bucket, key
	if errCode != s3err.ErrNone {
		writeXMLErrorResponse(wrappedWriter, d, errCode)
		return
	}

	// Authorization runs against the configuration snapshot taken here; a
	// concurrent reload does not affect this request.
	snap := gs.provider.Snapshot()
	accessKey, errCode := auth.New(snap.IAM).Authorize(r, action, resourceFor(action, bucket, key))
	d.accessKey = accessKey
	if errCode != s3err.ErrNone {
		gs.metricsAuthFailures.WithLabelValues(errCode.Code()).Inc()
		if r.Method == http.MethodHead {
			wrappedWriter.WriteHeader(errCode.HTTPStatusCode())
			return
		}
		writeXMLErrorResponse(wrappedWriter, d, errCode)
		return
	}

	handler, exists := gs.handlers[action]
	if !exists {
		writeXMLErrorResponse(wrappedWriter, d, s3err.ErrNotImplemented)
		return
	}

	handler(d, wrappedWriter)
}

// handleStorageError converts store and coordinator errors to HTTP
// responses. HEAD requests get a bare status code since they carry no body.
func (gs *GatewayServer) handleStorageError(w http.ResponseWriter, d *requestData, err error) {
	type storageError interface {
		ToS3Error() s3err.ErrorCode
	}

	errCode := s3err.ErrInternalError
	if serr, ok := err.(storageError); ok {
		errCode = serr.ToS3Error()
	} else {
		logger.Error().Err(err).Str("request_id", d.requestID).Msg("storage layer error")
	}

	if d.req.Method == http.MethodHead {
		w.WriteHeader(errCode.HTTPStatusCode())
		return
	}
	writeXMLErrorResponse(w, d, errCode)
}
