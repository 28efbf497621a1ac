// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package s3consts

const (
	// MaxObjectSize is the maximum object size per PUT request (5GiB)
	MaxObjectSize = 1024 * 1024 * 1024 * 5
	// MaxPartID is the maximum Part ID for multipart upload (10000)
	// Acceptable values range from 1 to 10000 inclusive
	MaxPartID = 10000
	// DefaultMaxKeys is the listing page size when max-keys is not supplied
	DefaultMaxKeys = 1000

	// --- Core request / tracing ---
	XAmzDate      = "x-amz-date"
	XAmzRequestID = "x-amz-request-id"

	// --- Authorization ---
	XAmzAlgorithm     = "X-Amz-Algorithm"
	XAmzCredential    = "X-Amz-Credential"
	XAmzSignedHeaders = "X-Amz-SignedHeaders"
	XAmzSignature     = "X-Amz-Signature"
	XAmzExpires       = "X-Amz-Expires"
	XAmzDateQuery     = "X-Amz-Date"

	// --- Content / payload ---
	XAmzContentSHA256 = "x-amz-content-sha256"
)
