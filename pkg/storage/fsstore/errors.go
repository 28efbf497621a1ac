// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package fsstore

import (
	"fmt"

	"github.com/LeeDigitalWorks/zapgate/pkg/s3api/s3err"
)

// ErrorKind classifies storage failures so API handlers can map them to the
// right S3 error response without string matching.
type ErrorKind int

const (
	KindIOFailure ErrorKind = iota
	KindBucketNotFound
	KindBucketAlreadyExists
	KindBucketNotEmpty
	KindInvalidBucketName
	KindObjectNotFound
	KindInvalidObjectName
	KindContentHashMismatch
)

// Error is the storage error type. Bucket and Key identify the resource the
// failed operation targeted; Err holds the underlying cause when there is one.
type Error struct {
	Kind   ErrorKind
	Bucket string
	Key    string
	Err    error
}

func (e *Error) Error() string {
	resource := e.Bucket
	if e.Key != "" {
		resource = e.Bucket + "/" + e.Key
	}
	msg := e.kindString()
	if resource != "" {
		msg = fmt.Sprintf("%s: %s", msg, resource)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) kindString() string {
	switch e.Kind {
	case KindBucketNotFound:
		return "bucket not found"
	case KindBucketAlreadyExists:
		return "bucket already exists"
	case KindBucketNotEmpty:
		return "bucket not empty"
	case KindInvalidBucketName:
		return "invalid bucket name"
	case KindObjectNotFound:
		return "object not found"
	case KindInvalidObjectName:
		return "invalid object key"
	case KindContentHashMismatch:
		return "content hash mismatch"
	default:
		return "storage failure"
	}
}

// ToS3Error maps the storage error to its S3 error code.
func (e *Error) ToS3Error() s3err.ErrorCode {
	switch e.Kind {
	case KindBucketNotFound:
		return s3err.ErrNoSuchBucket
	case KindBucketAlreadyExists:
		return s3err.ErrBucketAlreadyExists
	case KindBucketNotEmpty:
		return s3err.ErrBucketNotEmpty
	case KindInvalidBucketName:
		return s3err.ErrInvalidBucketName
	case KindObjectNotFound:
		return s3err.ErrNoSuchKey
	case KindInvalidObjectName:
		return s3err.ErrInvalidObjectName
	case KindContentHashMismatch:
		return s3err.ErrContentSHA256Mismatch
	default:
		return s3err.ErrInternalError
	}
}

// ToS3Error converts any storage-layer error to an S3 error code, defaulting
// to an internal error for causes the store did not classify.
func ToS3Error(err error) s3err.ErrorCode {
	if err == nil {
		return s3err.ErrNone
	}
	if serr, ok := err.(*Error); ok {
		return serr.ToS3Error()
	}
	return s3err.ErrInternalError
}

// IsKind reports whether err is a storage error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	serr, ok := err.(*Error)
	return ok && serr.Kind == kind
}
