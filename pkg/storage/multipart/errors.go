// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package multipart

import (
	"fmt"

	"github.com/LeeDigitalWorks/zapgate/pkg/s3api/s3err"
)

// ErrorKind classifies multipart failures for mapping to S3 error responses.
type ErrorKind int

const (
	KindIOFailure ErrorKind = iota
	KindUploadNotFound
	KindInvalidPart
	KindInvalidPartOrder
	KindInvalidPartNumber
	KindContentHashMismatch
)

// Error is the multipart coordinator error type.
type Error struct {
	Kind     ErrorKind
	UploadID string
	Err      error
}

func (e *Error) Error() string {
	msg := e.kindString()
	if e.UploadID != "" {
		msg = fmt.Sprintf("%s: upload %s", msg, e.UploadID)
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
	case KindUploadNotFound:
		return "upload not found"
	case KindInvalidPart:
		return "invalid part"
	case KindInvalidPartOrder:
		return "invalid part order"
	case KindInvalidPartNumber:
		return "invalid part number"
	case KindContentHashMismatch:
		return "content hash mismatch"
	default:
		return "multipart failure"
	}
}

// ToS3Error maps the multipart error to its S3 error code.
func (e *Error) ToS3Error() s3err.ErrorCode {
	switch e.Kind {
	case KindUploadNotFound:
		return s3err.ErrNoSuchUpload
	case KindInvalidPart:
		return s3err.ErrInvalidPart
	case KindInvalidPartOrder:
		return s3err.ErrInvalidPartOrder
	case KindInvalidPartNumber:
		return s3err.ErrInvalidPartNumber
	case KindContentHashMismatch:
		return s3err.ErrContentSHA256Mismatch
	default:
		return s3err.ErrInternalError
	}
}

// IsKind reports whether err is a multipart error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	merr, ok := err.(*Error)
	return ok && merr.Kind == kind
}
