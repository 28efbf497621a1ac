// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package s3action

// Action enumerates the S3 operations the gateway serves.
// https://docs.aws.amazon.com/AmazonS3/latest/API/API_Operations_Amazon_Simple_Storage_Service.html
type Action int

const (
	Unknown Action = iota
	AbortMultipartUpload
	CompleteMultipartUpload
	CreateBucket
	CreateMultipartUpload
	DeleteBucket
	DeleteObject
	GetObject
	HeadBucket
	HeadObject
	ListBuckets
	ListMultipartUploads
	ListObjects
	ListObjectsV2
	ListParts
	PutObject
	UploadPart
)

func (a Action) String() string {
	switch a {
	case AbortMultipartUpload:
		return "AbortMultipartUpload"
	case CompleteMultipartUpload:
		return "CompleteMultipartUpload"
	case CreateBucket:
		return "CreateBucket"
	case CreateMultipartUpload:
		return "CreateMultipartUpload"
	case DeleteBucket:
		return "DeleteBucket"
	case DeleteObject:
		return "DeleteObject"
	case GetObject:
		return "GetObject"
	case HeadBucket:
		return "HeadBucket"
	case HeadObject:
		return "HeadObject"
	case ListBuckets:
		return "ListBuckets"
	case ListMultipartUploads:
		return "ListMultipartUploads"
	case ListObjects:
		return "ListObjects"
	case ListObjectsV2:
		return "ListObjectsV2"
	case ListParts:
		return "ListParts"
	case PutObject:
		return "PutObject"
	case UploadPart:
		return "UploadPart"
	default:
		return "Unknown"
	}
}

// Permission returns the permission action name checked against credential
// policies. HEAD operations require the corresponding read permission, and
// multipart writes are covered by PutObject so a client that can write an
// object can also upload it in parts.
func (a Action) Permission() string {
	switch a {
	case HeadObject:
		return GetObject.String()
	case HeadBucket, ListObjectsV2, ListMultipartUploads:
		return ListObjects.String()
	case CreateMultipartUpload, UploadPart, CompleteMultipartUpload, ListParts:
		return PutObject.String()
	default:
		return a.String()
	}
}

// IsObjectAction reports whether the action targets an object key.
func (a Action) IsObjectAction() bool {
	switch a {
	case GetObject, PutObject, HeadObject, DeleteObject,
		CreateMultipartUpload, UploadPart, CompleteMultipartUpload, AbortMultipartUpload, ListParts:
		return true
	default:
		return false
	}
}
