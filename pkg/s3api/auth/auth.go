// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package auth combines signature verification with permission checks into a
// single authorization decision per request. It performs no storage I/O, so
// an unauthorized request is rejected before the gateway touches disk.
package auth

import (
	"net/http"

	"github.com/LeeDigitalWorks/zapgate/pkg/s3api/s3action"
	"github.com/LeeDigitalWorks/zapgate/pkg/s3api/s3err"
	"github.com/LeeDigitalWorks/zapgate/pkg/s3api/signature"
)

// Authorizer authenticates requests against one credential snapshot and
// checks the resolved credential's permissions.
type Authorizer struct {
	verifier *signature.V4Verifier
}

// New creates an authorizer over the given credential lookup.
func New(creds signature.CredentialLookup) *Authorizer {
	return &Authorizer{verifier: signature.NewV4Verifier(creds)}
}

// Authorize verifies the request signature and checks that the authenticated
// credential may perform action on resource. On success it returns the access
// key for request logging; authentication failures return an empty key.
func (a *Authorizer) Authorize(r *http.Request, action s3action.Action, resource string) (string, s3err.ErrorCode) {
	cred, errCode := a.verifier.VerifyRequest(r)
	if errCode != s3err.ErrNone {
		return "", errCode
	}
	if !cred.Allows(action.Permission(), resource) {
		return cred.AccessKey, s3err.ErrAccessDenied
	}
	return cred.AccessKey, s3err.ErrNone
}
