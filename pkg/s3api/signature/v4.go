// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/LeeDigitalWorks/zapgate/pkg/iam"
	"github.com/LeeDigitalWorks/zapgate/pkg/s3api/s3consts"
	"github.com/LeeDigitalWorks/zapgate/pkg/s3api/s3err"
	"github.com/LeeDigitalWorks/zapgate/pkg/utils"
)

// AWS Signature Version 4 implementation following:
// https://docs.aws.amazon.com/general/latest/gr/signature-version-4.html

// dummySecretKey feeds a signature computation when the access key is
// unknown, so the rejection takes roughly the same time as a real mismatch.
const dummySecretKey = "dummy-secret-for-unknown-access-key-timing"

// CredentialLookup resolves an access key to its credential. *iam.Store
// satisfies it; a fresh lookup source is passed per configuration snapshot.
type CredentialLookup interface {
	Lookup(accessKey string) (*iam.Credential, bool)
}

// V4Verifier verifies AWS Signature Version 4 authentication.
type V4Verifier struct {
	creds CredentialLookup
	now   func() time.Time
}

// NewV4Verifier creates a signature v4 verifier over the given credentials.
func NewV4Verifier(creds CredentialLookup) *V4Verifier {
	return &V4Verifier{
		creds: creds,
		now:   time.Now,
	}
}

// authInfo contains parsed authentication information from a request.
type authInfo struct {
	accessKey       string
	date            string // YYYYMMDD from the credential scope
	timestamp       string // full ISO8601 timestamp (YYYYMMDDTHHMMSSZ)
	region          string
	service         string
	signedHeaders   []string
	signature       string
	credentialScope string
	presigned       bool
}

// VerifyRequest verifies AWS Signature V4 for a request and returns the
// authenticated credential. Any parse failure, unknown field, expired
// presigned URL, or signature mismatch rejects the request; there is no
// permissive fallback.
func (v *V4Verifier) VerifyRequest(r *http.Request) (*iam.Credential, s3err.ErrorCode) {
	var (
		auth    *authInfo
		errCode s3err.ErrorCode
	)
	switch GetAuthType(r) {
	case AuthTypeV4:
		auth, errCode = v.parseAuthHeader(r)
	case AuthTypePresignedV4:
		auth, errCode = v.parsePresignedQuery(r)
	case AuthTypeV2, AuthTypePresignedV2:
		return nil, s3err.ErrSignatureVersionNotSupported
	case AuthTypeAnonymous:
		return nil, s3err.ErrMissingSecurityHeader
	default:
		return nil, s3err.ErrAccessDenied
	}
	if errCode != s3err.ErrNone {
		return nil, errCode
	}

	// Presigned expiry is checked before any signature math so an expired
	// URL with a valid signature is still rejected as expired.
	if auth.presigned {
		if errCode := v.checkPresignedExpiry(r, auth); errCode != s3err.ErrNone {
			return nil, errCode
		}
	}

	credential, found := v.creds.Lookup(auth.accessKey)
	secretKey := dummySecretKey
	if found {
		secretKey = credential.SecretKey
	}

	canonicalReq, errCode := v.buildCanonicalRequest(r, auth)
	if errCode != s3err.ErrNone {
		return nil, errCode
	}

	stringToSign := v.buildStringToSign(auth, canonicalReq)
	signingKey := v.deriveSigningKey(secretKey, auth.date, auth.region, auth.service)
	expectedSig := v.calculateSignature(signingKey, stringToSign)

	// Unknown keys still went through the full signature computation above.
	if !found {
		return nil, s3err.ErrInvalidAccessKeyID
	}

	if !constantTimeCompare(auth.signature, expectedSig) {
		return nil, s3err.ErrSignatureDoesNotMatch
	}

	return credential, s3err.ErrNone
}

// parseAuthHeader parses the Authorization header:
// "AWS4-HMAC-SHA256 Credential=..., SignedHeaders=..., Signature=..."
func (v *V4Verifier) parseAuthHeader(r *http.Request) (*authInfo, s3err.ErrorCode) {
	authHeader := r.Header.Get("Authorization")
	parts := strings.Split(strings.TrimPrefix(authHeader, AuthHeaderV4+" "), ",")

	auth := &authInfo{}
	for _, part := range parts {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			return nil, s3err.ErrAuthorizationHeaderMalformed
		}

		switch kv[0] {
		case "Credential":
			if errCode := auth.parseCredentialScope(kv[1]); errCode != s3err.ErrNone {
				return nil, errCode
			}
		case "SignedHeaders":
			auth.signedHeaders = strings.Split(kv[1], ";")
		case "Signature":
			auth.signature = kv[1]
		default:
			return nil, s3err.ErrAuthorizationHeaderMalformed
		}
	}

	if auth.accessKey == "" || auth.signature == "" || len(auth.signedHeaders) == 0 {
		return nil, s3err.ErrAuthorizationHeaderMalformed
	}

	// The timestamp comes from X-Amz-Date, falling back to the Date header.
	auth.timestamp = r.Header.Get(s3consts.XAmzDateQuery)
	if auth.timestamp == "" {
		if dateHeader := r.Header.Get("Date"); dateHeader != "" {
			t, err := time.Parse(time.RFC1123, dateHeader)
			if err != nil {
				return nil, s3err.ErrMissingDateHeader
			}
			auth.timestamp = t.UTC().Format(Iso8601BasicFormat)
		}
	}
	if auth.timestamp == "" {
		return nil, s3err.ErrMissingDateHeader
	}
	if _, err := time.Parse(Iso8601BasicFormat, auth.timestamp); err != nil {
		return nil, s3err.ErrMissingDateHeader
	}

	return auth, s3err.ErrNone
}

// parsePresignedQuery parses presigned URL query parameters.
func (v *V4Verifier) parsePresignedQuery(r *http.Request) (*authInfo, s3err.ErrorCode) {
	q := r.URL.Query()

	if q.Get(s3consts.XAmzAlgorithm) != AuthHeaderV4 {
		return nil, s3err.ErrInvalidQuerySignatureAlgo
	}
	for _, param := range []string{
		s3consts.XAmzCredential,
		s3consts.XAmzSignature,
		s3consts.XAmzDateQuery,
		s3consts.XAmzSignedHeaders,
		s3consts.XAmzExpires,
	} {
		if q.Get(param) == "" {
			return nil, s3err.ErrInvalidQueryParams
		}
	}

	auth := &authInfo{
		timestamp:     q.Get(s3consts.XAmzDateQuery),
		signedHeaders: strings.Split(q.Get(s3consts.XAmzSignedHeaders), ";"),
		signature:     q.Get(s3consts.XAmzSignature),
		presigned:     true,
	}
	if errCode := auth.parseCredentialScope(q.Get(s3consts.XAmzCredential)); errCode != s3err.ErrNone {
		return nil, errCode
	}
	if _, err := time.Parse(Iso8601BasicFormat, auth.timestamp); err != nil {
		return nil, s3err.ErrMalformedPresignedDate
	}

	return auth, s3err.ErrNone
}

// parseCredentialScope parses "accessKey/date/region/service/aws4_request".
func (a *authInfo) parseCredentialScope(cred string) s3err.ErrorCode {
	credParts := strings.Split(cred, "/")
	if len(credParts) != 5 || credParts[4] != "aws4_request" {
		return s3err.ErrCredMalformed
	}
	a.accessKey = credParts[0]
	a.date = credParts[1]
	a.region = credParts[2]
	a.service = credParts[3]
	a.credentialScope = strings.Join(credParts[1:], "/")
	return s3err.ErrNone
}

// checkPresignedExpiry rejects a presigned request whose validity window has
// passed. A request at exactly signTime+expires is still accepted.
func (v *V4Verifier) checkPresignedExpiry(r *http.Request, auth *authInfo) s3err.ErrorCode {
	expiresStr := r.URL.Query().Get(s3consts.XAmzExpires)
	expires, err := strconv.ParseInt(expiresStr, 10, 64)
	if err != nil {
		return s3err.ErrMalformedExpires
	}
	if expires < 0 {
		return s3err.ErrNegativeExpires
	}

	signTime, err := time.Parse(Iso8601BasicFormat, auth.timestamp)
	if err != nil {
		return s3err.ErrMalformedPresignedDate
	}
	if v.now().After(signTime.Add(time.Duration(expires) * time.Second)) {
		return s3err.ErrExpiredPresignRequest
	}
	return s3err.ErrNone
}

// buildCanonicalRequest creates the canonical request string per the AWS spec.
func (v *V4Verifier) buildCanonicalRequest(r *http.Request, auth *authInfo) (string, s3err.ErrorCode) {
	// Go's HTTP server decodes req.URL.Path, while the signature covers the
	// encoded form. Prefer RawPath when the two differ, otherwise re-encode
	// each segment.
	canonicalURI := r.URL.RawPath
	if canonicalURI == "" {
		canonicalURI = encodeCanonicalURI(r.URL.Path)
	}

	canonicalQuery := v.buildCanonicalQueryString(r.URL.Query())

	canonicalHeaders, sortedSignedHeaders, errCode := v.buildCanonicalHeaders(r, auth.signedHeaders)
	if errCode != s3err.ErrNone {
		return "", errCode
	}
	signedHeadersStr := strings.Join(sortedSignedHeaders, ";")

	// Presigned URLs do not sign the payload; header auth signs whatever
	// hash the client declared, defaulting to the empty-payload hash.
	hashedPayload := r.Header.Get(s3consts.XAmzContentSHA256)
	if auth.presigned {
		hashedPayload = UnsignedPayload
	} else if hashedPayload == "" {
		hashedPayload = HashedEmptyPayload
	}

	canonical := strings.Join([]string{
		r.Method,
		canonicalURI,
		canonicalQuery,
		canonicalHeaders,
		signedHeadersStr,
		hashedPayload,
	}, "\n")

	return canonical, s3err.ErrNone
}

// buildCanonicalQueryString creates the sorted canonical query string with
// the signature parameter excluded.
func (v *V4Verifier) buildCanonicalQueryString(query url.Values) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		if k == s3consts.XAmzSignature {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		vals := append([]string(nil), query[k]...)
		sort.Strings(vals)
		for _, val := range vals {
			parts = append(parts, queryEscape(k)+"="+queryEscape(val))
		}
	}

	return strings.Join(parts, "&")
}

// queryEscape escapes a query component the way SigV4 expects: spaces become
// %20 and all reserved characters are percent-encoded.
func queryEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// buildCanonicalHeaders creates the sorted canonical headers string and the
// sorted list of header names. Every header the client declared as signed
// must be present on the request.
func (v *V4Verifier) buildCanonicalHeaders(r *http.Request, signedHeaders []string) (string, []string, s3err.ErrorCode) {
	headers := make(map[string][]string, len(signedHeaders))

	for _, h := range signedHeaders {
		h = strings.ToLower(strings.TrimSpace(h))

		// Host lives in r.Host, not r.Header.
		if h == "host" {
			if r.Host == "" {
				return "", nil, s3err.ErrUnsignedHeaders
			}
			headers[h] = []string{r.Host}
			continue
		}

		// Content-Length may only be available via r.ContentLength.
		if h == "content-length" {
			if vals := r.Header.Values(h); len(vals) > 0 {
				headers[h] = vals
			} else if r.ContentLength >= 0 {
				headers[h] = []string{strconv.FormatInt(r.ContentLength, 10)}
			} else {
				return "", nil, s3err.ErrUnsignedHeaders
			}
			continue
		}

		vals := r.Header.Values(h)
		if len(vals) == 0 {
			return "", nil, s3err.ErrUnsignedHeaders
		}
		headers[h] = vals
	}

	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		vals := headers[name]
		folded := make([]string, len(vals))
		for i, val := range vals {
			// Values are trimmed and internal whitespace runs collapse to a
			// single space, matching how clients canonicalize before signing.
			folded[i] = strings.Join(strings.Fields(val), " ")
		}
		b.WriteString(name)
		b.WriteString(":")
		b.WriteString(strings.Join(folded, ","))
		b.WriteString("\n")
	}

	return b.String(), names, s3err.ErrNone
}

// buildStringToSign creates the string to sign per the AWS spec.
func (v *V4Verifier) buildStringToSign(auth *authInfo, canonicalRequest string) string {
	h := utils.Sha256PoolGetHasher()
	h.Write([]byte(canonicalRequest))
	hashedRequest := hex.EncodeToString(h.Sum(nil))
	utils.Sha256PoolPutHasher(h)

	return strings.Join([]string{
		AuthHeaderV4,
		auth.timestamp,
		auth.credentialScope,
		hashedRequest,
	}, "\n")
}

// deriveSigningKey derives the signing key using the HMAC-SHA256 chain:
// kDate = HMAC("AWS4"+secret, date), then region, service, "aws4_request".
func (v *V4Verifier) deriveSigningKey(secretKey, date, region, service string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secretKey), []byte(date))
	kRegion := hmacSHA256(kDate, []byte(region))
	kService := hmacSHA256(kRegion, []byte(service))
	return hmacSHA256(kService, []byte("aws4_request"))
}

// calculateSignature computes the final hex signature.
func (v *V4Verifier) calculateSignature(signingKey []byte, stringToSign string) string {
	return hex.EncodeToString(hmacSHA256(signingKey, []byte(stringToSign)))
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

func constantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
