package api

import (
	"encoding/xml"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/LeeDigitalWorks/zapgate/pkg/s3api/s3err"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func decodeXML(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, xml.NewDecoder(rec.Body).Decode(v))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) s3err.Error {
	t.Helper()
	var e s3err.Error
	decodeXML(t, rec, &e)
	return e
}

func TestBucketLifecycle(t *testing.T) {
	gs := newTestGateway(t)

	rec := doAdmin(gs, http.MethodPut, "/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/orders", rec.Header().Get("Location"))

	rec = doAdmin(gs, http.MethodHead, "/orders", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doAdmin(gs, http.MethodPut, "/orders", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "BucketAlreadyExists", decodeError(t, rec).Code)

	rec = doAdmin(gs, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var buckets listAllMyBucketsResult
	decodeXML(t, rec, &buckets)
	require.Len(t, buckets.Buckets, 1)
	assert.Equal(t, "orders", buckets.Buckets[0].Name)
	assert.Equal(t, adminKey, buckets.Owner.ID)

	rec = doAdmin(gs, http.MethodDelete, "/orders", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doAdmin(gs, http.MethodHead, "/orders", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBucketInvalidName(t *testing.T) {
	gs := newTestGateway(t)

	rec := doAdmin(gs, http.MethodPut, "/ab", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "InvalidBucketName", decodeError(t, rec).Code)
}

func TestObjectRoundTrip(t *testing.T) {
	gs := newTestGateway(t)
	require.Equal(t, http.StatusOK, doAdmin(gs, http.MethodPut, "/docs", nil).Code)

	body := []byte("hello world")
	rec := doAdmin(gs, http.MethodPut, "/docs/notes/readme.txt", body)
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.True(t, strings.HasPrefix(etag, `"`) && strings.HasSuffix(etag, `"`), "etag %q", etag)

	rec = doAdmin(gs, http.MethodGet, "/docs/notes/readme.txt", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello world", rec.Body.String())
	assert.Equal(t, etag, rec.Header().Get("ETag"))
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "11", rec.Header().Get("Content-Length"))
	assert.NotEmpty(t, rec.Header().Get("Last-Modified"))

	rec = doAdmin(gs, http.MethodHead, "/docs/notes/readme.txt", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, etag, rec.Header().Get("ETag"))
	assert.Empty(t, rec.Body.String())

	rec = doAdmin(gs, http.MethodDelete, "/docs/notes/readme.txt", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doAdmin(gs, http.MethodGet, "/docs/notes/readme.txt", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	e := decodeError(t, rec)
	assert.Equal(t, "NoSuchKey", e.Code)
	assert.Equal(t, "docs/notes/readme.txt", e.Resource)
}

func TestPutObjectContentTypeHeaderWins(t *testing.T) {
	gs := newTestGateway(t)
	require.Equal(t, http.StatusOK, doAdmin(gs, http.MethodPut, "/docs", nil).Code)

	r := httptest.NewRequest(http.MethodPut, "/docs/data.bin", strings.NewReader("x"))
	r.Header.Set("Content-Type", "application/x-custom")
	signRequest(r, []byte("x"), adminKey, adminSecret)
	w := httptest.NewRecorder()
	gs.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	rec := doAdmin(gs, http.MethodHead, "/docs/data.bin", nil)
	assert.Equal(t, "application/x-custom", rec.Header().Get("Content-Type"))
}

func TestPutObjectTamperedPayloadRejected(t *testing.T) {
	gs := newTestGateway(t)
	require.Equal(t, http.StatusOK, doAdmin(gs, http.MethodPut, "/docs", nil).Code)

	// A valid signature over sha256("AAA") with a body of "BBB". The declared
	// digest verifies, the content does not.
	r := httptest.NewRequest(http.MethodPut, "/docs/tampered.txt", strings.NewReader("BBB"))
	signRequest(r, []byte("AAA"), adminKey, adminSecret)
	w := httptest.NewRecorder()
	gs.ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	e := decodeError(t, w)
	assert.Equal(t, "XAmzContentSHA256Mismatch", e.Code)

	// Nothing was stored.
	rec := doAdmin(gs, http.MethodGet, "/docs/tampered.txt", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NoSuchKey", decodeError(t, rec).Code)
}

func TestUploadPartTamperedPayloadRejected(t *testing.T) {
	gs := newTestGateway(t)
	require.Equal(t, http.StatusOK, doAdmin(gs, http.MethodPut, "/docs", nil).Code)

	rec := doAdmin(gs, http.MethodPost, "/docs/big.bin?uploads", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var initiated initiateMultipartUploadResult
	decodeXML(t, rec, &initiated)

	r := httptest.NewRequest(http.MethodPut, "/docs/big.bin?partNumber=1&uploadId="+initiated.UploadID, strings.NewReader("BBB"))
	signRequest(r, []byte("AAA"), adminKey, adminSecret)
	w := httptest.NewRecorder()
	gs.ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "XAmzContentSHA256Mismatch", decodeError(t, w).Code)
}

func TestListPartsRoute(t *testing.T) {
	gs := newTestGateway(t)
	require.Equal(t, http.StatusOK, doAdmin(gs, http.MethodPut, "/docs", nil).Code)

	rec := doAdmin(gs, http.MethodPost, "/docs/big.bin?uploads", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var initiated initiateMultipartUploadResult
	decodeXML(t, rec, &initiated)

	require.Equal(t, http.StatusOK,
		doAdmin(gs, http.MethodPut, "/docs/big.bin?partNumber=1&uploadId="+initiated.UploadID, []byte("AA")).Code)
	require.Equal(t, http.StatusOK,
		doAdmin(gs, http.MethodPut, "/docs/big.bin?partNumber=2&uploadId="+initiated.UploadID, []byte("BBB")).Code)

	rec = doAdmin(gs, http.MethodGet, "/docs/big.bin?uploadId="+initiated.UploadID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var parts listPartsResult
	decodeXML(t, rec, &parts)
	assert.Equal(t, "docs", parts.Bucket)
	assert.Equal(t, "big.bin", parts.Key)
	assert.Equal(t, initiated.UploadID, parts.UploadID)
	require.Len(t, parts.Parts, 2)
	assert.Equal(t, 1, parts.Parts[0].PartNumber)
	assert.Equal(t, int64(2), parts.Parts[0].Size)
	assert.Equal(t, 2, parts.Parts[1].PartNumber)
	assert.Equal(t, int64(3), parts.Parts[1].Size)

	rec = doAdmin(gs, http.MethodGet, "/docs/big.bin?uploadId=never-existed", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NoSuchUpload", decodeError(t, rec).Code)
}

func TestListMultipartUploadsRoute(t *testing.T) {
	gs := newTestGateway(t)
	require.Equal(t, http.StatusOK, doAdmin(gs, http.MethodPut, "/docs", nil).Code)
	require.Equal(t, http.StatusOK, doAdmin(gs, http.MethodPut, "/media", nil).Code)

	require.Equal(t, http.StatusOK, doAdmin(gs, http.MethodPost, "/docs/b.bin?uploads", nil).Code)
	require.Equal(t, http.StatusOK, doAdmin(gs, http.MethodPost, "/docs/a.bin?uploads", nil).Code)
	require.Equal(t, http.StatusOK, doAdmin(gs, http.MethodPost, "/media/c.bin?uploads", nil).Code)

	rec := doAdmin(gs, http.MethodGet, "/docs?uploads", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var result listMultipartUploadsResult
	decodeXML(t, rec, &result)
	assert.Equal(t, "docs", result.Bucket)
	require.Len(t, result.Uploads, 2)
	assert.Equal(t, "a.bin", result.Uploads[0].Key)
	assert.Equal(t, "b.bin", result.Uploads[1].Key)
	assert.NotEmpty(t, result.Uploads[0].UploadID)

	rec = doAdmin(gs, http.MethodGet, "/nobucket?uploads", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NoSuchBucket", decodeError(t, rec).Code)
}

func TestHeadErrorsHaveNoBody(t *testing.T) {
	gs := newTestGateway(t)
	require.Equal(t, http.StatusOK, doAdmin(gs, http.MethodPut, "/docs", nil).Code)

	rec := doAdmin(gs, http.MethodHead, "/docs/missing.txt", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = doAdmin(gs, http.MethodHead, "/nobucket/missing.txt", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func seedListingBucket(t *testing.T, gs *GatewayServer) {
	t.Helper()
	require.Equal(t, http.StatusOK, doAdmin(gs, http.MethodPut, "/data", nil).Code)
	for _, key := range []string{"a/1.txt", "a/2.txt", "b/1.txt", "c.txt"} {
		require.Equal(t, http.StatusOK, doAdmin(gs, http.MethodPut, "/data/"+key, []byte(key)).Code)
	}
}

func TestListObjectsV1(t *testing.T) {
	gs := newTestGateway(t)
	seedListingBucket(t, gs)

	rec := doAdmin(gs, http.MethodGet, "/data?delimiter=/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing listBucketResult
	decodeXML(t, rec, &listing)

	keys := make([]string, 0, len(listing.Contents))
	for _, obj := range listing.Contents {
		keys = append(keys, obj.Key)
	}
	prefixes := make([]string, 0, len(listing.CommonPrefixes))
	for _, p := range listing.CommonPrefixes {
		prefixes = append(prefixes, p.Prefix)
	}
	assert.Empty(t, cmp.Diff([]string{"c.txt"}, keys))
	assert.Empty(t, cmp.Diff([]string{"a/", "b/"}, prefixes))
	assert.False(t, listing.IsTruncated)
}

func TestListObjectsV1Pagination(t *testing.T) {
	gs := newTestGateway(t)
	seedListingBucket(t, gs)

	rec := doAdmin(gs, http.MethodGet, "/data?max-keys=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page1 listBucketResult
	decodeXML(t, rec, &page1)
	require.Len(t, page1.Contents, 3)
	require.True(t, page1.IsTruncated)
	require.Equal(t, "b/1.txt", page1.NextMarker)

	rec = doAdmin(gs, http.MethodGet, "/data?max-keys=3&marker="+page1.NextMarker, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page2 listBucketResult
	decodeXML(t, rec, &page2)
	require.Len(t, page2.Contents, 1)
	assert.Equal(t, "c.txt", page2.Contents[0].Key)
	assert.False(t, page2.IsTruncated)
}

func TestListObjectsV2(t *testing.T) {
	gs := newTestGateway(t)
	seedListingBucket(t, gs)

	rec := doAdmin(gs, http.MethodGet, "/data?list-type=2&prefix=a/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing listBucketV2Result
	decodeXML(t, rec, &listing)
	require.Len(t, listing.Contents, 2)
	assert.Equal(t, "a/1.txt", listing.Contents[0].Key)
	assert.Equal(t, "a/2.txt", listing.Contents[1].Key)
	assert.Equal(t, 2, listing.KeyCount)

	rec = doAdmin(gs, http.MethodGet, "/data?list-type=2&max-keys=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page1 listBucketV2Result
	decodeXML(t, rec, &page1)
	require.True(t, page1.IsTruncated)
	require.NotEmpty(t, page1.NextContinuationToken)

	rec = doAdmin(gs, http.MethodGet, "/data?list-type=2&max-keys=2&continuation-token="+page1.NextContinuationToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page2 listBucketV2Result
	decodeXML(t, rec, &page2)
	assert.Equal(t, 2, page2.KeyCount)
	assert.False(t, page2.IsTruncated)
}

func TestListObjectsInvalidMaxKeys(t *testing.T) {
	gs := newTestGateway(t)
	require.Equal(t, http.StatusOK, doAdmin(gs, http.MethodPut, "/data", nil).Code)

	for _, raw := range []string{"abc", "-1"} {
		rec := doAdmin(gs, http.MethodGet, "/data?max-keys="+raw, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "max-keys=%s", raw)
	}
}

func TestListObjectsMissingBucket(t *testing.T) {
	gs := newTestGateway(t)

	rec := doAdmin(gs, http.MethodGet, "/nobucket", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NoSuchBucket", decodeError(t, rec).Code)
}

func TestMultipartUploadFlow(t *testing.T) {
	gs := newTestGateway(t)
	require.Equal(t, http.StatusOK, doAdmin(gs, http.MethodPut, "/videos", nil).Code)

	rec := doAdmin(gs, http.MethodPost, "/videos/movie.bin?uploads", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var initiated initiateMultipartUploadResult
	decodeXML(t, rec, &initiated)
	require.NotEmpty(t, initiated.UploadID)
	assert.Equal(t, "videos", initiated.Bucket)
	assert.Equal(t, "movie.bin", initiated.Key)

	// Parts go up out of order.
	rec = doAdmin(gs, http.MethodPut, "/videos/movie.bin?partNumber=2&uploadId="+initiated.UploadID, []byte("BB"))
	require.Equal(t, http.StatusOK, rec.Code)
	etag2 := rec.Header().Get("ETag")
	require.NotEmpty(t, etag2)

	rec = doAdmin(gs, http.MethodPut, "/videos/movie.bin?partNumber=1&uploadId="+initiated.UploadID, []byte("AA"))
	require.Equal(t, http.StatusOK, rec.Code)
	etag1 := rec.Header().Get("ETag")

	completeBody, err := xml.Marshal(completeMultipartUpload{
		Parts: []completedPartItem{
			{PartNumber: 1, ETag: etag1},
			{PartNumber: 2, ETag: etag2},
		},
	})
	require.NoError(t, err)

	rec = doAdmin(gs, http.MethodPost, "/videos/movie.bin?uploadId="+initiated.UploadID, completeBody)
	require.Equal(t, http.StatusOK, rec.Code)
	var completed completeMultipartUploadResult
	decodeXML(t, rec, &completed)
	assert.Equal(t, "/videos/movie.bin", completed.Location)
	assert.True(t, strings.HasSuffix(completed.ETag, `-2"`), "etag %q", completed.ETag)

	rec = doAdmin(gs, http.MethodGet, "/videos/movie.bin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "AABB", rec.Body.String())
	assert.Equal(t, completed.ETag, rec.Header().Get("ETag"))

	// Abort after completion is idempotent.
	rec = doAdmin(gs, http.MethodDelete, "/videos/movie.bin?uploadId="+initiated.UploadID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMultipartCompleteOutOfOrderParts(t *testing.T) {
	gs := newTestGateway(t)
	require.Equal(t, http.StatusOK, doAdmin(gs, http.MethodPut, "/videos", nil).Code)

	rec := doAdmin(gs, http.MethodPost, "/videos/movie.bin?uploads", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var initiated initiateMultipartUploadResult
	decodeXML(t, rec, &initiated)

	rec = doAdmin(gs, http.MethodPut, "/videos/movie.bin?partNumber=1&uploadId="+initiated.UploadID, []byte("AA"))
	require.Equal(t, http.StatusOK, rec.Code)
	etag1 := rec.Header().Get("ETag")
	rec = doAdmin(gs, http.MethodPut, "/videos/movie.bin?partNumber=2&uploadId="+initiated.UploadID, []byte("BB"))
	require.Equal(t, http.StatusOK, rec.Code)
	etag2 := rec.Header().Get("ETag")

	completeBody, err := xml.Marshal(completeMultipartUpload{
		Parts: []completedPartItem{
			{PartNumber: 2, ETag: etag2},
			{PartNumber: 1, ETag: etag1},
		},
	})
	require.NoError(t, err)

	rec = doAdmin(gs, http.MethodPost, "/videos/movie.bin?uploadId="+initiated.UploadID, completeBody)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "InvalidPartOrder", decodeError(t, rec).Code)
}

func TestMultipartUnknownUpload(t *testing.T) {
	gs := newTestGateway(t)
	require.Equal(t, http.StatusOK, doAdmin(gs, http.MethodPut, "/videos", nil).Code)

	rec := doAdmin(gs, http.MethodPut, "/videos/movie.bin?partNumber=1&uploadId=nope", []byte("AA"))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NoSuchUpload", decodeError(t, rec).Code)
}

func TestMultipartInvalidPartNumber(t *testing.T) {
	gs := newTestGateway(t)
	require.Equal(t, http.StatusOK, doAdmin(gs, http.MethodPut, "/videos", nil).Code)

	rec := doAdmin(gs, http.MethodPost, "/videos/movie.bin?uploads", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var initiated initiateMultipartUploadResult
	decodeXML(t, rec, &initiated)

	rec = doAdmin(gs, http.MethodPut, "/videos/movie.bin?partNumber=zero&uploadId="+initiated.UploadID, []byte("AA"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doAdmin(gs, http.MethodPut, "/videos/movie.bin?partNumber=10001&uploadId="+initiated.UploadID, []byte("AA"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMultipartCompleteMalformedXML(t *testing.T) {
	gs := newTestGateway(t)
	require.Equal(t, http.StatusOK, doAdmin(gs, http.MethodPut, "/videos", nil).Code)

	rec := doAdmin(gs, http.MethodPost, "/videos/movie.bin?uploads", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var initiated initiateMultipartUploadResult
	decodeXML(t, rec, &initiated)

	rec = doAdmin(gs, http.MethodPost, "/videos/movie.bin?uploadId="+initiated.UploadID, []byte("not xml"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MalformedXML", decodeError(t, rec).Code)
}

func TestScopedCredential(t *testing.T) {
	gs := newTestGateway(t)
	require.Equal(t, http.StatusOK, doAdmin(gs, http.MethodPut, "/orders", nil).Code)
	require.Equal(t, http.StatusOK, doAdmin(gs, http.MethodPut, "/private", nil).Code)
	require.Equal(t, http.StatusOK, doAdmin(gs, http.MethodPut, "/orders/2026/invoice.txt", []byte("paid")).Code)
	require.Equal(t, http.StatusOK, doAdmin(gs, http.MethodPut, "/private/secret.txt", []byte("x")).Code)

	// Reads within the granted scope succeed.
	rec := doSigned(gs, http.MethodGet, "/orders/2026/invoice.txt", nil, readerKey, readerSecret)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "paid", rec.Body.String())

	rec = doSigned(gs, http.MethodGet, "/orders", nil, readerKey, readerSecret)
	assert.Equal(t, http.StatusOK, rec.Code)

	// HEAD maps onto the read permission.
	rec = doSigned(gs, http.MethodHead, "/orders/2026/invoice.txt", nil, readerKey, readerSecret)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Everything outside the scope is denied.
	rec = doSigned(gs, http.MethodPut, "/orders/2026/new.txt", []byte("x"), readerKey, readerSecret)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "AccessDenied", decodeError(t, rec).Code)

	rec = doSigned(gs, http.MethodGet, "/private/secret.txt", nil, readerKey, readerSecret)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "AccessDenied", decodeError(t, rec).Code)

	rec = doSigned(gs, http.MethodDelete, "/orders/2026/invoice.txt", nil, readerKey, readerSecret)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doSigned(gs, http.MethodGet, "/", nil, readerKey, readerSecret)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuthenticationFailures(t *testing.T) {
	gs := newTestGateway(t)
	require.Equal(t, http.StatusOK, doAdmin(gs, http.MethodPut, "/orders", nil).Code)

	// Anonymous request.
	r := httptest.NewRequest(http.MethodGet, "/orders", nil)
	w := httptest.NewRecorder()
	gs.ServeHTTP(w, r)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "MissingSecurityHeader", decodeError(t, w).Code)

	// Unknown access key.
	rec := doSigned(gs, http.MethodGet, "/orders", nil, "AKIAUNKNOWN", adminSecret)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "InvalidAccessKeyId", decodeError(t, rec).Code)

	// Wrong secret.
	rec = doSigned(gs, http.MethodGet, "/orders", nil, adminKey, "not-the-secret")
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "SignatureDoesNotMatch", decodeError(t, rec).Code)

	// Tampered request: signed for one path, sent for another.
	r = httptest.NewRequest(http.MethodGet, "/orders", nil)
	signRequest(r, nil, adminKey, adminSecret)
	r.URL.Path = "/private"
	w = httptest.NewRecorder()
	gs.ServeHTTP(w, r)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "SignatureDoesNotMatch", decodeError(t, w).Code)
}

func TestMethodNotAllowed(t *testing.T) {
	gs := newTestGateway(t)

	rec := doAdmin(gs, http.MethodPost, "/", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = doAdmin(gs, http.MethodPatch, "/orders", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRequestIDHeader(t *testing.T) {
	gs := newTestGateway(t)

	rec := doAdmin(gs, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	first := rec.Header().Get("x-amz-request-id")
	require.NotEmpty(t, first)

	rec = doAdmin(gs, http.MethodGet, "/", nil)
	second := rec.Header().Get("x-amz-request-id")
	require.NotEmpty(t, second)
	assert.NotEqual(t, first, second)

	// Error responses echo the request ID in the XML body.
	rec = doAdmin(gs, http.MethodGet, "/nobucket/missing.txt", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	e := decodeError(t, rec)
	assert.Equal(t, rec.Header().Get("x-amz-request-id"), e.RequestID)
}
