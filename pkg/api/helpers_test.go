package api

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/LeeDigitalWorks/zapgate/pkg/config"
	"github.com/LeeDigitalWorks/zapgate/pkg/storage/fsstore"
	"github.com/LeeDigitalWorks/zapgate/pkg/storage/multipart"

	"github.com/stretchr/testify/require"
)

const (
	adminKey     = "AKIAADMINEXAMPLE"
	adminSecret  = "adminsecretadminsecret"
	readerKey    = "AKIAREADEREXAMPLE"
	readerSecret = "readersecretreadersecret"
	testRegion   = "us-east-1"
)

const gatewayTestConfig = `
storage:
  location: %q
region:
  default: us-east-1
server:
  http:
    enabled: true
    port: 9000
credentials:
  - access_key: AKIAADMINEXAMPLE
    secret_key: adminsecretadminsecret
    permissions:
      - action: "*"
        resource: "*"
  - access_key: AKIAREADEREXAMPLE
    secret_key: readersecretreadersecret
    permissions:
      - action: GetObject
        resource: "orders/*"
      - action: ListObjects
        resource: "orders"
multipart:
  expiry_seconds: 86400
`

func newTestGateway(t *testing.T) *GatewayServer {
	t.Helper()

	dataDir := t.TempDir()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	cfg := strings.Replace(gatewayTestConfig, "%q", `"`+dataDir+`"`, 1)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	provider, err := config.NewProvider(cfgPath)
	require.NoError(t, err)

	store, err := fsstore.New(dataDir)
	require.NoError(t, err)

	uploads, err := multipart.New(store)
	require.NoError(t, err)

	return NewGatewayServer(provider, store, uploads)
}

func sigEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func canonicalQuery(query url.Values) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		vals := append([]string(nil), query[k]...)
		sort.Strings(vals)
		for _, v := range vals {
			parts = append(parts, sigEscape(k)+"="+sigEscape(v))
		}
	}
	return strings.Join(parts, "&")
}

func encodePath(path string) string {
	if path == "" || path == "/" {
		return "/"
	}
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return "/" + strings.Join(segments, "/")
}

func hmac256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

// signRequest attaches a SigV4 Authorization header covering host,
// x-amz-content-sha256, and x-amz-date.
func signRequest(r *http.Request, body []byte, accessKey, secretKey string) {
	at := time.Now().UTC()
	timestamp := at.Format("20060102T150405Z")
	date := at.Format("20060102")
	scope := strings.Join([]string{date, testRegion, "s3", "aws4_request"}, "/")

	bodySum := sha256.Sum256(body)
	payloadHash := hex.EncodeToString(bodySum[:])

	r.Header.Set("X-Amz-Date", timestamp)
	r.Header.Set("x-amz-content-sha256", payloadHash)

	signedHeaders := "host;x-amz-content-sha256;x-amz-date"
	canonicalReq := strings.Join([]string{
		r.Method,
		encodePath(r.URL.Path),
		canonicalQuery(r.URL.Query()),
		"host:" + r.Host + "\n" +
			"x-amz-content-sha256:" + payloadHash + "\n" +
			"x-amz-date:" + timestamp + "\n",
		signedHeaders,
		payloadHash,
	}, "\n")

	sum := sha256.Sum256([]byte(canonicalReq))
	stringToSign := strings.Join([]string{
		"AWS4-HMAC-SHA256",
		timestamp,
		scope,
		hex.EncodeToString(sum[:]),
	}, "\n")

	kDate := hmac256([]byte("AWS4"+secretKey), []byte(date))
	kRegion := hmac256(kDate, []byte(testRegion))
	kService := hmac256(kRegion, []byte("s3"))
	kSigning := hmac256(kService, []byte("aws4_request"))
	sig := hex.EncodeToString(hmac256(kSigning, []byte(stringToSign)))

	r.Header.Set("Authorization", "AWS4-HMAC-SHA256 Credential="+accessKey+"/"+scope+
		", SignedHeaders="+signedHeaders+
		", Signature="+sig)
}

// doSigned serves one signed request through the gateway and returns the
// recorded response.
func doSigned(gs *GatewayServer, method, target string, body []byte, accessKey, secretKey string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, target, bytes.NewReader(body))
	signRequest(r, body, accessKey, secretKey)

	w := httptest.NewRecorder()
	gs.ServeHTTP(w, r)
	return w
}

// doAdmin serves one request signed with the full-access credential.
func doAdmin(gs *GatewayServer, method, target string, body []byte) *httptest.ResponseRecorder {
	return doSigned(gs, method, target, body, adminKey, adminSecret)
}
