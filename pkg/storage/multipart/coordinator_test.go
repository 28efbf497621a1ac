package multipart

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/LeeDigitalWorks/zapgate/pkg/storage/fsstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCoordinator(t *testing.T) (*fsstore.Store, *Coordinator) {
	t.Helper()
	store, err := fsstore.New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.CreateBucket(context.Background(), "videos"))

	c, err := New(store)
	require.NoError(t, err)
	return store, c
}

func uploadPartString(t *testing.T, c *Coordinator, key, uploadID string, partNumber int, content string) string {
	t.Helper()
	etag, err := c.UploadPart(context.Background(), "videos", key, uploadID, partNumber, strings.NewReader(content), PartOptions{})
	require.NoError(t, err)
	return etag
}

func TestCompleteOutOfOrderUpload(t *testing.T) {
	store, c := newTestCoordinator(t)
	ctx := context.Background()

	uploadID, err := c.Initiate(ctx, "videos", "movie.bin", "video/mp4")
	require.NoError(t, err)

	// Parts arrive in reverse order; assembly follows declared part numbers.
	etag2 := uploadPartString(t, c, "movie.bin", uploadID, 2, "BB")
	etag1 := uploadPartString(t, c, "movie.bin", uploadID, 1, "AA")

	info, err := c.Complete(ctx, "videos", "movie.bin", uploadID, []CompletedPart{
		{PartNumber: 1, ETag: etag1},
		{PartNumber: 2, ETag: etag2},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), info.Size)
	assert.True(t, strings.HasSuffix(info.ETag, `-2"`), "multipart etag %q", info.ETag)
	assert.Equal(t, "video/mp4", info.ContentType)

	rc, got, err := store.GetObject(ctx, "videos", "movie.bin")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "AABB", string(data))
	assert.Equal(t, info.ETag, got.ETag)
}

func TestCompleteValidation(t *testing.T) {
	_, c := newTestCoordinator(t)
	ctx := context.Background()

	uploadID, err := c.Initiate(ctx, "videos", "movie.bin", "")
	require.NoError(t, err)

	etag1 := uploadPartString(t, c, "movie.bin", uploadID, 1, "AA")
	etag2 := uploadPartString(t, c, "movie.bin", uploadID, 2, "BB")

	tests := []struct {
		name  string
		parts []CompletedPart
		kind  ErrorKind
	}{
		{"empty part list", nil, KindInvalidPart},
		{"descending order", []CompletedPart{
			{PartNumber: 2, ETag: etag2}, {PartNumber: 1, ETag: etag1},
		}, KindInvalidPartOrder},
		{"duplicate part number", []CompletedPart{
			{PartNumber: 1, ETag: etag1}, {PartNumber: 1, ETag: etag1},
		}, KindInvalidPartOrder},
		{"etag mismatch", []CompletedPart{
			{PartNumber: 1, ETag: etag2}, {PartNumber: 2, ETag: etag2},
		}, KindInvalidPart},
		{"undeclared part", []CompletedPart{
			{PartNumber: 1, ETag: etag1}, {PartNumber: 3, ETag: etag2},
		}, KindInvalidPart},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Complete(ctx, "videos", "movie.bin", uploadID, tt.parts)
			assert.True(t, IsKind(err, tt.kind), "got %v", err)
		})
	}

	// The failed completions left the upload usable, and quoted ETags from
	// the wire are accepted.
	_, err = c.Complete(ctx, "videos", "movie.bin", uploadID, []CompletedPart{
		{PartNumber: 1, ETag: `"` + etag1 + `"`},
		{PartNumber: 2, ETag: etag2},
	})
	assert.NoError(t, err)
}

func TestUploadPartLastWriteWins(t *testing.T) {
	store, c := newTestCoordinator(t)
	ctx := context.Background()

	uploadID, err := c.Initiate(ctx, "videos", "movie.bin", "")
	require.NoError(t, err)

	uploadPartString(t, c, "movie.bin", uploadID, 1, "old-content")
	etag := uploadPartString(t, c, "movie.bin", uploadID, 1, "new")

	parts, err := c.ListParts(ctx, "videos", "movie.bin", uploadID)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, etag, parts[0].ETag)
	assert.Equal(t, int64(3), parts[0].Size)

	_, err = c.Complete(ctx, "videos", "movie.bin", uploadID, []CompletedPart{{PartNumber: 1, ETag: etag}})
	require.NoError(t, err)

	rc, _, err := store.GetObject(ctx, "videos", "movie.bin")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestUploadPartInvalidNumber(t *testing.T) {
	_, c := newTestCoordinator(t)
	ctx := context.Background()

	uploadID, err := c.Initiate(ctx, "videos", "movie.bin", "")
	require.NoError(t, err)

	for _, n := range []int{0, -1, 10001} {
		_, err := c.UploadPart(ctx, "videos", "movie.bin", uploadID, n, strings.NewReader("x"), PartOptions{})
		assert.True(t, IsKind(err, KindInvalidPartNumber), "part %d", n)
	}
}

func TestUploadPartContentHashMismatch(t *testing.T) {
	_, c := newTestCoordinator(t)
	ctx := context.Background()

	uploadID, err := c.Initiate(ctx, "videos", "movie.bin", "")
	require.NoError(t, err)

	declared := sha256.Sum256([]byte("AA"))
	_, err = c.UploadPart(ctx, "videos", "movie.bin", uploadID, 1, strings.NewReader("BB"), PartOptions{
		ExpectedSHA256: hex.EncodeToString(declared[:]),
	})
	assert.True(t, IsKind(err, KindContentHashMismatch), "got %v", err)

	// The rejected part was discarded.
	parts, err := c.ListParts(ctx, "videos", "movie.bin", uploadID)
	require.NoError(t, err)
	assert.Empty(t, parts)

	// The matching content is accepted.
	etag, err := c.UploadPart(ctx, "videos", "movie.bin", uploadID, 1, strings.NewReader("AA"), PartOptions{
		ExpectedSHA256: hex.EncodeToString(declared[:]),
	})
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(declared[:]), etag)
}

func TestUploadIDBoundToBucketAndKey(t *testing.T) {
	_, c := newTestCoordinator(t)
	ctx := context.Background()

	uploadID, err := c.Initiate(ctx, "videos", "movie.bin", "")
	require.NoError(t, err)

	_, err = c.UploadPart(ctx, "videos", "other.bin", uploadID, 1, strings.NewReader("x"), PartOptions{})
	assert.True(t, IsKind(err, KindUploadNotFound))

	_, err = c.Complete(ctx, "backups", "movie.bin", uploadID, []CompletedPart{{PartNumber: 1, ETag: "x"}})
	assert.True(t, IsKind(err, KindUploadNotFound))
}

func TestAbortThenComplete(t *testing.T) {
	_, c := newTestCoordinator(t)
	ctx := context.Background()

	uploadID, err := c.Initiate(ctx, "videos", "movie.bin", "")
	require.NoError(t, err)
	etag := uploadPartString(t, c, "movie.bin", uploadID, 1, "AA")

	require.NoError(t, c.Abort(ctx, "videos", "movie.bin", uploadID))

	_, err = c.Complete(ctx, "videos", "movie.bin", uploadID, []CompletedPart{{PartNumber: 1, ETag: etag}})
	assert.True(t, IsKind(err, KindUploadNotFound))

	_, err = c.UploadPart(ctx, "videos", "movie.bin", uploadID, 2, strings.NewReader("BB"), PartOptions{})
	assert.True(t, IsKind(err, KindUploadNotFound))

	// Abort is idempotent, including for unknown IDs.
	assert.NoError(t, c.Abort(ctx, "videos", "movie.bin", uploadID))
	assert.NoError(t, c.Abort(ctx, "videos", "movie.bin", "never-existed"))
}

func TestInitiateUnknownBucket(t *testing.T) {
	_, c := newTestCoordinator(t)

	_, err := c.Initiate(context.Background(), "missing", "movie.bin", "")
	assert.True(t, fsstore.IsKind(err, fsstore.KindBucketNotFound))
}

func TestListUploads(t *testing.T) {
	store, c := newTestCoordinator(t)
	ctx := context.Background()
	require.NoError(t, store.CreateBucket(ctx, "backups"))

	id1, err := c.Initiate(ctx, "videos", "b.bin", "")
	require.NoError(t, err)
	_, err = c.Initiate(ctx, "videos", "a.bin", "")
	require.NoError(t, err)
	_, err = c.Initiate(ctx, "backups", "z.bin", "")
	require.NoError(t, err)

	uploads := c.ListUploads(ctx, "videos")
	require.Len(t, uploads, 2)
	assert.Equal(t, "a.bin", uploads[0].Key)
	assert.Equal(t, "b.bin", uploads[1].Key)

	all := c.ListUploads(ctx, "")
	assert.Len(t, all, 3)

	require.NoError(t, c.Abort(ctx, "videos", "b.bin", id1))
	assert.Len(t, c.ListUploads(ctx, "videos"), 1)
}

func TestSweepExpiresStaleUploads(t *testing.T) {
	_, c := newTestCoordinator(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	staleID, err := c.Initiate(ctx, "videos", "stale.bin", "")
	require.NoError(t, err)

	c.now = func() time.Time { return base.Add(2 * time.Hour) }
	freshID, err := c.Initiate(ctx, "videos", "fresh.bin", "")
	require.NoError(t, err)

	expired := c.Sweep(ctx, time.Hour)
	assert.Equal(t, 1, expired)

	_, err = c.ListParts(ctx, "videos", "stale.bin", staleID)
	assert.True(t, IsKind(err, KindUploadNotFound))
	_, err = c.ListParts(ctx, "videos", "fresh.bin", freshID)
	assert.NoError(t, err)

	// A second sweep finds nothing new.
	assert.Equal(t, 0, c.Sweep(ctx, time.Hour))
}

func TestRecoverAfterRestart(t *testing.T) {
	store, c := newTestCoordinator(t)
	ctx := context.Background()

	uploadID, err := c.Initiate(ctx, "videos", "movie.bin", "video/mp4")
	require.NoError(t, err)
	etag1 := uploadPartString(t, c, "movie.bin", uploadID, 1, "AA")
	etag2 := uploadPartString(t, c, "movie.bin", uploadID, 2, "BB")

	// A new coordinator over the same store stands in for a restart.
	restarted, err := New(store)
	require.NoError(t, err)

	parts, err := restarted.ListParts(ctx, "videos", "movie.bin", uploadID)
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.Equal(t, etag1, parts[0].ETag)
	assert.Equal(t, etag2, parts[1].ETag)

	info, err := restarted.Complete(ctx, "videos", "movie.bin", uploadID, []CompletedPart{
		{PartNumber: 1, ETag: etag1},
		{PartNumber: 2, ETag: etag2},
	})
	require.NoError(t, err)

	rc, _, err := store.GetObject(ctx, "videos", "movie.bin")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "AABB", string(data))
	assert.True(t, strings.HasSuffix(info.ETag, `-2"`))
}
