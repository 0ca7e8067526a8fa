// internal/storage/storage_test.go
package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/trackstore-backend/internal/config"
)

func TestLocalStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "tracks/a.mp3", strings.NewReader("audio-bytes"), 11, "audio/mpeg"))

	blob, err := store.Open(ctx, "tracks/a.mp3")
	require.NoError(t, err)
	defer blob.Close()

	data, err := io.ReadAll(blob)
	require.NoError(t, err)
	assert.Equal(t, "audio-bytes", string(data))
	assert.Equal(t, int64(11), blob.Size)
	assert.Equal(t, "audio/mpeg", blob.ContentType)

	require.NoError(t, store.Delete(ctx, "tracks/a.mp3"))
	_, err = store.Open(ctx, "tracks/a.mp3")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting a missing blob is not an error.
	assert.NoError(t, store.Delete(ctx, "tracks/a.mp3"))
}

func TestLocalStore_KeysStayInsideRoot(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := NewLocalStore(root)
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "../../escape.mp3", strings.NewReader("x"), 1, ""))
	blob, err := store.Open(ctx, "escape.mp3")
	require.NoError(t, err)
	blob.Close()

	assert.ErrorIs(t, store.Put(ctx, "", strings.NewReader("x"), 1, ""), ErrInvalidUpload)
}

func TestUploadOptions_Validate(t *testing.T) {
	opts := TrackUploadOptions(1)

	assert.NoError(t, opts.Validate("song.MP3", 100))
	assert.NoError(t, opts.Validate("song.flac", 1024*1024))
	assert.ErrorIs(t, opts.Validate("song.exe", 100), ErrInvalidUpload)
	assert.ErrorIs(t, opts.Validate("song.mp3", 1024*1024+1), ErrInvalidUpload)
	assert.ErrorIs(t, opts.Validate("song.mp3", 0), ErrInvalidUpload)
}

func TestUploadOptions_GenerateKey(t *testing.T) {
	key := TrackUploadOptions(50).GenerateKey("My Song.WAV")
	assert.True(t, strings.HasPrefix(key, "tracks/"))
	assert.True(t, strings.HasSuffix(key, ".wav"))
	assert.NotEqual(t, key, TrackUploadOptions(50).GenerateKey("My Song.WAV"))
}

type fakeS3 struct {
	s3iface.S3API
	objects map[string]string
}

func (f *fakeS3) GetObjectWithContext(_ aws.Context, in *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.StringValue(in.Key)]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "missing", nil)
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String("audio/mpeg"),
	}, nil
}

func (f *fakeS3) DeleteObjectWithContext(_ aws.Context, in *s3.DeleteObjectInput, _ ...request.Option) (*s3.DeleteObjectOutput, error) {
	if aws.StringValue(in.Key) == "broken" {
		return nil, errors.New("boom")
	}
	delete(f.objects, aws.StringValue(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Store_OpenAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewS3StoreWithClient(&fakeS3{objects: map[string]string{"tracks/a.mp3": "abc"}}, "bucket")

	blob, err := store.Open(ctx, "tracks/a.mp3")
	require.NoError(t, err)
	assert.Equal(t, int64(3), blob.Size)
	assert.Equal(t, "audio/mpeg", blob.ContentType)
	require.NoError(t, blob.Close())

	_, err = store.Open(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, store.Delete(ctx, "tracks/a.mp3"))
	assert.Error(t, store.Delete(ctx, "broken"))
}

func TestNew_SelectsDriver(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{Driver: "local", LocalPath: t.TempDir()}}
	store, err := New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, store)

	cfg.Storage.Driver = "ftp"
	_, err = New(cfg)
	assert.Error(t, err)

	cfg.Storage.Driver = "s3"
	_, err = New(cfg)
	assert.Error(t, err, "bucket is required")
}
