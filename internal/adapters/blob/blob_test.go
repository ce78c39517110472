package blob_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dishmap/internal/adapters/blob"
	"dishmap/internal/shared"
)

func TestLocal_SaveAndDelete(t *testing.T) {
	dir := t.TempDir()
	l, err := blob.NewLocal(dir)
	require.NoError(t, err)
	ctx := context.Background()

	ref, err := l.Save(ctx, "abc.jpg", "image/jpeg", bytes.NewReader([]byte("jpeg-bytes")))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/abc.jpg", ref)

	b, err := os.ReadFile(filepath.Join(dir, "abc.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(b))

	require.NoError(t, l.Delete(ctx, "abc.jpg"))
	_, err = os.Stat(filepath.Join(dir, "abc.jpg"))
	assert.True(t, os.IsNotExist(err))

	// deleting twice is fine
	require.NoError(t, l.Delete(ctx, "abc.jpg"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no temp files left behind")
}

func TestLocal_RejectsPathTraversal(t *testing.T) {
	l, err := blob.NewLocal(t.TempDir())
	require.NoError(t, err)

	_, err = l.Save(context.Background(), "../evil.jpg", "", bytes.NewReader(nil))
	assert.Error(t, err)
	assert.Error(t, l.Delete(context.Background(), "a/b.jpg"))
}

type fakeS3 struct {
	puts    map[string][]byte
	types   map[string]string
	deletes []string
	putErr  error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	b, _ := io.ReadAll(in.Body)
	f.puts[aws.ToString(in.Key)] = b
	f.types[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3_SaveAndDelete(t *testing.T) {
	api := &fakeS3{puts: map[string][]byte{}, types: map[string]string{}}
	s := blob.NewS3(api, "dishmap-media", "https://cdn.example.com/")
	ctx := context.Background()

	ref, err := s.Save(ctx, "id_thumb.jpg", "image/jpeg", bytes.NewReader([]byte("x")))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/uploads/id_thumb.jpg", ref)
	assert.Equal(t, []byte("x"), api.puts["uploads/id_thumb.jpg"])
	assert.Equal(t, "image/jpeg", api.types["uploads/id_thumb.jpg"])

	require.NoError(t, s.Delete(ctx, "id_thumb.jpg"))
	assert.Equal(t, []string{"uploads/id_thumb.jpg"}, api.deletes)
}

func TestS3_SaveError(t *testing.T) {
	api := &fakeS3{puts: map[string][]byte{}, types: map[string]string{}, putErr: errors.New("access denied")}
	s := blob.NewS3(api, "b", "https://b.example.com")

	_, err := s.Save(context.Background(), "id.jpg", "image/jpeg", bytes.NewReader(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestOpen_Backends(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "media")
	store, local, err := blob.Open(context.Background(), shared.Config{MediaBackend: "local", UploadDir: dir})
	require.NoError(t, err)
	assert.Equal(t, dir, local)
	assert.IsType(t, &blob.Local{}, store)

	_, _, err = blob.Open(context.Background(), shared.Config{MediaBackend: "ftp"})
	assert.Error(t, err)
}
