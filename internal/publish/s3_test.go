package publish

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"

	"github.com/rascalsoftware/rascal-packager/internal/config"
)

type object struct {
	key         string
	contentType string
	body        string
}

// fakeUploader keeps uploaded objects in memory.
type fakeUploader struct {
	objects []object
	failOn  string
}

func (f *fakeUploader) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	key := aws.ToString(in.Key)
	if key == f.failOn {
		return nil, errors.New("access denied")
	}

	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}

	f.objects = append(f.objects, object{key: key, contentType: aws.ToString(in.ContentType), body: string(body)})

	return new(s3.PutObjectOutput), nil
}

// TestObjectKey checks prefix trimming and version folders.
func TestObjectKey(t *testing.T) {
	t.Parallel()

	require.Equal(t, "macos/2.0.0/RasCAL-2-2.0.0-macos-arm64.pkg", ObjectKey("/macos/", "2.0.0", "/tmp/out/RasCAL-2-2.0.0-macos-arm64.pkg"))
	require.Equal(t, "main/RasCAL-2-macos-x86_64.pkg", ObjectKey("", "main", "RasCAL-2-macos-x86_64.pkg"))
}

// TestPublishUploadsInOrder verifies keys, bodies and content types.
func TestPublishUploadsInOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	installer := filepath.Join(dir, "RasCAL-2-2.0.0-macos-arm64.pkg")
	record := installer + ".yaml"

	require.NoError(t, os.WriteFile(installer, []byte("xar!"), 0o600))
	require.NoError(t, os.WriteFile(record, []byte("version: 2.0.0\n"), 0o600))

	uploader := new(fakeUploader)
	publisher := NewPublisher(uploader, config.Publish{Bucket: "rascal-releases", Prefix: "macos/"})

	keys, err := publisher.Publish(context.Background(), "2.0.0", installer, record)
	require.NoError(t, err)
	require.Equal(t, []string{
		"macos/2.0.0/RasCAL-2-2.0.0-macos-arm64.pkg",
		"macos/2.0.0/RasCAL-2-2.0.0-macos-arm64.pkg.yaml",
	}, keys)

	require.Len(t, uploader.objects, 2)
	require.Equal(t, contentTypeInstaller, uploader.objects[0].contentType)
	require.Equal(t, "xar!", uploader.objects[0].body)
	require.Equal(t, contentTypeYAML, uploader.objects[1].contentType)
}

// TestPublishStopsOnFailure returns the keys uploaded before the failure.
func TestPublishStopsOnFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first := filepath.Join(dir, "a.pkg")
	second := filepath.Join(dir, "b.pkg")

	require.NoError(t, os.WriteFile(first, []byte("a"), 0o600))
	require.NoError(t, os.WriteFile(second, []byte("b"), 0o600))

	publisher := NewPublisher(&fakeUploader{failOn: "main/b.pkg"}, config.Publish{Bucket: "b"})

	keys, err := publisher.Publish(context.Background(), "main", first, second)
	require.Error(t, err)
	require.Equal(t, []string{"main/a.pkg"}, keys)

	_, err = publisher.Publish(context.Background(), "main", filepath.Join(dir, "absent.pkg"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestPublisherRequiresBucket rejects empty destinations.
func TestPublisherRequiresBucket(t *testing.T) {
	t.Parallel()

	_, err := NewS3Publisher(context.Background(), config.Publish{})
	require.ErrorIs(t, err, errBucketRequired)

	_, err = NewPublisher(new(fakeUploader), config.Publish{}).Publish(context.Background(), "main")
	require.ErrorIs(t, err, errBucketRequired)
}
