package publish_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/malbeclabs/wlfixtures/internal/publish"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	mu       sync.Mutex
	objects  map[string][]byte
	md5s     map[string]string
	failures int
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("SlowDown: please reduce your request rate")
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
		f.md5s = map[string]string{}
	}
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[key] = data
	f.md5s[key] = aws.ToString(in.ContentMD5)
	return &s3.PutObjectOutput{}, nil
}

func writeFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mint.bin"), []byte("hello world"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vault_2022.bin"), []byte{1, 2}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "accounts.yaml"), []byte("accounts: []\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))
	return dir
}

func TestPublish_Publisher_UploadsFixturesAndManifest(t *testing.T) {
	t.Parallel()

	client := &fakeS3{}
	p, err := publish.NewPublisher(t.Context(), publish.Config{
		Logger: logger,
		Bucket: "fixtures",
		Prefix: "/whitelist/v1/",
		Client: client,
	})
	require.NoError(t, err)

	objects, err := p.Publish(t.Context(), writeFixtures(t))
	require.NoError(t, err)
	require.Len(t, objects, 3)
	require.Equal(t, "whitelist/v1/accounts.yaml", objects[0].Key)
	require.Equal(t, "whitelist/v1/mint.bin", objects[1].Key)
	require.Equal(t, "https://fixtures.s3.us-east-1.amazonaws.com/whitelist/v1/mint.bin", objects[1].URL)

	require.Equal(t, []byte("hello world"), client.objects["fixtures/whitelist/v1/mint.bin"])
	require.Equal(t, "XrY7u+Ae7tCTyyK7j1rNww==", client.md5s["fixtures/whitelist/v1/mint.bin"])
	require.NotContains(t, client.objects, "fixtures/whitelist/v1/notes.txt")
}

func TestPublish_Publisher_RetriesTransientFailures(t *testing.T) {
	t.Parallel()

	client := &fakeS3{failures: 2}
	p, err := publish.NewPublisher(t.Context(), publish.Config{Logger: logger, Bucket: "fixtures", Client: client})
	require.NoError(t, err)

	objects, err := p.Publish(t.Context(), writeFixtures(t))
	require.NoError(t, err)
	require.Len(t, objects, 3)
	require.Equal(t, "mint.bin", objects[1].Key)
}

func TestPublish_Publisher_GivesUp(t *testing.T) {
	t.Parallel()

	client := &fakeS3{failures: 100}
	p, err := publish.NewPublisher(t.Context(), publish.Config{Logger: logger, Bucket: "fixtures", Client: client, MaxAttempts: 2})
	require.NoError(t, err)

	_, err = p.Publish(t.Context(), writeFixtures(t))
	require.ErrorContains(t, err, "failed to upload accounts.yaml")
}

func TestPublish_Publisher_EmptyDir(t *testing.T) {
	t.Parallel()

	p, err := publish.NewPublisher(t.Context(), publish.Config{Logger: logger, Bucket: "fixtures", Client: &fakeS3{}})
	require.NoError(t, err)

	_, err = p.Publish(t.Context(), t.TempDir())
	require.ErrorContains(t, err, "no fixtures found")
}

func TestPublish_URL_CustomEndpoint(t *testing.T) {
	t.Parallel()

	p, err := publish.NewPublisher(t.Context(), publish.Config{
		Logger:      logger,
		Bucket:      "fixtures",
		EndpointURL: "http://localhost:9000/",
		Client:      &fakeS3{},
	})
	require.NoError(t, err)
	require.Equal(t, "http://localhost:9000/fixtures/mint.bin", p.URL(p.Key("mint.bin")))
}

func TestPublish_Config_Validate(t *testing.T) {
	t.Parallel()

	_, err := publish.NewPublisher(t.Context(), publish.Config{})
	require.ErrorIs(t, err, publish.ErrLoggerRequired)

	_, err = publish.NewPublisher(t.Context(), publish.Config{Logger: logger})
	require.ErrorIs(t, err, publish.ErrBucketRequired)
}
