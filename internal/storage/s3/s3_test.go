package s3

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/feed-import/internal/domain/asset"
)

type object struct {
	data        []byte
	contentType string
}

// fakeAPI is an in-memory bucket set.
type fakeAPI struct {
	mu      sync.Mutex
	buckets map[string]map[string]object
	created []*s3.CreateBucketInput
	err     error
}

func newFakeAPI(buckets ...string) *fakeAPI {
	f := &fakeAPI{buckets: make(map[string]map[string]object)}
	for _, b := range buckets {
		f.buckets[b] = make(map[string]object)
	}
	return f
}

func (f *fakeAPI) bucket(name *string) (map[string]object, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, ok := f.buckets[aws.ToString(name)]
	if !ok {
		return nil, &types.NoSuchBucket{}
	}
	return b, nil
}

func (f *fakeAPI) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, err := f.bucket(in.Bucket)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	b[aws.ToString(in.Key)] = object{data: data, contentType: aws.ToString(in.ContentType)}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeAPI) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, err := f.bucket(in.Bucket)
	if err != nil {
		return nil, err
	}
	obj, ok := b[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(obj.data))}, nil
}

func (f *fakeAPI) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, err := f.bucket(in.Bucket)
	if err != nil {
		return nil, err
	}
	if _, ok := b[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeAPI) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, err := f.bucket(in.Bucket)
	if err != nil {
		return nil, err
	}
	delete(b, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeAPI) HeadBucket(_ context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.bucket(in.Bucket); err != nil {
		return nil, &types.NotFound{}
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeAPI) CreateBucket(_ context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, in)
	f.buckets[aws.ToString(in.Bucket)] = make(map[string]object)
	return &s3.CreateBucketOutput{}, nil
}

func TestBlobStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI("assets")
	store := New(api, Config{Bucket: "assets"}, zap.NewNop())

	exists, err := store.Exists(ctx, "assets/a.png")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Put(ctx, "assets/a.png", []byte("png"), "image/png"))
	assert.Equal(t, "image/png", api.buckets["assets"]["assets/a.png"].contentType)

	exists, err = store.Exists(ctx, "assets/a.png")
	require.NoError(t, err)
	assert.True(t, exists)

	data, err := store.Get(ctx, "assets/a.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)

	require.NoError(t, store.Delete(ctx, "assets/a.png"))
	_, err = store.Get(ctx, "assets/a.png")
	assert.ErrorIs(t, err, asset.ErrNotFound)

	require.NoError(t, store.Delete(ctx, "assets/a.png"))
}

func TestBlobStore_Errors(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI("assets")
	api.err = errors.New("connection refused")
	store := New(api, Config{Bucket: "assets"}, zap.NewNop())

	err := store.Put(ctx, "k", nil, "text/plain")
	require.ErrorContains(t, err, "put object k")

	_, err = store.Get(ctx, "k")
	require.ErrorContains(t, err, "get object k")
	assert.NotErrorIs(t, err, asset.ErrNotFound)

	_, err = store.Exists(ctx, "k")
	require.ErrorContains(t, err, "head object k")

	require.ErrorContains(t, store.Delete(ctx, "k"), "delete object k")
}

func TestBlobStore_EnsureBucket(t *testing.T) {
	ctx := context.Background()

	t.Run("Existing", func(t *testing.T) {
		api := newFakeAPI("assets")
		store := New(api, Config{Bucket: "assets", Region: "eu-west-1"}, zap.NewNop())
		require.NoError(t, store.EnsureBucket(ctx))
		assert.Empty(t, api.created)
	})

	t.Run("CreatesWithLocation", func(t *testing.T) {
		api := newFakeAPI()
		store := New(api, Config{Bucket: "assets", Region: "eu-west-1"}, zap.NewNop())
		require.NoError(t, store.EnsureBucket(ctx))
		require.Len(t, api.created, 1)
		require.NotNil(t, api.created[0].CreateBucketConfiguration)
		assert.Equal(t, types.BucketLocationConstraint("eu-west-1"),
			api.created[0].CreateBucketConfiguration.LocationConstraint)
		require.NoError(t, store.Ping(ctx))
	})

	t.Run("DefaultRegionOmitsLocation", func(t *testing.T) {
		api := newFakeAPI()
		store := New(api, Config{Bucket: "assets", Region: "us-east-1"}, zap.NewNop())
		require.NoError(t, store.EnsureBucket(ctx))
		require.Len(t, api.created, 1)
		assert.Nil(t, api.created[0].CreateBucketConfiguration)
	})
}
