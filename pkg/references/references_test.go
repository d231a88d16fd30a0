package references

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/amosWeiskopf/phishsmith/internal/models"
	"github.com/amosWeiskopf/phishsmith/pkg/capture"
	"github.com/amosWeiskopf/phishsmith/pkg/visual"
)

var testBrands = []models.BrandProfile{
	{ShortName: "sbi", Name: "State Bank of India", URL: "https://www.onlinesbi.sbi", LoginURL: "https://retail.onlinesbi.sbi/retail/login.htm"},
	{ShortName: "icici", Name: "ICICI Bank", URL: "https://www.icicibank.com"},
}

func solidPNG(t *testing.T, w, h int, c color.Gray) ([]byte, image.Image) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = c.Y
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes(), img
}

// fakeCapturer returns a fixed screenshot and records requested URLs.
type fakeCapturer struct {
	t    *testing.T
	urls []string
	fail map[string]bool
}

func (f *fakeCapturer) Capture(_ context.Context, pageURL string) (capture.Screenshot, error) {
	f.urls = append(f.urls, pageURL)
	if f.fail[pageURL] {
		return capture.Screenshot{}, &capture.Error{URL: pageURL, Op: "render", Err: errors.New("timeout")}
	}
	data, img := solidPNG(f.t, 64, 600, color.Gray{Y: 200})
	return capture.Screenshot{URL: pageURL, Image: img, PNG: data, CapturedAt: time.Now()}, nil
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "bank_screenshots")
	store := NewFileStore(dir)

	_, err := store.Get(ctx, "sbi", models.VariantMain)
	assert.ErrorIs(t, err, ErrNotFound)
	ok, err := store.Exists(ctx, "sbi", models.VariantMain)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, "sbi", models.VariantMain, []byte("png")))
	assert.FileExists(t, filepath.Join(dir, "sbi_main.png"))

	data, err := store.Get(ctx, "sbi", models.VariantMain)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)
	ok, err = store.Exists(ctx, "sbi", models.VariantMain)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "hdfc_login.png", Key("hdfc", models.VariantLogin))
	assert.Equal(t, "a_b_elements.png", Key("a/b", models.VariantElements))
}

func TestCaptureAndCheck(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(t.TempDir())
	capturer := &fakeCapturer{t: t}

	statuses, allGood, err := Check(ctx, store, testBrands)
	require.NoError(t, err)
	assert.False(t, allGood)
	assert.False(t, statuses[0].Complete)
	// no login page, so login counts as present
	assert.True(t, statuses[1].Variants[models.VariantLogin])

	require.NoError(t, Capture(ctx, capturer, store, testBrands, 400, false))
	assert.Equal(t, []string{
		"https://www.onlinesbi.sbi",
		"https://retail.onlinesbi.sbi/retail/login.htm",
		"https://www.icicibank.com",
	}, capturer.urls)

	elements, err := store.Get(ctx, "sbi", models.VariantElements)
	require.NoError(t, err)
	img, err := visual.Decode(elements)
	require.NoError(t, err)
	assert.Equal(t, 400, img.Bounds().Dy())
	assert.Equal(t, 64, img.Bounds().Dx())

	_, allGood, err = Check(ctx, store, testBrands)
	require.NoError(t, err)
	assert.True(t, allGood)

	// second run finds everything present
	capturer.urls = nil
	require.NoError(t, Capture(ctx, capturer, store, testBrands, 400, false))
	assert.Empty(t, capturer.urls)

	require.NoError(t, Capture(ctx, capturer, store, testBrands, 400, true))
	assert.Len(t, capturer.urls, 3)
}

func TestCaptureContinuesPastFailures(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(t.TempDir())
	capturer := &fakeCapturer{t: t, fail: map[string]bool{"https://www.onlinesbi.sbi": true}}

	err := Capture(ctx, capturer, store, testBrands, 0, false)
	require.Error(t, err)

	var refErr *Error
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, "sbi", refErr.Brand)
	assert.Equal(t, models.VariantMain, refErr.Variant)

	ok, _ := store.Exists(ctx, "sbi", models.VariantLogin)
	assert.True(t, ok)
	ok, _ = store.Exists(ctx, "icici", models.VariantMain)
	assert.True(t, ok)
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(t.TempDir())
	require.NoError(t, store.Put(ctx, "sbi", models.VariantMain, []byte("main")))

	brands, err := Load(ctx, store, testBrands)
	require.NoError(t, err)
	require.Len(t, brands, 2)

	data, ok := brands[0].Reference(models.VariantMain)
	assert.True(t, ok)
	assert.Equal(t, []byte("main"), data)
	_, ok = brands[0].Reference(models.VariantLogin)
	assert.False(t, ok)
	assert.Empty(t, brands[1].References)
	// input profiles are untouched
	assert.Nil(t, testBrands[0].References)
}

func TestLoadPropagatesStoreErrors(t *testing.T) {
	dir := t.TempDir()
	// a directory where a file is expected makes ReadFile fail
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sbi_main.png"), 0755))

	_, err := Load(context.Background(), NewFileStore(dir), testBrands)
	var refErr *Error
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, models.VariantMain, refErr.Variant)
}

type mockS3 struct {
	mock.Mock
}

func (m *mockS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, *in.Key)
	out, _ := args.Get(0).(*s3.GetObjectOutput)
	return out, args.Error(1)
}

func (m *mockS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, _ := io.ReadAll(in.Body)
	args := m.Called(ctx, *in.Key, body)
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

func (m *mockS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	args := m.Called(ctx, *in.Key)
	out, _ := args.Get(0).(*s3.HeadObjectOutput)
	return out, args.Error(1)
}

func TestS3Store(t *testing.T) {
	ctx := context.Background()
	client := new(mockS3)
	store := NewS3StoreWithClient(client, "refs", "bank_screenshots")

	client.On("GetObject", ctx, "bank_screenshots/sbi_main.png").
		Return(&s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader([]byte("main")))}, nil)
	client.On("GetObject", ctx, "bank_screenshots/sbi_login.png").
		Return(nil, &types.NoSuchKey{})
	client.On("PutObject", ctx, "bank_screenshots/sbi_elements.png", []byte("el")).
		Return(&s3.PutObjectOutput{}, nil)
	client.On("HeadObject", ctx, "bank_screenshots/sbi_main.png").
		Return(&s3.HeadObjectOutput{}, nil)
	client.On("HeadObject", ctx, "bank_screenshots/sbi_login.png").
		Return(nil, &types.NotFound{})
	client.On("HeadObject", ctx, "bank_screenshots/sbi_elements.png").
		Return(nil, errors.New("access denied"))

	data, err := store.Get(ctx, "sbi", models.VariantMain)
	require.NoError(t, err)
	assert.Equal(t, []byte("main"), data)

	_, err = store.Get(ctx, "sbi", models.VariantLogin)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, "sbi", models.VariantElements, []byte("el")))

	ok, err := store.Exists(ctx, "sbi", models.VariantMain)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.Exists(ctx, "sbi", models.VariantLogin)
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = store.Exists(ctx, "sbi", models.VariantElements)
	assert.ErrorContains(t, err, "access denied")

	client.AssertExpectations(t)
}
