package compose

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"pushpipe/internal/payload"
	logx "pushpipe/pkg/logx"
)

type fakeAssets map[string][]byte

func (f fakeAssets) Open(name string) (io.ReadCloser, error) {
	data, ok := f[name]
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type fakeImages map[string]bool

func (f fakeImages) HasImage(name string) bool { return f[name] }

func TestImageFetcherRemote(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	f := NewImageFetcher(ImageConfig{}, nil, nil, logx.Nop())
	img := f.Resolve(context.Background(), srv.URL, payload.ImageTypeSquare, nil)
	if img == nil {
		t.Fatal("image not resolved")
	}
	if img.Source != ImageRemote || string(img.Data) != "png-bytes" {
		t.Fatalf("image = %+v", img)
	}
	if img.Type != payload.ImageTypeSquare {
		t.Fatalf("type = %q", img.Type)
	}
}

func TestImageFetcherRemoteFailureReported(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	var kinds []string
	f := NewImageFetcher(ImageConfig{}, nil, nil, logx.Nop())
	img := f.Resolve(context.Background(), srv.URL, payload.ImageTypeSquare, func(kind, field, detail string) {
		kinds = append(kinds, kind)
	})
	if img != nil {
		t.Fatalf("image = %+v", img)
	}
	if len(kinds) != 1 || kinds[0] != payload.DiagFetchFailure {
		t.Fatalf("diagnostics = %v", kinds)
	}
}

func TestImageFetcherAsset(t *testing.T) {
	t.Parallel()
	f := NewImageFetcher(ImageConfig{}, fakeAssets{"pic.png": []byte("asset")}, nil, logx.Nop())
	img := f.Resolve(context.Background(), "pic.png", payload.ImageTypeCircle, nil)
	if img == nil || img.Source != ImageAsset || string(img.Data) != "asset" {
		t.Fatalf("image = %+v", img)
	}
	if img.Type != payload.ImageTypeCircle {
		t.Fatalf("type = %q", img.Type)
	}
}

func TestImageFetcherResourceFallback(t *testing.T) {
	t.Parallel()
	f := NewImageFetcher(ImageConfig{}, fakeAssets{}, fakeImages{"drawable_pic": true}, logx.Nop())
	img := f.Resolve(context.Background(), "drawable_pic", payload.ImageTypeSquare, nil)
	if img == nil || img.Source != ImageResource || img.Data != nil {
		t.Fatalf("image = %+v", img)
	}
}

func TestImageFetcherNothingResolves(t *testing.T) {
	t.Parallel()
	f := NewImageFetcher(ImageConfig{}, fakeAssets{}, fakeImages{}, logx.Nop())
	if img := f.Resolve(context.Background(), "nope", payload.ImageTypeSquare, nil); img != nil {
		t.Fatalf("image = %+v", img)
	}
	if img := f.Resolve(context.Background(), "", payload.ImageTypeSquare, nil); img != nil {
		t.Fatalf("empty ref resolved: %+v", img)
	}
}
