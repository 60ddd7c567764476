package assets

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/starford/menuboard/internal/apperr"
	"github.com/starford/menuboard/internal/index"
	"github.com/starford/menuboard/internal/testutil"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newService(t *testing.T) (*Service, *index.DB, *[]string) {
	t.Helper()
	_, store := testutil.TestLibrary(t)
	db := testutil.TestDB(t)
	var events []string
	svc := NewService(store, db, &Fetcher{Client: http.DefaultClient, AllowLoopback: true}, func(kind, id string) {
		events = append(events, kind)
	})
	return svc, db, &events
}

func TestUploadAndOpen(t *testing.T) {
	svc, _, events := newService(t)
	ctx := context.Background()

	a, err := svc.Upload(ctx, "alice", "My Logo.PNG", bytes.NewReader(pngBytes(t)))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if a.URL != "/assets/"+a.File || a.MIMEType != "image/png" || a.Filename != "My_Logo.PNG" {
		t.Errorf("asset = %+v", a)
	}

	rc, err := svc.Open(ctx, a.File)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, _ := io.ReadAll(rc)
	rc.Close()
	if !bytes.Equal(got, pngBytes(t)) {
		t.Error("stored bytes differ")
	}
	if len(*events) != 1 || (*events)[0] != "created" {
		t.Errorf("events = %v", *events)
	}
}

func TestUploadRejects(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	tests := map[string]struct {
		name string
		data []byte
	}{
		"bad extension":    {"x.svg", []byte("<svg></svg>")},
		"content mismatch": {"x.jpg", pngBytes(t)},
		"not an image":     {"x.png", []byte("hello world")},
		"empty":            {"x.png", nil},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.Upload(ctx, "", tc.name, bytes.NewReader(tc.data)); !errors.Is(err, apperr.ErrInvalid) {
				t.Errorf("err = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestListDeleteUsage(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()

	a, _ := svc.Upload(ctx, "alice", "a.png", bytes.NewReader(pngBytes(t)))
	_, _ = svc.Upload(ctx, "bob", "b.png", bytes.NewReader(pngBytes(t)))

	if list, _ := svc.List(ctx, "alice"); len(list) != 1 || list[0].ID != a.ID {
		t.Errorf("alice list = %+v", list)
	}
	if list, _ := svc.List(ctx, ""); len(list) != 2 {
		t.Errorf("all = %d, want 2", len(list))
	}

	_ = db.UpsertTemplate(index.TemplateRow{ID: "t1", Checksum: "c", UpdatedAt: time.Now()}, "", []string{a.URL})
	used, err := svc.Usage(ctx, a.ID)
	if err != nil || len(used) != 1 || used[0] != "t1" {
		t.Errorf("Usage = %v, %v", used, err)
	}

	if err := svc.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Open(ctx, a.File); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Open after delete err = %v", err)
	}
	if err := svc.Delete(ctx, a.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestOpenRejectsForeignNames(t *testing.T) {
	svc, _, _ := newService(t)
	for _, name := range []string{"../x.json", "logo.png", ""} {
		if _, err := svc.Open(context.Background(), name); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("Open(%q) err = %v", name, err)
		}
	}
}

func TestUploadURL(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	data := pngBytes(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	a, err := svc.UploadURL(ctx, "", srv.URL+"/img/burger.png?v=2", "")
	if err != nil {
		t.Fatalf("UploadURL http: %v", err)
	}
	if a.Filename != "burger.png" {
		t.Errorf("filename = %q", a.Filename)
	}

	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
	if _, err := svc.UploadURL(ctx, "", uri, ""); err != nil {
		t.Errorf("UploadURL data: %v", err)
	}
	if _, err := svc.UploadURL(ctx, "", "ftp://example.com/a.png", ""); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("ftp err = %v", err)
	}
}

func TestLoopbackBlockedByDefault(t *testing.T) {
	f := NewFetcher(time.Second)
	if _, _, err := f.Fetch(context.Background(), "http://127.0.0.1:1/x.png"); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("err = %v, want blocked", err)
	}
	if _, _, err := f.Fetch(context.Background(), "http://169.254.169.254/latest"); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("metadata err = %v, want blocked", err)
	}
}

func TestMIMEType(t *testing.T) {
	if got := MIMEType("a.JPG"); got != "image/jpeg" {
		t.Errorf("MIMEType = %q", got)
	}
	if got := MIMEType("a.txt"); got != "application/octet-stream" {
		t.Errorf("MIMEType = %q", got)
	}
}
