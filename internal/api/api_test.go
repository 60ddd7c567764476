package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/starford/menuboard/internal/assets"
	"github.com/starford/menuboard/internal/editor"
	"github.com/starford/menuboard/internal/export"
	"github.com/starford/menuboard/internal/htmlimport"
	"github.com/starford/menuboard/internal/models"
	"github.com/starford/menuboard/internal/sessions"
	"github.com/starford/menuboard/internal/templateservice"
	"github.com/starford/menuboard/internal/testutil"
)

const boardJSON = `{"name":"Happy Hour","canvasSize":{"width":800,"height":600},"backgroundColor":"#000000","elements":[{"id":"e1","type":"text","x":10,"y":10,"width":200,"height":40,"content":"Two for one","zIndex":1}]}`

// pngBytes is a 1x1 transparent PNG.
var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

// testDeps wires real services over a temp library and SQLite index.
func testDeps(t *testing.T, authEnabled bool, token string) Deps {
	t.Helper()
	_, store := testutil.TestLibrary(t)
	db := testutil.TestDB(t)
	log := testutil.Logger()

	assetSvc := assets.NewService(store, db, assets.NewFetcher(time.Second), nil)
	return Deps{
		Templates:   templateservice.NewService(store, db, nil),
		Assets:      assetSvc,
		Sessions:    sessions.NewRegistry(editor.DefaultConfig(), 0, sessions.Hooks{}, log),
		Importer:    htmlimport.NewConverter(htmlimport.NewStaticRenderer(), htmlimport.NewHTTPProber(time.Second), htmlimport.Options{Retries: 1}, log),
		Rasterizer:  export.NewRasterizer(export.NewLoader(time.Second, assetSvc), log),
		Logger:      log,
		AuthEnabled: authEnabled,
		Token:       token,
	}
}

func testEnv(t *testing.T, token string) http.Handler {
	t.Helper()
	return NewRouter(testDeps(t, token != "", token))
}

func do(t *testing.T, h http.Handler, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %T: %v (body %s)", v, err, w.Body.String())
	}
	return v
}

func createBoard(t *testing.T, h http.Handler) TemplateDetail {
	t.Helper()
	w := do(t, h, http.MethodPost, "/templates", strings.NewReader(boardJSON))
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	return decode[TemplateDetail](t, w)
}

func TestCreateAndGetTemplate(t *testing.T) {
	router := testEnv(t, "")
	created := createBoard(t, router)
	if created.ID == "" || created.Checksum == "" {
		t.Fatalf("created = %+v", created)
	}

	w := do(t, router, http.MethodGet, "/templates/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	if etag := w.Header().Get("ETag"); etag != `"`+created.Checksum+`"` {
		t.Errorf("ETag = %q", etag)
	}
	got := decode[TemplateDetail](t, w)
	if got.Document.Name != "Happy Hour" || len(got.Document.Elements) != 1 {
		t.Errorf("document = %+v", got.Document)
	}
}

func TestCreateTemplate_Invalid(t *testing.T) {
	router := testEnv(t, "")
	cases := map[string]string{
		"not json":  "{oops",
		"bad kind":  `{"name":"x","canvasSize":{"width":10,"height":10},"elements":[{"id":"a","type":"video","width":1,"height":1}]}`,
		"no canvas": `{"name":"x","elements":[]}`,
		"dup ids":   `{"name":"x","canvasSize":{"width":10,"height":10},"elements":[{"id":"a","type":"text","width":1,"height":1},{"id":"a","type":"text","width":1,"height":1}]}`,
	}
	for name, body := range cases {
		w := do(t, router, http.MethodPost, "/templates", strings.NewReader(body))
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400 (body %s)", name, w.Code, w.Body.String())
		}
	}
}

func TestUpdateWithOptimisticLocking(t *testing.T) {
	router := testEnv(t, "")
	created := createBoard(t, router)

	next := strings.Replace(boardJSON, "Happy Hour", "Late Night", 1)
	req := httptest.NewRequest(http.MethodPut, "/templates/"+created.ID, strings.NewReader(next))
	req.Header.Set("If-Match", `"`+created.Checksum+`"`)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("update with correct checksum = %d, body = %s", w.Code, w.Body.String())
	}

	// The old checksum is stale now.
	req = httptest.NewRequest(http.MethodPut, "/templates/"+created.ID, strings.NewReader(boardJSON))
	req.Header.Set("If-Match", created.Checksum)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Errorf("update with stale checksum = %d, want 409", w.Code)
	}

	// No If-Match means last write wins.
	w = do(t, router, http.MethodPut, "/templates/"+created.ID, strings.NewReader(boardJSON))
	if w.Code != http.StatusOK {
		t.Errorf("update without If-Match = %d, want 200", w.Code)
	}
}

func TestDeleteAndNotFound(t *testing.T) {
	router := testEnv(t, "")
	created := createBoard(t, router)

	if w := do(t, router, http.MethodDelete, "/templates/"+created.ID, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/templates/"+created.ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodPut, "/templates/ghost", strings.NewReader(boardJSON)); w.Code != http.StatusNotFound {
		t.Errorf("update missing = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/templates/bad.id", nil); w.Code != http.StatusBadRequest {
		t.Errorf("invalid id = %d, want 400", w.Code)
	}
}

func TestListAndSearch(t *testing.T) {
	router := testEnv(t, "")
	createBoard(t, router)
	createBoard(t, router)

	w := do(t, router, http.MethodGet, "/templates?limit=1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	list := decode[TemplateListResponse](t, w)
	if list.Total != 2 || len(list.Templates) != 1 {
		t.Errorf("list = %+v", list)
	}
	if it := list.Templates[0]; it.Orientation != models.OrientationLandscape || it.ElementCount != 1 {
		t.Errorf("item = %+v", it)
	}

	w = do(t, router, http.MethodGet, "/search?q=happy", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d", w.Code)
	}
	if res := decode[SearchResponse](t, w); len(res.Results) != 2 {
		t.Errorf("results = %+v", res.Results)
	}

	if w := do(t, router, http.MethodGet, "/search", nil); w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
}

func TestExportPNGAndJSON(t *testing.T) {
	router := testEnv(t, "")
	created := createBoard(t, router)

	w := do(t, router, http.MethodGet, "/templates/"+created.ID+"/export.png", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export png = %d, body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, ".png") {
		t.Errorf("content disposition = %q", cd)
	}
	img, err := png.Decode(w.Body)
	if err != nil {
		t.Fatalf("png decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 800 || b.Dy() != 600 {
		t.Errorf("size = %v, want 800x600", b)
	}

	w = do(t, router, http.MethodGet, "/templates/"+created.ID+"/export.json", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export json = %d", w.Code)
	}
	if doc := decode[models.Document](t, w); doc.Name != "Happy Hour" {
		t.Errorf("name = %q", doc.Name)
	}
}

func TestImportJSON(t *testing.T) {
	router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/import/json", strings.NewReader(boardJSON))
	if w.Code != http.StatusOK {
		t.Fatalf("import = %d, body = %s", w.Code, w.Body.String())
	}
	if res := decode[ImportResponse](t, w); res.ID != "" || res.Document.Name != "Happy Hour" {
		t.Errorf("dry run = %+v", res)
	}

	w = do(t, router, http.MethodPost, "/import/json?save=true", strings.NewReader(boardJSON))
	if w.Code != http.StatusCreated {
		t.Fatalf("import save = %d, body = %s", w.Code, w.Body.String())
	}
	if res := decode[ImportResponse](t, w); res.ID == "" {
		t.Error("saved import has no id")
	}

	if w := do(t, router, http.MethodPost, "/import/json", strings.NewReader(`{"name":1}`)); w.Code != http.StatusBadRequest {
		t.Errorf("bad import = %d, want 400", w.Code)
	}
}

func TestImportHTML(t *testing.T) {
	router := testEnv(t, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("html", `<h1>Menu</h1><h2>Soup of the day</h2>`)
	_ = mw.WriteField("css", `body{background:#112233}`)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/import/html", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("import html = %d, body = %s", w.Code, w.Body.String())
	}
	res := decode[ImportResponse](t, w)
	if res.Document.CanvasSize != models.DefaultCanvas {
		t.Errorf("canvas = %+v", res.Document.CanvasSize)
	}
	if len(res.Document.Elements) == 0 {
		t.Error("no elements imported")
	}

	// Missing html field.
	buf.Reset()
	mw = multipart.NewWriter(&buf)
	_ = mw.WriteField("css", "h1{}")
	mw.Close()
	req = httptest.NewRequest(http.MethodPost, "/import/html", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing html = %d, want 400", w.Code)
	}
}

func uploadFile(t *testing.T, router http.Handler, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = io.Copy(part, bytes.NewReader(content))
	_ = mw.WriteField("owner", "cafe")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/assets", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUploadServeAndDeleteAsset(t *testing.T) {
	d := testDeps(t, false, "")
	router := NewRouter(d)

	w := uploadFile(t, router, "logo.png", pngBytes)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d, body = %s", w.Code, w.Body.String())
	}
	a := decode[models.Asset](t, w)
	if a.Filename != "logo.png" || !strings.HasPrefix(a.URL, "/assets/") {
		t.Errorf("asset = %+v", a)
	}

	// The public file route lives outside the API router.
	root := chi.NewRouter()
	root.Get("/assets/{file}", NewHandler(d).ServeAsset)
	w = do(t, root, http.MethodGet, a.URL, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("serve = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}
	if !bytes.Equal(w.Body.Bytes(), pngBytes) {
		t.Error("served bytes differ")
	}

	w = do(t, router, http.MethodGet, "/assets?owner=cafe", nil)
	if list := decode[AssetListResponse](t, w); len(list.Assets) != 1 {
		t.Errorf("assets = %+v", list.Assets)
	}

	w = do(t, router, http.MethodGet, "/assets/"+a.ID+"/usage", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("usage = %d", w.Code)
	}
	if u := decode[AssetUsageResponse](t, w); len(u.Templates) != 0 {
		t.Errorf("usage = %v", u.Templates)
	}

	if w := do(t, router, http.MethodDelete, "/assets/"+a.ID, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}
	if w := do(t, root, http.MethodGet, a.URL, nil); w.Code != http.StatusNotFound {
		t.Errorf("serve after delete = %d, want 404", w.Code)
	}
}

func TestUploadAsset_Rejected(t *testing.T) {
	router := testEnv(t, "")
	if w := uploadFile(t, router, "notes.txt", []byte("hello")); w.Code != http.StatusBadRequest {
		t.Errorf("txt upload = %d, want 400", w.Code)
	}
	if w := uploadFile(t, router, "fake.png", []byte("not really a png")); w.Code != http.StatusBadRequest {
		t.Errorf("spoofed png = %d, want 400", w.Code)
	}
}

func TestServeAsset_TraversalBlocked(t *testing.T) {
	d := testDeps(t, false, "")
	r := chi.NewRouter()
	r.Get("/assets/{file}", NewHandler(d).ServeAsset)

	for _, name := range []string{"../secret.json", "..%2F..%2Fetc%2Fpasswd", "nope.png"} {
		w := do(t, r, http.MethodGet, "/assets/"+name, nil)
		if w.Code == http.StatusOK {
			t.Errorf("%q should not return 200", name)
		}
	}
}

func TestSessionLifecycle(t *testing.T) {
	router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/sessions", strings.NewReader(`{"preset":"portrait-hd","name":"Breakfast"}`))
	if w.Code != http.StatusCreated {
		t.Fatalf("open = %d, body = %s", w.Code, w.Body.String())
	}
	view := decode[sessions.View](t, w)
	if view.Document.CanvasSize.Width != 1080 || view.Document.CanvasSize.Height != 1920 {
		t.Errorf("canvas = %+v", view.Document.CanvasSize)
	}

	cmds := `{"commands":[
		{"type":"addElement","kind":"text"},
		{"type":"addElement","kind":"video"},
		{"type":"addElement","kind":"price"},
		{"type":"undo"},
		{"type":"updateElement","id":"gone","patch":{"x":5},"commit":true},
		{"type":"pointerDown","x":1,"y":1,"target":"gone"}
	]}`
	w = do(t, router, http.MethodPost, "/sessions/"+view.ID+"/commands", strings.NewReader(cmds))
	if w.Code != http.StatusOK {
		t.Fatalf("commands = %d, body = %s", w.Code, w.Body.String())
	}
	res := decode[CommandsResponse](t, w)
	if len(res.Results) != 6 {
		t.Fatalf("results = %d", len(res.Results))
	}
	for _, r := range res.Results[4:] {
		if r.Error != "" {
			t.Errorf("unknown element id surfaced an error: %s", r.Error)
		}
	}
	if res.Results[0].Element == nil || res.Results[0].Error != "" {
		t.Errorf("add text = %+v", res.Results[0])
	}
	if res.Results[1].Error == "" {
		t.Error("unknown kind accepted")
	}
	if n := len(res.Session.Document.Elements); n != 1 {
		t.Errorf("elements after undo = %d, want 1", n)
	}

	w = do(t, router, http.MethodPost, "/sessions/"+view.ID+"/save", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("save = %d, body = %s", w.Code, w.Body.String())
	}
	saved := decode[SaveSessionResponse](t, w)
	if saved.Template.ID == "" || saved.Session.TemplateID != saved.Template.ID {
		t.Errorf("save = %+v", saved)
	}

	// Second save updates the same template.
	w = do(t, router, http.MethodPost, "/sessions/"+view.ID+"/save", nil)
	if again := decode[SaveSessionResponse](t, w); again.Template.ID != saved.Template.ID {
		t.Errorf("second save created %s, want %s", again.Template.ID, saved.Template.ID)
	}

	if w := do(t, router, http.MethodGet, "/sessions/"+view.ID+"/export.png", nil); w.Code != http.StatusOK {
		t.Errorf("session export = %d", w.Code)
	}
	if w := do(t, router, http.MethodDelete, "/sessions/"+view.ID, nil); w.Code != http.StatusNoContent {
		t.Errorf("close = %d", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/sessions/"+view.ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("get closed = %d, want 404", w.Code)
	}
}

func TestOpenSession_FromTemplateAndErrors(t *testing.T) {
	router := testEnv(t, "")
	created := createBoard(t, router)

	w := do(t, router, http.MethodPost, "/sessions", strings.NewReader(`{"templateId":"`+created.ID+`"}`))
	if w.Code != http.StatusCreated {
		t.Fatalf("open = %d", w.Code)
	}
	if v := decode[sessions.View](t, w); v.TemplateID != created.ID || v.Document.Name != "Happy Hour" {
		t.Errorf("view = %+v", v)
	}

	if w := do(t, router, http.MethodPost, "/sessions", strings.NewReader(`{"templateId":"missing"}`)); w.Code != http.StatusNotFound {
		t.Errorf("missing template = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/sessions", strings.NewReader(`{"preset":"billboard"}`)); w.Code != http.StatusBadRequest {
		t.Errorf("unknown preset = %d, want 400", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/sessions", nil); w.Code != http.StatusCreated {
		t.Errorf("blank session = %d, want 201", w.Code)
	}
}

func TestSessionStream(t *testing.T) {
	srv := httptest.NewServer(testEnv(t, ""))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/sessions", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	var view sessions.View
	_ = json.NewDecoder(resp.Body).Decode(&view)
	resp.Body.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sessions/" + view.ID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	read := func() wsMessage {
		t.Helper()
		var msg wsMessage
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		return msg
	}

	if first := read(); first.Type != "state" || first.Session.ID != view.ID {
		t.Fatalf("first frame = %+v", first)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"addElement","kind":"shape"}`)); err != nil {
		t.Fatal(err)
	}

	// The commit pushes a state frame and the command gets a result frame;
	// their relative order is not fixed.
	var gotResult, gotState bool
	for i := 0; i < 2; i++ {
		msg := read()
		switch msg.Type {
		case "result":
			gotResult = msg.Result != nil && msg.Result.Element != nil && msg.Result.Element.Type == models.KindShape
		case "state":
			gotState = len(msg.Session.Document.Elements) == 1
		}
	}
	if !gotResult || !gotState {
		t.Errorf("result = %v, state = %v", gotResult, gotState)
	}
}

func TestAuthMiddleware(t *testing.T) {
	router := testEnv(t, "secret123")

	cases := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"valid header", "Bearer secret123", "", http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong", "Bearer wrong", "", http.StatusUnauthorized},
		{"query token", "", "?token=secret123", http.StatusOK},
		{"wrong header beats query", "Bearer wrong", "?token=secret123", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/templates"+tc.query, nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.name, w.Code, tc.want)
		}
	}

	if w := do(t, testEnv(t, ""), http.MethodGet, "/templates", nil); w.Code != http.StatusOK {
		t.Errorf("disabled auth = %d, want 200", w.Code)
	}
}

func TestRateLimitedExport(t *testing.T) {
	d := testDeps(t, false, "")
	d.Limiter = NewRateLimiter(1, 1)
	router := NewRouter(d)

	first := do(t, router, http.MethodPost, "/import/json", strings.NewReader(boardJSON))
	second := do(t, router, http.MethodPost, "/import/json", strings.NewReader(boardJSON))
	if first.Code != http.StatusOK {
		t.Errorf("first = %d", first.Code)
	}
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("second = %d, want 429", second.Code)
	}

	// CRUD routes are not limited.
	for i := 0; i < 3; i++ {
		if w := do(t, router, http.MethodGet, "/templates", nil); w.Code != http.StatusOK {
			t.Errorf("list %d = %d", i, w.Code)
		}
	}
}

// SSE endpoint auth tests.

func sseStub() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	d := testDeps(t, true, "secret")
	d.Events = sseStub()
	router := NewRouter(d)

	if w := do(t, router, http.MethodGet, "/events", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}

func TestSSEEvents_NotMountedWithoutBroker(t *testing.T) {
	router := NewRouter(testDeps(t, false, ""))
	if w := do(t, router, http.MethodGet, "/events", nil); w.Code != http.StatusNotFound {
		t.Errorf("events without broker = %d, want 404", w.Code)
	}
}
