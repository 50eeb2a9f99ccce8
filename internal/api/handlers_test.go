package api

import (
	"bytes"
	"encoding/json"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"

	"github.com/youruser/canvasapp/internal/composition"
	"github.com/youruser/canvasapp/internal/shell"
)

var testLimits = Limits{MaxUploadBytes: 1 << 20, MaxPixels: 1 << 20, FetchTimeout: time.Second}

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	return newRouterWith(t, testLimits)
}

func newRouterWith(t *testing.T, limits Limits) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	reg := shell.NewRegistry(func() (*shell.Shell, error) { return shell.New(nil, nil), nil }, time.Hour)
	r := gin.New()
	RegisterRoutes(r, NewHandler(reg, limits, nil))
	return r
}

func solidPNG(t *testing.T, c color.NRGBA) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.New(100, 100, c), imaging.PNG); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func newSession(t *testing.T, r http.Handler) string {
	t.Helper()
	w := do(t, r, http.MethodPost, "/api/sessions", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create session: %d %s", w.Code, w.Body)
	}
	var resp struct {
		Session string `json:"session"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp.Session
}

func postFiles(t *testing.T, r http.Handler, session string, colors ...color.NRGBA) *httptest.ResponseRecorder {
	t.Helper()
	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)
	for i, c := range colors {
		fw, err := mw.CreateFormFile("files", "img"+string(rune('a'+i))+".png")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(solidPNG(t, c))
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+session+"/images", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func upload(t *testing.T, r http.Handler, session string, colors ...color.NRGBA) result {
	t.Helper()
	w := postFiles(t, r, session, colors...)
	if w.Code != http.StatusOK {
		t.Fatalf("upload: %d %s", w.Code, w.Body)
	}
	return decode(t, w)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) result {
	t.Helper()
	var res result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode %s: %v", w.Body, err)
	}
	return res
}

func TestHealth(t *testing.T) {
	r := newRouter(t)
	w := do(t, r, http.MethodGet, "/api/health", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "ok") {
		t.Errorf("unexpected health response %d %s", w.Code, w.Body)
	}
}

func TestUnknownSession(t *testing.T) {
	r := newRouter(t)
	w := do(t, r, http.MethodGet, "/api/sessions/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestUploadDragExport(t *testing.T) {
	r := newRouter(t)
	s := newSession(t, r)
	red := color.NRGBA{R: 255, A: 255}

	res := upload(t, r, s, red, color.NRGBA{G: 255, A: 255})
	if !res.Changed || len(res.State.Items) != 2 {
		t.Fatalf("expected 2 items, got %+v", res)
	}

	w := do(t, r, http.MethodPut, "/api/sessions/"+s+"/images/0/position", composition.Position{X: 100, Y: 50})
	if w.Code != http.StatusOK {
		t.Fatalf("set position: %d %s", w.Code, w.Body)
	}

	do(t, r, http.MethodPost, "/api/sessions/"+s+"/pointer", pointerEvent{Type: "down", X: 120, Y: 80})
	res = decode(t, do(t, r, http.MethodPost, "/api/sessions/"+s+"/pointer", pointerEvent{Type: "move", X: 140, Y: 95}))
	if got := res.State.Items[0].Position; got != (composition.Position{X: 120, Y: 65}) {
		t.Errorf("expected (120,65), got %+v", got)
	}
	if res.State.Items[0].Opacity != 0.5 {
		t.Errorf("expected dimmed item during drag, got %v", res.State.Items[0].Opacity)
	}
	res = decode(t, do(t, r, http.MethodPost, "/api/sessions/"+s+"/pointer", pointerEvent{Type: "up"}))
	if res.State.Drag != nil {
		t.Error("expected drag cleared")
	}

	w = do(t, r, http.MethodGet, "/api/sessions/"+s+"/export", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export: %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "canvas-image.png") {
		t.Errorf("unexpected Content-Disposition %q", cd)
	}
	img, err := png.Decode(w.Body)
	if err != nil {
		t.Fatalf("export is not PNG: %v", err)
	}
	if got := color.NRGBAModel.Convert(img.At(170, 115)); got != red {
		t.Errorf("expected red at the moved item, got %v", got)
	}
}

func TestRemoveOutOfRangeIsNoop(t *testing.T) {
	r := newRouter(t)
	s := newSession(t, r)
	upload(t, r, s, color.NRGBA{R: 255, A: 255})

	w := do(t, r, http.MethodDelete, "/api/sessions/"+s+"/images/5", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if res := decode(t, w); res.Changed || len(res.State.Items) != 1 {
		t.Errorf("expected unchanged composition, got %+v", res)
	}

	w = do(t, r, http.MethodDelete, "/api/sessions/"+s+"/images/x", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad index, got %d", w.Code)
	}

	res := decode(t, do(t, r, http.MethodDelete, "/api/sessions/"+s+"/images/0", nil))
	if !res.Changed || len(res.State.Items) != 0 {
		t.Errorf("expected removal, got %+v", res)
	}
}

func TestResizeClampedAndProgrammaticNot(t *testing.T) {
	r := newRouter(t)
	s := newSession(t, r)
	id := upload(t, r, s, color.NRGBA{R: 255, A: 255}).State.Items[0].ID
	res := decode(t, do(t, r, http.MethodPost, "/api/sessions/"+s+"/items/"+id+"/resize", composition.Size{Width: 1000, Height: 10}))
	if got := res.State.Items[0].Size; got != (composition.Size{Width: 300, Height: 50}) {
		t.Errorf("expected 300x50, got %+v", got)
	}
	res = decode(t, do(t, r, http.MethodPut, "/api/sessions/"+s+"/images/0/size", composition.Size{Width: 1000, Height: 10}))
	if got := res.State.Items[0].Size; got != (composition.Size{Width: 1000, Height: 10}) {
		t.Errorf("expected unclamped 1000x10, got %+v", got)
	}
}

func TestAbsurdProgrammaticValuesRejected(t *testing.T) {
	r := newRouter(t)
	s := newSession(t, r)
	upload(t, r, s, color.NRGBA{R: 255, A: 255})

	w := do(t, r, http.MethodPut, "/api/sessions/"+s+"/images/0/size", gin.H{"width": int64(1) << 40, "height": 100})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for huge size, got %d", w.Code)
	}
	w = do(t, r, http.MethodPut, "/api/sessions/"+s+"/images/0/position", gin.H{"x": -(int64(1) << 40), "y": 0})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for huge position, got %d", w.Code)
	}

	res := decode(t, do(t, r, http.MethodPut, "/api/sessions/"+s+"/images/0/size", gin.H{"width": 50000, "height": 50000}))
	if !res.Changed {
		t.Fatalf("expected large size to be stored, got %+v", res)
	}
	if w := do(t, r, http.MethodGet, "/api/sessions/"+s+"/canvas.png", nil); w.Code != http.StatusOK {
		t.Errorf("canvas after large size: %d", w.Code)
	}
}

func TestHoverAndOverlayRemove(t *testing.T) {
	r := newRouter(t)
	s := newSession(t, r)
	id := upload(t, r, s, color.NRGBA{R: 255, A: 255}).State.Items[0].ID

	res := decode(t, do(t, r, http.MethodPost, "/api/sessions/"+s+"/items/"+id+"/hover", gin.H{"hovered": true}))
	if !res.Changed || !res.State.Items[0].ShowRemove || !res.State.Items[0].ShowResizeHandle {
		t.Errorf("expected affordances, got %+v", res.State.Items[0])
	}
	res = decode(t, do(t, r, http.MethodPost, "/api/sessions/"+s+"/items/"+id+"/remove", nil))
	if !res.Changed || len(res.State.Items) != 0 {
		t.Errorf("expected removal, got %+v", res)
	}
	res = decode(t, do(t, r, http.MethodPost, "/api/sessions/"+s+"/items/unknown/hover", gin.H{"hovered": true}))
	if res.Changed {
		t.Error("hover of unknown id should be a no-op")
	}
}

func TestDoubleRemoveClickRemovesOnce(t *testing.T) {
	r := newRouter(t)
	s := newSession(t, r)
	items := upload(t, r, s, color.NRGBA{R: 255, A: 255}, color.NRGBA{G: 255, A: 255}, color.NRGBA{B: 255, A: 255}).State.Items
	path := "/api/sessions/" + s + "/items/" + items[1].ID + "/remove"

	if res := decode(t, do(t, r, http.MethodPost, path, nil)); !res.Changed {
		t.Fatalf("first click should remove, got %+v", res)
	}
	res := decode(t, do(t, r, http.MethodPost, path, nil))
	if res.Changed {
		t.Error("second click should be a no-op")
	}
	if len(res.State.Items) != 2 || res.State.Items[0].Name != "imga.png" || res.State.Items[1].Name != "imgc.png" {
		t.Errorf("unexpected survivors %+v", res.State.Items)
	}
}

func TestOverlayDragOverHTTP(t *testing.T) {
	r := newRouter(t)
	s := newSession(t, r)
	items := upload(t, r, s, color.NRGBA{R: 255, A: 255}, color.NRGBA{G: 255, A: 255}).State.Items
	base := "/api/sessions/" + s
	do(t, r, http.MethodPut, base+"/images/0/position", composition.Position{X: 40, Y: 40})

	res := decode(t, do(t, r, http.MethodPost, base+"/items/"+items[0].ID+"/dragstart", nil))
	if !res.Changed || res.State.Drag == nil || res.State.Drag.ItemID != items[0].ID {
		t.Fatalf("expected overlay session, got %+v", res)
	}
	if res.State.Items[0].Opacity != 1 {
		t.Errorf("overlay drag should not dim the item, got %v", res.State.Items[0].Opacity)
	}

	do(t, r, http.MethodPut, base+"/images/0/position", composition.Position{X: 0, Y: 0})
	res = decode(t, do(t, r, http.MethodPost, base+"/items/"+items[1].ID+"/dragover", nil))
	if !res.Changed || res.State.Items[0].Position != (composition.Position{X: 40, Y: 40}) {
		t.Errorf("expected carried position, got %+v", res)
	}

	res = decode(t, do(t, r, http.MethodPost, base+"/dragend", nil))
	if res.State.Drag != nil {
		t.Error("expected drag cleared")
	}
	res = decode(t, do(t, r, http.MethodPost, base+"/items/"+items[1].ID+"/dragover", nil))
	if res.Changed {
		t.Error("dragover after dragend should be a no-op")
	}
}

func TestAddImageFromURL(t *testing.T) {
	red := color.NRGBA{R: 255, A: 255}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/pics/red.png" {
			http.NotFound(w, req)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(solidPNG(t, red))
	}))
	defer srv.Close()

	r := newRouter(t)
	s := newSession(t, r)
	res := decode(t, do(t, r, http.MethodPost, "/api/sessions/"+s+"/images/url", gin.H{"url": srv.URL + "/pics/red.png?v=2"}))
	if !res.Changed || len(res.State.Items) != 1 || res.State.Items[0].Name != "red.png" {
		t.Errorf("expected downloaded item, got %+v", res)
	}
	if w := do(t, r, http.MethodPost, "/api/sessions/"+s+"/images/url", gin.H{"url": srv.URL + "/nope.png"}); w.Code != http.StatusBadGateway {
		t.Errorf("expected 502 for missing image, got %d", w.Code)
	}
	if w := do(t, r, http.MethodPost, "/api/sessions/"+s+"/images/url", gin.H{"url": "not a url"}); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad url, got %d", w.Code)
	}
}

func TestCanvasPNG(t *testing.T) {
	r := newRouter(t)
	s := newSession(t, r)
	red := color.NRGBA{R: 255, A: 255}
	upload(t, r, s, red)

	w := do(t, r, http.MethodGet, "/api/sessions/"+s+"/canvas.png", nil)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("canvas.png: %d %q", w.Code, w.Header().Get("Content-Type"))
	}
	if w.Header().Get("Content-Disposition") != "" {
		t.Error("inline canvas should not be an attachment")
	}
	img, err := png.Decode(w.Body)
	if err != nil {
		t.Fatal(err)
	}
	if got := color.NRGBAModel.Convert(img.At(50, 50)); got != red {
		t.Errorf("expected red at (50,50), got %v", got)
	}
}

func TestUploadRejectsOversizedImage(t *testing.T) {
	limits := testLimits
	limits.MaxPixels = 5000
	r := newRouterWith(t, limits)
	s := newSession(t, r)

	w := postFiles(t, r, s, color.NRGBA{R: 255, A: 255})
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d %s", w.Code, w.Body)
	}
	st := do(t, r, http.MethodGet, "/api/sessions/"+s, nil)
	if strings.Contains(st.Body.String(), "imga.png") {
		t.Error("rejected upload should not be added")
	}
}

func TestPointerValidation(t *testing.T) {
	r := newRouter(t)
	s := newSession(t, r)
	w := do(t, r, http.MethodPost, "/api/sessions/"+s+"/pointer", gin.H{"type": "wiggle"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestQRImage(t *testing.T) {
	r := newRouter(t)
	s := newSession(t, r)
	res := decode(t, do(t, r, http.MethodPost, "/api/sessions/"+s+"/images/qr", gin.H{"text": "hello", "size": 120}))
	if !res.Changed || len(res.State.Items) != 1 || res.State.Items[0].Name != "qr.png" {
		t.Errorf("expected qr item, got %+v", res)
	}
	w := do(t, r, http.MethodPost, "/api/sessions/"+s+"/images/qr", gin.H{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without text, got %d", w.Code)
	}
}

func TestLayoutExport(t *testing.T) {
	r := newRouter(t)
	s := newSession(t, r)
	upload(t, r, s, color.NRGBA{R: 255, A: 255})

	w := do(t, r, http.MethodGet, "/api/sessions/"+s+"/layout", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("layout: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "source: imga.png") {
		t.Errorf("unexpected layout:\n%s", w.Body)
	}
}

func TestDeleteSession(t *testing.T) {
	r := newRouter(t)
	s := newSession(t, r)
	if w := do(t, r, http.MethodDelete, "/api/sessions/"+s, nil); w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/api/sessions/"+s, nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", w.Code)
	}
}

func TestIndexPage(t *testing.T) {
	r := newRouter(t)
	w := do(t, r, http.MethodGet, "/", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Download Canvas") {
		t.Errorf("unexpected index response %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "/items/${id}/remove") {
		t.Error("page should address overlay events by item id")
	}
}
