package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/youruser/canvasapp/internal/composition"
	imagepkg "github.com/youruser/canvasapp/internal/image"
	"github.com/youruser/canvasapp/internal/layout"
	"github.com/youruser/canvasapp/internal/shell"
)

const shellKey = "shell"

// Limits bound what a single request may add to a session.
type Limits struct {
	MaxUploadBytes int64
	MaxPixels      int
	FetchTimeout   time.Duration
}

type Handler struct {
	sessions *shell.Registry
	limits   Limits
	logger   *slog.Logger
}

func NewHandler(sessions *shell.Registry, limits Limits, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		sessions: sessions,
		limits:   limits,
		logger:   logger,
	}
}

// result is returned by every event endpoint: whether the event changed
// anything and the state to render afterwards.
type result struct {
	Changed bool        `json:"changed"`
	State   shell.State `json:"state"`
}

// health
func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) createSession(c *gin.Context) {
	id, sh, err := h.sessions.Create()
	if err != nil {
		h.logger.Error("session create failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.logger.Info("session created", "session", id)
	c.JSON(http.StatusCreated, gin.H{"session": id, "state": sh.State()})
}

func (h *Handler) requireSession(c *gin.Context) {
	sh, err := h.sessions.Get(c.Param("session"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Set(shellKey, sh)
	c.Next()
}

func shellFrom(c *gin.Context) *shell.Shell {
	return c.MustGet(shellKey).(*shell.Shell)
}

func (h *Handler) reply(c *gin.Context, changed bool, err error) {
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result{Changed: changed, State: shellFrom(c).State()})
}

func indexParam(c *gin.Context) (int, bool) {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid index %q", c.Param("index"))})
		return 0, false
	}
	return idx, true
}

func itemParam(c *gin.Context) string {
	return c.Param("item")
}

func (h *Handler) getState(c *gin.Context) {
	c.JSON(http.StatusOK, shellFrom(c).State())
}

func (h *Handler) deleteSession(c *gin.Context) {
	h.sessions.Delete(c.Param("session"))
	c.Status(http.StatusNoContent)
}

// uploadImages appends every file of the multipart "files" field in order.
func (h *Handler) uploadImages(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.limits.MaxUploadBytes)
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var assets []composition.Asset
	for _, fh := range form.File["files"] {
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := imagepkg.CheckPixels(data, h.limits.MaxPixels); err != nil {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("%s: %v", fh.Filename, err)})
			return
		}
		assets = append(assets, composition.Asset{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	added, err := shellFrom(c).AddImages(c.Request.Context(), assets...)
	h.reply(c, len(added) > 0, err)
}

func (h *Handler) addImageFromURL(c *gin.Context) {
	var req struct {
		URL string `json:"url" binding:"required,url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a, err := imagepkg.DownloadAsset(c.Request.Context(), req.URL, h.limits.FetchTimeout, h.limits.MaxUploadBytes, h.limits.MaxPixels)
	if err != nil {
		h.logger.Warn("image download failed", "url", req.URL, "err", err)
		status := http.StatusBadGateway
		if errors.Is(err, imagepkg.ErrImageTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	added, err := shellFrom(c).AddImages(c.Request.Context(), a)
	h.reply(c, len(added) > 0, err)
}

// addQRImage places a QR code for "text" as a regular bitmap item.
func (h *Handler) addQRImage(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
		Size int    `json:"size"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Size <= 0 {
		req.Size = 256
	}
	a, err := imagepkg.QRAsset(req.Text, req.Size)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	added, err := shellFrom(c).AddImages(c.Request.Context(), a)
	h.reply(c, len(added) > 0, err)
}

func (h *Handler) removeImage(c *gin.Context) {
	idx, ok := indexParam(c)
	if !ok {
		return
	}
	removed, err := shellFrom(c).RemoveImage(c.Request.Context(), idx)
	h.reply(c, removed, err)
}

func (h *Handler) removeViaOverlay(c *gin.Context) {
	removed, err := shellFrom(c).RemoveViaOverlay(c.Request.Context(), itemParam(c))
	h.reply(c, removed, err)
}

func (h *Handler) setPosition(c *gin.Context) {
	idx, ok := indexParam(c)
	if !ok {
		return
	}
	var req struct {
		X int `json:"x" binding:"min=-100000,max=100000"`
		Y int `json:"y" binding:"min=-100000,max=100000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	changed, err := shellFrom(c).SetPosition(c.Request.Context(), idx, composition.Position{X: req.X, Y: req.Y})
	h.reply(c, changed, err)
}

func (h *Handler) setSize(c *gin.Context) {
	idx, ok := indexParam(c)
	if !ok {
		return
	}
	// Sizes are stored unclamped; only absurd values are refused.
	var req struct {
		Width  int `json:"width" binding:"min=-100000,max=100000"`
		Height int `json:"height" binding:"min=-100000,max=100000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	changed, err := shellFrom(c).SetSize(c.Request.Context(), idx, composition.Size{Width: req.Width, Height: req.Height})
	h.reply(c, changed, err)
}

func (h *Handler) resizeImage(c *gin.Context) {
	var size composition.Size
	if err := c.ShouldBindJSON(&size); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	_, changed, err := shellFrom(c).Resize(c.Request.Context(), itemParam(c), size)
	h.reply(c, changed, err)
}

func (h *Handler) hoverImage(c *gin.Context) {
	var req struct {
		Hovered bool `json:"hovered"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.reply(c, shellFrom(c).Hover(itemParam(c), req.Hovered), nil)
}

func (h *Handler) dragStart(c *gin.Context) {
	h.reply(c, shellFrom(c).DragStart(itemParam(c)), nil)
}

func (h *Handler) dragOver(c *gin.Context) {
	moved, err := shellFrom(c).DragOver(c.Request.Context(), itemParam(c))
	h.reply(c, moved, err)
}

func (h *Handler) dragEnd(c *gin.Context) {
	shellFrom(c).DragEnd()
	h.reply(c, false, nil)
}

type pointerEvent struct {
	Type string `json:"type" binding:"required,oneof=down move up"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

func (h *Handler) pointer(c *gin.Context) {
	var ev pointerEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sh := shellFrom(c)
	switch ev.Type {
	case "down":
		h.reply(c, sh.PointerDown(ev.X, ev.Y), nil)
	case "move":
		moved, err := sh.PointerMove(c.Request.Context(), ev.X, ev.Y)
		h.reply(c, moved, err)
	case "up":
		sh.PointerUp()
		h.reply(c, false, nil)
	}
}

func (h *Handler) encodeSurface(c *gin.Context) ([]byte, bool) {
	buf := new(bytes.Buffer)
	if err := shellFrom(c).Export(buf); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return buf.Bytes(), true
}

func (h *Handler) canvasPNG(c *gin.Context) {
	b, ok := h.encodeSurface(c)
	if !ok {
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", b)
}

func (h *Handler) exportPNG(c *gin.Context) {
	b, ok := h.encodeSurface(c)
	if !ok {
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", imagepkg.ExportFileName))
	c.Data(http.StatusOK, "image/png", b)
}

func (h *Handler) exportLayout(c *gin.Context) {
	buf := new(bytes.Buffer)
	l := layout.FromItems(c.Param("session"), shellFrom(c).Items())
	if err := l.WriteYAML(buf); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/yaml", buf.Bytes())
}
