package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dlrandrade/Multiverso-do-Impacto/config"
	"github.com/dlrandrade/Multiverso-do-Impacto/model"
	"github.com/dlrandrade/Multiverso-do-Impacto/service"
	"github.com/dlrandrade/Multiverso-do-Impacto/utils"
)

type SessionHandler struct {
	cfg    *config.Config
	store  *service.SessionStore
	format service.ExportFormat
}

func NewSessionHandler(cfg *config.Config, store *service.SessionStore) *SessionHandler {
	return &SessionHandler{
		cfg:    cfg,
		store:  store,
		format: service.ParseExportFormat(cfg.Composition.ExportFormat),
	}
}

// Register 注册会话路由
func (h *SessionHandler) Register(api *gin.RouterGroup) {
	api.GET("/missions", h.Missions)
	api.POST("/sessions", h.Create)

	s := api.Group("/sessions/:id")
	s.GET("", h.Get)
	s.DELETE("", h.Delete)
	s.POST("/photo", h.UploadPhoto)
	s.PUT("/prompt", h.SetPrompt)
	s.PUT("/mission", h.SetMission)
	s.POST("/background", h.SetBackground)
	s.POST("/generate", h.Generate)
	s.GET("/hero", h.HeroImage)
	s.GET("/key-suggestion", h.KeySuggestion)
	s.POST("/key", h.PickKey)
	s.GET("/transparent", h.TransparentImage)
	s.POST("/confirm", h.Confirm)
	s.PUT("/transform", h.SetTransform)
	s.POST("/pointer", h.Pointer)
	s.GET("/render", h.Render)
	s.GET("/export", h.Export)
	s.POST("/reset", h.Reset)
}

// Missions 列出可选任务
func (h *SessionHandler) Missions(c *gin.Context) {
	missions := model.Missions()
	out := make([]model.MissionView, 0, len(missions))
	for _, m := range missions {
		out = append(out, model.MissionView{Tag: m, Label: m.Label()})
	}
	c.JSON(http.StatusOK, model.Response{Success: true, Message: "ok", Data: out})
}

// Create 新建会话
func (h *SessionHandler) Create(c *gin.Context) {
	sess := h.store.Create()
	view, err := sess.Snapshot(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, model.Response{Success: true, Message: "会话已创建", Data: view})
}

func (h *SessionHandler) Get(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	view, err := sess.Snapshot(c.Request.Context())
	h.respond(c, view, err)
}

func (h *SessionHandler) Delete(c *gin.Context) {
	if !h.store.Delete(c.Param("id")) {
		h.notFound(c)
		return
	}
	c.JSON(http.StatusOK, model.Response{Success: true, Message: "会话已删除"})
}

// UploadPhoto 上传人物照片
func (h *SessionHandler) UploadPhoto(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	data, contentType, err := h.readUpload(c)
	if err != nil {
		h.badRequest(c, err)
		return
	}
	view, err := sess.Dispatch(c.Request.Context(), service.SelectPhoto{Data: data, ContentType: contentType})
	h.respond(c, view, err)
}

type promptRequest struct {
	Text string `json:"text"`
}

func (h *SessionHandler) SetPrompt(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req promptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	view, err := sess.Dispatch(c.Request.Context(), service.SetPrompt{Text: req.Text})
	h.respond(c, view, err)
}

type missionRequest struct {
	Mission string `json:"mission"`
}

func (h *SessionHandler) SetMission(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req missionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	m, err := model.ParseMission(req.Mission)
	if err != nil {
		h.badRequest(c, fmt.Errorf("%w: %v", service.ErrValidation, err))
		return
	}
	view, err := sess.Dispatch(c.Request.Context(), service.SelectMission{Mission: m})
	h.respond(c, view, err)
}

type backgroundRequest struct {
	URL string `json:"url"`
}

// SetBackground 接受上传文件或 JSON {url}
func (h *SessionHandler) SetBackground(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var src service.BackgroundSource
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		file, err := c.FormFile("image")
		if err != nil {
			h.badRequest(c, err)
			return
		}
		data, _, err := h.readUpload(c)
		if err != nil {
			h.badRequest(c, err)
			return
		}
		src = service.BackgroundSource{Data: data, Name: file.Filename}
	} else {
		var req backgroundRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			h.badRequest(c, err)
			return
		}
		var err error
		if src, err = service.BackgroundFromURL(req.URL); err != nil {
			h.badRequest(c, err)
			return
		}
	}

	view, err := sess.Dispatch(c.Request.Context(), service.SelectBackground{Source: src})
	h.respond(c, view, err)
}

func (h *SessionHandler) Generate(c *gin.Context) {
	h.dispatch(c, service.Generate{})
}

func (h *SessionHandler) HeroImage(c *gin.Context) {
	h.image(c, func(s *service.State) ([]byte, error) {
		if s.Artifacts.HeroWithBackground == nil {
			return nil, nil
		}
		return service.EncodePNG(s.Artifacts.HeroWithBackground)
	})
}

func (h *SessionHandler) TransparentImage(c *gin.Context) {
	h.image(c, func(s *service.State) ([]byte, error) {
		if s.Artifacts.TransparentHero == nil {
			return nil, nil
		}
		return service.EncodePNG(s.Artifacts.TransparentHero)
	})
}

// KeySuggestion 返回英雄图的主色作为建议键色
func (h *SessionHandler) KeySuggestion(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var suggestion model.KeySuggestion
	err := sess.Read(c.Request.Context(), func(s *service.State) error {
		if s.Artifacts.HeroWithBackground == nil {
			return fmt.Errorf("%w: no generated hero yet", service.ErrInvalidEvent)
		}
		var err error
		suggestion, err = service.SuggestKeyColor(s.Artifacts.HeroWithBackground)
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, model.Response{Success: true, Message: "ok", Data: suggestion})
}

type keyRequest struct {
	X             *int     `json:"x"`
	Y             *int     `json:"y"`
	DisplayWidth  int      `json:"display_width"`
	DisplayHeight int      `json:"display_height"`
	R             *uint8   `json:"r"`
	G             *uint8   `json:"g"`
	B             *uint8   `json:"b"`
	Tolerance     *float64 `json:"tolerance"`
}

// PickKey 点击取色或直接指定键色
func (h *SessionHandler) PickKey(c *gin.Context) {
	var req keyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	var ev service.Event
	switch {
	case req.X != nil && req.Y != nil:
		ev = service.PickKeyPoint{
			X:             *req.X,
			Y:             *req.Y,
			DisplayWidth:  req.DisplayWidth,
			DisplayHeight: req.DisplayHeight,
			Tolerance:     req.Tolerance,
		}
	case req.R != nil && req.G != nil && req.B != nil:
		ev = service.PickKeyColor{
			Color:     model.Color{R: *req.R, G: *req.G, B: *req.B},
			Tolerance: req.Tolerance,
		}
	default:
		h.badRequest(c, fmt.Errorf("%w: provide x,y or r,g,b", service.ErrValidation))
		return
	}
	h.dispatch(c, ev)
}

func (h *SessionHandler) Confirm(c *gin.Context) {
	h.dispatch(c, service.Confirm{})
}

type transformRequest struct {
	Scale    *float64 `json:"scale"`
	Rotation *float64 `json:"rotation"`
}

func (h *SessionHandler) SetTransform(c *gin.Context) {
	var req transformRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	h.dispatch(c, service.SetTransform{Scale: req.Scale, Rotation: req.Rotation})
}

func (h *SessionHandler) Pointer(c *gin.Context) {
	var req service.PointerEvent
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	switch req.Kind {
	case service.PointerDown, service.PointerMove, service.PointerUp, service.PointerLeave:
	default:
		h.badRequest(c, fmt.Errorf("%w: unknown pointer type %q", service.ErrValidation, req.Kind))
		return
	}
	h.dispatch(c, service.Pointer{Event: req})
}

// Render 当前画布（PNG），画布未就绪时返回 409
func (h *SessionHandler) Render(c *gin.Context) {
	h.image(c, func(s *service.State) ([]byte, error) {
		if s.Composition == nil || s.Composition.Surface() == nil {
			return nil, service.ErrExportUnavailable
		}
		return service.EncodePNG(s.Composition.Surface())
	})
}

// Export 以附件形式下载最终合成图，阶段保持不变
func (h *SessionHandler) Export(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var data []byte
	err := sess.Read(c.Request.Context(), func(s *service.State) error {
		if s.Stage != model.StageComposing || s.Composition == nil {
			return fmt.Errorf("%w: not composing", service.ErrExportUnavailable)
		}
		var err error
		data, err = s.Composition.Export(h.format)
		return err
	})
	if err != nil {
		utils.Logger.Warn("export unavailable", zap.String("session", sess.ID()), zap.Error(err))
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", h.exportFilename()))
	c.Data(http.StatusOK, h.format.ContentType(), data)
}

func (h *SessionHandler) Reset(c *gin.Context) {
	h.dispatch(c, service.Reset{})
}

func (h *SessionHandler) exportFilename() string {
	name := h.cfg.Composition.ExportFilename
	if name == "" {
		name = "composition." + string(h.format)
	}
	return name
}

func (h *SessionHandler) dispatch(c *gin.Context, ev service.Event) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	view, err := sess.Dispatch(c.Request.Context(), ev)
	h.respond(c, view, err)
}

// image 在会话内编码图像；fn 返回 (nil, nil) 表示图像尚不存在
func (h *SessionHandler) image(c *gin.Context, fn func(*service.State) ([]byte, error)) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var data []byte
	err := sess.Read(c.Request.Context(), func(s *service.State) error {
		var err error
		data, err = fn(s)
		return err
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	if data == nil {
		h.notFound(c)
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}

func (h *SessionHandler) session(c *gin.Context) (*service.Session, bool) {
	sess, ok := h.store.Get(c.Param("id"))
	if !ok {
		h.notFound(c)
		return nil, false
	}
	return sess, true
}

// readUpload 读取表单字段 image 并校验大小与类型
func (h *SessionHandler) readUpload(c *gin.Context) ([]byte, string, error) {
	file, err := c.FormFile("image")
	if err != nil {
		return nil, "", fmt.Errorf("%w: 请上传图片文件", service.ErrValidation)
	}
	if file.Size > h.cfg.Upload.MaxSize {
		return nil, "", fmt.Errorf("%w: 文件大小超过限制 (%d MB)", service.ErrValidation, h.cfg.Upload.MaxSize/(1024*1024))
	}
	contentType := file.Header.Get("Content-Type")
	if !h.isAllowedType(contentType) {
		return nil, "", fmt.Errorf("%w: 不支持的文件类型 %q", service.ErrValidation, contentType)
	}

	f, err := file.Open()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.cfg.Upload.MaxSize+1))
	if err != nil {
		return nil, "", err
	}

	utils.Logger.Info("file uploaded",
		zap.String("filename", file.Filename),
		zap.String("md5", utils.BytesMD5(data)),
		zap.Int64("size", file.Size))
	return data, contentType, nil
}

func (h *SessionHandler) isAllowedType(contentType string) bool {
	for _, allowed := range h.cfg.Upload.AllowedTypes {
		if strings.EqualFold(contentType, allowed) {
			return true
		}
	}
	return false
}

// respond 校验错误时仍返回当前快照，便于界面内联显示消息
func (h *SessionHandler) respond(c *gin.Context, view model.SessionView, err error) {
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			c.JSON(http.StatusBadRequest, model.Response{Success: false, Message: err.Error(), Data: view})
			return
		}
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, model.Response{Success: true, Message: "ok", Data: view})
}

func (h *SessionHandler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidEvent), errors.Is(err, service.ErrExportUnavailable):
		status = http.StatusConflict
	case errors.Is(err, service.ErrSessionClosed):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		utils.Logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, model.ErrorResponse{
		Success: false,
		Message: http.StatusText(status),
		Error:   err.Error(),
	})
}

func (h *SessionHandler) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, model.ErrorResponse{
		Success: false,
		Message: "请求参数错误",
		Error:   err.Error(),
	})
}

func (h *SessionHandler) notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, model.ErrorResponse{
		Success: false,
		Message: "资源不存在",
	})
}
