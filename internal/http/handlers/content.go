package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/neurobridge-authoring/internal/domain/authoring"
	"github.com/yungbote/neurobridge-authoring/internal/http/response"
	"github.com/yungbote/neurobridge-authoring/internal/modules/authoring/modes"
	"github.com/yungbote/neurobridge-authoring/internal/platform/apierr"
	"github.com/yungbote/neurobridge-authoring/internal/platform/logger"
	"github.com/yungbote/neurobridge-authoring/internal/services"
)

const defaultListLimit = 50

type ContentHandler struct {
	log       *logger.Logger
	authoring services.AuthoringService
}

func NewContentHandler(baseLog *logger.Logger, authoring services.AuthoringService) *ContentHandler {
	return &ContentHandler{log: baseLog.With("handler", "ContentHandler"), authoring: authoring}
}

// saveRequest carries an author edit. Omitted fields keep their stored value.
type saveRequest struct {
	services.FieldPatch
	ChangeReason string `json:"change_reason"`
}

type statusRequest struct {
	Status types.Status `json:"status" binding:"required"`
}

type generateRequest struct {
	Mode       string `json:"mode" binding:"required"`
	Question   string `json:"question"`
	DisableWeb bool   `json:"disable_web"`
}

type applyRequest struct {
	Mode string          `json:"mode" binding:"required"`
	Raw  json.RawMessage `json:"raw" binding:"required"`
}

type reviewRequest struct {
	Mode string `json:"mode"`
}

// GET /api/modes
func (h *ContentHandler) ListModes(c *gin.Context) {
	out := make([]gin.H, 0)
	for _, s := range modes.All() {
		out = append(out, gin.H{
			"mode":          s.Mode,
			"key":           s.Key,
			"kind":          s.Kind,
			"web_augmented": s.WebAugmented,
			"mutates":       s.Mutates(),
		})
	}
	response.RespondOK(c, gin.H{"modes": out})
}

// POST /api/content
func (h *ContentHandler) Create(c *gin.Context) {
	var req services.CreateEntityInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, err)
		return
	}
	e, err := h.authoring.CreateEntity(c.Request.Context(), req)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"entity": e})
}

// GET /api/content?status=&limit=
func (h *ContentHandler) List(c *gin.Context) {
	limit := defaultListLimit
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, errInvalid("limit"))
			return
		}
		limit = n
	}
	status := types.Status(strings.TrimSpace(c.Query("status")))
	if status != "" && !status.Valid() {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, errInvalid("status"))
		return
	}
	list, err := h.authoring.ListEntities(c.Request.Context(), status, limit)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"entities": list})
}

// GET /api/content/:id
func (h *ContentHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	e, err := h.authoring.GetEntity(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"entity": e})
}

// PATCH /api/content/:id
func (h *ContentHandler) Save(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, err)
		return
	}
	res, err := h.authoring.SaveFields(c.Request.Context(), id, req.FieldPatch, req.ChangeReason)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	if res.Integrity.Shrunk {
		h.log.Warn("Author save shrank content", "entity_id", id, "version", res.Version.VersionNumber)
	}
	response.RespondOK(c, res)
}

// POST /api/content/:id/status
func (h *ContentHandler) TransitionStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, err)
		return
	}
	e, err := h.authoring.TransitionStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"entity": e})
}

// POST /api/content/:id/generate
func (h *ContentHandler) Generate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, err)
		return
	}
	mode, err := modes.Parse(req.Mode)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	out, err := h.authoring.Generate(c.Request.Context(), id, mode, services.GenerateInput{
		Question:   req.Question,
		DisableWeb: req.DisableWeb,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, out)
}

// POST /api/content/:id/apply
func (h *ContentHandler) Apply(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req applyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, err)
		return
	}
	mode, err := modes.Parse(req.Mode)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	out, err := h.authoring.ApplyGeneration(c.Request.Context(), id, mode, req.Raw)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, out)
}

// GET /api/content/:id/versions
func (h *ContentHandler) ListVersions(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	list, err := h.authoring.ListVersions(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"versions": list})
}

// GET /api/content/:id/versions/:versionId
func (h *ContentHandler) GetVersion(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	versionID, ok := pathID(c, "versionId")
	if !ok {
		return
	}
	v, err := h.authoring.GetVersion(c.Request.Context(), id, versionID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"version": v})
}

// POST /api/content/:id/versions/:versionId/restore
func (h *ContentHandler) Restore(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	versionID, ok := pathID(c, "versionId")
	if !ok {
		return
	}
	res, err := h.authoring.Restore(c.Request.Context(), id, versionID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, res)
}

// POST /api/content/:id/review
func (h *ContentHandler) Review(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req reviewRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, err)
			return
		}
	}
	mode := modes.FullText
	if strings.TrimSpace(req.Mode) != "" {
		m, err := modes.Parse(req.Mode)
		if err != nil {
			response.RespondServiceError(c, err)
			return
		}
		mode = m
	}
	rep, err := h.authoring.Review(c.Request.Context(), id, mode)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"review": rep})
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, errInvalid(name))
		return uuid.Nil, false
	}
	return id, true
}

type errInvalid string

func (e errInvalid) Error() string { return "invalid " + string(e) }
