package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"model-artifact-registry/internal/adapters/primary/http/dto"
	"model-artifact-registry/internal/core/domain"
	"model-artifact-registry/internal/core/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const headerArtifactMissing = "X-Artifact-Missing"

// RegisterModel registers the file named by source_path. The path is opened
// on the server with the server's permissions and there is no access
// control, so any client can have any readable file copied into storage.
// Expose it to trusted clients only, or turn it off with
// WithSourcePathRegistration(false).
func (h *Handler) RegisterModel(c *gin.Context) {
	if !h.allowSourcePath {
		c.JSON(http.StatusForbidden, gin.H{"error": "source_path registration is disabled; use the upload route"})
		return
	}

	var req dto.RegisterModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	key, err := h.registry.Register(c.Request.Context(), services.RegisterRequest{
		Family:       req.Name,
		SourcePath:   req.SourcePath,
		Version:      req.Version,
		Framework:    req.Framework,
		Metrics:      req.Metrics,
		Architecture: req.Architecture,
		InputShape:   req.InputShape,
		Dataset:      req.Dataset,
		Description:  req.Description,
	})
	if err != nil {
		log.WithError(err).WithField("family", req.Name).Error("register model failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, registerResponse(key))
}

func (h *Handler) UploadModel(c *gin.Context) {
	family := c.Param("family")

	var form dto.UploadModelForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var metrics domain.Metrics
	if form.Metrics != "" {
		if err := json.Unmarshal([]byte(form.Metrics), &metrics); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid metrics: %v", err)})
			return
		}
	}
	shape, err := domain.ParseInputShape(form.InputShape)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	name := filepath.Base(form.File.Filename)
	if name == "." || name == ".." || name == string(filepath.Separator) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file name"})
		return
	}

	// The staged file keeps the uploaded name, since storage preserves it.
	dir := filepath.Join(h.stageRoot(), "upload-"+uuid.New().String())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		log.WithError(err).Error("create upload staging dir failed")
		mapDomainError(c, err)
		return
	}
	defer os.RemoveAll(dir)

	staged := filepath.Join(dir, name)
	if err := c.SaveUploadedFile(form.File, staged); err != nil {
		log.WithError(err).Error("stage uploaded file failed")
		mapDomainError(c, err)
		return
	}

	key, err := h.registry.Register(c.Request.Context(), services.RegisterRequest{
		Family:       family,
		SourcePath:   staged,
		Version:      form.Version,
		Framework:    form.Framework,
		Metrics:      metrics,
		Architecture: form.Architecture,
		InputShape:   shape,
		Dataset:      domain.StringPtr(form.Dataset),
		Description:  domain.StringPtr(form.Description),
	})
	if err != nil {
		log.WithError(err).WithField("family", family).Error("upload model failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, registerResponse(key))
}

func (h *Handler) ListModels(c *gin.Context) {
	keys := h.registry.List(c.Request.Context(), c.Query("family"))
	c.JSON(http.StatusOK, dto.NewListResponse(keys))
}

func (h *Handler) ListFamilyVersions(c *gin.Context) {
	keys := h.registry.List(c.Request.Context(), c.Param("family"))
	c.JSON(http.StatusOK, dto.NewListResponse(keys))
}

func (h *Handler) ListFamilies(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewListResponse(h.registry.ListFamilies(c.Request.Context())))
}

func (h *Handler) GetModelVersion(c *gin.Context) {
	family := c.Param("family")
	version := c.Param("version")

	rec, ok := h.registry.Get(c.Request.Context(), family, version)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("model %s not found", domain.Key(family, version))})
		return
	}

	present := h.registry.ArtifactPresent(rec)
	if !present {
		c.Header(headerArtifactMissing, "true")
	}
	c.JSON(http.StatusOK, dto.ToModelVersionResponse(rec, present))
}

func (h *Handler) stageRoot() string {
	if h.stageDir != "" {
		return h.stageDir
	}
	return os.TempDir()
}

func registerResponse(key string) dto.RegisterModelResponse {
	family, version, _ := domain.SplitKey(key)
	return dto.RegisterModelResponse{Key: key, Name: family, Version: version}
}
