package handlers

import (
	"model-artifact-registry/internal/core/services"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	registry        *services.RegistryService
	stageDir        string
	allowSourcePath bool
}

type Option func(*Handler)

// WithSourcePathRegistration toggles POST /models. When off, clients can
// only register through the multipart upload route.
func WithSourcePathRegistration(allow bool) Option {
	return func(h *Handler) { h.allowSourcePath = allow }
}

// New builds the REST handlers. Uploaded files are staged under stageDir
// (the OS temp dir when empty) before registration copies them into storage.
func New(registry *services.RegistryService, stageDir string, opts ...Option) *Handler {
	h := &Handler{
		registry:        registry,
		stageDir:        stageDir,
		allowSourcePath: true,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	// Registration
	r.POST("/models", h.RegisterModel)
	r.POST("/models/:family/upload", h.UploadModel)

	// Lookup
	r.GET("/models", h.ListModels)
	r.GET("/models/:family/versions", h.ListFamilyVersions)
	r.GET("/models/:family/versions/:version", h.GetModelVersion)
	r.GET("/families", h.ListFamilies)
}
