package dto

import (
	"mime/multipart"
	"time"

	"model-artifact-registry/internal/core/domain"
)

type RegisterModelRequest struct {
	Name         string             `json:"name" binding:"required"`
	SourcePath   string             `json:"source_path" binding:"required"`
	Version      string             `json:"version"`
	Framework    string             `json:"framework"`
	Metrics      map[string]float64 `json:"metrics"`
	Architecture string             `json:"architecture"`
	InputShape   []int              `json:"input_shape"`
	Dataset      *string            `json:"dataset"`
	Description  *string            `json:"description"`
}

// UploadModelForm is the multipart variant of RegisterModelRequest. Metrics
// arrive as a JSON object and InputShape as "3,224,224".
type UploadModelForm struct {
	File         *multipart.FileHeader `form:"file" binding:"required"`
	Version      string                `form:"version"`
	Framework    string                `form:"framework"`
	Metrics      string                `form:"metrics"`
	Architecture string                `form:"architecture"`
	InputShape   string                `form:"input_shape"`
	Dataset      string                `form:"dataset"`
	Description  string                `form:"description"`
}

type RegisterModelResponse struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

type ModelVersionResponse struct {
	Key             string             `json:"key"`
	Name            string             `json:"name"`
	Version         string             `json:"version"`
	FilePath        string             `json:"file_path"`
	Framework       string             `json:"framework"`
	Architecture    string             `json:"architecture"`
	InputShape      []int              `json:"input_shape"`
	Metrics         map[string]float64 `json:"metrics"`
	Dataset         *string            `json:"dataset"`
	Description     *string            `json:"description"`
	RegisteredAt    string             `json:"registered_at"`
	ArtifactPresent bool               `json:"artifact_present"`
}

type ListResponse struct {
	Items []string `json:"items"`
	Total int      `json:"total"`
}

func ToModelVersionResponse(rec *domain.VersionRecord, present bool) ModelVersionResponse {
	metrics := rec.Metrics
	if metrics == nil {
		metrics = domain.Metrics{}
	}
	return ModelVersionResponse{
		Key:             rec.Key(),
		Name:            rec.Name,
		Version:         rec.Version,
		FilePath:        rec.FilePath,
		Framework:       rec.Framework,
		Architecture:    rec.Architecture,
		InputShape:      rec.InputShape,
		Metrics:         metrics,
		Dataset:         rec.Dataset,
		Description:     rec.Description,
		RegisteredAt:    rec.RegisteredAt.Format(time.RFC3339Nano),
		ArtifactPresent: present,
	}
}

func NewListResponse(items []string) ListResponse {
	if items == nil {
		items = []string{}
	}
	return ListResponse{Items: items, Total: len(items)}
}
