package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/qgl-content/pkg/qcproj"
)

// DefaultMaxBodyBytes caps request bodies for project uploads
const DefaultMaxBodyBytes = 64 << 20

// LoaderResponse describes one loader of a resource type
type LoaderResponse struct {
	ID            uint16 `json:"id"`
	FileExtension string `json:"file_extension"`
}

// ResourceTypeResponse is the response body for a resource type
type ResourceTypeResponse struct {
	ID      uint16           `json:"id"`
	Name    string           `json:"name"`
	Loaders []LoaderResponse `json:"loaders"`
}

// FileExtensionResponse is the response body for a loader's file extension
type FileExtensionResponse struct {
	LoaderID      uint16 `json:"loader_id"`
	FileExtension string `json:"file_extension"`
}

// IssueResponse reports an entry whose extension is not installed
type IssueResponse struct {
	Index    int    `json:"index"`
	FilePath string `json:"file_path,omitempty"`
	Name     string `json:"name"`
	Error    string `json:"error"`
}

// ProjectResponse is the response body for a decoded or loaded project
type ProjectResponse struct {
	Path     string                 `json:"path,omitempty"`
	Version  string                 `json:"version"`
	Size     int64                  `json:"size"`
	Checksum string                 `json:"checksum"`
	Project  *qcproj.ContentProject `json:"project"`
	Issues   []IssueResponse        `json:"issues"`
}

// AccessEntryResponse is the response body for an access list entry
type AccessEntryResponse struct {
	Token     string    `json:"token"`
	Path      string    `json:"path"`
	Name      string    `json:"name,omitempty"`
	Checksum  string    `json:"checksum,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ErrorResponse is the response body for a failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// ProjectHandler handles HTTP requests for project files
type ProjectHandler struct {
	service      qcproj.Service
	maxBodyBytes int64
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(service qcproj.Service) *ProjectHandler {
	return &ProjectHandler{
		service:      service,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
}

// Routes returns the routes for project files and the capability catalog
func (h *ProjectHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/resource-types", h.ListResourceTypes)
	r.Get("/loaders/{loaderID}/file-extension", h.GetFileExtension)

	r.Post("/projects/decode", h.DecodeProject)
	r.Post("/projects/encode", h.EncodeProject)
	r.Get("/projects/*", h.LoadProject)
	r.Put("/projects/*", h.SaveProject)

	r.Get("/access/recent", h.ListRecent)
	r.Delete("/access/recent", h.ClearRecent)

	return r
}

// serviceCatalog adapts a Service to qcproj.Catalog
type serviceCatalog struct {
	service qcproj.Service
}

func (c serviceCatalog) Contains(resourceTypeID, loaderID uint16) bool {
	return c.service.Supports(qcproj.ContentMetadata{ResourceTypeID: resourceTypeID, LoaderID: loaderID})
}

func checksumString(sum uint64) string {
	return strconv.FormatUint(sum, 16)
}

func newProjectResponse(path string, result *qcproj.LoadResult) ProjectResponse {
	issues := make([]IssueResponse, 0, len(result.Issues))
	for _, issue := range result.Issues {
		issues = append(issues, IssueResponse{
			Index:    issue.Index,
			FilePath: issue.FilePath,
			Name:     issue.Name,
			Error:    issue.Err.Error(),
		})
	}
	return ProjectResponse{
		Path:     path,
		Version:  result.Version.String(),
		Size:     result.Size,
		Checksum: checksumString(result.Checksum),
		Project:  result.Project,
		Issues:   issues,
	}
}

// statusFor maps library errors onto HTTP status codes
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, qcproj.ErrUnsupportedVersion):
		return http.StatusUnprocessableEntity
	case errors.Is(err, qcproj.ErrMalformedFile), errors.Is(err, qcproj.ErrStringTooLong),
		errors.Is(err, qcproj.ErrInvalidString):
		return http.StatusBadRequest
	case errors.Is(err, qcproj.ErrFileNotFound):
		return http.StatusNotFound
	case errors.Is(err, qcproj.ErrAccessNotGranted):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: err.Error()})
}

func projectPath(r *http.Request) (string, bool) {
	path := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if path == "" || !strings.HasSuffix(path, qcproj.ProjectFileExtension) {
		return "", false
	}
	return path, true
}

// ListResourceTypes lists the registered resource types and their loaders
func (h *ProjectHandler) ListResourceTypes(w http.ResponseWriter, r *http.Request) {
	types := h.service.ResourceTypes()
	resp := make([]ResourceTypeResponse, 0, len(types))
	for _, rt := range types {
		item := ResourceTypeResponse{ID: rt.ID, Name: rt.Name, Loaders: make([]LoaderResponse, 0, len(rt.LoaderIDs))}
		for _, id := range rt.LoaderIDs {
			item.Loaders = append(item.Loaders, LoaderResponse{ID: id, FileExtension: h.service.FileExtensionFor(id)})
		}
		resp = append(resp, item)
	}
	render.JSON(w, r, resp)
}

// GetFileExtension returns the file suffix for a loader, ".unkn" when none is registered
func (h *ProjectHandler) GetFileExtension(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "loaderID")
	id, err := strconv.ParseUint(idStr, 10, 16)
	if err != nil {
		slog.Error("Invalid loader ID", "loader_id", idStr, "error", err)
		writeError(w, r, http.StatusBadRequest, errors.New("invalid loader ID"))
		return
	}

	render.JSON(w, r, FileExtensionResponse{
		LoaderID:      uint16(id),
		FileExtension: h.service.FileExtensionFor(uint16(id)),
	})
}

// DecodeProject decodes a project file sent as the request body
func (h *ProjectHandler) DecodeProject(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	result, err := qcproj.DecodeProject(body, serviceCatalog{service: h.service})
	if err != nil {
		slog.Warn("Failed to decode project", "error", err)
		writeError(w, r, statusFor(err), err)
		return
	}

	render.JSON(w, r, newProjectResponse("", result))
}

// EncodeProject encodes a JSON project into the binary file format
func (h *ProjectHandler) EncodeProject(w http.ResponseWriter, r *http.Request) {
	project := qcproj.NewContentProject()
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes)).Decode(project); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	data, err := qcproj.EncodeProject(project)
	if err != nil {
		slog.Warn("Failed to encode project", "error", err)
		writeError(w, r, statusFor(err), err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// LoadProject loads a project file from the service's store
func (h *ProjectHandler) LoadProject(w http.ResponseWriter, r *http.Request) {
	path, ok := projectPath(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, errors.New("path must name a "+qcproj.ProjectFileExtension+" file"))
		return
	}

	result, err := h.service.LoadProject(r.Context(), path)
	if err != nil {
		slog.Error("Failed to load project", "path", path, "error", err)
		writeError(w, r, statusFor(err), err)
		return
	}

	slog.Info("Project loaded", "path", path, "entries", result.Project.Len())
	render.JSON(w, r, newProjectResponse(path, result))
}

// SaveProject saves a JSON project to the service's store
func (h *ProjectHandler) SaveProject(w http.ResponseWriter, r *http.Request) {
	path, ok := projectPath(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, errors.New("path must name a "+qcproj.ProjectFileExtension+" file"))
		return
	}

	project := qcproj.NewContentProject()
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes)).Decode(project); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	result, err := h.service.SaveProject(r.Context(), path, project)
	if err != nil {
		slog.Error("Failed to save project", "path", path, "error", err)
		writeError(w, r, statusFor(err), err)
		return
	}

	slog.Info("Project saved", "path", path, "size", result.Size)
	render.JSON(w, r, result)
}

// ListRecent lists recently saved or loaded projects
func (h *ProjectHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.RecentProjects(r.Context())
	if err != nil {
		slog.Error("Failed to list recent projects", "error", err)
		writeError(w, r, statusFor(err), err)
		return
	}

	resp := make([]AccessEntryResponse, 0, len(entries))
	for _, e := range entries {
		item := AccessEntryResponse{
			Token:     e.Token.String(),
			Path:      e.Path,
			Name:      e.Name,
			UpdatedAt: e.UpdatedAt,
		}
		if e.Checksum != 0 {
			item.Checksum = checksumString(e.Checksum)
		}
		resp = append(resp, item)
	}
	render.JSON(w, r, resp)
}

// ClearRecent empties the recent project list
func (h *ProjectHandler) ClearRecent(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearRecentProjects(r.Context()); err != nil {
		slog.Error("Failed to clear recent projects", "error", err)
		writeError(w, r, statusFor(err), err)
		return
	}
	render.NoContent(w, r)
}
