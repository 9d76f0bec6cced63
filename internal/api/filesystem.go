package api

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"

	"dirsage/internal/cleanup"
	"dirsage/internal/disk"
	"dirsage/internal/scan"
)

// DeleteRequest is the body of POST /delete
type DeleteRequest struct {
	Paths []string `json:"paths"`
}

// ExecutableDirectoryResponse is the body of GET /executable-directory
type ExecutableDirectoryResponse struct {
	Path string `json:"path"`
}

// ListDirectory handles GET /api/v1/directory?path=. An absent path is
// scanned as the empty path and reported as not found.
func (h *Handler) ListDirectory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.scanner.Scan(r.URL.Query().Get("path"))
	if err != nil {
		respondError(w, err.Error(), scanStatus(err))
		return
	}
	if entries == nil {
		entries = []scan.Entry{}
	}
	respondJSON(w, entries, http.StatusOK)
}

func scanStatus(err error) int {
	switch {
	case errors.Is(err, scan.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, scan.ErrUnresolvable):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// ExecutableDirectory handles GET /api/v1/executable-directory
func (h *Handler) ExecutableDirectory(w http.ResponseWriter, r *http.Request) {
	dir, err := h.execDir()
	if err != nil {
		h.logger.Error("Executable directory lookup failed", "error", errors.Unwrap(err))
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, ExecutableDirectoryResponse{Path: dir}, http.StatusOK)
}

// DeletePaths handles POST /api/v1/delete
func (h *Handler) DeletePaths(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}

	var req DeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.eraser.DeleteAll(req.Paths); err != nil {
		respondError(w, err.Error(), deleteStatus(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func deleteStatus(err error) int {
	switch {
	case errors.Is(err, cleanup.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, cleanup.ErrBlocked):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// DiskUsage handles GET /api/v1/disk. Without a path it reports every
// mounted partition.
func (h *Handler) DiskUsage(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		all, err := h.allDiskUsage()
		if err != nil {
			h.logger.Error("Listing partitions failed", "error", err)
			respondError(w, "failed to list partitions", http.StatusInternalServerError)
			return
		}
		if all == nil {
			all = []disk.Usage{}
		}
		respondJSON(w, all, http.StatusOK)
		return
	}

	usage, err := h.diskUsage(path)
	switch {
	case err == nil:
		respondJSON(w, usage, http.StatusOK)
	case errors.Is(err, disk.ErrStale):
		respondError(w, "filesystem is not responding: "+path, http.StatusServiceUnavailable)
	case errors.Is(err, fs.ErrNotExist):
		respondError(w, "Path does not exist: "+path, http.StatusNotFound)
	default:
		h.logger.Error("Disk usage failed", "path", path, "error", err)
		respondError(w, "failed to read filesystem usage: "+path, http.StatusInternalServerError)
	}
}
