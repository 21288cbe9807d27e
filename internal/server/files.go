package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/emprendopolis/Plataforma-sub001/internal/util"
	"github.com/emprendopolis/Plataforma-sub001/pkg/domain"
)

type complianceRequest struct {
	Cumple      *bool   `json:"cumple"`
	Descripcion *string `json:"descripcion cumplimiento"`
}

// /api/tables/{table}/records/{id}/files
func (s *Server) handleRecordFiles(w http.ResponseWriter, r *http.Request, ident domain.Identity, table string, id int64) {
	switch r.Method {
	case http.MethodGet:
		source := r.URL.Query().Get("source")
		views, err := s.files.ListFor(r.Context(), table, id, source)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"files": views, "count": len(views)})
	case http.MethodPost:
		s.handleUploadFile(w, r, ident, table, id)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request, ident domain.Identity, table string, id int64) {
	if s.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required (field: file)")
		return
	}
	defer file.Close()
	name := filepath.Base(header.Filename)
	if name == "" || name == "." {
		writeError(w, http.StatusBadRequest, "filename required")
		return
	}
	if !s.isExtensionAllowed(name) {
		writeError(w, http.StatusBadRequest, "unsupported file type")
		return
	}
	source := strings.TrimSpace(r.FormValue("source"))
	if source == "" {
		source = "general"
	}
	key := fmt.Sprintf("%s/%d/%s_%s", table, id, util.NewID(), name)
	contentType := header.Header.Get("Content-Type")
	if err := s.objects.Put(r.Context(), key, file, header.Size, contentType); err != nil {
		s.audit(r, "platform.file.upload", "fail", "table", table, "record_id", id, "user_id", ident.ID)
		writeError(w, http.StatusBadGateway, "object storage unavailable")
		return
	}
	entry, err := s.files.Record(table, id, name, key, source, ident.ID)
	if err != nil {
		// The blob is already in the store; without a ledger row nothing
		// would ever find it again, so remove it before reporting.
		if delErr := s.objects.Delete(r.Context(), key); delErr != nil {
			slog.Warn("orphaned blob cleanup failed", "key", key, "err", delErr)
		}
		s.audit(r, "platform.file.upload", "fail", "table", table, "record_id", id, "user_id", ident.ID)
		writeDomainError(w, err)
		return
	}
	s.audit(r, "platform.file.upload", "success", "table", table, "record_id", id, "user_id", ident.ID)
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":     entry.ID,
		"name":   entry.Name,
		"source": entry.Source,
	})
}

// /api/tables/{table}/records/{id}/files/{fileId}
func (s *Server) handleRecordFileByID(w http.ResponseWriter, r *http.Request, ident domain.Identity, table string, id int64, rawFileID string) {
	fileID, ok := parseID(rawFileID)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid file id")
		return
	}
	switch r.Method {
	case http.MethodPatch:
		var req complianceRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := s.files.SetCompliance(fileID, table, id, req.Cumple, req.Descripcion); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	case http.MethodDelete:
		if err := s.files.Delete(r.Context(), fileID, ident.ID); err != nil {
			writeDomainError(w, err)
			return
		}
		s.audit(r, "platform.file.delete", "success", "table", table, "record_id", id, "file_id", fileID, "user_id", ident.ID)
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w)
	}
}
