package server

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/emprendopolis/Plataforma-sub001/pkg/domain"
)

// /api/tables/{table}/csv/template
func (s *Server) handleCSVTemplate(w http.ResponseWriter, r *http.Request, table string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", table+"_template.csv"))
	if err := s.csv.WriteTemplate(table, w); err != nil {
		// Headers may already be out; log and abort the body.
		s.audit(r, "platform.csv.template", "fail", "table", table)
		return
	}
}

// /api/tables/{table}/csv: GET exports, POST imports.
func (s *Server) handleCSV(w http.ResponseWriter, r *http.Request, ident domain.Identity, table string) {
	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", table+".csv"))
		if err := s.csv.Export(table, w); err != nil {
			s.audit(r, "platform.csv.export", "fail", "table", table)
			return
		}
	case http.MethodPost:
		s.handleCSVUpload(w, r, ident, table)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleCSVUpload(w http.ResponseWriter, r *http.Request, ident domain.Identity, table string) {
	if !s.allowRate(w, r, s.csvLimiter, "too many CSV uploads, retry later") {
		return
	}
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
	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		writeError(w, http.StatusBadRequest, "unsupported file type")
		return
	}
	inserted, err := s.csv.Upload(table, file)
	if err != nil {
		s.audit(r, "platform.csv.upload", "fail", "table", table, "user_id", ident.ID)
		writeDomainError(w, err)
		return
	}
	s.audit(r, "platform.csv.upload", "success", "table", table, "user_id", ident.ID, "inserted", inserted)
	writeJSON(w, http.StatusCreated, map[string]any{"inserted": inserted})
}
