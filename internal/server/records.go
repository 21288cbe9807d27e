package server

import (
	"net/http"
	"strings"

	"github.com/emprendopolis/Plataforma-sub001/pkg/domain"
)

type bulkUpdateRequest struct {
	IDs     []int64       `json:"ids"`
	Updates domain.Record `json:"updates"`
}

type commentRequest struct {
	Text string `json:"text"`
}

// Everything under /api/tables/{table}/records. rest is "" for the
// collection, "/bulk", "/{id}" or "/{id}/...".
func (s *Server) handleRecordSubtree(w http.ResponseWriter, r *http.Request, ident domain.Identity, table, rest string) {
	rest = strings.TrimPrefix(rest, "/")
	if rest == "" {
		s.handleRecords(w, r, ident, table)
		return
	}
	if rest == "bulk" {
		s.handleBulkUpdate(w, r, table)
		return
	}
	parts := strings.SplitN(rest, "/", 2)
	id, ok := parseID(parts[0])
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid record id")
		return
	}
	if len(parts) == 1 {
		s.handleRecordByID(w, r, ident, table, id)
		return
	}
	switch {
	case parts[1] == "history":
		s.handleRecordHistory(w, r, table, id)
	case parts[1] == "comments":
		s.handleRecordComments(w, r, ident, table, id)
	case parts[1] == "files":
		s.handleRecordFiles(w, r, ident, table, id)
	case strings.HasPrefix(parts[1], "files/"):
		s.handleRecordFileByID(w, r, ident, table, id, strings.TrimPrefix(parts[1], "files/"))
	default:
		notFound(w, "not found")
	}
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request, ident domain.Identity, table string) {
	switch r.Method {
	case http.MethodGet:
		filters := map[string]string{}
		for key, values := range r.URL.Query() {
			if len(values) > 0 {
				filters[key] = values[0]
			}
		}
		rows, err := s.records.GetRecords(table, filters, ident)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": rows, "count": len(rows)})
	case http.MethodPost:
		var fields domain.Record
		if err := decodeJSON(r, &fields); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		module, _ := domain.ModuleOfTable(table)
		var (
			row domain.Record
			err error
		)
		if module == domain.ModulePi {
			row, err = s.records.CreateTableRecord(table, fields, ident.ID)
		} else {
			row, err = s.records.AddRecord(table, fields)
		}
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, row)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleRecordByID(w http.ResponseWriter, r *http.Request, ident domain.Identity, table string, id int64) {
	switch r.Method {
	case http.MethodGet:
		detail, err := s.records.GetRecordByID(table, id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, detail)
	case http.MethodPut:
		var fields domain.Record
		if err := decodeJSON(r, &fields); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		module, _ := domain.ModuleOfTable(table)
		var (
			row domain.Record
			err error
		)
		switch module {
		case domain.ModulePi:
			row, err = s.records.UpdatePiRecord(table, id, fields, ident.ID)
		case domain.ModuleMaster:
			row, err = s.records.UpdateMasterRecord(table, id, fields, ident.ID)
		default:
			row, err = s.records.UpdateRecord(table, id, fields, ident.ID)
		}
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, row)
	case http.MethodDelete:
		if err := s.records.DeleteTableRecord(table, id); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleBulkUpdate(w http.ResponseWriter, r *http.Request, table string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.bulkLimiter, "too many bulk updates, retry later") {
		return
	}
	var req bulkUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids are required")
		return
	}
	updated, err := s.records.BulkUpdateRecords(table, req.IDs, req.Updates)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": updated})
}

func (s *Server) handleRecordHistory(w http.ResponseWriter, r *http.Request, table string, id int64) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	entries, err := s.history.Query(table, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleRecordComments(w http.ResponseWriter, r *http.Request, ident domain.Identity, table string, id int64) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	comment, err := s.history.AddComment(table, id, ident.ID, req.Text)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}
