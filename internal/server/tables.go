package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/emprendopolis/Plataforma-sub001/internal/schema"
	"github.com/emprendopolis/Plataforma-sub001/pkg/domain"
)

type createTableRequest struct {
	TableName string              `json:"table_name"`
	Columns   []schema.ColumnSpec `json:"columns"`
}

type alterTableRequest struct {
	Add  []schema.ColumnSpec `json:"add"`
	Drop []string            `json:"drop"`
}

type setPrimaryRequest struct {
	IsPrimary bool `json:"is_primary"`
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request, ident domain.Identity) {
	switch r.Method {
	case http.MethodGet:
		s.handleListTables(w, r)
	case http.MethodPost:
		if !s.requireAdmin(w, r, ident) {
			return
		}
		s.handleCreateTable(w, r, ident)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	moduleName := r.URL.Query().Get("module")
	module, ok := domain.ParseModule(moduleName)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown module")
		return
	}
	primaryOnly := r.URL.Query().Get("primary") == "true"
	tables, err := s.schema.ListTables(module, primaryOnly)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tables)
}

func (s *Server) handleCreateTable(w http.ResponseWriter, r *http.Request, ident domain.Identity) {
	var req createTableRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.schema.CreateTable(req.TableName, req.Columns); err != nil {
		s.audit(r, "platform.table.create", "fail", "table", req.TableName, "user_id", ident.ID)
		writeDomainError(w, err)
		return
	}
	s.audit(r, "platform.table.create", "success", "table", req.TableName, "user_id", ident.ID)
	writeJSON(w, http.StatusCreated, map[string]string{"table_name": req.TableName})
}

// PATCH alters, DELETE drops. Both admin only.
func (s *Server) handleTableByName(w http.ResponseWriter, r *http.Request, ident domain.Identity, table string) {
	if !s.requireAdmin(w, r, ident) {
		return
	}
	switch r.Method {
	case http.MethodPatch:
		var req alterTableRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := s.schema.AlterTable(table, req.Add, req.Drop); err != nil {
			s.audit(r, "platform.table.alter", "fail", "table", table, "user_id", ident.ID)
			writeDomainError(w, err)
			return
		}
		s.audit(r, "platform.table.alter", "success", "table", table, "user_id", ident.ID)
		writeJSON(w, http.StatusOK, map[string]string{"status": "altered"})
	case http.MethodDelete:
		if err := s.schema.DeleteTable(table); err != nil {
			s.audit(r, "platform.table.delete", "fail", "table", table, "user_id", ident.ID)
			writeDomainError(w, err)
			return
		}
		s.audit(r, "platform.table.delete", "success", "table", table, "user_id", ident.ID)
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleSetPrimary(w http.ResponseWriter, r *http.Request, ident domain.Identity, table string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w)
		return
	}
	if !s.requireAdmin(w, r, ident) {
		return
	}
	var req setPrimaryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.schema.SetPrimary(table, req.IsPrimary); err != nil {
		s.audit(r, "platform.table.set_primary", "fail", "table", table, "user_id", ident.ID)
		writeDomainError(w, err)
		return
	}
	s.audit(r, "platform.table.set_primary", "success", "table", table, "is_primary", req.IsPrimary, "user_id", ident.ID)
	writeJSON(w, http.StatusOK, map[string]any{"table_name": table, "is_primary": req.IsPrimary})
}

func (s *Server) handleTableFields(w http.ResponseWriter, r *http.Request, table string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	fields, err := s.schema.GetTableFields(table)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fields)
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst)
}
