package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/emprendopolis/Plataforma-sub001/internal/files"
	"github.com/emprendopolis/Plataforma-sub001/internal/history"
	"github.com/emprendopolis/Plataforma-sub001/internal/ratelimit"
	"github.com/emprendopolis/Plataforma-sub001/internal/record"
	"github.com/emprendopolis/Plataforma-sub001/internal/schema"
	"github.com/emprendopolis/Plataforma-sub001/internal/util"
	"github.com/emprendopolis/Plataforma-sub001/pkg/domain"
	"github.com/emprendopolis/Plataforma-sub001/pkg/storage"
)

// SchemaDefiner manages dynamic table definitions.
type SchemaDefiner interface {
	CreateTable(table string, columns []schema.ColumnSpec) error
	AlterTable(table string, add []schema.ColumnSpec, drop []string) error
	DeleteTable(table string) error
	ListTables(module domain.Module, primaryOnly bool) ([]schema.TableSummary, error)
	SetPrimary(table string, isPrimary bool) error
	GetTableFields(table string) ([]schema.FieldDescriptor, error)
}

// RecordService performs CRUD on dynamic table rows.
type RecordService interface {
	AddRecord(table string, fields domain.Record) (domain.Record, error)
	GetRecords(table string, filters map[string]string, ident domain.Identity) ([]domain.Record, error)
	GetRecordByID(table string, id int64) (record.RecordDetail, error)
	UpdateRecord(table string, id int64, fields domain.Record, userID int64) (domain.Record, error)
	UpdatePiRecord(table string, id int64, fields domain.Record, userID int64) (domain.Record, error)
	UpdateMasterRecord(table string, id int64, fields domain.Record, userID int64) (domain.Record, error)
	CreateTableRecord(table string, fields domain.Record, userID int64) (domain.Record, error)
	DeleteTableRecord(table string, id int64) error
	BulkUpdateRecords(table string, ids []int64, updates domain.Record) (int64, error)
}

// HistoryReader exposes the audit trail and comments of a record.
type HistoryReader interface {
	Query(table string, recordID int64) ([]history.EntryView, error)
	AddComment(table string, recordID int64, userID int64, text string) (history.Comment, error)
}

// FileLedger tracks record attachments.
type FileLedger interface {
	Record(table string, recordID int64, name, path, source string, userID int64) (files.Entry, error)
	ListFor(ctx context.Context, table string, recordID int64, source string) ([]files.View, error)
	SetCompliance(fileID int64, table string, recordID int64, cumple *bool, remark *string) error
	Delete(ctx context.Context, fileID int64, userID int64) error
}

// CSVBridge moves table rows in and out of CSV.
type CSVBridge interface {
	WriteTemplate(table string, w io.Writer) error
	Upload(table string, r io.Reader) (int, error)
	Export(table string, w io.Writer) error
}

// TokenVerifier validates access tokens into identities.
type TokenVerifier interface {
	Verify(token string) (domain.Identity, error)
}

// Config wires required dependencies for the HTTP server.
type Config struct {
	Schema            SchemaDefiner
	Records           RecordService
	History           HistoryReader
	Files             FileLedger
	CSV               CSVBridge
	Objects           storage.ObjectStore
	TokenVerifier     TokenVerifier
	RedisAddr         string
	RedisPassword     string
	CsvRateLimit      int
	BulkRateLimit     int
	MaxUploadBytes    int64
	AllowedExtensions []string
}

// Server exposes HTTP endpoints for the platform.
type Server struct {
	schema            SchemaDefiner
	records           RecordService
	history           HistoryReader
	files             FileLedger
	csv               CSVBridge
	objects           storage.ObjectStore
	tokenVerifier     TokenVerifier
	mux               *http.ServeMux
	csvLimiter        *ratelimit.FixedWindowLimiter
	bulkLimiter       *ratelimit.FixedWindowLimiter
	maxUploadBytes    int64
	allowedExtensions map[string]struct{}
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	csvLimit := cfg.CsvRateLimit
	if csvLimit <= 0 {
		csvLimit = 10
	}
	bulkLimit := cfg.BulkRateLimit
	if bulkLimit <= 0 {
		bulkLimit = 30
	}
	rateWindow := time.Minute
	newLimiter := func(name string, limit int) (*ratelimit.FixedWindowLimiter, error) {
		prefix := "plataforma:ratelimit:" + name
		limiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, prefix, limit, rateWindow)
		if err != nil {
			return nil, fmt.Errorf("init %s limiter: %w", name, err)
		}
		return limiter, nil
	}
	csvLimiter, err := newLimiter("csv", csvLimit)
	if err != nil {
		return nil, err
	}
	bulkLimiter, err := newLimiter("bulk", bulkLimit)
	if err != nil {
		return nil, err
	}
	s := &Server{
		schema:            cfg.Schema,
		records:           cfg.Records,
		history:           cfg.History,
		files:             cfg.Files,
		csv:               cfg.CSV,
		objects:           cfg.Objects,
		tokenVerifier:     cfg.TokenVerifier,
		mux:               http.NewServeMux(),
		csvLimiter:        csvLimiter,
		bulkLimiter:       bulkLimiter,
		maxUploadBytes:    normalizeMaxBytes(cfg.MaxUploadBytes),
		allowedExtensions: normalizeExtensions(cfg.AllowedExtensions),
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog("platform", util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// table definitions
	s.mux.Handle("/api/tables", s.authenticated(s.handleTables))
	s.mux.Handle("/api/tables/", s.authenticated(s.handleTableSubtree))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// auth wrappers
type authHandler func(http.ResponseWriter, *http.Request, domain.Identity)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, ok := s.authorize(r)
		if !ok {
			s.audit(r, "platform.authorize", "fail")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, ident)
	})
}

func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request, ident domain.Identity) bool {
	if ident.Role != domain.RoleAdmin {
		s.audit(r, "platform.admin.authorize", "fail", "user_id", ident.ID, "reason", "forbidden")
		writeError(w, http.StatusForbidden, "forbidden")
		return false
	}
	return true
}

func (s *Server) authorize(r *http.Request) (domain.Identity, bool) {
	token, ok := bearerToken(r)
	if !ok {
		s.audit(r, "platform.token.verify", "fail", "reason", "missing_token")
		return domain.Identity{}, false
	}
	if s.tokenVerifier == nil {
		s.audit(r, "platform.token.verify", "fail", "reason", "verifier_not_configured")
		return domain.Identity{}, false
	}
	ident, err := s.tokenVerifier.Verify(token)
	if err != nil {
		s.audit(r, "platform.token.verify", "fail", "reason", "invalid_signature_or_claims")
		return domain.Identity{}, false
	}
	return ident, true
}

// /api/tables/{table} and everything below it.
func (s *Server) handleTableSubtree(w http.ResponseWriter, r *http.Request, ident domain.Identity) {
	path := strings.TrimPrefix(r.URL.Path, "/api/tables/")
	parts := strings.SplitN(path, "/", 2)
	table := parts[0]
	if table == "" {
		notFound(w, "not found")
		return
	}
	if len(parts) == 1 {
		s.handleTableByName(w, r, ident, table)
		return
	}
	rest := parts[1]
	switch {
	case rest == "primary":
		s.handleSetPrimary(w, r, ident, table)
	case rest == "fields":
		s.handleTableFields(w, r, table)
	case rest == "records" || strings.HasPrefix(rest, "records/"):
		s.handleRecordSubtree(w, r, ident, table, strings.TrimPrefix(rest, "records"))
	case rest == "csv":
		s.handleCSV(w, r, ident, table)
	case rest == "csv/template":
		s.handleCSVTemplate(w, r, table)
	default:
		notFound(w, "not found")
	}
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", clientIP(r),
		"request_id", util.RequestIDFromRequest(r),
	}
	logAttrs = append(logAttrs, attrs...)
	if outcome == "success" {
		slog.Info("security_event", logAttrs...)
		return
	}
	slog.Warn("security_event", logAttrs...)
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter, msg string) bool {
	key := r.URL.Path + "|" + clientIP(r)
	if limiter.Allow(key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}

func clientIP(r *http.Request) string {
	return util.ClientIP(r, nil)
}

func (s *Server) isExtensionAllowed(filename string) bool {
	if len(s.allowedExtensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(filename))
	_, ok := s.allowedExtensions[ext]
	return ok
}

func normalizeMaxBytes(v int64) int64 {
	if v <= 0 {
		return 25 * 1024 * 1024
	}
	return v
}

func normalizeExtensions(exts []string) map[string]struct{} {
	out := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out[ext] = struct{}{}
	}
	return out
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func notFound(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusNotFound, msg)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeDomainError maps service error kinds onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch domain.KindOf(err) {
	case domain.KindInvalidInput, domain.KindMissingContext:
		status = http.StatusBadRequest
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindConflict:
		status = http.StatusConflict
	case domain.KindUpstream:
		status = http.StatusBadGateway
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("internal error", "error", err)
		msg = "internal error"
	}
	writeError(w, status, msg)
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
