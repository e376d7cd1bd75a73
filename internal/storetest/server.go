// Package storetest runs an in-memory imitation of the remote store's
// HTTP surface for package tests: generic tables with equality filters
// and ordering, the password-grant auth endpoints, the rpc escape
// hatch, and the error codes the client is expected to recognize.
package storetest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type authUser struct {
	id           string
	email        string
	passwordHash []byte
}

// Server is a fake remote store.
type Server struct {
	mu        sync.Mutex
	srv       *httptest.Server
	jwtSecret []byte
	users     map[string]*authUser // keyed by email
	tables    map[string][]map[string]any
	failNext  map[string]int

	// RejectProjectInsert makes direct inserts into the projects table
	// fail with a row-level policy violation, forcing clients onto the
	// rpc fallback path.
	RejectProjectInsert bool

	// ProfilesUnavailable makes every access to the profiles table fail
	// as a missing relation, exercising soft-degrade paths.
	ProfilesUnavailable bool
}

// New starts a fake store. Callers must Close it.
func New() *Server {
	s := &Server{
		jwtSecret: []byte("storetest-secret"),
		users:     make(map[string]*authUser),
		failNext:  make(map[string]int),
		tables: map[string][]map[string]any{
			"projects":        {},
			"project_members": {},
			"invitations":     {},
			"tasks":           {},
			"profiles":        {},
		},
	}

	r := chi.NewRouter()
	r.Post("/auth/v1/token", s.handleToken)
	r.Post("/auth/v1/logout", s.handleLogout)
	r.Route("/rest/v1", func(r chi.Router) {
		r.Post("/rpc/{name}", s.handleRPC)
		r.Get("/{table}", s.handleSelect)
		r.Post("/{table}", s.handleInsert)
		r.Patch("/{table}", s.handleUpdate)
		r.Delete("/{table}", s.handleDelete)
	})

	s.srv = httptest.NewServer(r)
	return s
}

// URL returns the fake store's base URL.
func (s *Server) URL() string { return s.srv.URL }

// Close shuts the fake store down.
func (s *Server) Close() { s.srv.Close() }

// SeedUser registers an auth user with a profile row and returns its id.
func (s *Server) SeedUser(email, password string) string {
	id := s.seedAuthUser(email, password)
	s.Insert("profiles", map[string]any{"id": id, "email": email})
	return id
}

// SeedUserWithoutProfile registers an auth user with no profile row.
func (s *Server) SeedUserWithoutProfile(email, password string) string {
	return s.seedAuthUser(email, password)
}

func (s *Server) seedAuthUser(email, password string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(fmt.Sprintf("storetest: hash password: %v", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New().String()
	s.users[email] = &authUser{id: id, email: email, passwordHash: hash}
	return id
}

// Insert adds a row directly, assigning id and created_at when absent.
// Returns the row id.
func (s *Server) Insert(table string, row map[string]any) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(table, row)
}

func (s *Server) insertLocked(table string, row map[string]any) string {
	if _, ok := row["id"]; !ok {
		row["id"] = uuid.New().String()
	}
	if _, ok := row["created_at"]; !ok {
		row["created_at"] = time.Now().UTC().Format(time.RFC3339Nano)
	}
	s.tables[table] = append(s.tables[table], row)
	return row["id"].(string)
}

// Rows returns a copy of a table's rows for assertions.
func (s *Server) Rows(table string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]map[string]any, 0, len(s.tables[table]))
	for _, row := range s.tables[table] {
		cp := make(map[string]any, len(row))
		for k, v := range row {
			cp[k] = v
		}
		out = append(out, cp)
	}
	return out
}

// FailOnce makes the next request touching table fail with a 503.
func (s *Server) FailOnce(table string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext[table]++
}

func (s *Server) takeFailure(table string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext[table] > 0 {
		s.failNext[table]--
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeStoreError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"code": code, "message": message})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeStoreError(w, http.StatusBadRequest, "invalid_request", "malformed credentials")
		return
	}

	s.mu.Lock()
	user, ok := s.users[req.Email]
	s.mu.Unlock()

	if !ok || bcrypt.CompareHashAndPassword(user.passwordHash, []byte(req.Password)) != nil {
		writeStoreError(w, http.StatusUnauthorized, "invalid_grant", "invalid login credentials")
		return
	}

	claims := jwt.MapClaims{
		"sub":   user.id,
		"email": user.email,
		"exp":   time.Now().Add(time.Hour).Unix(),
		"iat":   time.Now().Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		writeStoreError(w, http.StatusInternalServerError, "", "sign token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
		"expires_in":   3600,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) gateTable(w http.ResponseWriter, table string) bool {
	if s.takeFailure(table) {
		writeStoreError(w, http.StatusServiceUnavailable, "", "service unavailable")
		return false
	}
	if table == "profiles" && s.ProfilesUnavailable {
		writeStoreError(w, http.StatusNotFound, "PGRST205", "could not find the table 'profiles' in the schema cache")
		return false
	}
	s.mu.Lock()
	_, ok := s.tables[table]
	s.mu.Unlock()
	if !ok {
		writeStoreError(w, http.StatusNotFound, "PGRST205", fmt.Sprintf("could not find the table '%s' in the schema cache", table))
		return false
	}
	return true
}

type rowFilter struct {
	column string
	value  string
}

func parseQuery(r *http.Request) (filters []rowFilter, orderCol string, orderDesc bool, limit int) {
	for key, vals := range r.URL.Query() {
		if len(vals) == 0 {
			continue
		}
		switch key {
		case "order":
			parts := strings.SplitN(vals[0], ".", 2)
			orderCol = parts[0]
			orderDesc = len(parts) == 2 && parts[1] == "desc"
		case "limit":
			limit, _ = strconv.Atoi(vals[0])
		case "select":
			// column projection is not emulated
		default:
			if v, ok := strings.CutPrefix(vals[0], "eq."); ok {
				filters = append(filters, rowFilter{column: key, value: v})
			}
		}
	}
	return filters, orderCol, orderDesc, limit
}

func matches(row map[string]any, filters []rowFilter) bool {
	for _, f := range filters {
		if fmt.Sprint(row[f.column]) != f.value {
			return false
		}
	}
	return true
}

func (s *Server) selectRows(table string, filters []rowFilter, orderCol string, orderDesc bool, limit int) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []map[string]any{}
	for _, row := range s.tables[table] {
		if matches(row, filters) {
			out = append(out, row)
		}
	}

	if orderCol != "" {
		sort.SliceStable(out, func(i, j int) bool {
			a, b := fmt.Sprint(out[i][orderCol]), fmt.Sprint(out[j][orderCol])
			if orderDesc {
				return a > b
			}
			return a < b
		})
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	if !s.gateTable(w, table) {
		return
	}

	filters, orderCol, orderDesc, limit := parseQuery(r)
	writeJSON(w, http.StatusOK, s.selectRows(table, filters, orderCol, orderDesc, limit))
}

func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	if !s.gateTable(w, table) {
		return
	}

	if table == "projects" && s.RejectProjectInsert {
		writeStoreError(w, http.StatusForbidden, "42501", `new row violates row-level security policy for table "projects"`)
		return
	}

	var row map[string]any
	if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
		writeStoreError(w, http.StatusBadRequest, "", "malformed row")
		return
	}

	if table == "project_members" {
		for _, existing := range s.Rows("project_members") {
			if fmt.Sprint(existing["project_id"]) == fmt.Sprint(row["project_id"]) &&
				fmt.Sprint(existing["user_id"]) == fmt.Sprint(row["user_id"]) {
				writeStoreError(w, http.StatusConflict, "23505",
					`duplicate key value violates unique constraint "project_members_project_id_user_id_key"`)
				return
			}
		}
	}

	s.Insert(table, row)
	writeJSON(w, http.StatusCreated, []map[string]any{row})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	if !s.gateTable(w, table) {
		return
	}

	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeStoreError(w, http.StatusBadRequest, "", "malformed patch")
		return
	}

	filters, _, _, _ := parseQuery(r)

	s.mu.Lock()
	updated := []map[string]any{}
	for _, row := range s.tables[table] {
		if matches(row, filters) {
			for k, v := range patch {
				row[k] = v
			}
			updated = append(updated, row)
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	if !s.gateTable(w, table) {
		return
	}

	filters, _, _, _ := parseQuery(r)

	s.mu.Lock()
	kept := s.tables[table][:0]
	deleted := []map[string]any{}
	for _, row := range s.tables[table] {
		if matches(row, filters) {
			deleted = append(deleted, row)
		} else {
			kept = append(kept, row)
		}
	}
	s.tables[table] = kept

	// The store owns cascading cleanup for project deletion.
	if table == "projects" {
		for _, row := range deleted {
			s.cascadeProjectLocked(fmt.Sprint(row["id"]))
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, deleted)
}

func (s *Server) cascadeProjectLocked(projectID string) {
	for _, table := range []string{"tasks", "project_members", "invitations"} {
		kept := s.tables[table][:0]
		for _, row := range s.tables[table] {
			if fmt.Sprint(row["project_id"]) != projectID {
				kept = append(kept, row)
			}
		}
		s.tables[table] = kept
	}
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	switch name {
	case "create_project_direct":
		var args struct {
			ProjectName        string `json:"project_name"`
			ProjectDescription string `json:"project_description"`
			CreatorID          string `json:"creator_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
			writeStoreError(w, http.StatusBadRequest, "", "malformed arguments")
			return
		}

		s.mu.Lock()
		project := map[string]any{
			"name":        args.ProjectName,
			"description": args.ProjectDescription,
			"created_by":  args.CreatorID,
		}
		id := s.insertLocked("projects", project)
		s.insertLocked("project_members", map[string]any{
			"project_id": id,
			"user_id":    args.CreatorID,
			"role":       "owner",
		})
		s.mu.Unlock()

		writeJSON(w, http.StatusOK, project)

	default:
		writeStoreError(w, http.StatusNotFound, "PGRST202", fmt.Sprintf("could not find the function '%s'", name))
	}
}
