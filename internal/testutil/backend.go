package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/stockconsole/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// RecordedRequest is one call received by the fake backend.
type RecordedRequest struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	ContentType   string
	Body          []byte
}

// Params parses the recorded query string.
func (r RecordedRequest) Params() url.Values {
	v, _ := url.ParseQuery(r.Query)
	return v
}

type backendUser struct {
	password string
	profile  models.UserProfile
}

type scriptedFailure struct {
	status  int
	message string
}

// Backend is an in-process fake of the inventory REST backend. It issues
// signed JWT access tokens, honours the refresh contract, and serves the
// product and category endpoints from memory.
type Backend struct {
	Server *httptest.Server

	mu           sync.Mutex
	key          []byte
	users        map[string]backendUser
	access       map[string]string // token -> email
	refresh      map[string]string // token -> email
	products     []models.Product
	categories   []models.ProductCategory
	orgs         []models.Organization
	nextID       int64
	requests     []RecordedRequest
	failures     map[string][]scriptedFailure
	listShape    string
	accessTTL    time.Duration
	refreshDelay time.Duration

	// RotateRefresh invalidates a refresh token once it has been used.
	RotateRefresh bool
	// FailRefresh makes /account/refresh answer 401.
	FailRefresh bool
	// RefreshWithoutToken makes /account/refresh answer 200 with no tokens.
	RefreshWithoutToken bool
}

// NewBackend starts a fake backend that is closed when the test ends.
func NewBackend(t *testing.T) *Backend {
	t.Helper()
	b := &Backend{
		key:           []byte("fake-backend-signing-key"),
		users:         make(map[string]backendUser),
		access:        make(map[string]string),
		refresh:       make(map[string]string),
		failures:      make(map[string][]scriptedFailure),
		listShape:     "paged",
		accessTTL:     15 * time.Minute,
		RotateRefresh: true,
		nextID:        1,
	}
	b.Server = httptest.NewServer(b.routes())
	t.Cleanup(b.Server.Close)
	return b
}

// URL is the backend's base URL.
func (b *Backend) URL() string { return b.Server.URL }

func (b *Backend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(b.record)
	r.Use(b.scripted)

	r.Post("/account/login", b.handleLogin)
	r.Post("/account/refresh", b.handleRefresh)
	r.Post("/account/register", b.handleRegister)
	r.Post("/account/register-with-organization", b.handleRegisterWithOrg)
	r.Post("/account/forgot-password", b.handleForgot)

	r.Group(func(pr chi.Router) {
		pr.Use(b.requireToken)
		pr.Post("/organization", b.handleCreateOrg)
		pr.Get("/product", b.handleListProducts)
		pr.Post("/product", b.handleCreateProduct)
		pr.Put("/product", b.handleUpdateProduct)
		pr.Delete("/product", b.handleDeleteProduct)
		pr.Get("/product-category", b.handleListCategories)
	})
	return r
}

/*─────────────────────────────────────────────────────────────────────────────*
| Test controls                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

// AddUser registers a user that can log in.
func (b *Backend) AddUser(email, password string, profile models.UserProfile) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if profile.ID == 0 {
		profile.ID = b.nextID
		b.nextID++
	}
	profile.Email = email
	b.users[strings.ToLower(email)] = backendUser{password: password, profile: profile}
}

// IssueTokens mints a token pair for email as a login would.
func (b *Backend) IssueTokens(email string) (string, string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issueLocked(email)
}

// ExpireAccessTokens revokes every access token, so the next call gets 401.
func (b *Backend) ExpireAccessTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.access = make(map[string]string)
}

// SetListShape selects how list endpoints wrap items: "paged" (default),
// "pascal", "bare", "data", "items", or "count" (total count and page size
// without totalPages or navigation flags).
func (b *Backend) SetListShape(shape string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listShape = shape
}

// SetRefreshDelay slows /account/refresh so concurrent callers overlap.
func (b *Backend) SetRefreshDelay(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshDelay = d
}

// FailNext makes the next call to method+path answer status with message.
// An empty message sends an empty JSON object.
func (b *Backend) FailNext(method, path string, status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	k := method + " " + path
	b.failures[k] = append(b.failures[k], scriptedFailure{status: status, message: message})
}

// SeedProducts adds n products named Product 1..n.
func (b *Backend) SeedProducts(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now().UTC()
	for i := 0; i < n; i++ {
		id := b.nextID
		b.nextID++
		b.products = append(b.products, models.Product{
			ID:          id,
			Code:        fmt.Sprintf("P%03d", id),
			Name:        fmt.Sprintf("Product %d", id),
			Price:       float64(id),
			Cost:        float64(id) / 2,
			IsAvailable: true,
			CreatedAt:   models.Timestamp{Time: now},
			ModifiedAt:  models.Timestamp{Time: now},
		})
	}
}

// SeedCategories adds categories with the given names.
func (b *Backend) SeedCategories(names ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, n := range names {
		b.categories = append(b.categories, models.ProductCategory{ID: b.nextID, Name: n})
		b.nextID++
	}
}

// Products returns a copy of the stored products.
func (b *Backend) Products() []models.Product {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Product(nil), b.products...)
}

// Organizations returns a copy of the created organizations.
func (b *Backend) Organizations() []models.Organization {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Organization(nil), b.orgs...)
}

// Calls counts received requests for method and path.
func (b *Backend) Calls(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, r := range b.requests {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// TotalCalls counts every received request.
func (b *Backend) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

// Requests returns the recorded requests in arrival order.
func (b *Backend) Requests() []RecordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]RecordedRequest(nil), b.requests...)
}

// LastRequest returns the most recent request for method and path.
func (b *Backend) LastRequest(method, path string) (RecordedRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.requests) - 1; i >= 0; i-- {
		if b.requests[i].Method == method && b.requests[i].Path == path {
			return b.requests[i], true
		}
	}
	return RecordedRequest{}, false
}

/*─────────────────────────────────────────────────────────────────────────────*
| Middleware                                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(strings.NewReader(string(body)))
		b.mu.Lock()
		b.requests = append(b.requests, RecordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.RawQuery,
			Authorization: r.Header.Get("Authorization"),
			ContentType:   r.Header.Get("Content-Type"),
			Body:          body,
		})
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) scripted(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		k := r.Method + " " + r.URL.Path
		b.mu.Lock()
		queue := b.failures[k]
		var f *scriptedFailure
		if len(queue) > 0 {
			f = &queue[0]
			b.failures[k] = queue[1:]
		}
		b.mu.Unlock()
		if f != nil {
			if f.message == "" {
				writeJSON(w, f.status, map[string]any{})
			} else {
				writeJSON(w, f.status, map[string]any{"message": f.message, "success": false})
			}
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		b.mu.Lock()
		_, ok := b.access[token]
		b.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Token inválido o expirado."})
			return
		}
		next.ServeHTTP(w, r)
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| Account endpoints                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

func (b *Backend) issueLocked(email string) (string, string) {
	claims := jwt.MapClaims{
		"sub": email,
		"jti": uuid.NewString(),
		"exp": time.Now().Add(b.accessTTL).Unix(),
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.key)
	if err != nil {
		panic(err)
	}
	refresh := uuid.NewString()
	b.access[access] = email
	b.refresh[refresh] = email
	return access, refresh
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Solicitud inválida."})
		return
	}

	b.mu.Lock()
	u, ok := b.users[strings.ToLower(in.Email)]
	if !ok || u.password != in.Password {
		b.mu.Unlock()
		writeJSON(w, http.StatusUnauthorized, map[string]any{})
		return
	}
	access, refresh := b.issueLocked(strings.ToLower(in.Email))
	b.mu.Unlock()

	w.Header().Set("Authorization", "Bearer "+access)
	w.Header().Set("RefreshToken", refresh)
	writeJSON(w, http.StatusOK, map[string]any{"data": u.profile, "success": true})
}

func (b *Backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var in struct {
		RefreshToken string `json:"refreshToken"`
	}
	_ = json.NewDecoder(r.Body).Decode(&in)

	b.mu.Lock()
	delay := b.refreshDelay
	b.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.FailRefresh {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Refresh token inválido."})
		return
	}
	if b.RefreshWithoutToken {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
		return
	}
	email, ok := b.refresh[in.RefreshToken]
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Refresh token inválido."})
		return
	}
	if b.RotateRefresh {
		delete(b.refresh, in.RefreshToken)
	}
	access, refresh := b.issueLocked(email)
	w.Header().Set("Authorization", "Bearer "+access)
	w.Header().Set("RefreshToken", refresh)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in struct {
		FullName string `json:"FullName"`
		Email    string `json:"Email"`
		Password string `json:"Password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Solicitud inválida."})
		return
	}
	if !b.addIfAbsent(in.Email, in.Password, in.FullName, nil) {
		writeJSON(w, http.StatusConflict, map[string]any{"message": "El email ya está registrado."})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (b *Backend) handleRegisterWithOrg(w http.ResponseWriter, r *http.Request) {
	var in struct {
		OrganizationName string `json:"organizationName"`
		OrganizationCode string `json:"organizationCode"`
		FullName         string `json:"fullName"`
		Email            string `json:"email"`
		Password         string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Solicitud inválida."})
		return
	}

	b.mu.Lock()
	org := models.Organization{ID: b.nextID, Name: in.OrganizationName, Code: in.OrganizationCode}
	b.nextID++
	b.orgs = append(b.orgs, org)
	b.mu.Unlock()

	if !b.addIfAbsent(in.Email, in.Password, in.FullName, &org) {
		writeJSON(w, http.StatusConflict, map[string]any{"message": "El email ya está registrado."})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (b *Backend) addIfAbsent(email, password, fullName string, org *models.Organization) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	k := strings.ToLower(email)
	if _, exists := b.users[k]; exists {
		return false
	}
	p := models.UserProfile{ID: b.nextID, FullName: fullName, Email: email}
	b.nextID++
	if org != nil {
		id := org.ID
		p.OrganizationID = &id
		p.Organization = org
	}
	b.users[k] = backendUser{password: password, profile: p}
	return true
}

func (b *Backend) handleForgot(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Solicitud inválida."})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (b *Backend) handleCreateOrg(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name string `json:"Name"`
		Code string `json:"Code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Solicitud inválida."})
		return
	}
	b.mu.Lock()
	org := models.Organization{ID: b.nextID, Name: in.Name, Code: in.Code}
	b.nextID++
	b.orgs = append(b.orgs, org)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"data": org, "success": true})
}

/*─────────────────────────────────────────────────────────────────────────────*
| Product endpoints                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

func (b *Backend) handleListProducts(w http.ResponseWriter, r *http.Request) {
	page, perPage := pageParams(r, 10)

	b.mu.Lock()
	items := append([]models.Product(nil), b.products...)
	shape := b.listShape
	b.mu.Unlock()

	if r.URL.Query().Get("sortOrder") != "asc" {
		sort.SliceStable(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	}
	writeList(w, shape, items, page, perPage)
}

func (b *Backend) handleListCategories(w http.ResponseWriter, r *http.Request) {
	page, perPage := pageParams(r, 100)
	b.mu.Lock()
	items := append([]models.ProductCategory(nil), b.categories...)
	shape := b.listShape
	b.mu.Unlock()
	writeList(w, shape, items, page, perPage)
}

func (b *Backend) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var in models.ProductPayload
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Solicitud inválida."})
		return
	}
	b.mu.Lock()
	now := time.Now().UTC()
	p := productFromPayload(b.nextID, in)
	p.CreatedAt = models.Timestamp{Time: now}
	p.ModifiedAt = p.CreatedAt
	b.nextID++
	b.products = append(b.products, p)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"data": p, "success": true})
}

func (b *Backend) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Id inválido."})
		return
	}
	var in models.ProductPayload
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Solicitud inválida."})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.products {
		if b.products[i].ID == id {
			created := b.products[i].CreatedAt
			b.products[i] = productFromPayload(id, in)
			b.products[i].CreatedAt = created
			b.products[i].ModifiedAt = models.Timestamp{Time: time.Now().UTC()}
			writeJSON(w, http.StatusOK, map[string]any{"data": b.products[i], "success": true})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"message": "Producto no encontrado."})
}

func (b *Backend) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Id inválido."})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.products {
		if b.products[i].ID == id {
			b.products = append(b.products[:i], b.products[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"message": "Producto no encontrado."})
}

func productFromPayload(id int64, in models.ProductPayload) models.Product {
	return models.Product{
		ID:          id,
		Code:        in.Code,
		Name:        in.Name,
		Description: in.Description,
		CategoryID:  in.CategoryID,
		Price:       in.Price,
		Cost:        in.Cost,
		ImageURL:    in.ImageURL,
		IsAvailable: in.IsAvailable,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| helpers                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func pageParams(r *http.Request, defPerPage int) (int, int) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	perPage, err := strconv.Atoi(r.URL.Query().Get("perPage"))
	if err != nil || perPage < 1 {
		perPage = defPerPage
	}
	return page, perPage
}

func writeList[T any](w http.ResponseWriter, shape string, all []T, page, perPage int) {
	total := len(all)
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}
	items := all[start:end]
	if items == nil {
		items = []T{}
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	if totalPages < 1 {
		totalPages = 1
	}

	switch shape {
	case "bare":
		writeJSON(w, http.StatusOK, items)
	case "data":
		writeJSON(w, http.StatusOK, map[string]any{"data": items})
	case "items":
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "items": items, "currentPage": page})
	case "count":
		writeJSON(w, http.StatusOK, map[string]any{
			"data":        items,
			"currentPage": page,
			"totalCount":  total,
			"pageSize":    perPage,
		})
	case "pascal":
		writeJSON(w, http.StatusOK, map[string]any{
			"Data":            items,
			"CurrentPage":     page,
			"TotalPages":      totalPages,
			"TotalCount":      total,
			"PageSize":        perPage,
			"HasPreviousPage": page > 1,
			"HasNextPage":     page < totalPages,
		})
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"data":            items,
			"currentPage":     page,
			"totalPages":      totalPages,
			"totalCount":      total,
			"pageSize":        perPage,
			"hasPreviousPage": page > 1,
			"hasNextPage":     page < totalPages,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
