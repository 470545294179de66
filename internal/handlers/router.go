package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/xelth-com/eckmrpgo/internal/buildinfo"
	"github.com/xelth-com/eckmrpgo/internal/catalog"
	"github.com/xelth-com/eckmrpgo/internal/manufacturing"
	"github.com/xelth-com/eckmrpgo/internal/middleware"
	"github.com/xelth-com/eckmrpgo/internal/models"
	"github.com/xelth-com/eckmrpgo/internal/process"
	"github.com/xelth-com/eckmrpgo/internal/services/erp"
	"github.com/xelth-com/eckmrpgo/internal/websocket"
)

// Deps are the services the API exposes. Sync and Hub are optional.
type Deps struct {
	Processes     *process.Service
	Catalog       *catalog.Service
	Manufacturing *manufacturing.Service
	Sync          *erp.SyncService
	Hub           *websocket.Hub
	Logger        *zap.Logger

	// JWTSecret enables bearer auth on /api when set.
	JWTSecret string
	// PublicURL is encoded in process sheet QR codes.
	PublicURL string
	Version   string
}

// Router wraps the mux router and the services
type Router struct {
	*mux.Router
	deps   Deps
	logger *zap.Logger
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(deps Deps) *Router {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	r := &Router{
		Router: mux.NewRouter(),
		deps:   deps,
		logger: deps.Logger.Named("http"),
	}
	r.Use(middleware.RequestID, middleware.Logger(r.logger), middleware.CORS)

	r.HandleFunc("/health", r.healthCheck).Methods("GET")
	if deps.Hub != nil {
		r.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
			websocket.ServeWs(deps.Hub, w, req)
		})
	}

	api := r.PathPrefix("/api").Subrouter()
	if deps.JWTSecret != "" {
		api.Use(middleware.Auth(deps.JWTSecret))
	} else {
		r.logger.Warn("JWT_SECRET not set, API runs without authentication")
	}

	// Production processes
	api.HandleFunc("/processes", r.listProcesses).Methods("GET")
	api.HandleFunc("/processes", r.createProcesses).Methods("POST")
	api.HandleFunc("/processes", r.writeProcesses).Methods("PATCH")
	api.HandleFunc("/processes/{id:[0-9]+}", r.getProcess).Methods("GET")
	api.HandleFunc("/processes/{id:[0-9]+}", r.updateProcess).Methods("PATCH")
	api.HandleFunc("/processes/{id:[0-9]+}", r.deleteProcess).Methods("DELETE")
	api.HandleFunc("/processes/{id:[0-9]+}/copy", r.copyProcess).Methods("POST")
	api.HandleFunc("/processes/{id:[0-9]+}/factor", r.processFactor).Methods("GET")
	api.HandleFunc("/processes/{id:[0-9]+}/inputs", r.processInputs).Methods("GET")
	api.HandleFunc("/processes/{id:[0-9]+}/outputs", r.processOutputs).Methods("GET")
	api.HandleFunc("/processes/{id:[0-9]+}/output-products", r.processOutputProducts).Methods("GET")
	api.HandleFunc("/processes/{id:[0-9]+}/operations", r.processOperations).Methods("GET")
	api.HandleFunc("/processes/{id:[0-9]+}/sheet.pdf", r.processSheet).Methods("GET")

	// Steps and their BOM lines and operations
	api.HandleFunc("/steps", r.createSteps).Methods("POST")
	api.HandleFunc("/steps/{id:[0-9]+}", r.getStep).Methods("GET")
	api.HandleFunc("/steps/{id:[0-9]+}", r.deleteStep).Methods("DELETE")
	api.HandleFunc("/steps/{id:[0-9]+}/copy", r.copyStep).Methods("POST")
	api.HandleFunc("/bom-inputs", r.createInputs).Methods("POST")
	api.HandleFunc("/bom-outputs", r.createOutputs).Methods("POST")
	api.HandleFunc("/route-operations", r.createOperations).Methods("POST")

	// Products and their manufacturing bindings
	api.HandleFunc("/products", r.listProducts).Methods("GET")
	api.HandleFunc("/products", r.createProduct).Methods("POST")
	api.HandleFunc("/products/{id:[0-9]+}", r.getProduct).Methods("GET")
	api.HandleFunc("/products/{id:[0-9]+}/copy", r.copyProduct).Methods("POST")
	api.HandleFunc("/products/{id:[0-9]+}/boms", r.listBindings).Methods("GET")
	api.HandleFunc("/product-boms", r.createBindings).Methods("POST")
	api.HandleFunc("/product-boms/{id:[0-9]+}", r.updateBinding).Methods("PATCH")
	api.HandleFunc("/product-boms/{id:[0-9]+}", r.deleteBinding).Methods("DELETE")

	// Production orders
	api.HandleFunc("/productions", r.listProductions).Methods("GET")
	api.HandleFunc("/productions", r.createProduction).Methods("POST")
	api.HandleFunc("/productions/request", r.requestProduction).Methods("POST")
	api.HandleFunc("/productions/{id:[0-9]+}", r.getProduction).Methods("GET")
	api.HandleFunc("/productions/{id:[0-9]+}/process", r.setProductionProcess).Methods("PUT")
	api.HandleFunc("/productions/{id:[0-9]+}/quantity", r.setProductionQuantity).Methods("PUT")
	api.HandleFunc("/productions/{id:[0-9]+}/bom", r.setProductionBOM).Methods("PUT")
	api.HandleFunc("/productions/{id:[0-9]+}/route", r.setProductionRoute).Methods("PUT")

	if deps.Sync != nil {
		api.HandleFunc("/erp/sync", r.runSync).Methods("POST")
	}

	// Preflight requests are answered by the CORS middleware.
	r.PathPrefix("/").Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, req *http.Request) {})

	return r
}

// ServeHTTP lower-cases the path before mux matches a route.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	middleware.CaseInsensitive(r.Router).ServeHTTP(w, req)
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	status := map[string]interface{}{
		"status":     "ok",
		"version":    r.deps.Version,
		"started_at": buildinfo.StartTime,
	}
	if r.deps.Hub != nil {
		status["ws_clients"] = r.deps.Hub.ClientCount()
	}
	respondJSON(w, http.StatusOK, status)
}

func (r *Router) runSync(w http.ResponseWriter, req *http.Request) {
	res, err := r.deps.Sync.RunOnce(req.Context())
	if err != nil {
		r.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

var (
	notFoundErrors = []error{
		process.ErrNotFound,
		process.ErrStepNotFound,
		catalog.ErrProductNotFound,
		catalog.ErrBindingNotFound,
		manufacturing.ErrProductionNotFound,
	}
	conflictErrors = []error{
		models.ErrBOMInUse,
		models.ErrRouteInUse,
		process.ErrRouteLocked,
		manufacturing.ErrProcessReadonly,
		manufacturing.ErrBOMReadonly,
		manufacturing.ErrRouteReadonly,
	}
	invalidErrors = []error{
		process.ErrNameRequired,
		process.ErrUomRequired,
		process.ErrProductRequired,
		process.ErrBOMRequired,
		process.ErrRouteRequired,
		process.ErrFactorNotFound,
		models.ErrRouteMismatch,
		models.ErrUomCategoryMismatch,
		catalog.ErrBOMRequired,
		catalog.ErrProcessDoesNotProduce,
		manufacturing.ErrProductRequired,
		manufacturing.ErrQuantityRequired,
		manufacturing.ErrInvalidState,
		manufacturing.ErrProcessDoesNotProduce,
		manufacturing.ErrBOMDoesNotProduce,
	}
)

func statusFor(err error) int {
	is := func(targets []error) bool {
		for _, target := range targets {
			if errors.Is(err, target) {
				return true
			}
		}
		return false
	}
	switch {
	case is(notFoundErrors):
		return http.StatusNotFound
	case is(conflictErrors):
		return http.StatusConflict
	case is(invalidErrors):
		return http.StatusUnprocessableEntity
	case errors.Is(err, erp.ErrAuthFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// fail maps a service error to its HTTP status. Unexpected errors are
// logged and hidden from the client.
func (r *Router) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		r.logger.Error("Request failed", zap.Error(err))
		respondError(w, status, "Internal server error")
		return
	}
	respondError(w, status, err.Error())
}

func pathID(req *http.Request) uint {
	// Routes only match digits.
	id, _ := strconv.ParseUint(mux.Vars(req)["id"], 10, 64)
	return uint(id)
}

// queryID parses an optional numeric query parameter.
func queryID(req *http.Request, name string) (uint, bool, error) {
	raw := req.URL.Query().Get(name)
	if raw == "" {
		return 0, false, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return uint(id), true, nil
}

func queryLimit(req *http.Request) int {
	limit, err := strconv.Atoi(req.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return 0
	}
	return limit
}

func decode(req *http.Request, v interface{}) error {
	dec := json.NewDecoder(req.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// decodeBatch accepts either one object or an array of objects.
func decodeBatch[T any](req *http.Request) ([]T, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(req.Body).Decode(&raw); err != nil {
		return nil, err
	}
	if strings.HasPrefix(strings.TrimSpace(string(raw)), "[") {
		var items []T
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
		return items, nil
	}
	var item T
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, err
	}
	return []T{item}, nil
}
