package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/xelth-com/eckmrpgo/internal/manufacturing"
	"github.com/xelth-com/eckmrpgo/internal/models"
)

// listProductions returns production orders, newest first, by ?state=
func (r *Router) listProductions(w http.ResponseWriter, req *http.Request) {
	productions, err := r.deps.Manufacturing.List(req.Context(), req.URL.Query().Get("state"), queryLimit(req))
	if err != nil {
		r.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, productions)
}

func (r *Router) getProduction(w http.ResponseWriter, req *http.Request) {
	prod, err := r.deps.Manufacturing.Get(req.Context(), pathID(req))
	if err != nil {
		r.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, prod)
}

func (r *Router) createProduction(w http.ResponseWriter, req *http.Request) {
	var draft manufacturing.ProductionDraft
	if err := decode(req, &draft); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	r.respondProduction(w, http.StatusCreated)(r.deps.Manufacturing.Create(req.Context(), draft))
}

// requestProduction creates a production request the way stock supply does.
func (r *Router) requestProduction(w http.ResponseWriter, req *http.Request) {
	var body manufacturing.Request
	if err := decode(req, &body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	r.respondProduction(w, http.StatusCreated)(r.deps.Manufacturing.ComputeRequest(req.Context(), body))
}

// setProductionProcess takes {"process_id": n}; null clears the process.
func (r *Router) setProductionProcess(w http.ResponseWriter, req *http.Request) {
	var body struct {
		ProcessID *uint `json:"process_id"`
	}
	if err := decode(req, &body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	r.respondProduction(w, http.StatusOK)(r.deps.Manufacturing.SetProcess(req.Context(), pathID(req), body.ProcessID))
}

func (r *Router) setProductionQuantity(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Quantity decimal.Decimal `json:"quantity"`
	}
	if err := decode(req, &body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	r.respondProduction(w, http.StatusOK)(r.deps.Manufacturing.SetQuantity(req.Context(), pathID(req), body.Quantity))
}

func (r *Router) setProductionBOM(w http.ResponseWriter, req *http.Request) {
	var body struct {
		BomID *uint `json:"bom_id"`
	}
	if err := decode(req, &body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	r.respondProduction(w, http.StatusOK)(r.deps.Manufacturing.SetBOM(req.Context(), pathID(req), body.BomID))
}

func (r *Router) setProductionRoute(w http.ResponseWriter, req *http.Request) {
	var body struct {
		RouteID *uint `json:"route_id"`
	}
	if err := decode(req, &body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	r.respondProduction(w, http.StatusOK)(r.deps.Manufacturing.SetRoute(req.Context(), pathID(req), body.RouteID))
}

func (r *Router) respondProduction(w http.ResponseWriter, status int) func(*models.Production, error) {
	return func(prod *models.Production, err error) {
		if err != nil {
			r.fail(w, err)
			return
		}
		respondJSON(w, status, prod)
	}
}
