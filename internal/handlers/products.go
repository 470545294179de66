package handlers

import (
	"net/http"

	"github.com/xelth-com/eckmrpgo/internal/catalog"
	"github.com/xelth-com/eckmrpgo/internal/models"
)

// listProducts returns products, filtered by ?search= on code or name
func (r *Router) listProducts(w http.ResponseWriter, req *http.Request) {
	products, err := r.deps.Catalog.ListProducts(req.Context(), req.URL.Query().Get("search"), queryLimit(req))
	if err != nil {
		r.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (r *Router) getProduct(w http.ResponseWriter, req *http.Request) {
	product, err := r.deps.Catalog.GetProduct(req.Context(), pathID(req))
	if err != nil {
		r.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

// createProduct stores a local product. ERP products arrive through sync.
func (r *Router) createProduct(w http.ResponseWriter, req *http.Request) {
	var product models.ProductProduct
	if err := decode(req, &product); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	product.ID = 0
	product.ErpID = nil
	product.Boms = nil
	if err := r.deps.Catalog.CreateProduct(req.Context(), &product); err != nil {
		r.fail(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, product)
}

func (r *Router) copyProduct(w http.ResponseWriter, req *http.Request) {
	product, err := r.deps.Catalog.CopyProduct(req.Context(), pathID(req))
	if err != nil {
		r.fail(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, product)
}

func (r *Router) listBindings(w http.ResponseWriter, req *http.Request) {
	bindings, err := r.deps.Catalog.ListBindings(req.Context(), pathID(req))
	if err != nil {
		r.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, bindings)
}

func (r *Router) createBindings(w http.ResponseWriter, req *http.Request) {
	drafts, err := decodeBatch[catalog.BindingDraft](req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	bindings, err := r.deps.Catalog.CreateBindings(req.Context(), drafts)
	if err != nil {
		r.fail(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, bindings)
}

func (r *Router) updateBinding(w http.ResponseWriter, req *http.Request) {
	var changes catalog.BindingChanges
	if err := decode(req, &changes); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	binding, err := r.deps.Catalog.UpdateBinding(req.Context(), pathID(req), changes)
	if err != nil {
		r.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, binding)
}

func (r *Router) deleteBinding(w http.ResponseWriter, req *http.Request) {
	if err := r.deps.Catalog.DeleteBinding(req.Context(), pathID(req)); err != nil {
		r.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
