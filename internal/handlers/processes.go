package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/xelth-com/eckmrpgo/internal/models"
	"github.com/xelth-com/eckmrpgo/internal/process"
	"github.com/xelth-com/eckmrpgo/internal/services/printer"
)

// listProcesses returns active processes; ?inactive=true includes the
// others and ?product_id= keeps those producing the product.
func (r *Router) listProcesses(w http.ResponseWriter, req *http.Request) {
	productID, byProduct, err := queryID(req, "product_id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid product_id")
		return
	}

	var processes []models.Process
	if byProduct {
		processes, err = r.deps.Processes.SearchByOutputProduct(req.Context(), productID)
	} else {
		inactive, _ := strconv.ParseBool(req.URL.Query().Get("inactive"))
		processes, err = r.deps.Processes.List(req.Context(), inactive)
	}
	if err != nil {
		r.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, processes)
}

func (r *Router) getProcess(w http.ResponseWriter, req *http.Request) {
	p, err := r.deps.Processes.Get(req.Context(), pathID(req))
	if err != nil {
		r.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// createProcesses accepts one draft or an array created in one batch.
func (r *Router) createProcesses(w http.ResponseWriter, req *http.Request) {
	drafts, err := decodeBatch[process.ProcessDraft](req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	created, err := r.deps.Processes.Create(req.Context(), drafts)
	if err != nil {
		r.fail(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

type writeRequest struct {
	IDs     []uint          `json:"ids"`
	Changes process.Changes `json:"changes"`
}

func (r *Router) writeProcesses(w http.ResponseWriter, req *http.Request) {
	var body writeRequest
	if err := decode(req, &body); err != nil || len(body.IDs) == 0 {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	updated, err := r.deps.Processes.Write(req.Context(), body.IDs, body.Changes)
	if err != nil {
		r.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (r *Router) updateProcess(w http.ResponseWriter, req *http.Request) {
	var changes process.Changes
	if err := decode(req, &changes); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	id := pathID(req)
	updated, err := r.deps.Processes.Write(req.Context(), []uint{id}, changes)
	if err != nil {
		r.fail(w, err)
		return
	}
	if len(updated) == 0 {
		r.fail(w, fmt.Errorf("process %d: %w", id, process.ErrNotFound))
		return
	}
	respondJSON(w, http.StatusOK, updated[0])
}

func (r *Router) deleteProcess(w http.ResponseWriter, req *http.Request) {
	id := pathID(req)
	if _, err := r.deps.Processes.Get(req.Context(), id); err != nil {
		r.fail(w, err)
		return
	}
	if err := r.deps.Processes.Delete(req.Context(), []uint{id}); err != nil {
		r.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) copyProcess(w http.ResponseWriter, req *http.Request) {
	copies, err := r.deps.Processes.Copy(req.Context(), []uint{pathID(req)})
	if err != nil {
		r.fail(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, copies[0])
}

// processFactor answers GET .../factor?product_id=&quantity=&uom_id=
func (r *Router) processFactor(w http.ResponseWriter, req *http.Request) {
	productID, ok, err := queryID(req, "product_id")
	if err != nil || !ok {
		respondError(w, http.StatusBadRequest, "product_id is required")
		return
	}
	uomID, ok, err := queryID(req, "uom_id")
	if err != nil || !ok {
		respondError(w, http.StatusBadRequest, "uom_id is required")
		return
	}
	quantity, err := decimal.NewFromString(req.URL.Query().Get("quantity"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid quantity")
		return
	}

	factor, err := r.deps.Processes.ComputeFactor(req.Context(), pathID(req), productID, quantity, uomID)
	if err != nil {
		r.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]decimal.Decimal{"factor": factor})
}

func (r *Router) processInputs(w http.ResponseWriter, req *http.Request) {
	inputs, err := r.deps.Processes.Inputs(req.Context(), pathID(req))
	if err != nil {
		r.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, inputs)
}

func (r *Router) processOutputs(w http.ResponseWriter, req *http.Request) {
	outputs, err := r.deps.Processes.Outputs(req.Context(), pathID(req))
	if err != nil {
		r.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, outputs)
}

func (r *Router) processOutputProducts(w http.ResponseWriter, req *http.Request) {
	ids, err := r.deps.Processes.OutputProducts(req.Context(), pathID(req))
	if err != nil {
		r.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ids)
}

func (r *Router) processOperations(w http.ResponseWriter, req *http.Request) {
	ops, err := r.deps.Processes.Operations(req.Context(), pathID(req))
	if err != nil {
		r.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ops)
}

// processSheet renders the routing sheet PDF.
func (r *Router) processSheet(w http.ResponseWriter, req *http.Request) {
	p, err := r.deps.Processes.Get(req.Context(), pathID(req))
	if err != nil {
		r.fail(w, err)
		return
	}
	pdfBytes, err := printer.GenerateProcessSheet(p, printer.SheetOptions{BaseURL: r.deps.PublicURL})
	if err != nil {
		r.fail(w, fmt.Errorf("generate sheet for process %d: %w", p.ID, err))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=\"process_%d.pdf\"", p.ID))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdfBytes)))
	w.Write(pdfBytes)
}

func (r *Router) createSteps(w http.ResponseWriter, req *http.Request) {
	drafts, err := decodeBatch[process.StepDraft](req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	steps, err := r.deps.Processes.CreateSteps(req.Context(), drafts)
	if err != nil {
		r.fail(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, steps)
}

func (r *Router) getStep(w http.ResponseWriter, req *http.Request) {
	step, err := r.deps.Processes.GetStep(req.Context(), pathID(req))
	if err != nil {
		r.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, step)
}

func (r *Router) deleteStep(w http.ResponseWriter, req *http.Request) {
	if err := r.deps.Processes.DeleteSteps(req.Context(), []uint{pathID(req)}); err != nil {
		r.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// copyStep copies a step with its lines and operations. An empty body
// keeps the step in its process.
func (r *Router) copyStep(w http.ResponseWriter, req *http.Request) {
	var overrides process.StepOverrides
	if req.ContentLength != 0 {
		if err := decode(req, &overrides); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request payload")
			return
		}
	}
	steps, err := r.deps.Processes.CopySteps(req.Context(), []uint{pathID(req)}, overrides)
	if err != nil {
		r.fail(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, steps[0])
}

func (r *Router) createInputs(w http.ResponseWriter, req *http.Request) {
	drafts, err := decodeBatch[process.LineDraft](req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	inputs, err := r.deps.Processes.CreateInputs(req.Context(), drafts)
	if err != nil {
		r.fail(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, inputs)
}

func (r *Router) createOutputs(w http.ResponseWriter, req *http.Request) {
	drafts, err := decodeBatch[process.LineDraft](req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	outputs, err := r.deps.Processes.CreateOutputs(req.Context(), drafts)
	if err != nil {
		r.fail(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, outputs)
}

func (r *Router) createOperations(w http.ResponseWriter, req *http.Request) {
	drafts, err := decodeBatch[process.OperationDraft](req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	ops, err := r.deps.Processes.CreateOperations(req.Context(), drafts)
	if err != nil {
		r.fail(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, ops)
}
