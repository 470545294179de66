package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/xelth-com/eckmrpgo/internal/catalog"
	"github.com/xelth-com/eckmrpgo/internal/manufacturing"
	"github.com/xelth-com/eckmrpgo/internal/models"
	"github.com/xelth-com/eckmrpgo/internal/process"
	"github.com/xelth-com/eckmrpgo/internal/testutil"
	"github.com/xelth-com/eckmrpgo/internal/utils"
)

func setupRouter(t *testing.T, secret string) (*Router, *gorm.DB, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	fx := testutil.Seed(t, db)
	processes := process.NewService(db, nil, nil)
	router := NewRouter(Deps{
		Processes:     processes,
		Catalog:       catalog.NewService(db, nil),
		Manufacturing: manufacturing.NewService(db, nil, nil),
		JWTSecret:     secret,
		Version:       "test",
	})
	return router, db, fx
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestProcessAPI(t *testing.T) {
	router, db, fx := setupRouter(t, "")
	component := testutil.Product(t, db, "Component", "COMP", fx.Unit)
	product := testutil.Product(t, db, "Product", "PROD", fx.Unit)

	draft := map[string]interface{}{
		"name":   "Assembly",
		"uom_id": fx.Unit.ID,
		"steps": []map[string]interface{}{{
			"name":     "Assemble",
			"sequence": 1,
			"inputs":   []map[string]interface{}{{"product_id": component.ID, "quantity": "5"}},
			"outputs":  []map[string]interface{}{{"product_id": product.ID, "quantity": "1"}},
			"operations": []map[string]interface{}{{
				"sequence":                1,
				"operation_type_id":       fx.Assembly.ID,
				"work_center_category_id": fx.Category.ID,
				"time":                    "1",
			}},
		}},
	}
	rec := do(t, router, "POST", "/api/processes", draft, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created []models.Process
	decodeBody(t, rec, &created)
	if len(created) != 1 || created[0].BomID == 0 || created[0].RouteID == 0 {
		t.Fatalf("Unexpected created processes %+v", created)
	}
	p := created[0]

	if rec := do(t, router, "GET", fmt.Sprintf("/API/PROCESSES/%d", p.ID), nil, ""); rec.Code != http.StatusOK {
		t.Errorf("Expected upper-case QR link to resolve, got %d", rec.Code)
	}

	rec = do(t, router, "GET", fmt.Sprintf("/api/processes/%d/factor?product_id=%d&quantity=3&uom_id=%d", p.ID, product.ID, fx.Unit.ID), nil, "")
	var factor map[string]string
	decodeBody(t, rec, &factor)
	if rec.Code != http.StatusOK || factor["factor"] != "3" {
		t.Errorf("Expected factor 3, got %d %v", rec.Code, factor)
	}

	rec = do(t, router, "GET", fmt.Sprintf("/api/processes?product_id=%d", product.ID), nil, "")
	var found []models.Process
	decodeBody(t, rec, &found)
	if len(found) != 1 || found[0].ID != p.ID {
		t.Errorf("Expected search by output to find the process, got %+v", found)
	}

	rec = do(t, router, "GET", fmt.Sprintf("/api/processes/%d/sheet.pdf", p.ID), nil, "")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/pdf" {
		t.Errorf("Expected PDF, got %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}

	rec = do(t, router, "POST", "/api/productions", map[string]interface{}{"product_id": product.ID, "quantity": "2"}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var prod models.Production
	decodeBody(t, rec, &prod)

	rec = do(t, router, "PUT", fmt.Sprintf("/api/productions/%d/process", prod.ID), map[string]interface{}{"process_id": p.ID}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	decodeBody(t, rec, &prod)
	if prod.BomID == nil || *prod.BomID != p.BomID || len(prod.Operations) != 1 {
		t.Errorf("Expected process BOM and one operation, got bom=%v ops=%d", prod.BomID, len(prod.Operations))
	}
	if len(prod.Inputs) != 1 || prod.Inputs[0].Quantity.String() != "10" {
		t.Errorf("Expected one input of 10, got %+v", prod.Inputs)
	}

	rec = do(t, router, "PUT", fmt.Sprintf("/api/productions/%d/bom", prod.ID), map[string]interface{}{"bom_id": nil}, "")
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 for BOM change under a process, got %d", rec.Code)
	}

	rec = do(t, router, "DELETE", fmt.Sprintf("/api/processes/%d", p.ID), nil, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = do(t, router, "GET", fmt.Sprintf("/api/processes/%d", p.ID), nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", rec.Code)
	}
}

func TestProcessAPIBatchAndErrors(t *testing.T) {
	router, _, fx := setupRouter(t, "")

	batch := []map[string]interface{}{
		{"name": "First", "uom_id": fx.Unit.ID},
		{"name": "Second", "uom_id": fx.Unit.ID},
	}
	rec := do(t, router, "POST", "/api/processes", batch, "")
	var created []models.Process
	decodeBody(t, rec, &created)
	if rec.Code != http.StatusCreated || len(created) != 2 {
		t.Fatalf("Expected 2 processes, got %d: %s", rec.Code, rec.Body.String())
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"missing name", "POST", "/api/processes", map[string]interface{}{"name": "", "uom_id": fx.Unit.ID}, http.StatusUnprocessableEntity},
		{"bom without route", "POST", "/api/processes", map[string]interface{}{"name": "X", "uom_id": fx.Unit.ID, "bom_id": created[0].BomID}, http.StatusUnprocessableEntity},
		{"bad json", "POST", "/api/processes", "{", http.StatusBadRequest},
		{"unknown process", "GET", "/api/processes/999", nil, http.StatusNotFound},
		{"unknown update", "PATCH", "/api/processes/999", map[string]interface{}{"name": "Y"}, http.StatusNotFound},
		{"unknown step", "DELETE", "/api/steps/999", nil, http.StatusNotFound},
		{"factor without product", "GET", fmt.Sprintf("/api/processes/%d/factor", created[0].ID), nil, http.StatusBadRequest},
		{"factor not found", "GET", fmt.Sprintf("/api/processes/%d/factor?product_id=1&quantity=1&uom_id=%d", created[0].ID, fx.Unit.ID), nil, http.StatusUnprocessableEntity},
		{"unknown production", "GET", "/api/productions/999", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, tt.method, tt.path, tt.body, "")
			if rec.Code != tt.want {
				t.Errorf("Expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestCopyAndBindingAPI(t *testing.T) {
	router, db, fx := setupRouter(t, "")
	product := testutil.Product(t, db, "Product", "PROD", fx.Unit)

	rec := do(t, router, "POST", "/api/processes", map[string]interface{}{
		"name":   "Make",
		"uom_id": fx.Unit.ID,
		"steps": []map[string]interface{}{{
			"name":    "Only",
			"outputs": []map[string]interface{}{{"product_id": product.ID, "quantity": "1"}},
		}},
	}, "")
	var created []models.Process
	decodeBody(t, rec, &created)
	if len(created) != 1 {
		t.Fatalf("Expected process, got %s", rec.Body.String())
	}
	p := created[0]

	rec = do(t, router, "POST", fmt.Sprintf("/api/processes/%d/copy", p.ID), nil, "")
	var copied models.Process
	decodeBody(t, rec, &copied)
	if rec.Code != http.StatusCreated || copied.Name != "Make (*)" || copied.BomID == p.BomID {
		t.Errorf("Unexpected copy %d %+v", rec.Code, copied)
	}

	rec = do(t, router, "POST", "/api/product-boms", map[string]interface{}{"product_id": product.ID, "process_id": p.ID}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var bindings []models.ProductBom
	decodeBody(t, rec, &bindings)
	if len(bindings) != 1 || bindings[0].BomID == nil || *bindings[0].BomID != p.BomID {
		t.Errorf("Expected binding to take the process BOM, got %+v", bindings)
	}

	rec = do(t, router, "GET", fmt.Sprintf("/api/products/%d/boms", product.ID), nil, "")
	decodeBody(t, rec, &bindings)
	if len(bindings) != 1 {
		t.Errorf("Expected 1 binding, got %d", len(bindings))
	}

	rec = do(t, router, "POST", "/api/productions/request", map[string]interface{}{"product_id": product.ID, "quantity": "4"}, "")
	var prod models.Production
	decodeBody(t, rec, &prod)
	if rec.Code != http.StatusCreated || prod.State != models.ProductionStateRequest || prod.ProcessID == nil {
		t.Errorf("Expected request with process, got %d %+v", rec.Code, prod)
	}
}

func TestAPIAuth(t *testing.T) {
	secret := "router-secret"
	router, _, _ := setupRouter(t, secret)
	viewer, _ := utils.GenerateToken("screen", utils.RoleViewer, secret, time.Hour)
	planner, _ := utils.GenerateToken("board", utils.RolePlanner, secret, time.Hour)

	if rec := do(t, router, "GET", "/health", nil, ""); rec.Code != http.StatusOK {
		t.Errorf("Health should be public, got %d", rec.Code)
	}
	if rec := do(t, router, "GET", "/api/processes", nil, ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", rec.Code)
	}
	if rec := do(t, router, "GET", "/api/processes", nil, viewer); rec.Code != http.StatusOK {
		t.Errorf("Expected viewer to read, got %d", rec.Code)
	}
	if rec := do(t, router, "POST", "/api/processes", map[string]interface{}{"name": "P"}, viewer); rec.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for viewer write, got %d", rec.Code)
	}
	if rec := do(t, router, "POST", "/api/processes", map[string]interface{}{"name": "P"}, planner); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected planner write to reach validation, got %d", rec.Code)
	}
	if rec := do(t, router, "OPTIONS", "/api/processes", nil, ""); rec.Code != http.StatusNoContent {
		t.Errorf("Expected preflight 204, got %d", rec.Code)
	}
}
