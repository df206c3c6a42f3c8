// internal/server/handlers.go
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/easycaremarket/b2b-catalog/internal/catalog"
	"github.com/easycaremarket/b2b-catalog/internal/db"
	"github.com/easycaremarket/b2b-catalog/internal/syncer"
)

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f := catalog.ListFilter{
		Search:      q.Get("search"),
		Category:    q.Get("category"),
		Brand:       q.Get("brand"),
		InStockOnly: strings.EqualFold(q.Get("in_stock_only"), "true"),
	}
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.PerPage, _ = strconv.Atoi(q.Get("per_page"))
	if v := q.Get("min_price"); v != "" {
		if p, err := strconv.ParseFloat(v, 64); err == nil {
			f.MinPrice = &p
		}
	}
	if v := q.Get("max_price"); v != "" {
		if p, err := strconv.ParseFloat(v, 64); err == nil {
			f.MaxPrice = &p
		}
	}

	products, total, err := s.store.List(r.Context(), f)
	if err != nil {
		s.fail(w, err, "listing products")
		return
	}

	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = 50
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"products": products,
		"pagination": map[string]any{
			"page":        f.Page,
			"per_page":    f.PerPage,
			"total":       total,
			"total_pages": (total + int64(f.PerPage) - 1) / int64(f.PerPage),
		},
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.Categories(r.Context())
	if err != nil {
		s.fail(w, err, "listing categories")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (s *Server) handleBrands(w http.ResponseWriter, r *http.Request) {
	brands, err := s.store.Brands(r.Context())
	if err != nil {
		s.fail(w, err, "listing brands")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"brands": brands})
}

func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := s.store.ListCustomers(r.Context())
	if err != nil {
		s.fail(w, err, "listing customers")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customers": customers})
}

func (s *Server) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var c db.Customer
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if c.Email == "" || c.BusinessName == "" || c.ContactName == "" {
		writeError(w, http.StatusBadRequest, "email, business_name and contact_name are required")
		return
	}

	created, err := s.store.CreateCustomer(r.Context(), c)
	if err != nil {
		if errors.Is(err, catalog.ErrEmailTaken) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.fail(w, err, "creating customer")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"customer_id": created.ID,
		"message":     "customer created",
	})
}

type createOrderRequest struct {
	CustomerID uint                `json:"customer_id"`
	Items      []catalog.OrderLine `json:"items"`
	Notes      string              `json:"notes"`
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.CustomerID == 0 {
		writeError(w, http.StatusBadRequest, "customer_id is required")
		return
	}

	order, err := s.store.CreateOrder(r.Context(), req.CustomerID, req.Items, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrEmptyOrder),
			errors.Is(err, catalog.ErrCustomerNotFound),
			errors.Is(err, catalog.ErrProductNotFound),
			errors.Is(err, catalog.ErrInsufficientStock):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.fail(w, err, "creating order")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"total_amount": order.TotalAmount,
		"message":      "order created",
	})
}

func (s *Server) handleSyncStart(w http.ResponseWriter, r *http.Request) {
	runID, err := s.sync.Start(r.Context())
	if err != nil {
		if errors.Is(err, syncer.ErrSyncRunning) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.fail(w, err, "starting sync")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"run_id":  runID,
		"message": "sync started in background",
	})
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("run_id")

	entry, err := s.sync.Status(runID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "no such sync run")
			return
		}
		s.fail(w, err, "loading sync status")
		return
	}

	recent, err := s.sync.Recent(10)
	if err != nil {
		s.fail(w, err, "loading sync history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sync":   entry,
		"recent": recent,
	})
}

func (s *Server) handleSyncTest(w http.ResponseWriter, r *http.Request) {
	if err := s.client.TestConnection(r.Context()); err != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"connected": false,
			"message":   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"connected": true,
		"message":   "supplier API reachable",
	})
}
