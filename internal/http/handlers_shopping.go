package http

import (
	"fmt"
	"net/http"
	"strconv"

	"kakeibo/internal/core"
	"kakeibo/internal/log"
)

func (s *Server) handleListShopping(w http.ResponseWriter, r *http.Request) {
	entries, warnings, err := s.ledger.ListShopping(r.Context())
	if err != nil {
		s.writeError(w, r, err, log.OpRead)
		return
	}
	items := make([]shoppingResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, toShopping(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":    items,
		"warnings": toWarnings(warnings),
	})
}

func (s *Server) handleAddShopping(w http.ResponseWriter, r *http.Request) {
	var req shoppingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, log.OpAppend)
		return
	}
	item, err := req.item()
	if err != nil {
		s.writeError(w, r, err, log.OpAppend)
		return
	}
	item, err = s.ledger.AddShoppingItem(r.Context(), item)
	if err != nil {
		s.writeError(w, r, err, log.OpAppend)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"item": toShoppingItem(item)})
}

func (s *Server) handleReplaceShopping(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []shoppingRequest `json:"items"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, log.OpReplace)
		return
	}
	items := make([]core.ShoppingItem, 0, len(req.Items))
	for i, in := range req.Items {
		item, err := in.item()
		if err != nil {
			s.writeError(w, r, fmt.Errorf("item %d: %w", i+1, err), log.OpReplace)
			return
		}
		items = append(items, item)
	}
	if err := s.ledger.ReplaceShopping(r.Context(), items); err != nil {
		s.writeError(w, r, err, log.OpReplace)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"replaced": len(items)})
}

// handleToggleShopping flips one item between pending and purchased. The
// path index is the 0-based data row reported by the list endpoint.
func (s *Server) handleToggleShopping(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("index")
	index, err := strconv.Atoi(raw)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: index %q is not a number", errBadRequest, raw), log.OpUpdate)
		return
	}
	item, err := s.ledger.ToggleShoppingItem(r.Context(), index)
	if err != nil {
		s.writeError(w, r, err, log.OpUpdate)
		return
	}
	out := toShoppingItem(item)
	out.Index = &index
	writeJSON(w, http.StatusOK, map[string]any{"item": out})
}
