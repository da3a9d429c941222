package http

import (
	"net/http"

	"saldo/internal/core"
	"saldo/internal/log"
)

type categoriesResponse struct {
	Kind       core.Kind       `json:"kind,omitempty"`
	Categories []core.Category `json:"categories"`
}

// handleListCategories returns the owner's categories, optionally only
// those of one kind.
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	kind, err := parseKind(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	l, ok := s.ledger(w, r)
	if !ok {
		return
	}

	resp := categoriesResponse{Kind: kind}
	if kind == "" {
		resp.Categories = l.Categories()
	} else {
		resp.Categories = l.CategoriesForKind(kind)
	}
	resp.Categories = nonNil(resp.Categories)
	NewJSONResponse().Body(resp).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	l, ok := s.ledger(w, r)
	if !ok {
		return
	}
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	c, err := l.AddCategory(r.Context(), req.toCategory())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.mutations.LogMutation(r.Context(), log.OpCreate, "category", l.OwnerID(), c.ID)
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/categories/"+c.ID).
		Body(c).
		Write(w)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	l, ok := s.ledger(w, r)
	if !ok {
		return
	}
	var u core.CategoryUpdate
	if err := decodeJSON(w, r, &u); err != nil {
		s.writeError(w, r, err)
		return
	}
	normalizeCategoryUpdate(&u)

	c, err := l.EditCategory(r.Context(), r.PathValue("id"), u)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.mutations.LogMutation(r.Context(), log.OpUpdate, "category", l.OwnerID(), c.ID)
	NewJSONResponse().Body(c).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	l, ok := s.ledger(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if err := l.DeleteCategory(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.mutations.LogMutation(r.Context(), log.OpDelete, "category", l.OwnerID(), id)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
