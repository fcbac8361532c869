package api

import (
	"net/http"
	"time"

	"github.com/yinkun-ui/yinkun/pkg/types"
)

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": Version,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleGetCardConfig(w http.ResponseWriter, r *http.Request) {
	res, err := s.cards.Get(r.Context(), r.URL.Query().Get("cardId"))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res.Body())
}

func (s *Server) handleUpsertCardConfig(w http.ResponseWriter, r *http.Request) {
	body, ok := s.decodeBody(w, r)
	if !ok {
		return
	}
	obj, ok := types.AsObject(body)
	if !ok {
		writeError(w, http.StatusBadRequest, types.MsgBodyObject)
		return
	}

	// A non-string cardId is treated as missing.
	cardID, _ := obj["cardId"].(string)
	res, err := s.cards.Upsert(r.Context(), cardID, obj["config"])
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetStorage(w http.ResponseWriter, r *http.Request) {
	doc, err := s.dashboard.Get(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleReplaceStorage(w http.ResponseWriter, r *http.Request) {
	body, ok := s.decodeBody(w, r)
	if !ok {
		return
	}
	if err := s.dashboard.Replace(r.Context(), body); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
