package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/roadwatch/roadwatch/internal/domain"
	"github.com/roadwatch/roadwatch/internal/store"
	"github.com/roadwatch/roadwatch/internal/view"
)

// collectionResponse is the payload of GET /api/collections/{name}.
type collectionResponse struct {
	Revision int64           `json:"revision"`
	Name     string          `json:"name"`
	Records  []domain.Record `json:"records"`
}

// notificationsResponse is the payload of GET /api/notifications.
type notificationsResponse struct {
	Revision      int64                 `json:"revision"`
	Notifications []domain.Notification `json:"notifications"`
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := view.BuildOverview(s.store.Snapshot(), s.recentLimit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, overview)
}

func (s *Server) handleCollection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	snap := s.store.Snapshot()
	if !snap.Has(name) {
		s.writeError(w, store.NewUnknownCollectionError(name))
		return
	}

	records := snap.Collection(name)
	if records == nil {
		records = []domain.Record{}
	}
	s.writeJSON(w, http.StatusOK, collectionResponse{
		Revision: snap.Revision(),
		Name:     name,
		Records:  records,
	})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	limit := s.recentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, store.NewInvalidArgumentError("limit must be an integer"))
			return
		}
		limit = n
	}

	snap := s.store.Snapshot()
	notes, err := view.RecentNotifications(snap, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if notes == nil {
		notes = []domain.Notification{}
	}
	s.writeJSON(w, http.StatusOK, notificationsResponse{
		Revision:      snap.Revision(),
		Notifications: notes,
	})
}
