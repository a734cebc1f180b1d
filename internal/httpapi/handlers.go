package httpapi

import (
	"net/http"

	"internship-placement/internal/placement"
	"internship-placement/internal/search"
	"internship-placement/internal/service"
)

func (s *Server) createOffer(w http.ResponseWriter, r *http.Request, actor placement.Actor) {
	var offer placement.Offer
	if err := decodeBody(r, &offer); err != nil {
		s.writeError(w, err)
		return
	}

	created, err := s.svc.CreateOffer(r.Context(), actor, &offer)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, created)
}

func (s *Server) searchOffers(w http.ResponseWriter, r *http.Request, actor placement.Actor) {
	q := search.OfferQuery{
		Keywords:       r.URL.Query().Get("q"),
		OrganizationID: r.URL.Query().Get("organizationId"),
	}
	q.Pagination.Size = 20

	offers, err := s.svc.SearchOffers(r.Context(), actor, q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, offers)
}

func (s *Server) listMyOffers(w http.ResponseWriter, r *http.Request, actor placement.Actor) {
	offers, err := s.svc.ListMyOffers(r.Context(), actor)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, offers)
}

func (s *Server) publishOffer(w http.ResponseWriter, r *http.Request, actor placement.Actor) {
	offer, err := s.svc.PublishOffer(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, offer)
}

func (s *Server) closeOffer(w http.ResponseWriter, r *http.Request, actor placement.Actor) {
	offer, err := s.svc.CloseOffer(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, offer)
}

func (s *Server) listOfferApplications(w http.ResponseWriter, r *http.Request, actor placement.Actor) {
	apps, err := s.svc.ListOfferApplications(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, apps)
}

func (s *Server) apply(w http.ResponseWriter, r *http.Request, actor placement.Actor) {
	var in service.ApplyInput
	if err := decodeBody(r, &in); err != nil {
		s.writeError(w, err)
		return
	}

	app, err := s.svc.Apply(r.Context(), actor, in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, app)
}

func (s *Server) listMyApplications(w http.ResponseWriter, r *http.Request, actor placement.Actor) {
	apps, err := s.svc.ListMyApplications(r.Context(), actor)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, apps)
}

func (s *Server) getApplication(w http.ResponseWriter, r *http.Request, actor placement.Actor) {
	app, err := s.svc.GetApplication(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, app)
}

// applyAction is the single transition endpoint. The action segment selects
// the registry entry; the body is the raw payload it validates.
func (s *Server) applyAction(w http.ResponseWriter, r *http.Request, actor placement.Actor) {
	raw := map[string]interface{}{}
	if r.ContentLength != 0 {
		if err := decodeBody(r, &raw); err != nil {
			s.writeError(w, err)
			return
		}
	}

	app, err := s.svc.ApplyAction(r.Context(), actor, r.PathValue("id"), r.PathValue("action"), raw)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, app)
}

func (s *Server) requestAgreement(w http.ResponseWriter, r *http.Request, actor placement.Actor) {
	var in struct {
		DirectorID string `json:"directorId"`
		Notes      string `json:"notes"`
	}
	if err := decodeBody(r, &in); err != nil {
		s.writeError(w, err)
		return
	}

	req, err := s.svc.RequestAgreement(r.Context(), actor, in.DirectorID, in.Notes)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, req)
}

func (s *Server) decideAgreement(w http.ResponseWriter, r *http.Request, actor placement.Actor) {
	var in struct {
		Accept bool `json:"accept"`
	}
	if err := decodeBody(r, &in); err != nil {
		s.writeError(w, err)
		return
	}

	req, err := s.svc.DecideAgreement(r.Context(), actor, r.PathValue("id"), in.Accept)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, req)
}

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request, actor placement.Actor) {
	notifications, err := s.svc.Notifications(r.Context(), actor)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, notifications)
}

func (s *Server) unreadCount(w http.ResponseWriter, r *http.Request, actor placement.Actor) {
	count, err := s.svc.UnreadNotificationCount(r.Context(), actor)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"unread": count})
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request, actor placement.Actor) {
	if err := s.svc.MarkNotificationRead(r.Context(), actor, r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) markAllRead(w http.ResponseWriter, r *http.Request, actor placement.Actor) {
	if err := s.svc.MarkAllNotificationsRead(r.Context(), actor); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) deleteNotification(w http.ResponseWriter, r *http.Request, actor placement.Actor) {
	if err := s.svc.DeleteNotification(r.Context(), actor, r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusNoContent, nil)
}
