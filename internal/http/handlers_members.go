package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(s.svc.Members()))
}

type addMemberRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var req addMemberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	m, err := s.svc.AddMember(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// handleRemoveMember keeps past orders intact; their summaries show the
// removed id as unknown.
func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.RemoveMember(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
