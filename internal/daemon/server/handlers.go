package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/grovetools/queued/errors"
	"github.com/grovetools/queued/pkg/ami"
	"github.com/grovetools/queued/pkg/models"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// httpStatus maps an error code to the HTTP status the API answers with.
func httpStatus(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeNotConnected:
		return http.StatusServiceUnavailable
	case errors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case errors.ErrCodeQueueNotFound, errors.ErrCodeMemberNotFound:
		return http.StatusNotFound
	case errors.ErrCodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeRemoteFailure
	}
	writeJSON(w, httpStatus(err), models.ErrorResponse{
		Code:  string(code),
		Error: errors.Message(err),
	})
}

func (s *Server) handleGetQueues(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Queues())
}

func (s *Server) handleGetQueue(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	q, ok := s.engine.Queue(name)
	if !ok {
		s.writeError(w, errors.QueueNotFound(name))
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// handleGetMember looks up one member. Interfaces carry a slash (SIP/100)
// so the last path segment is a wildcard.
func (s *Server) handleGetMember(w http.ResponseWriter, r *http.Request) {
	m, err := s.engine.Member(r.PathValue("name"), r.PathValue("iface"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleGetRollups(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Rollups())
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Status())
}

// handleGetSummary fetches a fresh summary. ?cached=true returns the last
// fetched summary without contacting the switch.
func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("cached") == "true" {
		writeJSON(w, http.StatusOK, s.engine.Summary())
		return
	}
	summary, err := s.engine.GetSummary(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleRefresh runs a refresh and reports the resulting status. Refresh
// failures are part of the status, not an HTTP error.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, errors.InvalidInput("invalid request body"))
			return
		}
	}

	// A refresh outlives a client that hangs up; its result lands in the store.
	ctx := context.WithoutCancel(r.Context())
	if req.Queue == "" {
		s.engine.Refresh(ctx)
	} else {
		s.engine.RefreshQueue(ctx, req.Queue)
	}
	writeJSON(w, http.StatusOK, models.RefreshResponse{
		Status: s.engine.Status(),
		Queues: s.engine.Store().Size(),
	})
}

func (s *Server) handleMemberCommand(w http.ResponseWriter, r *http.Request) {
	var req models.MemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.InvalidInput("invalid request body"))
		return
	}

	// Commands run to completion once sent so the local mirror matches the switch.
	ctx := context.WithoutCancel(r.Context())
	var err error
	switch op := r.PathValue("op"); op {
	case "pause":
		err = s.engine.PauseMember(ctx, req.Queue, req.Interface, req.Reason)
	case "unpause":
		err = s.engine.UnpauseMember(ctx, req.Queue, req.Interface)
	case "penalty":
		err = s.engine.SetPenalty(ctx, req.Queue, req.Interface, req.Penalty)
	case "remove":
		err = s.engine.RemoveMember(ctx, req.Queue, req.Interface)
	case "add":
		err = s.engine.AddMember(ctx, req.Queue, req.Interface, &ami.AddMemberOptions{
			MemberName:     req.MemberName,
			StateInterface: req.StateInterface,
			Penalty:        req.Penalty,
			Paused:         req.Paused,
			Reason:         req.Reason,
		})
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.logger.WithError(err).WithField("queue", req.Queue).Debug("Member command failed")
		s.writeError(w, err)
		return
	}

	resp := models.CommandResponse{OK: true}
	if m, err := s.engine.Member(req.Queue, req.Interface); err == nil {
		resp.Member = m
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetPauseReasons(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.PauseReasons())
}

func (s *Server) handleGetStatusLabels(w http.ResponseWriter, r *http.Request) {
	statuses := models.AllStatuses()
	labels := make([]models.StatusLabel, 0, len(statuses))
	for _, st := range statuses {
		labels = append(labels, models.StatusLabel{
			Status: st,
			Name:   st.String(),
			Label:  s.engine.StatusLabel(st),
		})
	}
	writeJSON(w, http.StatusOK, labels)
}

// handleGetConfig returns the running configuration as JSON.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.getRunningConfig()
	if cfg == nil {
		http.Error(w, "config not initialized", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}
