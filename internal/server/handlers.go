package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"skillswap/internal/chat"
	"skillswap/internal/review"
	"skillswap/internal/security"
	"skillswap/internal/session"
)

type postChatRequest struct {
	SwapRequestID int64  `json:"swapRequestId"`
	Message       string `json:"message"`
}

func (s *Server) postChat(w http.ResponseWriter, r *http.Request) {
	userID, _ := session.FromContext(r.Context())

	var req postChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid input")
		return
	}

	message, err := s.deps.Chats.PostMessage(r.Context(), req.SwapRequestID, userID, req.Message)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": message})
}

func (s *Server) listChats(w http.ResponseWriter, r *http.Request) {
	swapRequestID, ok := pathID(w, r, "swapRequestId")
	if !ok {
		return
	}
	messages, err := s.deps.Chats.History(r.Context(), swapRequestID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (s *Server) postReview(w http.ResponseWriter, r *http.Request) {
	userID, _ := session.FromContext(r.Context())

	var input review.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid input")
		return
	}

	created, err := s.deps.Reviews.Create(r.Context(), userID, input)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"review": created})
}

func (s *Server) checkReview(w http.ResponseWriter, r *http.Request) {
	userID, _ := session.FromContext(r.Context())
	swapRequestID, ok := pathID(w, r, "swapRequestId")
	if !ok {
		return
	}
	reviewed, err := s.deps.Reviews.HasReviewed(r.Context(), userID, swapRequestID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"hasReviewed": reviewed})
}

func (s *Server) listUserReviews(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	reviews, err := s.deps.Reviews.ListForUser(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reviews": reviews})
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return id, true
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Sessions.Clear(w, r); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Logged out")
}

// writeError maps service errors to a status and a client-facing message.
// Anything unrecognised is logged and reported as a server error.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, review.ErrAlreadyReviewed):
		writeMessage(w, http.StatusBadRequest, "You have already reviewed this swap")
	case errors.Is(err, review.ErrSelfReview):
		writeMessage(w, http.StatusBadRequest, "Cannot review yourself")
	case errors.Is(err, chat.ErrRateLimited):
		writeMessage(w, http.StatusTooManyRequests, "Too many messages, slow down")
	case errors.Is(err, security.ErrInvalidInput),
		errors.Is(err, chat.ErrInvalidSwapRequest),
		errors.Is(err, review.ErrInvalidReference):
		writeMessage(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
