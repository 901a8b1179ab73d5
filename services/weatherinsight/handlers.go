package weatherinsight

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	svcerrors "github.com/R3E-Network/weatherinsight/internal/errors"
	"github.com/R3E-Network/weatherinsight/internal/history"
	"github.com/R3E-Network/weatherinsight/internal/httputil"
)

// RootMessage is returned by GET /.
const RootMessage = "WeatherInsight is up and running"

// QuestionRequest is the body of POST /handle_question.
type QuestionRequest struct {
	Question string `json:"question"`
}

// QuestionResponse is returned for every answered question.
type QuestionResponse struct {
	Answer  string `json:"answer"`
	Success bool   `json:"success"`
}

// HistoryResponse is returned by GET /history.
type HistoryResponse struct {
	Entries []history.Entry `json:"entries"`
	Count   int             `json:"count"`
}

func (s *Service) handleRoot(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": RootMessage})
}

func (s *Service) handleQuestion(w http.ResponseWriter, r *http.Request) {
	var req QuestionRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteServiceError(w, err)
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		httputil.WriteServiceError(w, svcerrors.Validation("question is required"))
		return
	}
	if n := utf8.RuneCountInString(question); n > MaxQuestionLength {
		httputil.WriteServiceError(w, svcerrors.Validation("question is too long").
			WithDetail("max_length", MaxQuestionLength).
			WithDetail("length", n))
		return
	}

	ctx := r.Context()
	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}

	res, err := s.answerer.Answer(ctx, question)
	if err != nil {
		s.recordFailure()
		s.logger.WithContext(ctx).WithError(err).Error("error in handle_question")
		if errors.Is(err, context.DeadlineExceeded) {
			httputil.WriteServiceError(w, svcerrors.Upstream("weather answer", err).
				WithDetail("timeout", s.requestTimeout.String()))
			return
		}
		httputil.WriteServiceError(w, svcerrors.Internal(err))
		return
	}
	s.recordOutcome(res.Outcome)

	if _, err := s.history.Record(ctx, history.Entry{
		Question:     question,
		Answer:       res.Text,
		Language:     res.Language,
		City:         res.City,
		ForecastDate: res.Date,
		Outcome:      res.Outcome,
		Success:      true,
	}); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("failed to record question history")
	}

	httputil.WriteJSON(w, http.StatusOK, QuestionResponse{Answer: res.Text, Success: true})
}

func (s *Service) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := history.DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httputil.WriteServiceError(w, svcerrors.Validation("limit must be a positive integer"))
			return
		}
		limit = n
	}

	entries, err := s.history.List(r.Context(), limit)
	if err != nil {
		httputil.WriteServiceError(w, svcerrors.Unavailable("history is unavailable"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, HistoryResponse{Entries: entries, Count: len(entries)})
}

func (s *Service) handleNotFound(w http.ResponseWriter, r *http.Request) {
	httputil.WriteServiceError(w, svcerrors.NotFound("Not Found"))
}

func (s *Service) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httputil.WriteServiceError(w, svcerrors.New(svcerrors.CodeMethodDenied, http.StatusMethodNotAllowed, "Method Not Allowed"))
}
