package handler

import (
	"encoding/json"
	"net/http"

	"codearena/internal/api/middleware"
	"codearena/internal/app/service"
	"codearena/internal/common"

	"github.com/go-chi/chi/v5"
)

type JudgeHandler struct {
	judgeService *service.JudgeService
}

func NewJudgeHandler(js *service.JudgeService) *JudgeHandler {
	return &JudgeHandler{judgeService: js}
}

func (h *JudgeHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Post("/run", h.runSample)
	r.Post("/submit", h.submit)
	r.Get("/contests/{contestID}/mine", h.history)
	r.Get("/submissions/{submissionID}", h.getSubmission)

	r.Group(func(admin chi.Router) {
		admin.Use(middleware.AdminOnly)
		admin.Get("/contests/{contestID}/scores", h.contestScores)
	})
}

// runSample executes the code once against the question's visible sample
// input. The call blocks until the remote execution finishes.
func (h *JudgeHandler) runSample(w http.ResponseWriter, r *http.Request) {
	var req service.SampleRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	result, err := h.judgeService.RunSample(r.Context(), req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, result)
}

// submit runs the full hidden-test-case evaluation and returns the verdict.
// Synchronous from the caller's perspective even though it fans out into
// multiple sequential backend calls.
func (h *JudgeHandler) submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing identity")
		return
	}

	var req service.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	verdict, err := h.judgeService.Submit(r.Context(), userID, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, verdict)
}

func (h *JudgeHandler) history(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing identity")
		return
	}

	records, err := h.judgeService.History(r.Context(), userID, chi.URLParam(r, "contestID"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, records)
}

func (h *JudgeHandler) contestScores(w http.ResponseWriter, r *http.Request) {
	records, err := h.judgeService.ContestScores(r.Context(), chi.URLParam(r, "contestID"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, records)
}

func (h *JudgeHandler) getSubmission(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	role, _ := middleware.GetUserRoleFromContext(r.Context())

	rec, err := h.judgeService.GetSubmission(r.Context(), userID, role, chi.URLParam(r, "submissionID"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, rec)
}
