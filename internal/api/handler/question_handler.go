package handler

import (
	"encoding/json"
	"net/http"

	"codearena/internal/api/middleware"
	"codearena/internal/app/service"
	"codearena/internal/common"
	"codearena/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type QuestionHandler struct {
	questionService *service.QuestionService
}

func NewQuestionHandler(qs *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{questionService: qs}
}

func (h *QuestionHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)

	r.Get("/contests", h.listContests)
	r.Get("/contests/{contestID}/questions", h.listQuestions)
	r.Get("/questions/{questionID}", h.getQuestion)
	r.Get("/languages", h.listLanguages)

	r.Group(func(admin chi.Router) {
		admin.Use(middleware.AdminOnly)
		admin.Post("/contests", h.createContest)
		admin.Post("/contests/{contestID}/questions", h.createQuestion)
		admin.Put("/questions/{questionID}", h.updateQuestion)
	})
}

func (h *QuestionHandler) listContests(w http.ResponseWriter, r *http.Request) {
	contests, err := h.questionService.ListContests(r.Context())
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, contests)
}

func (h *QuestionHandler) createContest(w http.ResponseWriter, r *http.Request) {
	var req service.CreateContestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	contest, err := h.questionService.CreateContest(r.Context(), req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, contest)
}

func (h *QuestionHandler) listQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.questionService.ListQuestions(r.Context(), chi.URLParam(r, "contestID"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, questions)
}

func (h *QuestionHandler) getQuestion(w http.ResponseWriter, r *http.Request) {
	// HiddenTestCases never serializes, so contestants only ever see the
	// sample pair.
	question, err := h.questionService.GetQuestion(r.Context(), chi.URLParam(r, "questionID"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, question)
}

func (h *QuestionHandler) listLanguages(w http.ResponseWriter, r *http.Request) {
	common.RespondWithJSON(w, http.StatusOK, model.Languages())
}

func (h *QuestionHandler) createQuestion(w http.ResponseWriter, r *http.Request) {
	adminID, _ := middleware.GetUserIDFromContext(r.Context())

	var req service.QuestionInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	question, err := h.questionService.CreateQuestion(r.Context(), adminID, chi.URLParam(r, "contestID"), req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, question)
}

func (h *QuestionHandler) updateQuestion(w http.ResponseWriter, r *http.Request) {
	var req service.QuestionInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	question, err := h.questionService.UpdateQuestion(r.Context(), chi.URLParam(r, "questionID"), req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, question)
}
