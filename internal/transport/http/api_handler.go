package http

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"path"
	"strings"

	"github.com/rs/zerolog"

	"mla-quiz-service/internal/domain"
	"mla-quiz-service/internal/infra/memory"
	"mla-quiz-service/internal/ingest"
	"mla-quiz-service/internal/quiz"
	"mla-quiz-service/internal/reference"
)

const maxUploadBytes = 20 << 20 // 20MB, matching the PWA's upload limit

// APIHandler serves the JSON API: quiz catalog, quiz content, markdown/JSON
// uploads, answer scoring and the read-only reference tables.
type APIHandler struct {
	catalog *memory.Catalog
	quizzes quiz.QuizRepository
	library *reference.Library
	log     zerolog.Logger
}

func NewAPIHandler(catalog *memory.Catalog, quizzes quiz.QuizRepository, library *reference.Library, log zerolog.Logger) *APIHandler {
	return &APIHandler{
		catalog: catalog,
		quizzes: quizzes,
		library: library,
		log:     log.With().Str("component", "api").Logger(),
	}
}

// Register mounts all API routes on the mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/quizzes", h.listQuizzes)
	mux.HandleFunc("GET /api/quiz/{name}", h.getQuiz)
	mux.HandleFunc("GET /api/quiz/{name}/specialty/{specialty}", h.getQuizBySpecialty)
	mux.HandleFunc("POST /api/quiz/submit", h.submitQuiz)
	mux.HandleFunc("POST /api/upload-quiz", h.uploadQuiz)
	mux.HandleFunc("GET /api/reference", h.listReference)
	mux.HandleFunc("GET /api/reference/{table}", h.listReferenceKeys)
	mux.HandleFunc("GET /api/reference/{table}/{key}", h.getReferenceEntry)
}

func (h *APIHandler) listQuizzes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"quizzes": h.catalog.List(),
	})
}

func (h *APIHandler) getQuiz(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	loaded, err := h.quizzes.GetQuiz(r.Context(), name)
	if err != nil {
		h.quizError(w, name, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"quiz_name":       name,
		"questions":       loaded.Questions,
		"total_questions": len(loaded.Questions),
	})
}

func (h *APIHandler) getQuizBySpecialty(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	specialty := r.PathValue("specialty")

	loaded, err := h.quizzes.GetQuiz(r.Context(), name)
	if err != nil {
		h.quizError(w, name, err)
		return
	}

	questions := loaded.Questions
	if !strings.EqualFold(specialty, "all") {
		filtered := make([]domain.Question, 0, len(questions))
		for _, q := range questions {
			if strings.Contains(strings.ToLower(q.Specialty), strings.ToLower(specialty)) {
				filtered = append(filtered, q)
			}
		}
		questions = filtered
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"quiz_name":       name,
		"specialty":       specialty,
		"questions":       questions,
		"total_questions": len(questions),
	})
}

type submitRequest struct {
	QuizName string         `json:"quiz_name"`
	Answers  map[string]int `json:"answers"`
}

type submitResult struct {
	QuestionID    string `json:"question_id"`
	UserAnswer    *int   `json:"user_answer"`
	CorrectAnswer int    `json:"correct_answer"`
	IsCorrect     bool   `json:"is_correct"`
	QuestionTitle string `json:"question_title"`
}

// submitQuiz scores a full answer sheet against the canonical quiz. Answer
// indices refer to the canonical option order; clients translate shuffled
// selections back through the option mapping before submitting.
func (h *APIHandler) submitQuiz(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid request body"})
		return
	}

	loaded, err := h.quizzes.GetQuiz(r.Context(), req.QuizName)
	if err != nil {
		h.quizError(w, req.QuizName, err)
		return
	}

	correctCount := 0
	results := make([]submitResult, 0, len(loaded.Questions))
	for _, q := range loaded.Questions {
		res := submitResult{
			QuestionID:    q.ID,
			CorrectAnswer: q.CorrectIndex,
			QuestionTitle: q.Title,
		}
		if answer, ok := req.Answers[q.ID]; ok {
			res.UserAnswer = &answer
			res.IsCorrect = answer == q.CorrectIndex
		}
		if res.IsCorrect {
			correctCount++
		}
		results = append(results, res)
	}

	percentage := 0.0
	if len(loaded.Questions) > 0 {
		percentage = math.Round(float64(correctCount)/float64(len(loaded.Questions))*1000) / 10
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"score": map[string]any{
			"correct":    correctCount,
			"total":      len(loaded.Questions),
			"percentage": percentage,
		},
		"results": results,
	})
}

// uploadQuiz ingests a learner-supplied quiz. Markdown and loose-JSON
// bodies are both accepted, either as a multipart "quiz_file" or raw.
func (h *APIHandler) uploadQuiz(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	name, data, err := readUpload(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": err.Error()})
		return
	}

	var parsed domain.Quiz
	if looksLikeJSON(name, data) {
		parsed, err = ingest.ParseJSON(name, data)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid JSON quiz"})
			return
		}
	} else {
		parsed = ingest.ParseMarkdown(name, string(data))
	}

	if len(parsed.Questions) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "no valid quiz questions found in the uploaded file"})
		return
	}

	h.catalog.Add(parsed)
	h.log.Info().Str("quiz", parsed.Name).Int("questions", len(parsed.Questions)).Msg("quiz uploaded")

	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"quiz_name":       parsed.Name,
		"questions":       parsed.Questions,
		"total_questions": len(parsed.Questions),
	})
}

func (h *APIHandler) listReference(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "tables": h.library.Names()})
}

func (h *APIHandler) listReferenceKeys(w http.ResponseWriter, r *http.Request) {
	table, ok := h.library.Table(r.PathValue("table"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "reference table not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "table": table.Name(), "keys": table.Keys()})
}

func (h *APIHandler) getReferenceEntry(w http.ResponseWriter, r *http.Request) {
	table, ok := h.library.Table(r.PathValue("table"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "reference table not found"})
		return
	}
	entry, ok := table.Lookup(r.PathValue("key"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "reference entry not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "entry": entry})
}

func (h *APIHandler) quizError(w http.ResponseWriter, name string, err error) {
	if errors.Is(err, domain.ErrQuizNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "quiz \"" + name + "\" not found"})
		return
	}
	h.log.Error().Err(err).Str("quiz", name).Msg("quiz load failed")
	writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "could not load quiz"})
}

func readUpload(r *http.Request) (string, []byte, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		file, header, err := r.FormFile("quiz_file")
		if err != nil {
			return "", nil, errors.New("no quiz file provided")
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return "", nil, errors.New("could not read the uploaded file")
		}
		return strings.TrimSuffix(header.Filename, path.Ext(header.Filename)), data, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil || len(data) == 0 {
		return "", nil, errors.New("no quiz content provided")
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "uploaded-quiz"
	}
	return name, data, nil
}

func looksLikeJSON(name string, data []byte) bool {
	if strings.HasSuffix(strings.ToLower(name), ".json") {
		return true
	}
	trimmed := strings.TrimSpace(string(data))
	return strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
