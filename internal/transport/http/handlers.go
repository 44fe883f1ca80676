package http

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"quiz-submission-service/internal/app"
	"quiz-submission-service/internal/domain"
)

// API serves the quiz and admin endpoints.
type API struct {
	quiz      *app.SubmissionService
	admin     *app.AdminService
	feed      *app.AttemptFeed
	masterKey string
	log       *slog.Logger
	upgrader  websocket.Upgrader
}

// NewAPI wires the services behind the HTTP routes; a nil log uses slog.Default.
func NewAPI(quiz *app.SubmissionService, admin *app.AdminService, feed *app.AttemptFeed, masterKey string, log *slog.Logger) *API {
	if log == nil {
		log = slog.Default()
	}
	return &API{
		quiz:      quiz,
		admin:     admin,
		feed:      feed,
		masterKey: masterKey,
		log:       log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the routed API wrapped in CORS and request logging.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("POST /api/quiz/start", a.start)
	mux.HandleFunc("GET /api/quiz/questions", a.questions)
	mux.HandleFunc("POST /api/quiz/submit", a.submit)
	mux.HandleFunc("POST /api/admin/signup", a.signup)
	mux.HandleFunc("POST /api/admin/login", a.login)
	mux.HandleFunc("GET /api/admin/attempts", a.requireAdmin(a.attempts))
	mux.HandleFunc("GET /api/admin/feed", a.requireAdmin(a.serveFeed))
	return withCORS(withRequestLog(a.log, mux))
}

type startRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (a *API) start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := a.quiz.Start(r.Context(), req.Name, req.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) questions(w http.ResponseWriter, r *http.Request) {
	qs, err := a.quiz.Questions(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, qs)
}

type answerRequest struct {
	QuestionID       *int64 `json:"questionId"`
	SelectedIndex    *int   `json:"selectedIndex"`
	TimeTakenSeconds int    `json:"timeTakenSeconds"`
}

type submitRequest struct {
	Email            string          `json:"email"`
	Name             string          `json:"name"`
	Answers          []answerRequest `json:"answers"`
	TimeTakenSeconds int             `json:"timeTakenSeconds"`
}

// toSubmission requires questionId and selectedIndex on every answer; an
// absent selectedIndex would otherwise read as option 0.
func (req submitRequest) toSubmission() (domain.Submission, error) {
	if req.Answers == nil {
		return domain.Submission{}, &domain.ValidationError{Field: "answers", Reason: "is required"}
	}
	answers := make([]domain.Answer, 0, len(req.Answers))
	for i, ans := range req.Answers {
		if ans.QuestionID == nil {
			return domain.Submission{}, &domain.ValidationError{Field: fmt.Sprintf("answers[%d].questionId", i), Reason: "is required"}
		}
		if ans.SelectedIndex == nil {
			return domain.Submission{}, &domain.ValidationError{Field: fmt.Sprintf("answers[%d].selectedIndex", i), Reason: "is required"}
		}
		answers = append(answers, domain.Answer{
			QuestionID:       *ans.QuestionID,
			SelectedIndex:    *ans.SelectedIndex,
			TimeTakenSeconds: ans.TimeTakenSeconds,
		})
	}
	return domain.Submission{
		Email:            req.Email,
		Name:             req.Name,
		Answers:          answers,
		TimeTakenSeconds: req.TimeTakenSeconds,
	}, nil
}

func (a *API) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sub, err := req.toSubmission()
	if err != nil {
		writeError(w, r, err)
		return
	}
	receipt, err := a.quiz.Submit(r.Context(), sub)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *API) signup(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("X-Admin-Secret")
	if a.masterKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(a.masterKey)) != 1 {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "Forbidden: Invalid master key"})
		return
	}
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	admin, err := a.admin.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	loggerFrom(r).Info("admin created", slog.Int64("admin_id", admin.ID))
	writeJSON(w, http.StatusCreated, map[string]any{"id": admin.ID, "email": admin.Email})
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	token, err := a.admin.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (a *API) attempts(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := a.admin.ListAttempts(r.Context(), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func parsePage(r *http.Request) (domain.Page, error) {
	var page domain.Page
	for name, dst := range map[string]*int{"limit": &page.Limit, "offset": &page.Offset} {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return domain.Page{}, &domain.ValidationError{Field: name, Reason: "must be a non-negative integer"}
		}
		*dst = n
	}
	return page, nil
}
