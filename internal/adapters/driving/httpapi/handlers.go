package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/custodia-labs/kairoscope/internal/core/domain"
	"github.com/custodia-labs/kairoscope/internal/logger"
)

const maxBodyBytes = 1 << 20

type retrieveRequest struct {
	Query       string   `json:"query"`
	Strategy    string   `json:"strategy,omitempty"`
	KSimilarity *int     `json:"k_similarity,omitempty"`
	KDivergence *int     `json:"k_divergence,omitempty"`
	KRandom     *int     `json:"k_random,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

type documentResponse struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type retrieveResponse struct {
	Documents []documentResponse `json:"documents"`
	Count     int                `json:"count"`
}

type statusResponse struct {
	Loaded     bool       `json:"loaded"`
	Documents  int        `json:"documents"`
	Dimensions int        `json:"dimensions"`
	Model      string     `json:"model,omitempty"`
	BuiltAt    *time.Time `json:"built_at,omitempty"`
	Path       string     `json:"path"`
	Stale      bool       `json:"stale"`
	Building   bool       `json:"building"`
}

type skipResponse struct {
	File   string `json:"file"`
	Line   int    `json:"line,omitempty"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

type buildResponse struct {
	State       string         `json:"state"`
	Structured  int            `json:"structured_documents"`
	Files       int            `json:"unstructured_files"`
	Chunks      int            `json:"chunks"`
	Indexed     int            `json:"indexed"`
	Placeholder bool           `json:"placeholder,omitempty"`
	Dimensions  int            `json:"dimensions"`
	Model       string         `json:"model"`
	DurationMS  int64          `json:"duration_ms"`
	Skipped     []skipResponse `json:"skipped"`
	Error       string         `json:"error,omitempty"`
}

type deckRequest struct {
	Discipline       string `json:"discipline"`
	BlockDescription string `json:"block_description"`
	Color            string `json:"color,omitempty"`
	NumCards         int    `json:"num_cards,omitempty"`
}

type cardResponse struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
	Text     string `json:"text"`
}

type deckResponse struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Discipline       string         `json:"discipline"`
	BlockDescription string         `json:"block_description"`
	Color            string         `json:"color"`
	CreatedAt        time.Time      `json:"created_at"`
	Cards            []cardResponse `json:"cards,omitempty"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func (a *api) health(w http.ResponseWriter, r *http.Request) {
	status := a.cfg.Retriever.Status(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"index_loaded": status.Loaded,
	})
}

func (a *api) indexStatus(w http.ResponseWriter, r *http.Request) {
	st := a.cfg.Retriever.Status(r.Context())
	resp := statusResponse{
		Loaded:     st.Loaded,
		Documents:  st.Documents,
		Dimensions: st.Dimensions,
		Model:      st.Model,
		Path:       st.Path,
		Stale:      st.Stale,
		Building:   st.Building,
	}
	if !st.BuiltAt.IsZero() {
		resp.BuiltAt = &st.BuiltAt
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *api) retrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	query := domain.RetrievalQuery{
		Text:        strings.TrimSpace(req.Query),
		KSimilarity: valueOr(req.KSimilarity, a.cfg.Defaults.KSimilarity),
		KDivergence: valueOr(req.KDivergence, a.cfg.Defaults.KDivergence),
		KRandom:     valueOr(req.KRandom, a.cfg.Defaults.KRandom),
		Tags:        req.Tags,
	}

	var (
		docs []domain.Document
		err  error
	)
	switch kind := domain.StrategyKind(req.Strategy); {
	case req.Strategy == "" || req.Strategy == "mixed":
		docs, err = a.cfg.Retriever.MixedRetrieve(r.Context(), query)
	case kind.IsValid():
		docs, err = a.cfg.Retriever.Retrieve(r.Context(), kind, query)
	default:
		err = domain.ErrInvalidRequest
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := retrieveResponse{Documents: make([]documentResponse, len(docs)), Count: len(docs)}
	for i, d := range docs {
		resp.Documents[i] = documentResponse{ID: d.ID, Content: d.Content, Metadata: d.Metadata}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *api) rebuild(w http.ResponseWriter, r *http.Request) {
	report, err := a.cfg.Retriever.Rebuild(r.Context())
	if err != nil && report == nil {
		writeError(w, r, err)
		return
	}
	if report == nil {
		report = &domain.BuildReport{}
	}

	resp := buildResponse{
		State:       report.State.String(),
		Structured:  report.StructuredDocuments,
		Files:       report.UnstructuredFiles,
		Chunks:      report.Chunks,
		Indexed:     report.Indexed,
		Placeholder: report.Placeholder,
		Dimensions:  report.Dimensions,
		Model:       report.Model,
		DurationMS:  report.Duration.Milliseconds(),
		Skipped:     make([]skipResponse, len(report.Skipped)),
	}
	for i, s := range report.Skipped {
		resp.Skipped[i] = skipResponse{File: s.File, Line: s.Line, Reason: string(s.Reason), Detail: s.Detail}
	}
	if err != nil {
		resp.Error = err.Error()
		writeJSON(w, statusFor(err), resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *api) generateDeck(w http.ResponseWriter, r *http.Request) {
	if a.cfg.Decks == nil {
		writeError(w, r, domain.ErrLLMUnavailable)
		return
	}
	var req deckRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	deck, err := a.cfg.Decks.Generate(r.Context(), domain.DeckRequest{
		Owner:            a.owner(r),
		Discipline:       req.Discipline,
		BlockDescription: req.BlockDescription,
		Color:            req.Color,
		NumCards:         req.NumCards,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/decks/"+deck.ID)
	writeJSON(w, http.StatusCreated, toDeckResponse(deck))
}

func (a *api) listDecks(w http.ResponseWriter, r *http.Request) {
	if a.cfg.Decks == nil {
		writeJSON(w, http.StatusOK, []deckResponse{})
		return
	}
	decks, err := a.cfg.Decks.List(r.Context(), a.owner(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := make([]deckResponse, len(decks))
	for i := range decks {
		resp[i] = toDeckResponse(&decks[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *api) getDeck(w http.ResponseWriter, r *http.Request) {
	deck, err := a.ownedDeck(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDeckResponse(deck))
}

func (a *api) deleteDeck(w http.ResponseWriter, r *http.Request) {
	deck, err := a.ownedDeck(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.cfg.Decks.Delete(r.Context(), deck.ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ownedDeck loads the deck named in the path, hiding other owners' decks.
func (a *api) ownedDeck(r *http.Request) (*domain.Deck, error) {
	if a.cfg.Decks == nil {
		return nil, domain.ErrNotFound
	}
	deck, err := a.cfg.Decks.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	if deck.Owner != a.owner(r) {
		return nil, domain.ErrNotFound
	}
	return deck, nil
}

func (a *api) owner(r *http.Request) string {
	if owner := strings.TrimSpace(r.Header.Get(OwnerHeader)); owner != "" {
		return owner
	}
	return a.cfg.DefaultOwner
}

func toDeckResponse(d *domain.Deck) deckResponse {
	resp := deckResponse{
		ID:               d.ID,
		Name:             d.Name,
		Discipline:       d.Discipline,
		BlockDescription: d.BlockDescription,
		Color:            d.Color,
		CreatedAt:        d.CreatedAt,
	}
	for _, c := range d.Cards {
		resp.Cards = append(resp.Cards, cardResponse{ID: c.ID, Position: c.Position, Text: c.Text})
	}
	return resp
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(domain.ErrInvalidRequest, err)
	}
	return nil
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDeckLimit):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrDuplicateDeck), errors.Is(err, domain.ErrBuildInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrIndexNotLoaded),
		errors.Is(err, domain.ErrEmbeddingUnavailable),
		errors.Is(err, domain.ErrLLMUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrLLMResponse):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrConfiguration), errors.Is(err, domain.ErrNoDocuments):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("%s %s: %v", r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, errorResponse{
		Error:     err.Error(),
		RequestID: middleware.GetReqID(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("write response: %v", err)
	}
}

func valueOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
