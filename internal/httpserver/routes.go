package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wedosoft/ticketrag/internal/domain"
	"github.com/wedosoft/ticketrag/internal/initctx"
	"github.com/wedosoft/ticketrag/internal/llmrouter"
	"github.com/wedosoft/ticketrag/internal/platform"
	"github.com/wedosoft/ticketrag/internal/ragquery"
	"github.com/wedosoft/ticketrag/internal/search"
)

// RegisterRoutes attaches every §6 handler to the server's tenant-scoped
// API router.
func (s *Server) RegisterRoutes() {
	r := s.APIRouter
	r.Get("/init/{ticket_id}", s.handleInit)
	r.Get("/init/{ticket_id}/stream", s.handleInitStream)
	r.Post("/query", s.handleQuery)
	r.Post("/hybrid-search", s.handleHybridSearch)
	r.Post("/ingest/jobs", s.handleCreateIngestJob)
	r.Get("/ingest/jobs/{id}", s.handleGetIngestJob)
	r.Post("/ingest/jobs/{id}/control", s.handleControlIngestJob)
}

// --- /init/{ticket_id} ---------------------------------------------------

type scoredHitDTO struct {
	ID          string            `json:"id"`
	Score       float64           `json:"score"`
	ObjectType  domain.ObjectType `json:"object_type"`
	Subject     string            `json:"subject"`
	SummaryText string            `json:"summary_text"`
}

func toHitDTOs(hits []search.ScoredHit) []scoredHitDTO {
	out := make([]scoredHitDTO, 0, len(hits))
	for _, h := range hits {
		out = append(out, scoredHitDTO{
			ID:          h.ID,
			Score:       h.Score,
			ObjectType:  h.Payload.ObjectType,
			Subject:     h.Payload.Subject,
			SummaryText: h.Payload.SummaryText,
		})
	}
	return out
}

type performanceDTO struct {
	TotalMS          int64 `json:"total_ms"`
	FetchTicketMS    int64 `json:"fetch_ticket_ms"`
	SummaryMS        int64 `json:"summary_ms"`
	SimilarTicketsMS int64 `json:"similar_tickets_ms"`
	KBArticlesMS     int64 `json:"kb_articles_ms"`
}

func toPerformanceDTO(p initctx.Performance) performanceDTO {
	return performanceDTO{
		TotalMS:          p.Total.Milliseconds(),
		FetchTicketMS:    p.FetchTicket.Milliseconds(),
		SummaryMS:        p.Summary.Milliseconds(),
		SimilarTicketsMS: p.SimilarTickets.Milliseconds(),
		KBArticlesMS:     p.KBArticles.Milliseconds(),
	}
}

type initResponse struct {
	Summary        string         `json:"summary"`
	SimilarTickets []scoredHitDTO `json:"similar_tickets"`
	KBArticles     []scoredHitDTO `json:"kb_articles"`
	Performance    performanceDTO `json:"performance"`
}

func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticket_id")
	tenant := TenantFromContext(r.Context())

	assembler, err := s.sc.AssemblerFor(tenant.TenantID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	resp, err := assembler.Assemble(r.Context(), tenant, ticketID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	Respond(w, http.StatusOK, initResponse{
		Summary:        resp.Summary.FullText,
		SimilarTickets: toHitDTOs(resp.SimilarTickets),
		KBArticles:     toHitDTOs(resp.KBArticles),
		Performance:    toPerformanceDTO(resp.Performance),
	})
}

// --- /init/{ticket_id}/stream --------------------------------------------

// sseEvent mirrors §6's `{type: summary_start | summary_chunk |
// summary_complete | error, ...}` event shape.
type sseEvent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	Err  string `json:"error,omitempty"`
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, evt sseEvent) {
	data, _ := json.Marshal(evt)
	w.Write([]byte("data: "))
	w.Write(data)
	w.Write([]byte("\n\n"))
	flusher.Flush()
}

const initStreamSystemPrompt = "Summarize this support ticket for an agent opening it for the first time. Be concise and factual, covering the customer's issue, what's been tried, and current status."

func ticketTranscript(subject string, conversations []platform.RawConversation) string {
	var b strings.Builder
	b.WriteString("Subject: ")
	b.WriteString(subject)
	b.WriteString("\n\n")
	for _, c := range conversations {
		if c.Private {
			continue
		}
		b.WriteString(c.Body)
		b.WriteString("\n---\n")
	}
	return b.String()
}

// handleInitStream streams the fresh-ticket summary token by token. Similar
// tickets and KB articles aren't incrementally renderable the way a
// generated summary is, so the streamed path covers only §4.11 step 2; a
// client wanting the full package still calls GET /init/{ticket_id}.
func (s *Server) handleInitStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		RespondError(w, http.StatusInternalServerError, "internal_error", "streaming unsupported")
		return
	}

	ticketID := chi.URLParam(r, "ticket_id")
	tenant := TenantFromContext(r.Context())

	adapter, err := s.sc.AdapterFor(tenant.TenantID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	raw, conversations, _, err := adapter.FetchTicket(r.Context(), tenant, ticketID)
	if err != nil {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		writeSSE(w, flusher, sseEvent{Type: "error", Err: err.Error()})
		return
	}

	messages := []llmrouter.Message{
		{Role: llmrouter.RoleSystem, Content: initStreamSystemPrompt},
		{Role: llmrouter.RoleUser, Content: ticketTranscript(raw.Subject, conversations)},
	}

	chunks, err := s.sc.Router.StreamGenerate(r.Context(), domain.UseCaseRealtime, messages, llmrouter.Options{Temperature: 0.3})
	if err != nil {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		writeSSE(w, flusher, sseEvent{Type: "error", Err: err.Error()})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeSSE(w, flusher, sseEvent{Type: "summary_start"})
	for chunk := range chunks {
		if chunk.Err != nil {
			writeSSE(w, flusher, sseEvent{Type: "error", Err: chunk.Err.Error()})
			return
		}
		if chunk.Text != "" {
			writeSSE(w, flusher, sseEvent{Type: "summary_chunk", Text: chunk.Text})
		}
		if chunk.Done {
			break
		}
	}
	writeSSE(w, flusher, sseEvent{Type: "summary_complete"})
}

// --- /query ---------------------------------------------------------------

type queryRequest struct {
	Query string `json:"query"`
	Mode  string `json:"mode"`
	TopK  int    `json:"top_k"`
}

type answerMetaDTO struct {
	Mode         string        `json:"mode"`
	Intent       domain.Intent `json:"intent,omitempty"`
	UsedFallback bool          `json:"used_fallback"`
	UsedHyDE     bool          `json:"used_hyde"`
}

type queryResponse struct {
	Answer      string         `json:"answer"`
	ContextDocs []scoredHitDTO `json:"context_docs"`
	Meta        answerMetaDTO  `json:"meta"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "validation_failure", "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		RespondError(w, http.StatusBadRequest, "validation_failure", "query is required")
		return
	}

	mode := ragquery.ModeRAG
	if req.Mode == string(ragquery.ModeChat) {
		mode = ragquery.ModeChat
	}

	tenant := TenantFromContext(r.Context())
	answer, err := s.sc.Answerer.Answer(r.Context(), tenant, req.Query, mode, req.TopK)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	docs := make([]scoredHitDTO, 0, len(answer.ContextDocs))
	for _, d := range answer.ContextDocs {
		docs = append(docs, scoredHitDTO{ID: d.ID, Score: d.Score, ObjectType: d.ObjectType, Subject: d.Subject, SummaryText: d.SummaryText})
	}

	Respond(w, http.StatusOK, queryResponse{
		Answer:      answer.Text,
		ContextDocs: docs,
		Meta: answerMetaDTO{
			Mode:         string(answer.Meta.Mode),
			Intent:       answer.Meta.Intent,
			UsedFallback: answer.Meta.UsedFallback,
			UsedHyDE:     answer.Meta.UsedHyDE,
		},
	})
}

// --- /hybrid-search ---------------------------------------------------------

type hybridSearchRequest struct {
	Query        string  `json:"query"`
	DenseWeight  float64 `json:"dense_weight"`
	SparseWeight float64 `json:"sparse_weight"`
}

type hybridSearchResponse struct {
	Hits []scoredHitDTO `json:"hits"`
}

func (s *Server) handleHybridSearch(w http.ResponseWriter, r *http.Request) {
	var req hybridSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "validation_failure", "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		RespondError(w, http.StatusBadRequest, "validation_failure", "query is required")
		return
	}

	tenant := TenantFromContext(r.Context())

	analyzed, err := s.sc.Analyzer.Analyze(r.Context(), tenant.TenantID, req.Query)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	engine := s.sc.Search
	if req.DenseWeight != 0 || req.SparseWeight != 0 {
		engine = s.sc.SearchEngineWithWeights(req.DenseWeight, req.SparseWeight)
	}

	result, err := engine.Search(r.Context(), search.Request{Tenant: tenant, Analyzed: analyzed})
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	Respond(w, http.StatusOK, hybridSearchResponse{Hits: toHitDTOs(result.Hits)})
}

// --- /ingest/jobs ----------------------------------------------------------

type createIngestJobRequest struct {
	Scope    string `json:"scope"`
	Platform string `json:"platform"`
	Since    string `json:"since"`
}

type ingestJobResponse struct {
	JobID  string           `json:"job_id"`
	Status domain.JobStatus `json:"status"`
}

func (s *Server) handleCreateIngestJob(w http.ResponseWriter, r *http.Request) {
	var req createIngestJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "validation_failure", "invalid request body")
		return
	}

	scope := domain.JobScopeIncremental
	if req.Scope == string(domain.JobScopeFull) {
		scope = domain.JobScopeFull
	}

	tenant := TenantFromContext(r.Context())

	orchestrator, err := s.sc.OrchestratorFor(tenant.TenantID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	now := time.Now()
	job := &domain.IngestJob{
		JobID:     uuid.NewString(),
		TenantID:  tenant.TenantID,
		Platform:  tenant.Platform,
		Scope:     scope,
		Status:    domain.JobStatusCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Since != "" {
		if since, err := time.Parse(time.RFC3339, req.Since); err == nil {
			job.Cursor = since.Format(time.RFC3339)
		}
	}

	if err := s.sc.JobStore.Save(r.Context(), *job); err != nil {
		RespondDomainError(w, err)
		return
	}

	// Run runs until the job reaches a terminal state; detach it from the
	// request context (which dies with the HTTP response) onto a fresh
	// background context scoped to the job instead.
	go func() {
		if err := orchestrator.Run(context.Background(), job); err != nil {
			s.sc.Logger.Error("ingest job failed", "job_id", job.JobID, "error", err)
		}
	}()

	Respond(w, http.StatusAccepted, ingestJobResponse{JobID: job.JobID, Status: domain.JobStatusCreated})
}

type jobProgressDTO struct {
	ItemsTotal  *int `json:"items_total"`
	ItemsDone   int  `json:"items_done"`
	ItemsFailed int  `json:"items_failed"`
}

type jobErrorDTO struct {
	OriginalID string `json:"original_id"`
	Kind       string `json:"kind"`
	Message    string `json:"message"`
}

type getIngestJobResponse struct {
	Status   domain.JobStatus `json:"status"`
	Progress jobProgressDTO   `json:"progress"`
	Errors   []jobErrorDTO    `json:"errors"`
}

func (s *Server) handleGetIngestJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")

	job, err := s.sc.JobStore.Get(r.Context(), jobID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	errs := make([]jobErrorDTO, 0, len(job.ErrorLog))
	for _, e := range job.ErrorLog {
		errs = append(errs, jobErrorDTO{OriginalID: e.OriginalID, Kind: string(e.Kind), Message: e.Message})
	}

	Respond(w, http.StatusOK, getIngestJobResponse{
		Status: job.Status,
		Progress: jobProgressDTO{
			ItemsTotal:  job.Progress.ItemsTotal,
			ItemsDone:   job.Progress.ItemsDone,
			ItemsFailed: job.Progress.ItemsFailed,
		},
		Errors: errs,
	})
}

type controlIngestJobRequest struct {
	Action string `json:"action"`
}

type controlIngestJobResponse struct {
	Status domain.JobStatus `json:"status"`
}

func (s *Server) handleControlIngestJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")

	var req controlIngestJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, http.StatusBadRequest, "validation_failure", "invalid request body")
		return
	}

	job, err := s.sc.JobStore.Get(r.Context(), jobID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	orchestrator, err := s.sc.OrchestratorFor(job.TenantID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	switch req.Action {
	case "pause":
		err = orchestrator.Pause(r.Context(), &job)
	case "resume":
		err = orchestrator.Resume(r.Context(), &job)
		if err == nil {
			go func(j domain.IngestJob) {
				if err := orchestrator.Run(context.Background(), &j); err != nil {
					s.sc.Logger.Error("ingest job resume failed", "job_id", j.JobID, "error", err)
				}
			}(job)
		}
	case "cancel":
		err = orchestrator.Cancel(r.Context(), &job)
	default:
		RespondError(w, http.StatusBadRequest, "validation_failure", fmt.Sprintf("unknown action %q", req.Action))
		return
	}
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	Respond(w, http.StatusOK, controlIngestJobResponse{Status: job.Status})
}
