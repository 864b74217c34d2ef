package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"mediavault.org/internal/enrich"
	"mediavault.org/internal/library"
)

// Upper bounds on batch size, delay and max items differ per kind
// (enrich.Limits), so the tags only catch values no kind accepts; the
// runner rejects the rest before doing any work.
type enrichRunRequest struct {
	BatchSize           *int `json:"batchSize" validate:"omitempty,min=1"`
	DelayBetweenCallsMs *int `json:"delayBetweenCallsMs" validate:"omitempty,min=1"`
}

type enrichRunAllRequest struct {
	BatchSize                  *int `json:"batchSize" validate:"omitempty,min=1"`
	DelayBetweenCallsMs        *int `json:"delayBetweenCallsMs" validate:"omitempty,min=1"`
	MaxItems                   *int `json:"maxItems" validate:"omitempty,min=1"`
	PauseBetweenBatchesSeconds *int `json:"pauseBetweenBatchesSeconds" validate:"omitempty,min=1,max=300"`
}

// decodeOptionalJSON is decodeJSON that tolerates an empty body; all
// enrichment parameters have configured defaults.
func (a *API) decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := decodeJSON(w, r, dst); err != nil {
		return err
	}
	return a.validate.Struct(dst)
}

func (a *API) handleEnrichRun(src enrich.Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req enrichRunRequest
		if err := a.decodeOptionalJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, validationMessage(err))
			return
		}

		// Configured defaults are clamped into the source's envelope;
		// explicit request values are not, an out-of-range ask is a 400.
		lim := src.Limits()
		params := enrich.BatchParams{
			BatchSize: min(a.enrichDefaults.BatchSize, lim.MaxBatchOnce),
			Delay:     max(a.enrichDefaults.DelayBetweenCalls, lim.MinDelay),
		}
		if req.BatchSize != nil {
			params.BatchSize = *req.BatchSize
		}
		if req.DelayBetweenCallsMs != nil {
			params.Delay = time.Duration(*req.DelayBetweenCallsMs) * time.Millisecond
		}

		res, err := a.runner.RunOnce(r.Context(), src, params)
		if err != nil {
			a.writeEnrichError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func (a *API) handleEnrichRunAll(src enrich.Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req enrichRunAllRequest
		if err := a.decodeOptionalJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, validationMessage(err))
			return
		}

		lim := src.Limits()
		params := enrich.RunAllParams{
			BatchSize: min(a.enrichDefaults.BatchSize, lim.MaxBatchRunAll),
			Delay:     max(a.enrichDefaults.DelayBetweenCalls, lim.MinDelay),
			MaxItems:  min(a.enrichDefaults.MaxItems, lim.MaxItems),
			Pause:     a.enrichDefaults.PauseBetweenBatches,
		}
		if req.BatchSize != nil {
			params.BatchSize = *req.BatchSize
		}
		if req.DelayBetweenCallsMs != nil {
			params.Delay = time.Duration(*req.DelayBetweenCallsMs) * time.Millisecond
		}
		if req.MaxItems != nil {
			params.MaxItems = *req.MaxItems
		}
		if req.PauseBetweenBatchesSeconds != nil {
			params.Pause = time.Duration(*req.PauseBetweenBatchesSeconds) * time.Second
		}

		res, err := a.runner.RunAll(r.Context(), src, params)
		if err != nil {
			a.writeEnrichError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func (a *API) handleBooksStatus(w http.ResponseWriter, r *http.Request) {
	pending, err := a.books.CountPending(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "status lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"kind":         library.KindBooks,
		"pendingCount": pending,
	})
}

func (a *API) handlePodcastsStatus(w http.ResponseWriter, r *http.Request) {
	pending, err := a.podcasts.CountPending(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "status lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"kind":         library.KindPodcasts,
		"pendingCount": pending,
	})
}

func (a *API) handleMoviesStatus(w http.ResponseWriter, r *http.Request) {
	movies, tvShows, err := a.screen.PendingCounts(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "status lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"kind":           library.KindMovies,
		"pendingMovies":  movies,
		"pendingTvShows": tvShows,
		"pendingCount":   movies + tvShows,
	})
}

func (a *API) handleEnrichSingleBook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	status, book, err := a.books.EnrichOne(r.Context(), id)
	if err != nil {
		if errors.Is(err, library.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "book not found")
			return
		}
		a.log.Error().Err(err).Str("book_id", id).Msg("single book enrichment failed")
		writeError(w, r, http.StatusInternalServerError, "enrichment failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": status,
		"book":   book,
	})
}

func (a *API) writeEnrichError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, enrich.ErrInvalidParameter):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// Client went away mid-run; nothing useful to say.
		writeError(w, r, http.StatusServiceUnavailable, "run interrupted")
	default:
		a.log.Error().Err(err).Msg("enrichment run failed")
		writeError(w, r, http.StatusInternalServerError, "enrichment run failed")
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return "invalid parameter: " + verrs[0].Field()
	}
	return err.Error()
}
