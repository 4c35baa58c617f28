package popularity

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/zentra/emotebank/internal/models"
	"github.com/zentra/emotebank/internal/store"
	"github.com/zentra/emotebank/internal/utils"
)

// UsageSink accepts usage events for later scoring.
type UsageSink interface {
	Push(ctx context.Context, usages ...models.Usage) error
}

type Handler struct {
	counter *Counter
	sink    UsageSink
}

func NewHandler(counter *Counter, sink UsageSink) *Handler {
	return &Handler{counter: counter, sink: sink}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/guilds/{guildId}", h.GetGuildScores)

	r.Route("/emotes/{id}", func(r chi.Router) {
		r.Get("/", h.GetScore)
		r.Get("/hash", h.GetHashScores)
	})

	r.Post("/usage", h.RecordUsage)

	return r
}

type usageRequest struct {
	Usages []models.Usage `json:"usages" validate:"required,min=1,max=500,dive"`
}

// GetGuildScores ranks a guild's emotes by popularity
func (h *Handler) GetGuildScores(w http.ResponseWriter, r *http.Request) {
	guildID, ok := utils.URLParamInt64(r, "guildId")
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "Invalid guild ID")
		return
	}

	scores, err := h.counter.GuildScores(r.Context(), guildID)
	if err != nil {
		respondStoreError(w, r, err, "Failed to fetch scores")
		return
	}

	utils.RespondSuccess(w, scores)
}

// GetScore returns one emote's popularity, 0 when unknown
func (h *Handler) GetScore(w http.ResponseWriter, r *http.Request) {
	emoteID, ok := utils.URLParamInt64(r, "id")
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "Invalid emote ID")
		return
	}

	popularity, err := h.counter.Score(r.Context(), emoteID)
	if err != nil {
		respondStoreError(w, r, err, "Failed to fetch score")
		return
	}

	utils.RespondSuccess(w, models.EmoteScore{EmoteID: emoteID, Popularity: popularity})
}

// GetHashScores returns the popularity of every warm copy of an emote's image
func (h *Handler) GetHashScores(w http.ResponseWriter, r *http.Request) {
	emoteID, ok := utils.URLParamInt64(r, "id")
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "Invalid emote ID")
		return
	}

	scores, err := h.counter.HashScores(r.Context(), emoteID)
	if err != nil {
		respondStoreError(w, r, err, "Failed to fetch scores")
		return
	}

	utils.RespondSuccess(w, scores)
}

// RecordUsage queues usage events; scores move when the queue is flushed
func (h *Handler) RecordUsage(w http.ResponseWriter, r *http.Request) {
	var req usageRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.Validate(req); err != nil {
		utils.RespondValidationError(w, utils.FormatValidationErrors(err))
		return
	}

	if err := h.sink.Push(r.Context(), req.Usages...); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to queue emote usage")
		utils.RespondError(w, http.StatusServiceUnavailable, "Failed to record usage")
		return
	}

	utils.RespondAccepted(w, "Usage recorded")
}

func respondStoreError(w http.ResponseWriter, r *http.Request, err error, message string) {
	zerolog.Ctx(r.Context()).Error().Err(err).Msg(message)
	if errors.Is(err, store.ErrUnavailable) {
		utils.RespondError(w, http.StatusServiceUnavailable, message)
		return
	}
	utils.RespondError(w, http.StatusInternalServerError, message)
}
