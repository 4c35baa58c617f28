package emote

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/zentra/emotebank/internal/models"
	"github.com/zentra/emotebank/internal/store"
	"github.com/zentra/emotebank/internal/utils"
)

type Handler struct {
	resolver *Resolver
}

func NewHandler(resolver *Resolver) *Handler {
	return &Handler{resolver: resolver}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	// Guild-scoped lookups
	r.Route("/guilds/{guildId}", func(r chi.Router) {
		r.Get("/", h.ListGuildEmotes)
		r.Get("/{name}", h.ResolveInGuild)
	})

	r.Get("/packs/{pack}/{name}", h.ResolveInPack)

	// Emotes visible to a user, from shared guilds or joined packs
	r.Get("/users/{userId}/{name}", h.ResolveForUser)

	// Lookups starting from a known emote id
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/similar", h.ResolveSimilar)
		r.Get("/synonyms", h.GetSynonyms)
		r.Get("/usable", h.GetUsable)
		r.Get("/names", h.GetAlternativeNames)
		r.Get("/same-image/{otherId}", h.GetShareHash)
	})

	return r
}

type emoteView struct {
	models.Emote
	Popularity int `json:"popularity"`
}

func view(e *models.Emote) emoteView {
	return emoteView{Emote: *e, Popularity: e.Popularity()}
}

type resolveRequest struct {
	Name string `validate:"required,emotename"`
}

type packRequest struct {
	Pack string `validate:"required,max=64"`
	Name string `validate:"required,emotename"`
}

// ResolveInGuild resolves a name among a guild's own emotes
func (h *Handler) ResolveInGuild(w http.ResponseWriter, r *http.Request) {
	guildID, ok := utils.URLParamInt64(r, "guildId")
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "Invalid guild ID")
		return
	}
	req := resolveRequest{Name: chi.URLParam(r, "name")}
	if err := utils.Validate(req); err != nil {
		utils.RespondValidationError(w, utils.FormatValidationErrors(err))
		return
	}

	h.resolve(w, r, models.GuildScope(guildID), req.Name)
}

// ResolveInPack resolves a name among the guilds of a named pack
func (h *Handler) ResolveInPack(w http.ResponseWriter, r *http.Request) {
	req := packRequest{Pack: chi.URLParam(r, "pack"), Name: chi.URLParam(r, "name")}
	if err := utils.Validate(req); err != nil {
		utils.RespondValidationError(w, utils.FormatValidationErrors(err))
		return
	}

	h.resolve(w, r, models.PackScope(req.Pack), req.Name)
}

// ResolveForUser resolves a name among the guilds a user shares with the
// bot, or the packs they joined when source=packs
func (h *Handler) ResolveForUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.URLParamInt64(r, "userId")
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}
	req := resolveRequest{Name: chi.URLParam(r, "name")}
	if err := utils.Validate(req); err != nil {
		utils.RespondValidationError(w, utils.FormatValidationErrors(err))
		return
	}

	var scope models.Scope
	switch utils.GetQueryString(r, "source", "mutual") {
	case "mutual":
		scope = models.MutualScope(userID)
	case "packs":
		scope = models.UserPacksScope(userID)
	default:
		utils.RespondError(w, http.StatusBadRequest, "source must be mutual or packs")
		return
	}

	h.resolve(w, r, scope, req.Name)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request, scope models.Scope, name string) {
	e, err := h.resolver.Resolve(r.Context(), scope, name)
	if err != nil {
		respondLookupError(w, r, err, "Failed to resolve emote")
		return
	}

	utils.RespondSuccess(w, view(e))
}

// ListGuildEmotes lists a guild's usable emotes
func (h *Handler) ListGuildEmotes(w http.ResponseWriter, r *http.Request) {
	guildID, ok := utils.URLParamInt64(r, "guildId")
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "Invalid guild ID")
		return
	}

	emotes, err := h.resolver.List(r.Context(), models.GuildScope(guildID), utils.GetQueryBool(r, "orderByScore", false))
	if err != nil {
		respondLookupError(w, r, err, "Failed to list emotes")
		return
	}

	views := make([]emoteView, 0, len(emotes))
	for i := range emotes {
		views = append(views, view(&emotes[i]))
	}
	utils.RespondSuccess(w, views)
}

// ResolveSimilar returns the emote or a usable copy of the same image
func (h *Handler) ResolveSimilar(w http.ResponseWriter, r *http.Request) {
	emoteID, ok := utils.URLParamInt64(r, "id")
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "Invalid emote ID")
		return
	}

	e, err := h.resolver.ResolveSimilar(r.Context(), emoteID, utils.GetQueryBool(r, "requireGuild", true))
	if err != nil {
		respondLookupError(w, r, err, "Failed to resolve emote")
		return
	}

	utils.RespondSuccess(w, view(e))
}

// GetSynonyms lists other usable emotes showing the same image
func (h *Handler) GetSynonyms(w http.ResponseWriter, r *http.Request) {
	emoteID, ok := utils.URLParamInt64(r, "id")
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "Invalid emote ID")
		return
	}

	limit := utils.GetQueryInt(r, "limit", 25)
	if limit < 1 || limit > 100 {
		limit = 25
	}

	ids, err := h.resolver.Synonyms(r.Context(), emoteID, limit)
	if err != nil {
		respondLookupError(w, r, err, "Failed to fetch synonyms")
		return
	}

	utils.RespondSuccess(w, ids)
}

// GetUsable reports whether an emote can be used as-is
func (h *Handler) GetUsable(w http.ResponseWriter, r *http.Request) {
	emoteID, ok := utils.URLParamInt64(r, "id")
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "Invalid emote ID")
		return
	}

	usable, err := h.resolver.IsUsable(r.Context(), emoteID)
	if err != nil {
		respondLookupError(w, r, err, "Failed to fetch emote")
		return
	}

	utils.RespondSuccess(w, map[string]bool{"usable": usable})
}

// GetAlternativeNames lists names commonly given to the same image
func (h *Handler) GetAlternativeNames(w http.ResponseWriter, r *http.Request) {
	emoteID, ok := utils.URLParamInt64(r, "id")
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "Invalid emote ID")
		return
	}

	names, err := h.resolver.AlternativeNames(r.Context(), emoteID)
	if err != nil {
		respondLookupError(w, r, err, "Failed to fetch alternative names")
		return
	}

	utils.RespondSuccess(w, names)
}

// GetShareHash reports whether two emotes show the same image
func (h *Handler) GetShareHash(w http.ResponseWriter, r *http.Request) {
	emoteID, ok := utils.URLParamInt64(r, "id")
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "Invalid emote ID")
		return
	}
	otherID, ok := utils.URLParamInt64(r, "otherId")
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "Invalid emote ID")
		return
	}

	shared, err := h.resolver.ShareHash(r.Context(), emoteID, otherID)
	if err != nil {
		respondLookupError(w, r, err, "Failed to compare emotes")
		return
	}

	utils.RespondSuccess(w, map[string]bool{"sameImage": shared})
}

func respondLookupError(w http.ResponseWriter, r *http.Request, err error, message string) {
	switch {
	case errors.Is(err, ErrEmoteNotFound):
		utils.RespondError(w, http.StatusNotFound, "Emote not found")
	case errors.Is(err, models.ErrInvalidScope):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrUnavailable):
		zerolog.Ctx(r.Context()).Error().Err(err).Msg(message)
		utils.RespondError(w, http.StatusServiceUnavailable, message)
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg(message)
		utils.RespondError(w, http.StatusInternalServerError, message)
	}
}
