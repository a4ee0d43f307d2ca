package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/hazyhaar/folio/pkg/content"
	"github.com/hazyhaar/folio/pkg/fieldplan"
	"github.com/hazyhaar/folio/pkg/i18n"
	"github.com/hazyhaar/folio/pkg/store"
)

// viewLanguage picks the language for a localized view: ?lang= first, then
// Accept-Language. ok is false when the raw document was asked for.
func viewLanguage(r *http.Request) (lang i18n.Language, ok bool, err error) {
	if v := r.URL.Query().Get("lang"); v != "" {
		if v == "raw" {
			return "", false, nil
		}
		parsed, known := i18n.ParseLanguage(v)
		if !known {
			return "", false, errors.New("unsupported language " + v)
		}
		return parsed, true, nil
	}
	if v := r.Header.Get("Accept-Language"); v != "" {
		return i18n.MatchAcceptLanguage(v), true, nil
	}
	return "", false, nil
}

func (h *handler) handleList(w http.ResponseWriter, r *http.Request) {
	coll := chi.URLParam(r, "collection")
	lang, localized, err := viewLanguage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	docs, err := h.content.List(r.Context(), coll)
	if err != nil {
		writeContentError(w, err)
		return
	}
	if !localized {
		writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
		return
	}

	views := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		view, err := h.content.Localize(doc, coll, lang)
		if err != nil {
			writeContentError(w, err)
			return
		}
		views = append(views, view)
	}
	w.Header().Set("Content-Language", string(lang))
	writeJSON(w, http.StatusOK, map[string]any{"documents": views})
}

func (h *handler) handleGet(w http.ResponseWriter, r *http.Request) {
	coll, id := chi.URLParam(r, "collection"), chi.URLParam(r, "id")
	lang, localized, err := viewLanguage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	doc, err := h.content.Get(r.Context(), coll, id)
	if err != nil {
		writeContentError(w, err)
		return
	}
	if !localized {
		writeJSON(w, http.StatusOK, doc)
		return
	}
	view, err := h.content.Localize(doc, coll, lang)
	if err != nil {
		writeContentError(w, err)
		return
	}
	w.Header().Set("Content-Language", string(lang))
	writeJSON(w, http.StatusOK, view)
}

func (h *handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodePayload(w, r)
	if !ok {
		return
	}
	doc, err := h.content.Create(r.Context(), chi.URLParam(r, "collection"), payload)
	if err != nil {
		writeContentError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (h *handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodePayload(w, r)
	if !ok {
		return
	}
	doc, err := h.content.Update(r.Context(), chi.URLParam(r, "collection"), chi.URLParam(r, "id"), payload)
	if err != nil {
		writeContentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.content.Delete(r.Context(), chi.URLParam(r, "collection"), chi.URLParam(r, "id")); err != nil {
		writeContentError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodePayload(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload == nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: expected an object")
		return nil, false
	}
	return payload, true
}

func writeContentError(w http.ResponseWriter, err error) {
	var verrs validation.Errors
	switch {
	case errors.Is(err, fieldplan.ErrUnknownCollection), errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrInvalidID):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  content.ErrValidation.Error(),
			"fields": verrs,
		})
	case errors.Is(err, content.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
