package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/feedcached/feedcached/internal/store"
)

// link points a response back at the request that produced it.
type link struct {
	Action string `json:"action"`
	Href   string `json:"href"`
}

// envelope is the response wrapper every endpoint shares.
type envelope struct {
	Response    any       `json:"response"`
	Description string    `json:"description,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Link        link      `json:"link"`
}

type errorBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func respond(w http.ResponseWriter, r *http.Request, description string, response any) {
	writeJSON(w, http.StatusOK, envelope{
		Response:    response,
		Description: description,
		Timestamp:   time.Now(),
		Link:        link{Action: r.Method, Href: r.URL.Path},
	})
}

// respondError maps the store's not-found taxonomy to its HTTP status and
// everything else to 502, passing the message through as the body.
func respondError(w http.ResponseWriter, err error) {
	var notFound *store.NotFoundError
	if errors.As(err, &notFound) {
		writeJSON(w, notFound.Status, errorBody{Message: notFound.Message})
		return
	}
	writeJSON(w, http.StatusBadGateway, errorBody{Message: err.Error()})
}

// pageFromQuery reads the optional page/limit parameters.
func pageFromQuery(r *http.Request) (store.Page, error) {
	var page store.Page
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return store.Page{}, errors.New("limit must be an integer")
		}
		page.Limit = limit
	}
	if raw := r.URL.Query().Get("page"); raw != "" {
		number, err := strconv.Atoi(raw)
		if err != nil {
			return store.Page{}, errors.New("page must be an integer")
		}
		page.Number = number
	}
	return page, nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, errorBody{Message: "ok"})
}

func (s *Server) handleCollections(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.store.Collections(r.PathValue("namespace"))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, r, "Available collections.", summaries)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: err.Error()})
		return
	}

	view, err := s.store.Search(r.PathValue("namespace"), r.PathValue("collection"), page)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, r, view.Description, view)
}

func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: err.Error()})
		return
	}

	dir := store.SortDesc
	if r.URL.Query().Get("sort") == string(store.SortAsc) {
		dir = store.SortAsc
	}

	view, err := s.store.Items(r.PathValue("namespace"), dir, page)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, r, view.Description, view.Items)
}

func (s *Server) handleItemByID(w http.ResponseWriter, r *http.Request) {
	item, err := s.store.ItemByID(r.PathValue("namespace"), r.PathValue("id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, r, "Stored item.", item)
}
