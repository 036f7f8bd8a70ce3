package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/schema"
)

// Set a Decoder instance as a package global, because it caches
// meta-data about structs, and an instance can be shared safely.
var decoder = schema.NewDecoder()

func init() {
	decoder.IgnoreUnknownKeys(true)
}

// tokenQuery is the query string of a token endpoint request.
type tokenQuery struct {
	Service      string   `schema:"service"`
	ClientID     string   `schema:"client_id"`
	Account      string   `schema:"account"`
	OfflineToken bool     `schema:"offline_token"`
	Scopes       []string `schema:"scope"`
}

// TokenServer exposes a TokenService over HTTP according to the
// [Docker Registry v2 authentication] specification.
//
// [Docker Registry v2 authentication]: https://github.com/distribution/distribution/blob/main/docs/spec/auth/index.md
type TokenServer struct {
	Service TokenService
}

func handleError(err error, w http.ResponseWriter) {
	switch {
	case errors.Is(err, ErrInvalidScope):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrAuthenticationFailed):
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
	case errors.Is(err, ErrUnauthorized):
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
	default:
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// TokenHandler handles GET /token requests.
func (s TokenServer) TokenHandler(w http.ResponseWriter, r *http.Request) {
	var query tokenQuery

	err := decoder.Decode(&query, r.URL.Query())
	if err != nil {
		handleError(err, w)
		return
	}

	tokenRequest := TokenRequest{
		Service:      query.Service,
		ClientID:     query.ClientID,
		Account:      query.Account,
		OfflineToken: query.OfflineToken,
		Scopes:       query.Scopes,
	}

	username, password, ok := r.BasicAuth()
	tokenRequest.Anonymous = !ok
	tokenRequest.Username = username
	tokenRequest.Password = password

	response, err := s.Service.TokenHandler(r.Context(), tokenRequest)
	if err != nil {
		handleError(err, w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
