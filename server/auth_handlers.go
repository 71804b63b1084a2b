package server

import (
	"net/http"

	kiterrors "github.com/day2-ai/frameio-kit/internal/errors"
)

const callbackSuccessPage = `<!DOCTYPE html>
<html>
<head><title>Connected</title></head>
<body>
<h1>Account connected</h1>
<p>You can close this window and return to the application.</p>
</body>
</html>
`

// LoginHandler starts the authorization flow: mint a state token and
// redirect the browser to the identity provider.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("user_id")
		if userID == "" {
			http.Error(w, "Missing user_id parameter", http.StatusBadRequest)
			return
		}
		interactionID := r.URL.Query().Get("interaction_id")

		authURL, err := s.flow.Begin(r.Context(), userID, interactionID)
		if err != nil {
			s.log.Error().Err(err).Str("user_id", userID).Msg("failed to begin authorization flow")
			http.Error(w, "Unable to start authorization", http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// CallbackHandler completes the flow. The response body never says which
// check failed; the distinction between a missing, expired, and replayed
// state token only reaches the log.
func (s *Server) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		code := query.Get("code")
		state := query.Get("state")

		if errParam := query.Get("error"); errParam != "" {
			s.log.Warn().
				Str("error", errParam).
				Str("error_description", query.Get("error_description")).
				Msg("authorization denied by provider")
			http.Error(w, "Authorization failed", http.StatusBadRequest)
			return
		}
		if code == "" || state == "" {
			http.Error(w, "Authorization failed", http.StatusBadRequest)
			return
		}

		completion, err := s.flow.Complete(r.Context(), code, state)
		if err != nil {
			if kiterrors.Is(err, kiterrors.ErrInvalidState) {
				s.log.Warn().Err(err).Msg("state validation failed")
				http.Error(w, "Authorization failed", http.StatusBadRequest)
				return
			}
			s.log.Error().Err(err).Msg("token exchange failed")
			http.Error(w, "Authorization failed", http.StatusInternalServerError)
			return
		}

		s.log.Info().
			Str("user_id", completion.Record.UserID).
			Str("interaction_id", completion.InteractionID).
			Msg("authorization complete")

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(callbackSuccessPage))
	}
}
