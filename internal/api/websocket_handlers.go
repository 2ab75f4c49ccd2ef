package api

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

// ServeWsHandler subscribes the caller to entry change events.
func (s *Server) ServeWsHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.wsHub.Serve(w, r); err != nil {
		log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket connection failed")
	}
}
