package webservice

import "net/http"

type DConfigManager = dConfigManager

// HTTPServer returns the bridge server, before it is bound.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}
