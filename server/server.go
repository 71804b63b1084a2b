package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/day2-ai/frameio-kit/install"
	"github.com/day2-ai/frameio-kit/internal/config"
	kiterrors "github.com/day2-ai/frameio-kit/internal/errors"
	"github.com/day2-ai/frameio-kit/oauth"
)

type Server struct {
	env      string // Environment (e.g., "DEV", "production")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	flow     *oauth.Flow
	tokens   *oauth.Manager
	installs *install.Manager
	log      zerolog.Logger
}

// New validates the wiring before any route is registered: an
// installation surface without a configured OAuth flow would hand out
// records no user could ever authorize against.
func New(cfg config.Config, flow *oauth.Flow, tokens *oauth.Manager, installs *install.Manager, log zerolog.Logger) (*Server, error) {
	if installs != nil && flow == nil {
		return nil, kiterrors.Wrapf(kiterrors.ErrConfiguration, "Server.New installation surface enabled without an OAuth flow")
	}

	s := &Server{
		mux:      http.NewServeMux(),
		config:   cfg,
		flow:     flow,
		tokens:   tokens,
		installs: installs,
		log:      log,
	}
	s.env = cfg.GetEnv()

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) initRoutes() {
	if s.flow != nil {
		s.RegisterRouteFunc("GET "+RouteAuthLogin, s.LoginHandler())
		s.RegisterRouteFunc("GET "+RouteAuthCallback, s.CallbackHandler())
	}
	if s.installs != nil {
		s.RegisterRouteFunc("GET "+RouteInstallStatus, s.InstallStatusHandler())
		s.RegisterRouteFunc("POST "+RouteInstallExecute, s.InstallExecuteHandler())
		s.RegisterRouteFunc("POST "+RouteInstallUninstall, s.InstallUninstallHandler())
	}
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	fmt.Printf("[%-19s] %s\n", displayMethod, path)
}
