package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// OAuth Routes
	RouteAuthLogin    = "/auth/login"
	RouteAuthCallback = "/auth/callback"

	// Installation Routes (consumed by the admin UI)
	RouteInstallStatus    = "/install/status"
	RouteInstallExecute   = "/install/execute"
	RouteInstallUninstall = "/install/uninstall"
)
