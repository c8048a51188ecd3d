package session

import "go.uber.org/fx"

// Module provides the cookie Manager used by the HTTP server.
var Module = fx.Module("auth.session", fx.Provide(NewManager))
