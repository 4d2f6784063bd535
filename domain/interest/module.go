package interest

import (
	"go.uber.org/fx"
)

// Module provides the waitlist API
var Module = fx.Module("interest",
	fx.Provide(NewRepository),
	fx.Provide(NewService),
	fx.Provide(NewRateLimiter),
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)
