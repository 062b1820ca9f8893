package bootstrap

import (
	"go.uber.org/fx"
)

var Module = fx.Module("bootstrap",
	fx.Provide(NewGate),
	fx.Invoke(func(lc fx.Lifecycle, gate *Gate) {
		lc.Append(fx.Hook{OnStart: gate.Check})
	}),
)
