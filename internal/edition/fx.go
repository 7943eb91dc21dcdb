package edition

import "go.uber.org/fx"

var Module = fx.Module("edition",
	fx.Provide(NewSchedule),
	fx.Provide(NewGate),
	fx.Provide(NewRegistry),
)
