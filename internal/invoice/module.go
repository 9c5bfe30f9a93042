package invoice

import "go.uber.org/fx"

// Module provides the invoice generator and document store to Fx.
var Module = fx.Options(
	fx.Provide(NewGenerator),
	fx.Provide(NewDocumentStore),
)
