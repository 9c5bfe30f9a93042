package http

import (
	"go.uber.org/fx"

	checkouttransport "github.com/sibrendebast/manenbrouw-website-sub000/internal/transport/http/checkout"
	ordertransport "github.com/sibrendebast/manenbrouw-website-sub000/internal/transport/http/order"
	webhooktransport "github.com/sibrendebast/manenbrouw-website-sub000/internal/transport/http/webhook"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	checkouttransport.Module,
	ordertransport.Module,
	webhooktransport.Module,
)
