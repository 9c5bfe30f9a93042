package app

import (
	"go.uber.org/fx"

	"github.com/sibrendebast/manenbrouw-website-sub000/internal/cache"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/config"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/database"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/invoice"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/logger"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/mailer"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/messaging"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/notify"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/observability"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/payment"
	repositorycatalog "github.com/sibrendebast/manenbrouw-website-sub000/internal/repository/catalog"
	repositorynewsletter "github.com/sibrendebast/manenbrouw-website-sub000/internal/repository/newsletter"
	repositoryorder "github.com/sibrendebast/manenbrouw-website-sub000/internal/repository/order"
	httpserver "github.com/sibrendebast/manenbrouw-website-sub000/internal/server/http"
	servicecheckout "github.com/sibrendebast/manenbrouw-website-sub000/internal/service/checkout"
	serviceorder "github.com/sibrendebast/manenbrouw-website-sub000/internal/service/order"
	transporthttp "github.com/sibrendebast/manenbrouw-website-sub000/internal/transport/http"
	"github.com/sibrendebast/manenbrouw-website-sub000/internal/worker"
	workerorder "github.com/sibrendebast/manenbrouw-website-sub000/internal/worker/order"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
	invoice.Module,
	payment.Module,
	mailer.Module,
	notify.Module,
	repositorycatalog.Module,
	repositorynewsletter.Module,
	repositoryorder.Module,
	servicecheckout.Module,
	serviceorder.Module,
)

// HTTP wires the HTTP transport on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	transporthttp.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerorder.Module,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
