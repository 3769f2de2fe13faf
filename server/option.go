// Package server holds the functional options shared by all server
// transports.
package server

import (
	"github.com/Siloft/siloft-networking/conf"
	"github.com/Siloft/siloft-networking/metrics"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
)

type Option func(o *Options)

func WithConf(conf conf.Config) Option {
	return func(o *Options) {
		o.conf = conf
	}
}

func WithLogger(logger log.Logger) Option {
	return func(o *Options) {
		o.logger = logger
	}
}

// WithReadFilter chains a middleware around the delivery of every inbound
// message to the received listeners.
func WithReadFilter(m middleware.Middleware) Option {
	return func(o *Options) {
		if o.readFilter == nil {
			o.readFilter = m
			return
		}

		o.readFilter = middleware.Chain(o.readFilter, m)
	}
}

// WithMetrics attaches prometheus collectors to the server's connection and
// packet flow.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Options) {
		o.metrics = m
	}
}

type Options struct {
	conf    conf.Config
	logger  log.Logger
	metrics *metrics.Metrics

	readFilter middleware.Middleware
}

func NewOptions(opts ...Option) *Options {
	ret := &Options{
		conf:   conf.Default(),
		logger: log.DefaultLogger,
		readFilter: middleware.Chain(
			recovery.Recovery(),
		),
	}

	for _, o := range opts {
		o(ret)
	}

	return ret
}

func (o *Options) Conf() conf.Config {
	return o.conf
}

func (o *Options) Logger() log.Logger {
	return o.logger
}

func (o *Options) Metrics() *metrics.Metrics {
	return o.metrics
}

func (o *Options) ReadFilter() middleware.Middleware {
	return o.readFilter
}
