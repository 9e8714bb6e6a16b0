package main

import (
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	auth "github.com/goliatone/go-restaurant-auth"
)

// loggers hands out named glog loggers as auth.Logger.
type loggers struct {
	base *glog.BaseLogger
}

var _ auth.LoggerProvider = loggers{}

func newLoggers(level string) loggers {
	if level == "trace" || level == "debug" {
		return loggers{base: glog.NewLogger(
			glog.WithLoggerTypePretty(),
			glog.WithLevel(glog.Trace),
			glog.WithName("restaurantctl"),
			glog.WithAddSource(false),
			glog.WithRichErrorHandler(goerrors.ToSlogAttributes),
		)}
	}
	return loggers{base: glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithName("restaurantctl"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(goerrors.ToSlogAttributes),
	)}
}

func (l loggers) GetLogger(name string) auth.Logger {
	return l.base.GetLogger(name)
}
