package main

import (
	"log/slog"

	"github.com/georgemblack/snapgram/pkg/app"
	"github.com/georgemblack/snapgram/pkg/util"
)

func main() {
	if util.GetEnvBool("DEBUG", false) {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}
	err := app.Realtime()
	if err != nil {
		slog.Error(err.Error())
	}
}
