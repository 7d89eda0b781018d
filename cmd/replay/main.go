package main

import (
	"flag"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"gridtactics.dev/internal/logging"
	"gridtactics.dev/internal/sim/commands"
	"gridtactics.dev/internal/sim/tuning"
)

func main() {
	var (
		gameDir    = flag.String("dir", "", "game run directory (contains journal/ and snapshots/)")
		snapPath   = flag.String("snapshot", "", "snapshot to verify against (default: latest in <dir>/snapshots)")
		tuningPath = flag.String("tuning", "./configs/game.yaml", "tuning file the game ran with")
		modeFlag   = flag.String("mode", "", "command log mode (local|networked); overrides the tuning file")
		logLevel   = flag.String("log_level", "info", "log level")
		logFormat  = flag.String("log_format", "text", "log format (text|json)")
	)
	flag.Parse()
	logger := logging.New(*logLevel, *logFormat)

	if *gameDir == "" {
		logger.Error("missing -dir")
		os.Exit(2)
	}

	modeName := strings.TrimSpace(*modeFlag)
	if modeName == "" {
		tune, err := tuning.Load(*tuningPath)
		if err != nil {
			logger.WithError(err).Fatal("load tuning (or pass -mode)")
		}
		modeName = tune.LogMode
	}
	mode, err := commands.ParseMode(modeName)
	if err != nil {
		logger.WithError(err).Fatal("mode")
	}

	snap := strings.TrimSpace(*snapPath)
	if snap == "" {
		snap = latestSnapshot(*gameDir)
	}
	res, err := verify(*gameDir, snap, mode)
	if err != nil {
		logger.WithError(err).Fatal("replay")
	}
	fields := logrus.Fields{
		"entries": res.Entries,
		"history": res.History,
		"tick":    res.Tick,
		"digest":  res.Digest,
	}
	if res.Snapshot == "" {
		logger.WithFields(fields).Info("replay ok (no snapshot to verify against)")
		return
	}
	fields["snapshot"] = res.Snapshot
	logger.WithFields(fields).Info("replay ok: digest matches snapshot")
}
