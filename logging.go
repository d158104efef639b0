package main

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// setupLogging duplicates the standard logger into a rotating file when
// cfg.LogFile is set. The returned closer flushes the file on shutdown.
func setupLogging(cfg Config) io.Closer {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	if cfg.LogFile == "" {
		return io.NopCloser(nil)
	}

	logFile := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAgeDays,
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, logFile))
	log.Printf("Logging to %s (max %d MB, %d backups, %d days)",
		cfg.LogFile, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays)
	return logFile
}
