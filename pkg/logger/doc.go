// Package logger provides a structured logging interface for the writeup downloader.
//
// It wraps the zerolog library to provide a clean, easy-to-use API with support for:
// - Multiple log levels (Debug, Info, Warn, Error)
// - Structured logging with fields
// - Pretty console output with colors on stderr
// - Optional JSON file output
// - Global logger instance for easy access
//
// Basic Usage:
//
//	import "htbwriteups/pkg/logger"
//
//	// Initialize the global logger
//	cfg := &config.LoggingConfig{
//	    Level: "info",
//	    File:  "/tmp/htbwriteups.log",
//	}
//	err := logger.Initialize(cfg)
//
//	// Use the global logger
//	logger.Info("Application started")
//	logger.WithField("machine_id", 1).Info("Resolving machine")
//	logger.WithError(err).Error("Failed to download writeup")
//
// Advanced Usage:
//
//	log := logger.GetLogger().WithField("component", "fetcher")
//
//	log.InfoWithFields("Download completed", map[string]interface{}{
//	    "file":     "Lame.pdf",
//	    "size":     1024000,
//	    "duration": time.Second * 5,
//	})
//
// Levels are debug, info, warn, error and disabled. The default is warn,
// so request-level detail only shows up with --log-level debug.
package logger
