package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"

	"github.com/kiliankoe/planningpoker/internal/config"
	"github.com/kiliankoe/planningpoker/internal/game"
	"github.com/kiliankoe/planningpoker/internal/httpapi"
	"github.com/kiliankoe/planningpoker/internal/ws"
	staticserver "github.com/kiliankoe/planningpoker/static"
)

const version = "v1.0.0-dev"

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		portFlag    = flag.String("port", "", "Port to listen on (overrides PORT env var)")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`Planning Poker - shared estimation board

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --port PORT     Port to listen on (default: 8080 or PORT env var)

Environment Variables:
  PORT             Port to listen on (default: 8080)
  SINGLE_SESSION   Allow only one active session (default: true)
  HOST_USER        Username for basic auth on session setup
  HOST_PASS        Password for basic auth on session setup
  EXPORT_DIR       Directory for exported estimations (default: ./exports)
  LOG_LEVEL        trace, debug, info, warn or error (default: info)
  LOG_FORMAT       console or json (default: console)

Examples:
  %s                  Start server with default settings
  %s --port 3000      Start server on port 3000

Visit http://localhost:8080 after starting the server.
`, os.Args[0], os.Args[0], os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("Planning Poker %s\n", version)
		return
	}

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *portFlag != "" {
		cfg.Port = *portFlag
	}

	setupLogger(cfg)

	gin.SetMode(gin.ReleaseMode)
	r, io := newEngine(cfg, game.NewRoomManager())
	defer io.Close()

	zerologlog.Info().Str("port", cfg.Port).Str("exportDir", cfg.ExportDir).Bool("singleSession", cfg.SingleSession).Msg("listening")
	if err := r.Run(":" + cfg.Port); err != nil {
		zerologlog.Fatal().Err(err).Msg("server stopped")
	}
}

// newEngine wires the REST API, the socket.io board channel and the board
// page onto one gin engine.
func newEngine(cfg config.Config, rm *game.RoomManager) (*gin.Engine, *socketio.Server) {
	// Gin setup with custom logger (skip /socket.io noise)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/socket.io") || path == "/health" {
			return
		}
		zerologlog.Info().Str("method", c.Request.Method).Str("path", path).Int("status", c.Writer.Status()).Dur("dur", time.Since(start)).Msg("http")
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	api := httpapi.New(rm, cfg)
	api.Register(r)

	sock := ws.New(rm, cfg)
	io := sock.Mount(r)
	api.OnChange(sock.Broadcast)

	r.NoRoute(func(c *gin.Context) {
		staticserver.Handler().ServeHTTP(c.Writer, c.Request)
	})
	return r, io
}

func setupLogger(cfg config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.LogFormat == "json" {
		zerologlog.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
		return
	}
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	zerologlog.Logger = zerologlog.Output(cw)
}
