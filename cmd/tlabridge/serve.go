package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tlaplus/tlabridge/internal/export"
	"github.com/tlaplus/tlabridge/internal/host"
	"github.com/tlaplus/tlabridge/internal/jsonrpc"
	"github.com/tlaplus/tlabridge/internal/projectconfig"
	"github.com/tlaplus/tlabridge/internal/toolchain"
	"github.com/tlaplus/tlabridge/internal/viewsync"
	"golang.org/x/sync/errgroup"
)

type serveOptions struct {
	configPath     string
	dir            string
	tcpAddr        string
	tcpAllowRemote bool
}

func newServeCommand() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start a JSON-RPC 2.0 server for editor integration",
		Long: `Start a JSON-RPC 2.0 server for editor integration.

By default, the server communicates over stdin/stdout using newline-delimited JSON.
Logs go to stderr. Every connection gets its own result view and tool chain.

Use --tcp to start a TCP server instead (useful for debugging).
TCP defaults to loopback (127.0.0.1) for security. Use --tcp-allow-remote to bind
to all interfaces.

Supported methods:
  view.submit       Record a new check result
  view.reveal       Reveal the result panel with a check result
  view.revealEmpty  Reveal the result panel with no result
  view.revealLast   Reveal the result panel with the last result
  view.visibility   Report a panel visibility change
  view.disposed     Report that the panel was closed
  view.message      Forward a message sent by the panel
  view.state        Get the result view state
  export.tex        Export a module to LaTeX (returns run ID)
  export.pdf        Export a module to PDF (returns run ID)
  run.status        Get export run status
  config.update     Apply editor settings`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts, os.Stdin, os.Stdout, slog.Default())
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "Path to the configuration file (default: search upwards for "+projectconfig.FileName+")")
	cmd.Flags().StringVar(&opts.dir, "dir", ".", "Directory to start the configuration search from")
	cmd.Flags().StringVar(&opts.tcpAddr, "tcp", "", "TCP address to listen on (e.g., :9000)")
	cmd.Flags().BoolVar(&opts.tcpAllowRemote, "tcp-allow-remote", false,
		"Allow binding to non-loopback addresses (WARNING: exposes the server to the network with no authentication)")

	return cmd
}

// runServe serves JSON-RPC sessions until the client goes away or ctx is
// done, reloading the configuration file whenever it changes.
func runServe(ctx context.Context, opts serveOptions, stdin io.Reader, stdout io.Writer, logger *slog.Logger) error {
	absDir, err := filepath.Abs(opts.dir)
	if err != nil {
		return err
	}
	cfg, err := loadProjectConfig(opts.configPath, absDir)
	if err != nil {
		return err
	}
	store := projectconfig.NewStore(cfg, cfg.Path, logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return store.Watch(ctx)
	})

	if opts.tcpAddr != "" {
		addr := resolveTCPAddr(opts.tcpAddr, opts.tcpAllowRemote, logger)
		listener, err := jsonrpc.NewTCPListener(addr, func(t *jsonrpc.Transport) {
			serveSession(ctx, store, t, logger)
		})
		if err != nil {
			cancel()
			_ = g.Wait() //nolint:errcheck
			return fmt.Errorf("failed to start TCP server: %w", err)
		}
		fmt.Fprintf(os.Stderr, "JSON-RPC server listening on %s\n", listener.Addr())

		g.Go(func() error {
			<-ctx.Done()
			return listener.Close()
		})
		g.Go(func() error {
			if err := listener.Serve(); !errors.Is(err, net.ErrClosed) {
				return err
			}
			return nil
		})
		return g.Wait()
	}

	fmt.Fprintln(os.Stderr, "JSON-RPC server running on stdio")
	if c, ok := stdin.(io.Closer); ok {
		// Unblock the pending read on shutdown.
		go func() {
			<-ctx.Done()
			_ = c.Close() //nolint:errcheck
		}()
	}
	g.Go(func() error {
		defer cancel()
		serveSession(ctx, store, jsonrpc.NewTransport(stdin, stdout), logger)
		return nil
	})
	return g.Wait()
}

// serveSession wires one client connection: a result view and a tool chain
// whose panel, output channels and messages all go back over t.
func serveSession(ctx context.Context, store *projectconfig.Store, t *jsonrpc.Transport, logger *slog.Logger) {
	cfg := store.Config()
	editor := host.NewRPC(t, logger)

	events, err := openEventLog(cfg)
	if err != nil {
		logger.Warn("session logging disabled", "error", err)
	} else {
		defer events.Close() //nolint:errcheck
	}

	view := viewsync.NewController(editor, viewsync.Options{
		Title:    cfg.View.Title,
		Commands: editor,
		Files:    editor,
		Logger:   logger,
	})
	orch := toolchain.New(toolchain.Options{
		Sinks:  toolchain.NewSinks(editor.Sink),
		Events: events,
		Logger: logger,
	})
	exporter := export.New(export.Options{
		Orchestrator: orch,
		Notifier:     editor,
		Tools:        store.Tools,
		Logger:       logger,
	})

	hctx := jsonrpc.NewHandlerContext(ctx, jsonrpc.HandlerOptions{
		View:     view,
		Exporter: exporter,
		Config:   store,
		Notifier: t,
		Logger:   logger,
	})
	registry := jsonrpc.NewMethodRegistry()
	jsonrpc.RegisterHandlers(registry, hctx)

	jsonrpc.NewServer(registry, logger).ServeTransport(ctx, t)
	hctx.Wait()
}

// resolveTCPAddr ensures TCP addresses default to loopback unless --tcp-allow-remote is set.
func resolveTCPAddr(addr string, allowRemote bool, logger *slog.Logger) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		// Likely just a port like "9000"; treat as ":9000".
		host = ""
		port = addr
	}

	if allowRemote {
		logger.Warn("TCP server binding to all interfaces, no authentication is provided",
			"address", addr)
		return addr
	}

	// Default to loopback if no host specified or if 0.0.0.0/:: is used without --tcp-allow-remote.
	if host == "" || host == "0.0.0.0" || host == "::" {
		logger.Info("JSON-RPC server listening on TCP (local only)")
		return net.JoinHostPort("127.0.0.1", port)
	}

	return addr
}
