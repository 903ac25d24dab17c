package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	glspserver "github.com/tliron/glsp/server"
	"github.com/urfave/cli/v2"

	"github.com/CWBudde/go-spin2-lsp/internal/discovery"
	"github.com/CWBudde/go-spin2-lsp/internal/lsp"
	"github.com/CWBudde/go-spin2-lsp/internal/server"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "0.1.0"

func main() {
	lsp.Version = version

	app := &cli.App{
		Name:    "spin2-lsp",
		Usage:   "Language Server Protocol implementation for Spin2",
		Version: version,
		Flags:   serveFlags(),
		Action:  serveCommand,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the language server (default)",
				Flags:  serveFlags(),
				Action: serveCommand,
			},
			{
				Name:      "discover",
				Usage:     "Scan a workspace and print the include directories each folder needs",
				ArgsUsage: "<workspace-dir>",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "exclude",
						Usage: "Directory or glob to skip (repeatable)",
					},
					&cli.BoolFlag{
						Name:  "write",
						Usage: "Store the result in the workspace policy file",
					},
				},
				Action: discoverCommand,
			},
			{
				Name:      "deps",
				Usage:     "Print the OBJ and #include dependency tree of a file as JSON",
				ArgsUsage: "<file.spin2>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "flexspin",
						Usage: "Honour #include and other flexspin preprocessor directives",
					},
				},
				Action: depsCommand,
			},
			{
				Name:      "check",
				Usage:     "Print the problems found in Spin2 files",
				ArgsUsage: "<file.spin2>...",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "flexspin",
						Usage: "Honour #include and other flexspin preprocessor directives",
					},
				},
				Action: checkCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func serveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "tcp",
			Usage: "Run server in TCP mode (for debugging)",
		},
		&cli.IntFlag{
			Name:  "port",
			Usage: "TCP port to listen on (used with --tcp)",
			Value: 8765,
		},
		&cli.StringFlag{
			Name:  "log-file",
			Usage: "Log file path (default: stderr)",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Config file path (default: <workspace>/.spin2/config.toml)",
		},
	}
}

func serveCommand(c *cli.Context) error {
	if err := setupLogging(c.String("log-file")); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "spin2-lsp version %s starting...\n", version)

	srv := server.New()
	if path := c.String("config"); path != "" {
		srv.SetConfigFile(path)
	}

	lsp.SetServer(srv)

	glspServer := glspserver.NewServer(lsp.NewHandler(), lsp.ServerName, false)

	if c.Bool("tcp") {
		addr := fmt.Sprintf("127.0.0.1:%d", c.Int("port"))
		fmt.Fprintf(os.Stderr, "Starting TCP server on %s...\n", addr)

		if err := glspServer.RunTCP(addr); err != nil {
			return fmt.Errorf("TCP server: %w", err)
		}

		return nil
	}

	fmt.Fprintf(os.Stderr, "Starting STDIO server...\n")

	if err := glspServer.RunStdio(); err != nil {
		return fmt.Errorf("STDIO server: %w", err)
	}

	return nil
}

// setupLogging sends the log to path, or to stderr when path is empty.
// Stdout carries the protocol and is never logged to.
func setupLogging(path string) error {
	if path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}

		log.SetOutput(f)
	} else {
		log.SetOutput(os.Stderr)
	}

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	return nil
}

func discoverCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("discover needs exactly one workspace directory", 2)
	}

	root, err := filepath.Abs(c.Args().First())
	if err != nil {
		return fmt.Errorf("failed to resolve %q: %w", c.Args().First(), err)
	}

	log.SetOutput(io.Discard)

	opts := discovery.Options{Exclude: c.StringSlice("exclude")}
	if c.Bool("write") {
		opts.PolicyFile = discovery.PolicyPath(root)
	}

	d := discovery.New(opts, nil, nil)
	d.SetRoot(root)

	if _, err := d.Run(context.Background(), []string{root}); err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}

	data, err := discovery.EncodePolicy(d.Policy())
	if err != nil {
		return err
	}

	_, err = c.App.Writer.Write(data)

	return err
}

// loadFile parses path and the files it depends on into a fresh server.
func loadFile(arg string, flexspin bool) (*server.Server, string, error) {
	path, err := filepath.Abs(arg)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve %q: %w", arg, err)
	}

	srv := server.New()
	srv.SetWorkspaceFolders([]string{filepath.Dir(path)})

	if err := srv.LoadWorkspaceConfig(); err != nil {
		log.Printf("Warning: %v\n", err)
	}

	if flexspin {
		srv.UpdateConfig(func(cfg *server.Config) {
			cfg.HighlightFlexspinDirectives = true
		})
	}

	if _, err := srv.Processor().Reprocess(path); err != nil {
		return nil, "", err
	}

	return srv, path, nil
}

func depsCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("deps needs exactly one file", 2)
	}

	log.SetOutput(io.Discard)

	srv, path, err := loadFile(c.Args().First(), c.Bool("flexspin"))
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(srv.DependencyTree().Tree(path), "", "  ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(c.App.Writer, string(data))

	return err
}

func checkCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("check needs at least one file", 2)
	}

	log.SetOutput(io.Discard)

	found := 0

	for _, arg := range c.Args().Slice() {
		srv, path, err := loadFile(arg, c.Bool("flexspin"))
		if err != nil {
			return err
		}

		for _, p := range srv.Processor().Problems(path) {
			found++
			fmt.Fprintf(c.App.Writer, "%s:%d:%d: %s\n", arg, p.Range.Start.Line+1, p.Range.Start.Character+1, p.Message)
		}
	}

	if found > 0 {
		return cli.Exit(fmt.Sprintf("%d problem(s)", found), 1)
	}

	return nil
}
