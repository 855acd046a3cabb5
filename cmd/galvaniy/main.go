// galvaniy is the Galvaniy Labs server and offline report toolchain.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/assemble"
	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/auth"
	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/config"
	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/gen"
	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/logging"
	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/report"
	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/server"
	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/store"
)

var (
	configPath string
	verbose    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "galvaniy",
	Short: "Galvaniy Labs - Your Smart Lab Companion",
	Long: `Galvaniy Labs turns a University of Nairobi experiment code into a
complete interactive lab report: AI-generated content grounded in the lab
manual, an editable results table with live recalculation, a scatter chart
and a running apparatus simulation.

Run "galvaniy serve" to start the API server, or use "generate" and
"render" to produce reports offline.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Galvaniy Labs API server",
	RunE:  runServe,
}

var generateCmd = &cobra.Command{
	Use:   "generate [experiment-code]",
	Short: "Generate a report offline and write the JSON to a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runGenerate,
}

var renderCmd = &cobra.Command{
	Use:   "render [report.json]",
	Short: "Render a saved report JSON to interactive HTML and static PDF",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

var (
	generateOut string
	renderCode  string
	renderHTML  string
	renderPDF   string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config",
		filepath.Join(".galvaniy", "config.yaml"), "path to the config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	generateCmd.Flags().StringVarP(&generateOut, "out", "o", "", "output file (default <code>.json)")
	renderCmd.Flags().StringVar(&renderCode, "code", "", "experiment code shown on the document")
	renderCmd.Flags().StringVar(&renderHTML, "html", "", "interactive HTML output path")
	renderCmd.Flags().StringVar(&renderPDF, "pdf", "", "static PDF output path")

	rootCmd.AddCommand(serveCmd, generateCmd, renderCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := logging.Initialize("."); err != nil {
		logger.Warn("file logging disabled", zap.Error(err))
	}

	st, err := store.New(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.LLM.APIKey == "" {
		return errors.New("no API key configured; set GEMINI_API_KEY or llm.api_key")
	}
	client, err := gen.NewGeminiClient(ctx, cfg.LLM.APIKey, cfg.LLM.Model)
	if err != nil {
		return fmt.Errorf("create model client: %w", err)
	}
	generator := gen.New(client, st)

	watcher, err := gen.NewManualWatcher(cfg.Storage.ManualPath, generator)
	if err != nil {
		logger.Warn("manual watcher unavailable", zap.Error(err))
	} else if err := watcher.Start(ctx); err != nil {
		logger.Warn("manual watcher failed to start", zap.Error(err))
	} else {
		defer watcher.Stop()
	}

	authSvc := auth.New(st, nil)
	authSvc.DirectLogin = cfg.Auth.DirectLogin

	srv := server.New(cfg, st, authSvc, generator, logger)
	defer srv.Close()

	httpSrv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Routes(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening",
			zap.String("addr", cfg.Server.Addr),
			zap.String("model", cfg.LLM.Model))
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GetShutdownTimeout())
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func runGenerate(cmd *cobra.Command, args []string) error {
	code := args[0]
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.LLM.APIKey == "" {
		return errors.New("no API key configured; set GEMINI_API_KEY or llm.api_key")
	}

	ctx := cmd.Context()
	client, err := gen.NewGeminiClient(ctx, cfg.LLM.APIKey, cfg.LLM.Model)
	if err != nil {
		return fmt.Errorf("create model client: %w", err)
	}

	// Offline generation skips the store so it works without a database,
	// at the cost of admin references in the grounding context.
	generator := gen.New(client, nil)

	genCtx, cancel := context.WithTimeout(ctx, cfg.GetLLMTimeout())
	defer cancel()
	m, raw, err := generator.Generate(genCtx, code)
	if err != nil {
		return err
	}

	out := generateOut
	if out == "" {
		out = code + ".json"
	}
	if err := os.WriteFile(out, raw, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	fmt.Printf("Generated %q -> %s\n", m.Title, out)
	return nil
}

func runRender(cmd *cobra.Command, args []string) error {
	path := args[0]
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	m, err := report.Parse(raw)
	if err != nil {
		return err
	}

	code := renderCode
	if code == "" {
		code = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	htmlOut := renderHTML
	if htmlOut == "" {
		htmlOut = code + "_Interactive_Report.html"
	}
	pdfOut := renderPDF
	if pdfOut == "" {
		pdfOut = code + "_Report.pdf"
	}

	html, err := assemble.InteractiveHTML(m, code)
	if err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	if err := os.WriteFile(htmlOut, []byte(html), 0644); err != nil {
		return err
	}

	pdf, err := assemble.StaticPDF(m, code)
	if err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	if err := os.WriteFile(pdfOut, pdf, 0644); err != nil {
		return err
	}

	fmt.Printf("Rendered %q -> %s, %s\n", m.Title, htmlOut, pdfOut)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
