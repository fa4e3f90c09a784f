package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/santiagomed/conjure/analytics"
	"github.com/santiagomed/conjure/client"
	"github.com/santiagomed/conjure/config"
	"github.com/santiagomed/conjure/core"
	"github.com/santiagomed/conjure/fs"
	"github.com/santiagomed/conjure/llm"
	"github.com/santiagomed/conjure/logger"
	"github.com/santiagomed/conjure/schema"
	"github.com/santiagomed/conjure/server"
	"github.com/santiagomed/conjure/store"
	"github.com/santiagomed/conjure/utils"
)

var rootCmd = &cobra.Command{
	Use:   "conjure",
	Short: "Conjure turns an app idea into working React code",
	Long: `Conjure is a CLI tool that uses AI to generate a single-file React app from a description,
then lets you refine it through chat, track token usage and save the results.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the generation backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.ListenAddr = addr
		}
		return runServe(cmd.Context(), cfg)
	},
}

var genCmd = &cobra.Command{
	Use:   "gen [prompt]",
	Short: "Generate an app interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		flags, err := parseGenFlags(cmd, args)
		if err != nil {
			return err
		}
		return runGenerate(cmd.Context(), cfg, flags)
	},
}

var savedCmd = &cobra.Command{
	Use:   "saved",
	Short: "Manage saved generations",
}

var savedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved generations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		return listSaved(cmd.Context(), c, cmd.OutOrStdout())
	},
}

var savedShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a saved generation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := savedID(args)
		if err != nil {
			return err
		}
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		return showSaved(cmd.Context(), c, id, cmd.OutOrStdout())
	},
}

var savedDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved generation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := savedID(args)
		if err != nil {
			return err
		}
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		return deleteSaved(cmd.Context(), c, id, cmd.OutOrStdout())
	},
}

var savedExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Write a saved generation to a project directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := savedID(args)
		if err != nil {
			return err
		}
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		dir, _ := cmd.Flags().GetString("dir")
		dst := fs.NewOsFileSystem()
		target, err := exportSaved(cmd.Context(), c, id, dst, dir)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Exported to %s\n", checkStyle.Render("✓"), nameStyle.Render(target))
		if listing, err := fileTree(dst, target); err == nil {
			fmt.Fprintln(cmd.OutOrStdout(), listing)
		}
		return nil
	},
}

var savedDownloadCmd = &cobra.Command{
	Use:   "download <id>",
	Short: "Download a saved generation as a zip and extract it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := savedID(args)
		if err != nil {
			return err
		}
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		return runDownload(cmd.Context(), c, id)
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Directory containing config.yaml")
	rootCmd.PersistentFlags().String("server", "", "Backend URL (overrides server_url)")

	serveCmd.Flags().String("addr", "", "Listen address (overrides listen_addr)")

	genCmd.Flags().StringP("model", "m", "", "Model id to generate with")
	genCmd.Flags().StringP("prompt", "p", "", "Initial prompt")
	genCmd.Flags().Float64("temperature", 0, "Sampling temperature")
	genCmd.Flags().Int("max-tokens", 0, "Maximum response tokens")

	savedExportCmd.Flags().StringP("dir", "d", ".", "Directory to export into")

	savedCmd.AddCommand(savedListCmd, savedShowCmd, savedDeleteCmd, savedExportCmd, savedDownloadCmd)
	rootCmd.AddCommand(serveCmd, genCmd, savedCmd)
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	if url, _ := cmd.Flags().GetString("server"); url != "" {
		cfg.ServerURL = url
	}
	return cfg, nil
}

func newClient(cmd *cobra.Command) (*client.Client, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return client.New(cfg.ServerURL, cfg.HTTPTimeout), nil
}

func parseGenFlags(cmd *cobra.Command, args []string) (genFlags, error) {
	model, err := cmd.Flags().GetString("model")
	if err != nil {
		return genFlags{}, err
	}
	prompt, err := cmd.Flags().GetString("prompt")
	if err != nil {
		return genFlags{}, err
	}
	if prompt == "" {
		prompt = strings.Join(args, " ")
	}
	temperature, err := cmd.Flags().GetFloat64("temperature")
	if err != nil {
		return genFlags{}, err
	}
	maxTokens, err := cmd.Flags().GetInt("max-tokens")
	if err != nil {
		return genFlags{}, err
	}
	if model != "" {
		if _, ok := schema.LookupModel(model); !ok {
			return genFlags{}, fmt.Errorf("unknown model %q", model)
		}
	}

	return genFlags{
		model:          model,
		prompt:         utils.SanitizeInput(prompt),
		temperature:    temperature,
		maxTokens:      maxTokens,
		setTemperature: cmd.Flags().Changed("temperature"),
		setMaxTokens:   cmd.Flags().Changed("max-tokens"),
	}, nil
}

func runServe(ctx context.Context, cfg *config.Config) error {
	if err := cfg.ValidateServer(); err != nil {
		return err
	}
	logger.InitLogger(logger.Options{Console: true, Level: cfg.LogLevel})
	l := logger.GetLogger()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Init(store.Config{Path: cfg.DatabasePath, Logger: l})
	if err != nil {
		return err
	}
	apps := store.NewAppRepository(db)
	saved := store.NewSavedGenerationRepository(db)

	llmCfg := cfg.LlmConfig()
	registry, err := llm.NewRegistryFromConfig(ctx, llmCfg, l)
	if err != nil {
		return err
	}
	generator := llm.NewService(registry, llmCfg, l)
	analyzer := analytics.NewService(apps, l)

	l.Info(fmt.Sprintf("Providers available: %s", strings.Join(registry.Names(), ", ")))
	return server.New(generator, analyzer, apps, saved, cfg.HTTPTimeout, l).ListenAndServe(ctx, cfg.ListenAddr)
}

func runGenerate(ctx context.Context, cfg *config.Config, f genFlags) error {
	logger.InitLogger(logger.Options{Level: cfg.LogLevel})
	l := logger.GetLogger()
	l.Debug("Initializing conjure wizard")

	c := client.New(cfg.ServerURL, cfg.HTTPTimeout)
	models := availableModels(ctx, c, l)

	model := f.model
	if model == "" {
		model = cfg.DefaultModel
	}
	publisher := NewCliStepPublisher(l)
	o := core.NewOrchestrator(c, model, publisher, l)
	applyGenFlags(o, f)

	engine := NewEngine(o, l, 1)
	m := newGenerateModel(o, publisher, engine, models, cfg.HTTPTimeout, l)
	defer m.Shutdown()

	p := tea.NewProgram(m, tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}

func applyGenFlags(o *core.Orchestrator, f genFlags) {
	if f.prompt != "" {
		o.SetPrompt(f.prompt)
	}
	if !f.setTemperature && !f.setMaxTokens {
		return
	}
	settings := o.Session().Settings
	if f.setTemperature {
		settings.Temperature = f.temperature
	}
	if f.setMaxTokens {
		settings.MaxTokens = f.maxTokens
	}
	o.UpdateSettings(settings)
}

// availableModels asks the backend which models it serves and falls back to the full catalogue.
func availableModels(ctx context.Context, c *client.Client, l logger.Logger) []schema.Model {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	models, err := c.Models(ctx)
	if err != nil || len(models) == 0 {
		l.WithField("error", fmt.Sprint(err)).Warn("Could not list backend models, using the catalogue")
		return schema.Catalog
	}
	return models
}

func runDownload(ctx context.Context, c SavedClient, id string) error {
	d, err := c.DownloadSaved(ctx, id)
	if err != nil {
		return fmt.Errorf("error downloading saved generation %s: %w", id, err)
	}
	defer d.Body.Close()

	file, err := os.CreateTemp("", "conjure-*-"+filepath.Base(d.Filename))
	if err != nil {
		return fmt.Errorf("could not create file: %w", err)
	}
	defer os.Remove(file.Name())
	defer file.Close()

	var p *tea.Program
	pw := &progressWriter{
		total:  d.Size,
		file:   file,
		reader: d.Body,
		onProgress: func(ratio float64) {
			p.Send(progressMsg(ratio))
		},
	}
	p = tea.NewProgram(newDownloadCmdModel(pw, file.Name(), fs.NewOsFileSystem()))
	go pw.Start(p)

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	if m, ok := final.(downloadCmdModel); ok && m.err != nil {
		return m.err
	}
	return nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
}
