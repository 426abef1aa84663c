package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/disintegration/imaging"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mule-ai/inkdash/internal/config"
	"github.com/mule-ai/inkdash/internal/registry"
	"github.com/mule-ai/inkdash/internal/scheduler"
	"github.com/mule-ai/inkdash/internal/server"
	"github.com/mule-ai/inkdash/pkg/dasherr"
	"github.com/mule-ai/inkdash/pkg/log"
	"github.com/mule-ai/inkdash/pkg/plugin"
	"github.com/mule-ai/inkdash/pkg/render"
	"github.com/mule-ai/inkdash/pkg/render/canvas"
	"github.com/mule-ai/inkdash/pkg/types"
)

type app struct {
	// flags holds CLI settings, v the device configuration.
	flags   *viper.Viper
	v       *viper.Viper
	logger  logr.Logger
	store   *config.Store
	plugins *plugin.Registry
}

func newRootCmd() *cobra.Command {
	a := &app{flags: viper.New(), v: viper.New()}
	a.flags.SetEnvPrefix(config.EnvPrefix)
	a.flags.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.flags.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:   "inkdash",
		Short: "Render dashboard images for e-paper displays",
		Long: `inkdash renders plugin images (weather, headlines, notices) sized for an
e-paper display, either once from the command line or on a schedule behind an
HTTP preview server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	rootCmd.PersistentFlags().String("config", config.DefaultPath(), "Path to the config file")
	rootCmd.PersistentFlags().String("log-file", "", "Write logs to this file instead of stdout")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	_ = a.flags.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = a.flags.BindPFlag("log.file", rootCmd.PersistentFlags().Lookup("log-file"))
	_ = a.flags.BindPFlag("log.debug", rootCmd.PersistentFlags().Lookup("debug"))

	rootCmd.AddCommand(
		createRenderCmd(a),
		createPluginsCmd(a),
		createServeCmd(a),
	)
	return rootCmd
}

func (a *app) setup() error {
	file := a.flags.GetString("log.file")
	paths := []string{"stdout"}
	if file != "" {
		paths = []string{file}
	}
	l, err := log.Build(a.flags.GetBool("log.debug"), paths...)
	if err != nil {
		return err
	}
	a.logger = l

	if path := a.flags.GetString("config"); path != "" {
		a.v.SetConfigFile(path)
	}
	store, err := config.New(a.v, l)
	if err != nil {
		return err
	}
	a.store = store
	a.plugins = registry.Build(registry.Options{
		Renderer: canvas.New(l),
		Presets:  store.Presets,
	}, l)
	return nil
}

func createRenderCmd(a *app) *cobra.Command {
	var (
		pluginID     string
		settingsFile string
		instance     string
		out          string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render one plugin image to a PNG file",
		Long:  "Render a plugin with settings from a JSON file, or a configured instance, and write the image as PNG",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := types.Settings{}
			if instance != "" {
				inst, ok := a.store.Instance(instance)
				if !ok {
					return fmt.Errorf("instance %q is not configured", instance)
				}
				pluginID = inst.Plugin
				settings = types.Settings(inst.Settings).Clone()
			}
			if settingsFile != "" {
				data, err := os.ReadFile(settingsFile)
				if err != nil {
					return fmt.Errorf("failed to read settings: %w", err)
				}
				if err := json.Unmarshal(data, &settings); err != nil {
					return fmt.Errorf("failed to parse settings %s: %w", settingsFile, err)
				}
			}
			if pluginID == "" {
				return fmt.Errorf("--plugin or --instance is required")
			}

			p, err := a.plugins.Get(pluginID)
			if err != nil {
				return userError(err, a.store)
			}
			img, err := plugin.Generate(cmd.Context(), p, settings, a.store, a.logger)
			if err != nil {
				return userError(err, a.store)
			}

			if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
				return err
			}
			if err := imaging.Save(img, out); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%dx%d)\n", out, img.Bounds().Dx(), img.Bounds().Dy())
			return nil
		},
	}

	cmd.Flags().StringVar(&pluginID, "plugin", "", "Plugin ID to render")
	cmd.Flags().StringVar(&settingsFile, "settings", "", "JSON file with plugin settings")
	cmd.Flags().StringVar(&instance, "instance", "", "Render a configured instance")
	cmd.Flags().StringVar(&out, "out", "out.png", "Output PNG file")
	return cmd
}

func createPluginsCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "List available plugins",
		RunE: func(cmd *cobra.Command, args []string) error {
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(a.plugins.Templates())
			}
			for _, id := range a.plugins.IDs() {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print settings templates as JSON")
	return cmd
}

func createServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run scheduled renders and the HTTP preview server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sched := scheduler.NewScheduler(a.logger)
			runner := scheduler.NewRunner(sched, a.plugins, a.store, scheduler.NewFrames(), a.logger)
			if err := runner.Sync(a.store.Instances()); err != nil {
				a.logger.Error(err, "Some instances could not be scheduled")
			}
			err := a.store.Watch(func() {
				if err := runner.Sync(a.store.Instances()); err != nil {
					a.logger.Error(err, "Some instances could not be scheduled")
				}
			})
			if err != nil {
				a.logger.Error(err, "Config changes will not be picked up")
			}
			defer func() { _ = a.store.Close() }()

			srv := server.New(server.Options{
				Plugins:   a.plugins,
				Device:    a.store,
				Presets:   a.store.Presets,
				Runner:    runner,
				Instances: a.store.Instance,
			}, a.logger)

			sched.Start()
			defer func() { <-sched.Stop().Done() }()
			return srv.Run(ctx, a.store.ServerAddr())
		},
	}

	cmd.Flags().String("addr", "", "Listen address, overrides server.addr")
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("addr") {
			_ = a.v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
		}
	}
	return cmd
}

// userError returns the localized message of a domain error for display.
func userError(err error, device render.Device) error {
	return fmt.Errorf("%s (%s)", dasherr.Message(err, render.Language(device)), dasherr.KindOf(dasherr.Wrap(err)))
}
