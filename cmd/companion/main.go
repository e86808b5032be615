package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/beego/beego/v2/server/web"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aihub/campus-companion/app/bootstrap"
	"github.com/aihub/campus-companion/app/router"
	"github.com/aihub/campus-companion/internal/intent"
	"github.com/aihub/campus-companion/internal/routing"
)

func main() {
	var opts bootstrap.Options

	rootCmd := &cobra.Command{
		Use:           "companion",
		Short:         "campus companion query service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "path to config file (yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override log level")

	rootCmd.AddCommand(
		newServeCmd(&opts),
		newAskCmd(&opts),
		newClassifyCmd(&opts),
		newSearchCmd(&opts),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newServeCmd(opts *bootstrap.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.Init(*opts)
			if err != nil {
				return err
			}
			defer app.Shutdown()

			router.Init(app)

			web.BConfig.AppName = app.Config.App.Name
			web.BConfig.CopyRequestBody = true
			web.BConfig.Listen.HTTPAddr = app.Config.Server.Host
			web.BConfig.Listen.HTTPPort = app.Config.Server.Port
			if app.Config.App.Env == "production" {
				web.BConfig.RunMode = web.PROD
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				sig := <-sigCh
				app.Logger.Info("shutting down", zap.String("signal", sig.String()))
				app.Shutdown()
				os.Exit(0)
			}()

			app.Logger.Info("starting campus companion",
				zap.String("host", app.Config.Server.Host),
				zap.Int("port", app.Config.Server.Port))
			web.Run()
			return nil
		},
	}
}

func newAskCmd(opts *bootstrap.Options) *cobra.Command {
	var useSemantic, diagnostics bool
	cmd := &cobra.Command{
		Use:   "ask <query>",
		Short: "answer a query through the full routing pipeline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.Init(*opts)
			if err != nil {
				return err
			}
			defer app.Shutdown()

			answer, err := app.Orchestrator.ClassifyAndRoute(cmd.Context(), strings.Join(args, " "), routing.Options{
				UseSemantic: useSemantic,
				Diagnostics: diagnostics,
			})
			if err != nil {
				return err
			}
			if diagnostics {
				return printJSON(answer)
			}
			fmt.Println(answer.Payload.Text)
			return nil
		},
	}
	cmd.Flags().BoolVar(&useSemantic, "semantic", false, "allow semantic arbitration for ambiguous queries")
	cmd.Flags().BoolVar(&diagnostics, "diagnostics", false, "print the full answer with classification as JSON")
	return cmd
}

func newClassifyCmd(opts *bootstrap.Options) *cobra.Command {
	var useSemantic bool
	cmd := &cobra.Command{
		Use:   "classify <query>",
		Short: "print the fused intent classification for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.Init(*opts)
			if err != nil {
				return err
			}
			defer app.Shutdown()

			result := app.Classifier.Classify(cmd.Context(), strings.Join(args, " "), intent.Options{UseSemantic: useSemantic})
			return printJSON(result)
		},
	}
	cmd.Flags().BoolVar(&useSemantic, "semantic", false, "allow semantic arbitration for ambiguous queries")
	return cmd
}

func newSearchCmd(opts *bootstrap.Options) *cobra.Command {
	var (
		topK     int
		minScore float64
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "run semantic retrieval against the knowledge index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.Init(*opts)
			if err != nil {
				return err
			}
			defer app.Shutdown()

			if app.Retrieval == nil {
				return fmt.Errorf("knowledge search is disabled (knowledge.enabled=false)")
			}
			passages, err := app.Retrieval.Search(cmd.Context(), strings.Join(args, " "), topK, minScore)
			if err != nil {
				return err
			}
			return printJSON(passages)
		},
	}
	cmd.Flags().IntVar(&topK, "top-k", 0, "number of passages to return (0 uses the configured default)")
	cmd.Flags().Float64Var(&minScore, "min-score", -1, "minimum similarity score (negative uses the configured default)")
	return cmd
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
