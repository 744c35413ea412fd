package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pacerhq/pacer/internal/appid"
	"github.com/pacerhq/pacer/internal/backoff"
	"github.com/pacerhq/pacer/internal/config"
	"github.com/pacerhq/pacer/internal/delivery"
	apperrors "github.com/pacerhq/pacer/internal/errors"
	"github.com/pacerhq/pacer/internal/observability"
	"github.com/pacerhq/pacer/internal/output"
	"github.com/pacerhq/pacer/internal/retry"
	"github.com/pacerhq/pacer/internal/transport"
)

var deliverCmd = &cobra.Command{
	Use:   "deliver <file>",
	Short: "Deliver payloads from a file, one per line",
	Long: `Read payloads from file (one per line, "-" for stdin) and send each to
the configured endpoint. Sends run sequentially with an adaptive delay between
them; a 404 from the endpoint stops the run.`,
	Args: cobra.ExactArgs(1),
	RunE: runDeliver,
}

func init() {
	rootCmd.AddCommand(deliverCmd)

	deliverCmd.Flags().String("endpoint", "", "URL to deliver payloads to")
	deliverCmd.Flags().String("method", "POST", "HTTP method")
	deliverCmd.Flags().StringArrayP("header", "H", nil, "extra request header as 'Name: value' (repeatable)")
	deliverCmd.Flags().String("content-type", "", "Content-Type header (defaults from --body-format)")
	deliverCmd.Flags().String("body-format", "json", "Payload line format: json, form, raw")
	deliverCmd.Flags().Duration("delay", 0, "initial delay between sends (default from config)")
	deliverCmd.Flags().Int("max-attempts", 0, "attempts per payload (default from config)")
	deliverCmd.Flags().Bool("count-rate-limit-errors", false, "count 429 responses toward backoff")
	deliverCmd.Flags().String("output", "table", "Summary format: table, json, yaml, markdown")
	deliverCmd.Flags().Bool("metrics", false, "expose Prometheus metrics during the run")

	_ = viper.BindPFlag("endpoint", deliverCmd.Flags().Lookup("endpoint"))
	_ = viper.BindPFlag("method", deliverCmd.Flags().Lookup("method"))
	_ = viper.BindPFlag("content_type", deliverCmd.Flags().Lookup("content-type"))
	_ = viper.BindPFlag("retry.count_rate_limit_as_error", deliverCmd.Flags().Lookup("count-rate-limit-errors"))
	_ = viper.BindPFlag("metrics.enabled", deliverCmd.Flags().Lookup("metrics"))
}

func runDeliver(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("delay") {
		delay, err := cmd.Flags().GetDuration("delay")
		if err != nil {
			return err
		}
		viper.Set("delay.initial", delay.String())
	}
	if cmd.Flags().Changed("max-attempts") {
		attempts, err := cmd.Flags().GetInt("max-attempts")
		if err != nil {
			return err
		}
		viper.Set("retry.max_attempts", attempts)
	}

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	formatValue, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(formatValue)
	if err != nil {
		return apperrors.NewInvalidInputError(err.Error())
	}

	bodyFormatValue, err := cmd.Flags().GetString("body-format")
	if err != nil {
		return err
	}
	bodyFormat, err := delivery.ParseBodyFormat(bodyFormatValue)
	if err != nil {
		return apperrors.NewInvalidInputError(err.Error())
	}

	rawHeaders, err := cmd.Flags().GetStringArray("header")
	if err != nil {
		return err
	}
	headers, err := parseHeaders(rawHeaders)
	if err != nil {
		return apperrors.NewInvalidInputError(err.Error())
	}

	payloads, err := delivery.ReadPayloadsFile(args[0], bodyFormat)
	if err != nil {
		return apperrors.NewInvalidInputError(err.Error())
	}
	if len(payloads) == 0 {
		return apperrors.NewInvalidInputError("no payloads found in input")
	}

	contentType := cfg.ContentType
	if contentType == "" {
		contentType = bodyFormat.ContentType()
	}

	client, err := transport.New(transport.Config{
		Endpoint:    cfg.Endpoint,
		Method:      cfg.Method,
		ContentType: contentType,
		Headers:     headers,
		Timeout:     cfg.Timeout,
		UserAgent:   fmt.Sprintf("%s/%s", appid.BinaryName, versionInfo.Version),
	})
	if err != nil {
		return apperrors.WrapConfigInvalid(err, "invalid endpoint")
	}
	defer client.Close()

	if cfg.Metrics.Enabled {
		if err := observability.InitMetrics(appid.BinaryName, cfg.Metrics.Port); err != nil {
			observability.CLILogger.Warn("Failed to start metrics exporter", zap.Error(err))
		} else {
			observability.CLILogger.Info("Metrics exporter listening", zap.Int("port", observability.GetMetricsPort()))
		}
	}

	logger := observability.CLILogger
	controller, err := backoff.New(cfg.Delay)
	if err != nil {
		return apperrors.WrapConfigInvalid(err, "invalid delay settings")
	}
	policy, err := retry.NewPolicy(cfg.Retry, controller, retry.WithLogger(logger))
	if err != nil {
		return apperrors.WrapConfigInvalid(err, "invalid retry settings")
	}

	runner := &delivery.Runner{
		Policy:      policy,
		Transport:   client,
		Logger:      logger,
		Endpoint:    client.Endpoint,
		AdjustEvery: cfg.Run.AdjustEvery,
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// On SIGINT/SIGTERM stop sending, then hold shutdown until the partial
	// summary has been written.
	finished := make(chan struct{})
	defer close(finished)
	signals.OnShutdown(func(shutdownCtx context.Context) error {
		logger.Warn("Shutdown requested; stopping delivery run")
		cancel()
		select {
		case <-finished:
		case <-shutdownCtx.Done():
		}
		return nil
	})

	listenCtx, stopListening := context.WithCancel(cmd.Context())
	defer stopListening()
	go func() {
		if err := signals.Listen(listenCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("Signal handler error", zap.Error(err))
		}
	}()

	logger.Info("Starting delivery run",
		zap.String("endpoint", client.Endpoint),
		zap.Int("payloads", len(payloads)),
		zap.Duration("initial_delay", controller.Current()),
		zap.Int("max_attempts", cfg.Retry.MaxAttempts))

	summary, runErr := runner.Run(ctx, payloads)
	if summary != nil {
		logger.Info("Delivery run finished",
			zap.String("run_id", summary.RunID),
			zap.Int("total", summary.Total),
			zap.Int("delivered", summary.Delivered),
			zap.Int("failed", summary.Failed),
			zap.String("success_rate", fmt.Sprintf("%.1f%%", summary.SuccessRate())),
			zap.Duration("duration", summary.Duration.Round(time.Millisecond)))

		rendered, err := output.FormatSummary(format, summary)
		if err != nil {
			return err
		}
		if strings.TrimSpace(rendered) != "" {
			fmt.Fprintln(cmd.OutOrStdout(), rendered)
		}
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			logger.Warn("Delivery run interrupted")
		}
		return runErr
	}
	return nil
}

func parseHeaders(values []string) (http.Header, error) {
	headers := http.Header{}
	for _, raw := range values {
		name, value, ok := strings.Cut(raw, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q: expected 'Name: value'", raw)
		}
		headers.Add(name, strings.TrimSpace(value))
	}
	return headers, nil
}
