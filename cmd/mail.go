package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pragmatic.dev/pkg/pragmatic/pkg/mailer"
)

const (
	templateFlagName = "template"
	subjectFlagName  = "subject"
	dataFlagName     = "data"
	attachFlagName   = "attach"
	queueFlagName    = "queue"

	smtpSection        = "smtp"
	defaultContentType = "application/octet-stream"
	shutdownTimeout    = 10 * time.Second
)

var mailTemplateFlag string
var mailSubjectFlag string
var mailDataFlag []string
var mailAttachFlag []string
var mailQueueFlag bool

// newMailSender builds the inline transport. Tests replace it.
var newMailSender = func() mailer.Sender {
	return mailer.NewSMTPSender(mailer.SMTPConfig{
		Host:               viper.GetString(smtpHostKey),
		Port:               viper.GetInt(smtpPortKey),
		User:               viper.GetString(smtpUserKey),
		Password:           viper.GetString(smtpPasswordKey),
		InsecureSkipVerify: viper.GetBool(smtpInsecureSkipVerifyKey),
	})
}

// mailCmd represents the mail command.
var mailCmd = newMailCmd()

func newMailCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mail",
		Short: "Send templated mails and run the mail job worker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newMailSendCmd(), newMailWorkerCmd())

	return cmd
}

func init() {
	rootCmd.AddCommand(mailCmd)
}

func newMailSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <recipient>",
		Short: "Render a mail template and send it",
		Long: `Render <template>.txt and <template>.html from mail.templates_dir and
send the result to the recipient, inline over SMTP or through the
configured job runner when mail.queue is set.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := parseDataFlags(mailDataFlag)
			if err != nil {
				return err
			}

			attachments, err := readAttachments(mailAttachFlag)
			if err != nil {
				return err
			}

			err = sendMail(cmd.Context(), mailer.Params{
				Recipient:      args[0],
				TemplatePrefix: mailTemplateFlag,
				Subject:        mailSubjectFlag,
				Data:           data,
				Attachments:    attachments,
			})
			if err != nil {
				return err
			}

			cmd.Printf("Mail to %s accepted\n", args[0])

			return nil
		},
	}

	cmd.Flags().StringVarP(&mailTemplateFlag, templateFlagName, "t", "", "template prefix, relative to the templates directory")
	cobra.CheckErr(cmd.MarkFlagRequired(templateFlagName))
	cmd.Flags().StringVarP(&mailSubjectFlag, subjectFlagName, "s", "", "mail subject")
	cmd.Flags().StringArrayVarP(&mailDataFlag, dataFlagName, "d", nil, "template data as key=value (can be repeated)")
	cmd.Flags().StringArrayVarP(&mailAttachFlag, attachFlagName, "a", nil, "file to attach (can be repeated)")
	cmd.Flags().BoolVar(&mailQueueFlag, queueFlagName, viper.GetBool(mailQueueKey), "hand the mail to the job runner instead of sending inline")
	bindFlagToConfig(cmd.Flags().Lookup(queueFlagName), mailQueueKey)

	return cmd
}

func newMailWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume mail jobs from Kafka and deliver them over SMTP",
		Long: `Run the Kafka mail job consumer until interrupted. Prometheus metrics
are served on metrics.addr under /metrics.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			registry := prometheus.NewRegistry()
			metrics := mailer.NewMetrics(registry)

			shutdown := serveMetrics(viper.GetString(metricsAddrKey), registry)
			defer shutdown()

			worker, err := mailer.NewKafkaWorker(kafkaConfig(), newMailSender(), metrics)
			if err != nil {
				return err
			}

			defer func() {
				if err := worker.Close(); err != nil {
					slog.Error("Failed to close mail worker", "error", err)
				}
			}()

			cmd.Printf("Mail worker consuming %s\n", viper.GetString(kafkaTopicKey))

			return worker.Run(ctx)
		},
	}
}

func sendMail(ctx context.Context, params mailer.Params) (err error) {
	registry := prometheus.NewRegistry()
	metrics := mailer.NewMetrics(registry)
	sender := newMailSender()

	cfg := mailer.Config{
		Templates: os.DirFS(viper.GetString(mailTemplatesDirKey)),
		Settings: mailer.Settings{
			DefaultFromEmail: viper.GetString(mailDefaultFromKey),
			Queue:            viper.GetBool(mailQueueKey),
			Values:           templateSettings(),
		},
		Sites: mailer.StaticSiteResolver{Site: mailer.Site{
			Name:   viper.GetString(siteNameKey),
			Domain: viper.GetString(siteDomainKey),
		}},
		Sender:  sender,
		Metrics: metrics,
	}

	if cfg.Settings.Queue {
		switch backend := viper.GetString(mailQueueBackendKey); backend {
		case queueBackendMemory:
			queue, queueErr := mailer.NewQueue(sender, mailer.QueueConfig{
				Size:     viper.GetInt(mailQueueSizeKey),
				Workers:  viper.GetInt(mailWorkersKey),
				Spill:    true,
				SpoolDir: viper.GetString(mailSpoolDirKey),
				Metrics:  metrics,
			})
			if queueErr != nil {
				return queueErr
			}

			queue.Start()

			// the process exits after this command, so drain before returning
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
				defer cancel()

				err = errors.Join(err, queue.Close(closeCtx))
			}()

			cfg.Dispatcher = queue

		case queueBackendKafka:
			dispatcher, kafkaErr := mailer.NewKafkaDispatcher(kafkaConfig(), metrics)
			if kafkaErr != nil {
				return kafkaErr
			}

			defer func() {
				err = errors.Join(err, dispatcher.Close())
			}()

			cfg.Dispatcher = dispatcher

		default:
			return fmt.Errorf("unknown %s %q (want %s or %s)", mailQueueBackendKey, backend, queueBackendMemory, queueBackendKafka)
		}
	}

	return mailer.NewManager(cfg).SendMail(ctx, params)
}

// templateSettings returns the configuration exposed to mail templates.
// SMTP credentials are never part of it.
func templateSettings() map[string]any {
	settings := viper.AllSettings()
	delete(settings, smtpSection)

	return settings
}

func kafkaConfig() mailer.KafkaConfig {
	return mailer.KafkaConfig{
		Brokers: viper.GetStringSlice(kafkaBrokersKey),
		Topic:   viper.GetString(kafkaTopicKey),
		GroupID: viper.GetString(kafkaGroupIDKey),
	}
}

// serveMetrics exposes registry on addr until the returned function is
// called. An empty addr disables the endpoint.
func serveMetrics(addr string, registry *prometheus.Registry) func() {
	if addr == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", "addr", addr, "error", err)
		}
	}()

	slog.Info("Serving metrics", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Failed to stop metrics server", "error", err)
		}
	}
}

func parseDataFlags(pairs []string) (map[string]any, error) {
	data := make(map[string]any, len(pairs))

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid --%s %q: want key=value", dataFlagName, pair)
		}

		data[strings.TrimSpace(key)] = value
	}

	return data, nil
}

func readAttachments(paths []string) ([]mailer.Attachment, error) {
	attachments := make([]mailer.Attachment, 0, len(paths))

	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			slog.Error("Failed to read attachment", "path", path, "error", err)
			return nil, fmt.Errorf("read attachment: %w", err)
		}

		contentType := mime.TypeByExtension(filepath.Ext(path))
		if contentType == "" {
			contentType = defaultContentType
		}

		attachments = append(attachments, mailer.Attachment{
			Filename:    filepath.Base(path),
			Content:     content,
			ContentType: contentType,
		})
	}

	return attachments, nil
}
