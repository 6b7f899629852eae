package cmd

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "pragmatic"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	outputFlagName  = "output"
	verboseFlagName = "verbose"
	logFileFlagName = "log-file"
	moduleFlagName  = "module"
	excludeFlagName = "exclude"
	checkFlagName   = "check"
	watchFlagName   = "watch"

	checkModulesKey   = "audit.check_modules"
	excludeModulesKey = "audit.exclude_modules"
	filterBasesKey    = "audit.filter_bases"
	filterSetBasesKey = "audit.filter_set_bases"
	checksKey         = "audit.checks"
	threadsKey        = "audit.threads"

	mailTemplatesDirKey = "mail.templates_dir"
	mailDefaultFromKey  = "mail.default_from"
	mailQueueKey        = "mail.queue"
	mailQueueBackendKey = "mail.queue_backend"
	mailQueueSizeKey    = "mail.queue_size"
	mailWorkersKey      = "mail.workers"
	mailSpoolDirKey     = "mail.spool_dir"

	siteNameKey   = "site.name"
	siteDomainKey = "site.domain"

	smtpHostKey               = "smtp.host"
	smtpPortKey               = "smtp.port"
	smtpUserKey               = "smtp.user"
	smtpPasswordKey           = "smtp.password"
	smtpInsecureSkipVerifyKey = "smtp.insecure_skip_verify"

	kafkaBrokersKey = "kafka.brokers"
	kafkaTopicKey   = "kafka.topic"
	kafkaGroupIDKey = "kafka.group_id"

	metricsAddrKey = "metrics.addr"

	queueBackendMemory = "memory"
	queueBackendKafka  = "kafka"

	defaultReportsDir     = ".pragmatic-reports"
	defaultThreads        = 4
	defaultTemplatesDir   = "templates"
	defaultFromEmail      = "webmaster@localhost"
	defaultQueueBackend   = queueBackendMemory
	defaultQueueSize      = 100
	defaultMailWorkers    = 1
	defaultSMTPHost       = "localhost"
	defaultSMTPPort       = 25
	defaultKafkaTopic     = "pragmatic.mails"
	defaultKafkaGroupID   = "pragmatic-mail-worker"
	defaultMetricsAddress = ":9090"

	envPrefix = "PRAGMATIC"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".pragmatic.log"
	defaultLogLevel      = int(slog.LevelInfo)
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var globalLogger *slog.Logger

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return
		}

		return
	}
}

func setDefaults() {
	viper.SetDefault(configVersionKey, currentConfigVersion)
	viper.SetDefault(outputFlagName, defaultReportsDir)

	viper.SetDefault(checkModulesKey, []string{})
	viper.SetDefault(excludeModulesKey, []string{})
	viper.SetDefault(filterBasesKey, []string{"Filter"})
	viper.SetDefault(filterSetBasesKey, []string{"FilterSet"})
	viper.SetDefault(checksKey, []string{})
	viper.SetDefault(threadsKey, defaultThreads)

	viper.SetDefault(mailTemplatesDirKey, defaultTemplatesDir)
	viper.SetDefault(mailDefaultFromKey, defaultFromEmail)
	viper.SetDefault(mailQueueKey, false)
	viper.SetDefault(mailQueueBackendKey, defaultQueueBackend)
	viper.SetDefault(mailQueueSizeKey, defaultQueueSize)
	viper.SetDefault(mailWorkersKey, defaultMailWorkers)
	viper.SetDefault(mailSpoolDirKey, "")

	viper.SetDefault(siteNameKey, "")
	viper.SetDefault(siteDomainKey, "")

	viper.SetDefault(smtpHostKey, defaultSMTPHost)
	viper.SetDefault(smtpPortKey, defaultSMTPPort)
	viper.SetDefault(smtpUserKey, "")
	viper.SetDefault(smtpPasswordKey, "")
	viper.SetDefault(smtpInsecureSkipVerifyKey, false)

	viper.SetDefault(kafkaBrokersKey, []string{"localhost:9092"})
	viper.SetDefault(kafkaTopicKey, defaultKafkaTopic)
	viper.SetDefault(kafkaGroupIDKey, defaultKafkaGroupID)

	viper.SetDefault(metricsAddrKey, defaultMetricsAddress)

	// Logging defaults (used by config/env and as fallbacks for flags).
	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger configures the global slog logger.
//
// By default it logs at Info; if verbose is true it logs at Debug.
func configureLogger(logPath string, verbose bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	var logLevel slog.Level
	if verbose || viper.GetBool(logVerboseKey) {
		logLevel = slog.LevelDebug
	} else {
		logLevel = parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}
