package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pragmatic.dev/pkg/pragmatic/internal/domain"
	m "pragmatic.dev/pkg/pragmatic/internal/model"
)

// errMissingTests makes the process exit non-zero when an audit has findings.
var errMissingTests = errors.New("missing tests found")

var auditModulesFlag []string
var auditExcludeFlag []string
var auditChecksFlag []string
var auditWatchFlag bool

const auditLongDescription = `Audit the project containing PATH (default: current directory).

Checks (default: all): filters, managers, signals, permissions, asserts.
Modules are dotted package paths relative to the go.mod directory, so
./shop/orders is the module shop.orders.`

// auditCmd represents the audit command.
var auditCmd = newAuditCmd()

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "audit [path]",
		Short:        "Report code that lacks the tests its naming convention requires",
		Long:         auditLongDescription,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}

			auditArgs, err := auditArgsFromConfig(m.Path(root))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			report, err := workflow.Audit(ctx, auditArgs)
			if err != nil {
				return err
			}

			if !report.Passed() {
				return fmt.Errorf("%w: %d finding(s)", errMissingTests, len(report.Findings))
			}

			return nil
		},
	}

	configureAuditFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(auditCmd)
}

func configureAuditFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&auditModulesFlag, moduleFlagName, "m", viper.GetStringSlice(checkModulesKey), "dotted root packages to check (can be repeated)")
	bindFlagToConfig(cmd.Flags().Lookup(moduleFlagName), checkModulesKey)

	cmd.Flags().StringSliceVarP(&auditExcludeFlag, excludeFlagName, "x", viper.GetStringSlice(excludeModulesKey), "module name fragments to exclude (replaces the defaults)")
	bindFlagToConfig(cmd.Flags().Lookup(excludeFlagName), excludeModulesKey)

	cmd.Flags().StringSliceVarP(&auditChecksFlag, checkFlagName, "c", viper.GetStringSlice(checksKey), "checks to run (default: all)")
	bindFlagToConfig(cmd.Flags().Lookup(checkFlagName), checksKey)

	cmd.Flags().BoolVarP(&auditWatchFlag, watchFlagName, "w", false, "re-run the checks whenever a Go file changes")
}

func auditArgsFromConfig(root m.Path) (domain.AuditArgs, error) {
	modules := viper.GetStringSlice(checkModulesKey)
	if len(modules) == 0 {
		return domain.AuditArgs{}, fmt.Errorf("no modules to check: pass --%s or set %s", moduleFlagName, checkModulesKey)
	}

	cfg := domain.DefaultConfig(modules...)

	if excludes := viper.GetStringSlice(excludeModulesKey); len(excludes) > 0 {
		cfg.ExcludeModules = excludes
	}

	cfg.FilterBases = viper.GetStringSlice(filterBasesKey)
	cfg.FilterSetBases = viper.GetStringSlice(filterSetBasesKey)

	if threads := viper.GetInt(threadsKey); threads > 0 {
		cfg.Threads = threads
	}

	checks := make([]m.CheckKind, 0)

	for _, name := range viper.GetStringSlice(checksKey) {
		kind, err := m.ParseCheckKind(name)
		if err != nil {
			return domain.AuditArgs{}, err
		}

		checks = append(checks, kind)
	}

	return domain.AuditArgs{
		Root:    root,
		Config:  cfg,
		Checks:  checks,
		Reports: m.Path(viper.GetString(outputFlagName)),
		Watch:   auditWatchFlag,
	}, nil
}
