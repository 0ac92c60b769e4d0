// Package main is the CLI entry point for appkit.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/codingiran/applicationskit/internal/domain"
	"github.com/codingiran/applicationskit/internal/infra"
	"github.com/codingiran/applicationskit/internal/policy"
	"github.com/codingiran/applicationskit/internal/usecase"
)

var (
	// Version info (set via ldflags)
	Version   = "0.3.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "appkit",
	Short: "Application inventory and signing-trust tool",
	Long: `appkit enumerates installed macOS applications, enriches each bundle
with metadata from the Spotlight index or the bundle manifest, and
classifies code-signing chains against a trust policy.`,
	Version: Version,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed applications",
	Long: `Discovers application bundles under a directory and prints one row per
application. Metadata comes from the Spotlight index when available and
falls back to reading each bundle's Info.plist.`,
	RunE: runList,
}

var infoCmd = &cobra.Command{
	Use:   "info <bundle-path>",
	Short: "Show full metadata for one bundle",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

var verifyCmd = &cobra.Command{
	Use:   "verify <bundle-path>",
	Short: "Inspect code signing and classify trust",
	Long: `Runs the signing inspection tool against a bundle, parses the authority
chain, and classifies it against the trust policy. An inspection failure
is reported as its own verdict, not hidden.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

var runningCmd = &cobra.Command{
	Use:   "running",
	Short: "List applications with a running process",
	RunE:  runRunning,
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <name>",
	Short: "Save the current inventory as a named snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshot,
}

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List saved snapshots",
	RunE:  runSnapshots,
}

var diffCmd = &cobra.Command{
	Use:   "diff <older> <newer>",
	Short: "Compare two snapshots",
	Args:  cobra.ExactArgs(2),
	RunE:  runDiff,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a directory and report inventory changes",
	Long:  `Rescans the directory on a fixed interval and logs added and removed applications until interrupted.`,
	RunE:  runWatch,
}

var iconCmd = &cobra.Command{
	Use:   "icon <bundle-path>",
	Short: "Extract a bundle's icon into the icon cache",
	Long:  `Converts the bundle's icns file to PNG and stores it in the icon cache, keyed by bundle identifier. Prints the cached path.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runIcon,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run:   runVersion,
}

var (
	dirFlag      string
	policyFlag   string
	jsonOutput   bool
	runningOnly  bool
	noIndex      bool
	verbose      bool
	watchEvery   time.Duration
	lookupVendor bool
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&policyFlag, "policy", "", "Path to a YAML trust policy file")

	listCmd.Flags().StringVar(&dirFlag, "dir", "/Applications", "Directory to discover")
	listCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output records as JSON")
	listCmd.Flags().BoolVar(&runningOnly, "running", false, "Only show applications with a running process")
	listCmd.Flags().BoolVar(&noIndex, "no-index", false, "Skip the Spotlight index, introspect every bundle")

	verifyCmd.Flags().BoolVar(&lookupVendor, "lookup-vendor", false, "Resolve vendor via the store lookup endpoint")

	snapshotCmd.Flags().StringVar(&dirFlag, "dir", "/Applications", "Directory to discover")

	watchCmd.Flags().StringVar(&dirFlag, "dir", "/Applications", "Directory to watch")
	watchCmd.Flags().DurationVar(&watchEvery, "interval", usecase.DefaultWatchInterval, "Rescan interval")

	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(runningCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(snapshotsCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(iconCmd)
	rootCmd.AddCommand(versionCmd)
}

func buildLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func loadPolicy() (policy.TrustPolicy, error) {
	if policyFlag == "" {
		return policy.Default(), nil
	}
	return policy.Load(policyFlag)
}

func newDiscovery(pol policy.TrustPolicy, logger *zap.Logger) *usecase.DiscoveryService {
	walker := infra.NewDirectoryWalker(pol.WalkerExclusions, logger)
	introspector := infra.NewBundleIntrospector(logger)
	var metadata domain.MetadataSource
	if !noIndex {
		metadata = infra.NewSpotlightSource(logger)
	}
	return usecase.NewDiscoveryService(walker, metadata, introspector, logger)
}

func runList(cmd *cobra.Command, args []string) error {
	logger := buildLogger()
	defer logger.Sync()

	pol, err := loadPolicy()
	if err != nil {
		return err
	}

	apps, err := newDiscovery(pol, logger).Discover(cmd.Context(), dirFlag)
	if err != nil {
		return err
	}
	if apps == nil {
		return fmt.Errorf("directory does not exist: %s", dirFlag)
	}

	if runningOnly {
		running, err := infra.NewProcessResolver().RunningBundlePaths()
		if err != nil {
			return fmt.Errorf("resolving running applications: %w", err)
		}
		filtered := apps[:0]
		for _, app := range apps {
			if _, ok := running[app.Path]; ok {
				filtered = append(filtered, app)
			}
		}
		apps = filtered
	}

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(apps)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tVERSION\tARCH\tBUNDLE ID\tPATH")
	for _, app := range apps {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			app.Name, app.Version, app.Arch, app.BundleIdentifier, app.Path)
	}
	return w.Flush()
}

func runInfo(cmd *cobra.Command, args []string) error {
	logger := buildLogger()
	defer logger.Sync()

	pol, err := loadPolicy()
	if err != nil {
		return err
	}

	app, err := newDiscovery(pol, logger).Resolve(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return json.NewEncoder(os.Stdout).Encode(app)
}

func runVerify(cmd *cobra.Command, args []string) error {
	logger := buildLogger()
	defer logger.Sync()

	pol, err := loadPolicy()
	if err != nil {
		return err
	}

	var resolver domain.VendorResolver
	if lookupVendor {
		resolver = infra.NewITunesVendorResolver(logger)
	}
	evaluator := usecase.NewTrustEvaluator(infra.NewCodesignInspector(logger), resolver, pol, logger)

	verdict, rec := evaluator.Evaluate(cmd.Context(), args[0])

	if rec != nil {
		fmt.Printf("Identifier:      %s\n", rec.Identifier)
		fmt.Printf("Format:          %s\n", rec.Format)
		fmt.Printf("TeamIdentifier:  %s\n", rec.TeamIdentifier)
		for i, authority := range rec.Authorities {
			if i == 0 {
				fmt.Printf("Authority:       %s\n", authority)
			} else {
				fmt.Printf("                 %s\n", authority)
			}
		}
		bundleID := rec.Identifier
		if name, err := evaluator.VendorName(cmd.Context(), rec, bundleID); err == nil {
			fmt.Printf("Vendor:          %s\n", name)
		}
	}

	fmt.Printf("Verdict:         %s\n", renderVerdict(verdict))
	if verdict.Status == domain.TrustStatusDangerous || verdict.Status == domain.TrustStatusUnknown {
		os.Exit(1)
	}
	return nil
}

func renderVerdict(v domain.TrustVerdict) string {
	switch v.Status {
	case domain.TrustStatusTrusted:
		return color.GreenString("trusted")
	case domain.TrustStatusUnsigned:
		return color.YellowString("unsigned (empty authority chain)")
	case domain.TrustStatusDangerous:
		return color.RedString("dangerous (matched %q)", v.Flag)
	default:
		return color.RedString("unknown (%v)", v.Cause)
	}
}

func runRunning(cmd *cobra.Command, args []string) error {
	running, err := infra.NewProcessResolver().RunningBundlePaths()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PID\tBUNDLE PATH")
	for path, pid := range running {
		fmt.Fprintf(w, "%d\t%s\n", pid, path)
	}
	return w.Flush()
}

func openSnapshotStore() (domain.SnapshotStore, error) {
	paths := infra.DetectAppPaths()
	key, err := infra.NewFileKeyProvider(paths.DataDir).EnsureKey()
	if err != nil {
		return nil, err
	}
	return infra.NewSQLSnapshotStore(paths.DataDir, key)
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	logger := buildLogger()
	defer logger.Sync()

	pol, err := loadPolicy()
	if err != nil {
		return err
	}

	apps, err := newDiscovery(pol, logger).Discover(cmd.Context(), dirFlag)
	if err != nil {
		return err
	}
	if apps == nil {
		return fmt.Errorf("directory does not exist: %s", dirFlag)
	}

	store, err := openSnapshotStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Save(args[0], apps); err != nil {
		return err
	}
	fmt.Printf("Saved snapshot %q (%d applications)\n", args[0], len(apps))
	return nil
}

func runSnapshots(cmd *cobra.Command, args []string) error {
	store, err := openSnapshotStore()
	if err != nil {
		return err
	}
	defer store.Close()

	infos, err := store.List()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCREATED\tAPPS")
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%s\t%d\n", info.Name, info.CreatedAt.Format(time.RFC3339), info.AppCount)
	}
	return w.Flush()
}

func runDiff(cmd *cobra.Command, args []string) error {
	store, err := openSnapshotStore()
	if err != nil {
		return err
	}
	defer store.Close()

	diff, err := store.Diff(args[0], args[1])
	if err != nil {
		if errors.Is(err, domain.ErrSnapshotNotFound) {
			return fmt.Errorf("unknown snapshot: %w", err)
		}
		return err
	}

	for _, app := range diff.Added {
		fmt.Printf("%s %s (%s)\n", color.GreenString("+"), app.Name, app.Path)
	}
	for _, app := range diff.Removed {
		fmt.Printf("%s %s (%s)\n", color.RedString("-"), app.Name, app.Path)
	}
	for _, change := range diff.Changed {
		fmt.Printf("%s %s %s -> %s\n", color.YellowString("~"), change.Name, change.OldVersion, change.NewVersion)
	}
	if len(diff.Added)+len(diff.Removed)+len(diff.Changed) == 0 {
		fmt.Println("No changes.")
	}
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger := buildLogger()
	defer logger.Sync()

	pol, err := loadPolicy()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	monitor := usecase.NewMonitor(newDiscovery(pol, logger), dirFlag, watchEvery, func(added, removed []domain.Application) {
		for _, app := range added {
			fmt.Printf("%s %s (%s)\n", color.GreenString("+"), app.Name, app.Path)
		}
		for _, app := range removed {
			fmt.Printf("%s %s (%s)\n", color.RedString("-"), app.Name, app.Path)
		}
	}, logger)

	if err := monitor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runIcon(cmd *cobra.Command, args []string) error {
	logger := buildLogger()
	defer logger.Sync()

	introspector := infra.NewBundleIntrospector(logger)
	resolved, wrapped, err := introspector.Resolve(args[0])
	if err != nil {
		return err
	}
	app, err := introspector.Introspect(resolved, wrapped)
	if err != nil {
		return err
	}

	cache := infra.NewFileIconCache(infra.DetectAppPaths().CachesDir)
	if _, ok := cache.Get(app.BundleIdentifier); ok {
		fmt.Println(cache.Path(app.BundleIdentifier))
		return nil
	}

	png, err := infra.NewIconExtractor(introspector, logger).Extract(cmd.Context(), resolved)
	if err != nil {
		return fmt.Errorf("extracting icon: %w", err)
	}
	if err := cache.Put(app.BundleIdentifier, png); err != nil {
		return err
	}
	fmt.Println(cache.Path(app.BundleIdentifier))
	return nil
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		json.NewEncoder(os.Stdout).Encode(map[string]string{
			"version":    Version,
			"commit":     Commit,
			"build_time": BuildTime,
		})
		return
	}
	fmt.Printf("appkit %s (commit %s, built %s)\n", Version, Commit, BuildTime)
}
