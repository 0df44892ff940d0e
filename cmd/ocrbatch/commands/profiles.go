package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spherical/ocrbatch/cmd/ocrbatch/ui"
	"github.com/spherical/ocrbatch/internal/config"
	"github.com/spherical/ocrbatch/internal/profile"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles [name]",
	Short: "List configured profiles or show one profile's resolved flags",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProfiles,
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}

func runProfiles(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return setupErr(err)
	}

	if len(args) == 1 {
		return showProfile(cfg, args[0])
	}

	names := make([]string, 0, len(cfg.Profiles))
	for name := range cfg.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, []string{name, fmt.Sprintf("%d", len(cfg.Profiles[name]))})
	}
	ui.Table([]string{"PROFILE", "OPTIONS"}, rows)
	return nil
}

func showProfile(cfg *config.Config, name string) error {
	flags, err := profile.Resolve(cfg, name)
	if err != nil {
		return setupErr(err)
	}

	ui.Info("Profile %q resolves to:", name)
	if len(flags) == 0 {
		ui.Message("  (no flags)")
		return nil
	}
	ui.Message("  %s", strings.Join(flags, " "))
	return nil
}
