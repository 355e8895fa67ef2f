package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/meikuraledutech/whiteboard"
)

var (
	keyName  = color.New(color.FgCyan, color.Bold)
	keyValue = color.New(color.Faint)
	keyOK    = color.New(color.FgGreen)
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage stored credentials and settings",
}

var keysSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a credential or setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSettings(cmd, func(s whiteboard.Settings) error {
			if err := s.Set(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			keyOK.Fprintf(cmd.OutOrStdout(), "✓ %s saved\n", args[0])
			return nil
		})
	},
}

var keysGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a stored value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSettings(cmd, func(s whiteboard.Settings) error {
			v, err := s.Get(cmd.Context(), args[0])
			if errors.Is(err, whiteboard.ErrSettingNotFound) {
				return fmt.Errorf("%s is not set", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		})
	},
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored settings with credentials masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSettings(cmd, func(s whiteboard.Settings) error {
			all, err := s.List(cmd.Context())
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(all))
			for k := range all {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s  %s\n", keyName.Sprint(k), keyValue.Sprint(maskSetting(k, all[k])))
			}
			return nil
		})
	},
}

var keysDeleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Remove a stored value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSettings(cmd, func(s whiteboard.Settings) error {
			if err := s.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			keyOK.Fprintf(cmd.OutOrStdout(), "✓ %s removed\n", args[0])
			return nil
		})
	},
}

func init() {
	keysCmd.AddCommand(keysSetCmd, keysGetCmd, keysListCmd, keysDeleteCmd)
}

func withSettings(cmd *cobra.Command, fn func(whiteboard.Settings) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, closeFn, err := openSettings(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(s)
}
