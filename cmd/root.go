// Copyright 2024 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jacobsa/passthroughfuse/cfg"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile      string
	bindErr      error
	unmarshalErr error
	mountConfig  cfg.Config
)

var rootCmd = &cobra.Command{
	Use:   "passthroughfuse [flags] source-dir mount-point",
	Short: "Mount a real directory at mount-point, passing every operation through",
	Long: `passthroughfuse is a FUSE filesystem that re-exports a real directory
tree as a mount point, resolving every kernel operation against the
source tree directly rather than against any synthesized view.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if bindErr != nil {
			return bindErr
		}
		if unmarshalErr != nil {
			return unmarshalErr
		}
		if err := cfg.ValidateConfig(&mountConfig); err != nil {
			return err
		}

		sourceDir, mountPoint, err := populateArgs(args)
		if err != nil {
			return err
		}
		return runMount(cmd.Context(), sourceDir, mountPoint, &mountConfig)
	},
}

func populateArgs(args []string) (sourceDir, mountPoint string, err error) {
	sourceDir, err = filepath.Abs(args[0])
	if err != nil {
		return "", "", fmt.Errorf("canonicalizing source dir: %w", err)
	}
	mountPoint, err = filepath.Abs(args[1])
	if err != nil {
		return "", "", fmt.Errorf("canonicalizing mount point: %w", err)
	}
	return sourceDir, mountPoint, nil
}

// Execute runs the root command, exiting the process with status 1 on
// failure the way cobra's own help text expects.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "Path to a YAML config file.")
	bindErr = cfg.BindFlags(rootCmd.PersistentFlags())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		viper.SetConfigType("yaml")
		if err := viper.ReadInConfig(); err != nil {
			unmarshalErr = fmt.Errorf("reading config file: %w", err)
			return
		}
	}
	unmarshalErr = viper.Unmarshal(&mountConfig, viper.DecodeHook(cfg.DecodeHook()))
}
