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

package cfg

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func decodeFlags(t *testing.T, args []string) Config {
	t.Helper()
	v := viper.New()
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, BindFlags(flagSet))
	require.NoError(t, flagSet.Parse(args))
	require.NoError(t, v.BindPFlags(flagSet))

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg, viper.DecodeHook(DecodeHook())))
	return cfg
}

func TestBindFlagsDecodesDurationsAndOverrides(t *testing.T) {
	cfg := decodeFlags(t, []string{"--entry-timeout=5s", "--attr-timeout=2s", "--uid=1000", "--log-severity=debug"})

	require.Equal(t, 5*time.Second, cfg.FileSystem.EntryTimeout)
	require.Equal(t, 2*time.Second, cfg.FileSystem.AttrTimeout)
	require.Equal(t, 1000, cfg.FileSystem.Uid)
	require.Equal(t, DebugLogSeverity, cfg.Logging.Severity)
}

func TestBindFlagsAppliesDefaultsWhenUnset(t *testing.T) {
	cfg := decodeFlags(t, nil)

	require.Equal(t, time.Duration(0), cfg.FileSystem.EntryTimeout)
	require.Equal(t, -1, cfg.FileSystem.Uid)
	require.Equal(t, InfoLogSeverity, cfg.Logging.Severity)
}

func TestValidateConfigRejectsBadLogRotate(t *testing.T) {
	cfg := Config{Logging: LoggingConfig{LogRotate: LogRotateConfig{MaxFileSizeMB: 0}}}
	require.Error(t, ValidateConfig(&cfg))
}

func TestValidateConfigAcceptsDefaults(t *testing.T) {
	cfg := Config{Logging: GetDefaultLoggingConfig(), FileSystem: GetDefaultFileSystemConfig()}
	require.NoError(t, ValidateConfig(&cfg))
}

func TestValidateConfigRejectsExcessiveRenameDirLimit(t *testing.T) {
	cfg := Config{Logging: GetDefaultLoggingConfig(), FileSystem: FileSystemConfig{RenameDirLimit: MaxSupportedRenameDirLimit + 1}}
	require.Error(t, ValidateConfig(&cfg))
}

func TestIsLoggingToFile(t *testing.T) {
	cfg := Config{Logging: LoggingConfig{FilePath: ""}}
	require.False(t, IsLoggingToFile(&cfg))

	cfg.Logging.FilePath = "/var/log/passthroughfuse.log"
	require.True(t, IsLoggingToFile(&cfg))
}
