// Copyright 2023 AI Redefined Inc. <dev+cogment@ai-r.com>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	ue4mlClient "github.com/ue4ml/ue4ml/clients/ue4ml"
	"github.com/ue4ml/ue4ml/services/ue4ml"
)

// clientViper represents the configuration of the `ue4ml client` command
var clientViper = viper.New()

const (
	clientEndpointKey            = "endpoint"
	clientConsoleOutputFormatKey = "console_output"
	clientTimeoutKey             = "timeout"
	defaultClientTimeout         = 30 * time.Second
)

// ClientCmd represents the `ue4ml client` command
var ClientCmd = &cobra.Command{
	Use:   "client",
	Short: "Call the functions of a running ue4ml environment",
	Args:  cobra.NoArgs,
}

func init() {
	clientViper.SetDefault(clientEndpointKey, fmt.Sprintf("grpc://localhost:%d", ue4ml.DefaultOptions.Port))
	_ = clientViper.BindEnv(clientEndpointKey, "UE4ML_ENDPOINT")
	ClientCmd.PersistentFlags().String(
		clientEndpointKey,
		clientViper.GetString(clientEndpointKey),
		"The environment endpoint URL",
	)

	clientViper.SetDefault(clientConsoleOutputFormatKey, string(text))
	_ = clientViper.BindEnv(clientConsoleOutputFormatKey, "UE4ML_CLIENT_CONSOLE_OUTPUT")
	ClientCmd.PersistentFlags().String(
		clientConsoleOutputFormatKey,
		clientViper.GetString(clientConsoleOutputFormatKey),
		fmt.Sprintf(
			"Set console output format as one of %v",
			expectedOutputFormats,
		),
	)

	clientViper.SetDefault(clientTimeoutKey, defaultClientTimeout)
	_ = clientViper.BindEnv(clientTimeoutKey, "UE4ML_CLIENT_TIMEOUT")
	ClientCmd.PersistentFlags().Duration(
		clientTimeoutKey,
		clientViper.GetDuration(clientTimeoutKey),
		"Timeout for the operation",
	)

	// Don't sort alphabetically, keep insertion order
	ClientCmd.PersistentFlags().SortFlags = false

	// Bind "cobra" flags defined in the CLI with viper
	_ = clientViper.BindPFlags(ClientCmd.PersistentFlags())

	// Add the client subcommands
	ClientCmd.AddCommand(pingCmd)
	ClientCmd.AddCommand(functionsCmd)
	ClientCmd.AddCommand(sensorsCmd)
	ClientCmd.AddCommand(actuatorsCmd)
	ClientCmd.AddCommand(describeCmd)
	ClientCmd.AddCommand(callCmd)
	ClientCmd.AddCommand(trajectoriesCmd)
	ClientCmd.AddCommand(trajectoryCmd)
}

func createClient() (*ue4mlClient.Client, error) {
	return ue4mlClient.CreateClientWithInsecureEndpoint(clientViper.GetString(clientEndpointKey))
}

func contextWithTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), clientViper.GetDuration(clientTimeoutKey))
}

func wrapTimeoutError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("timeout (%v) exceeded", clientViper.GetDuration(clientTimeoutKey))
	}
	return err
}
