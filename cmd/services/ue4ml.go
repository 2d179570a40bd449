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

package services

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ue4ml/ue4ml/cmd/services/utils"
	"github.com/ue4ml/ue4ml/services/ue4ml"
	"github.com/ue4ml/ue4ml/services/ue4ml/rpc"
	"github.com/ue4ml/ue4ml/version"
)

// ue4mlViper represents the configuration of the ue4ml command
var ue4mlViper = viper.New()

const (
	ue4mlPortKey                     = "port"
	ue4mlServerModeKey               = "server_mode"
	ue4mlServerThreadsKey            = "server_threads"
	ue4mlGrpcReflectionKey           = "grpc_reflection"
	ue4mlHTTPPortKey                 = "http_port"
	ue4mlTickRateKey                 = "tick_rate"
	ue4mlManualWorldTickKey          = "manual_world_tick"
	ue4mlScenarioKey                 = "scenario"
	ue4mlEnvNameKey                  = "env_name"
	ue4mlDefaultAgentClassKey        = "default_agent_class"
	ue4mlRecordFileKey               = "record_file"
	ue4mlRecordMemoryTrajectoriesKey = "record_memory_trajectories"
)

// ue4mlCmd represents the ue4ml service command
var ue4mlCmd = &cobra.Command{
	Use:     "ue4ml",
	Aliases: []string{"serve"},
	Short:   "Run a ue4ml environment",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _args []string) error {
		err := configureLog(servicesViper)
		if err != nil {
			return err
		}

		log.WithFields(logrus.Fields{
			"version":  version.Version,
			"hash":     version.Hash,
			"protocol": version.ProtocolVersion,
		}).Info("starting the ue4ml service")

		serverMode, err := rpc.ParseServerMode(ue4mlViper.GetString(ue4mlServerModeKey))
		if err != nil {
			return err
		}

		options := ue4ml.Options{
			Port:                     ue4mlViper.GetUint(ue4mlPortKey),
			ServerMode:               serverMode,
			ServerThreads:            ue4mlViper.GetUint32(ue4mlServerThreadsKey),
			GrpcReflection:           ue4mlViper.GetBool(ue4mlGrpcReflectionKey),
			HTTPPort:                 ue4mlViper.GetUint(ue4mlHTTPPortKey),
			TickRate:                 ue4mlViper.GetFloat64(ue4mlTickRateKey),
			ManualWorldTick:          ue4mlViper.GetBool(ue4mlManualWorldTickKey),
			ScenarioFile:             ue4mlViper.GetString(ue4mlScenarioKey),
			EnvName:                  ue4mlViper.GetString(ue4mlEnvNameKey),
			DefaultAgentClass:        ue4mlViper.GetString(ue4mlDefaultAgentClassKey),
			RecordFile:               ue4mlViper.GetString(ue4mlRecordFileKey),
			RecordMemoryTrajectories: ue4mlViper.GetUint(ue4mlRecordMemoryTrajectoriesKey),
		}

		ctx := utils.ContextWithUserTermination(context.Background())

		err = ue4ml.Run(ctx, options)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("environment closed")
				return nil
			}
			return err
		}
		return nil
	},
}

func init() {
	ue4mlViper.SetDefault(ue4mlPortKey, ue4ml.DefaultOptions.Port)
	_ = ue4mlViper.BindEnv(ue4mlPortKey, "UE4ML_PORT")
	ue4mlCmd.Flags().Uint(
		ue4mlPortKey,
		ue4mlViper.GetUint(ue4mlPortKey),
		"The gRPC port to listen on",
	)

	ue4mlViper.SetDefault(ue4mlServerModeKey, ue4ml.DefaultOptions.ServerMode.String())
	_ = ue4mlViper.BindEnv(ue4mlServerModeKey, "UE4ML_SERVER_MODE")
	ue4mlCmd.Flags().String(
		ue4mlServerModeKey,
		ue4mlViper.GetString(ue4mlServerModeKey),
		"Functions exposed, one of auto, client, server or standalone",
	)

	ue4mlViper.SetDefault(ue4mlServerThreadsKey, ue4ml.DefaultOptions.ServerThreads)
	_ = ue4mlViper.BindEnv(ue4mlServerThreadsKey, "UE4ML_SERVER_THREADS")
	ue4mlCmd.Flags().Uint32(
		ue4mlServerThreadsKey,
		ue4mlViper.GetUint32(ue4mlServerThreadsKey),
		"Number of gRPC worker goroutines, 0 for one per stream",
	)

	ue4mlViper.SetDefault(ue4mlGrpcReflectionKey, ue4ml.DefaultOptions.GrpcReflection)
	_ = ue4mlViper.BindEnv(ue4mlGrpcReflectionKey, "UE4ML_GRPC_REFLECTION")
	ue4mlCmd.Flags().Bool(
		ue4mlGrpcReflectionKey,
		ue4mlViper.GetBool(ue4mlGrpcReflectionKey),
		"Start the gRPC reflection server",
	)

	ue4mlViper.SetDefault(ue4mlHTTPPortKey, ue4ml.DefaultOptions.HTTPPort)
	_ = ue4mlViper.BindEnv(ue4mlHTTPPortKey, "UE4ML_HTTP_PORT")
	ue4mlCmd.Flags().Uint(
		ue4mlHTTPPortKey,
		ue4mlViper.GetUint(ue4mlHTTPPortKey),
		"The port of the JSON HTTP gateway, 0 disables it",
	)

	ue4mlViper.SetDefault(ue4mlTickRateKey, ue4ml.DefaultOptions.TickRate)
	_ = ue4mlViper.BindEnv(ue4mlTickRateKey, "UE4ML_TICK_RATE")
	ue4mlCmd.Flags().Float64(
		ue4mlTickRateKey,
		ue4mlViper.GetFloat64(ue4mlTickRateKey),
		"World ticks per second",
	)

	ue4mlViper.SetDefault(ue4mlManualWorldTickKey, ue4ml.DefaultOptions.ManualWorldTick)
	_ = ue4mlViper.BindEnv(ue4mlManualWorldTickKey, "UE4ML_MANUAL_WORLD_TICK")
	ue4mlCmd.Flags().Bool(
		ue4mlManualWorldTickKey,
		ue4mlViper.GetBool(ue4mlManualWorldTickKey),
		"Only tick the world when requested with request_world_tick",
	)

	ue4mlViper.SetDefault(ue4mlScenarioKey, ue4ml.DefaultOptions.ScenarioFile)
	_ = ue4mlViper.BindEnv(ue4mlScenarioKey, "UE4ML_SCENARIO")
	ue4mlCmd.Flags().String(
		ue4mlScenarioKey,
		ue4mlViper.GetString(ue4mlScenarioKey),
		"YAML file setting up the world, a built-in two players match is used if empty",
	)

	ue4mlViper.SetDefault(ue4mlEnvNameKey, ue4ml.DefaultOptions.EnvName)
	_ = ue4mlViper.BindEnv(ue4mlEnvNameKey, "UE4ML_ENV_NAME")
	ue4mlCmd.Flags().String(
		ue4mlEnvNameKey,
		ue4mlViper.GetString(ue4mlEnvNameKey),
		"Name of the environment, defaults to the scenario name",
	)

	ue4mlViper.SetDefault(ue4mlDefaultAgentClassKey, ue4ml.DefaultOptions.DefaultAgentClass)
	_ = ue4mlViper.BindEnv(ue4mlDefaultAgentClassKey, "UE4ML_DEFAULT_AGENT_CLASS")
	ue4mlCmd.Flags().String(
		ue4mlDefaultAgentClassKey,
		ue4mlViper.GetString(ue4mlDefaultAgentClassKey),
		"Class of the agents created without an explicit agent class",
	)

	ue4mlViper.SetDefault(ue4mlRecordFileKey, ue4ml.DefaultOptions.RecordFile)
	_ = ue4mlViper.BindEnv(ue4mlRecordFileKey, "UE4ML_RECORD_FILE")
	ue4mlCmd.Flags().String(
		ue4mlRecordFileKey,
		ue4mlViper.GetString(ue4mlRecordFileKey),
		"Record the agents' trajectories in this file",
	)

	ue4mlViper.SetDefault(ue4mlRecordMemoryTrajectoriesKey, ue4ml.DefaultOptions.RecordMemoryTrajectories)
	_ = ue4mlViper.BindEnv(ue4mlRecordMemoryTrajectoriesKey, "UE4ML_RECORD_MEMORY_TRAJECTORIES")
	ue4mlCmd.Flags().Uint(
		ue4mlRecordMemoryTrajectoriesKey,
		ue4mlViper.GetUint(ue4mlRecordMemoryTrajectoriesKey),
		"Record up to this number of trajectories in memory, 0 disables it",
	)

	// Don't sort alphabetically, keep insertion order
	ue4mlCmd.Flags().SortFlags = false

	// Bind "cobra" flags defined in the CLI with viper
	_ = ue4mlViper.BindPFlags(ue4mlCmd.Flags())
}
