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

package ue4ml

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ue4ml/ue4ml/services/ue4ml/httpserver"
	"github.com/ue4ml/ue4ml/services/ue4ml/manager"
	"github.com/ue4ml/ue4ml/services/ue4ml/recorder"
	"github.com/ue4ml/ue4ml/services/ue4ml/rpc"
	"github.com/ue4ml/ue4ml/services/ue4ml/world"
	"github.com/ue4ml/ue4ml/services/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var log = logrus.WithField("component", "ue4ml")

type Options struct {
	Port           uint
	ServerMode     rpc.ServerMode
	ServerThreads  uint32
	GrpcReflection bool
	// HTTPPort is the port of the JSON gateway, 0 disables it
	HTTPPort          uint
	TickRate          float64
	ManualWorldTick   bool
	ScenarioFile      string
	EnvName           string
	DefaultAgentClass string
	// RecordFile enables recording trajectories in a bolt file
	RecordFile string
	// RecordMemoryTrajectories enables recording the given number of trajectories in memory
	RecordMemoryTrajectories uint
}

var DefaultOptions = Options{
	Port:                     15151,
	ServerMode:               rpc.ServerModeAuto,
	ServerThreads:            0,
	GrpcReflection:           false,
	HTTPPort:                 0,
	TickRate:                 30,
	ManualWorldTick:          false,
	ScenarioFile:             "",
	EnvName:                  "",
	DefaultAgentClass:        "",
	RecordFile:               "",
	RecordMemoryTrajectories: 0,
}

func createRecorder(options Options) (*recorder.Recorder, error) {
	if options.RecordFile == "" && options.RecordMemoryTrajectories == 0 {
		return nil, nil
	}
	return recorder.New(recorder.Options{
		File:            options.RecordFile,
		MaxTrajectories: int(options.RecordMemoryTrajectories),
	})
}

func Run(ctx context.Context, options Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	scenario := world.DefaultScenario()
	if options.ScenarioFile != "" {
		var err error
		scenario, err = world.LoadScenario(options.ScenarioFile)
		if err != nil {
			return err
		}
	}

	trajectoryRecorder, err := createRecorder(options)
	if err != nil {
		return err
	}
	if trajectoryRecorder != nil {
		defer trajectoryRecorder.Destroy()
	}

	m, err := manager.New(manager.Options{
		EnvName:           options.EnvName,
		TickRate:          options.TickRate,
		ManualWorldTick:   options.ManualWorldTick,
		Scenario:          scenario,
		DefaultAgentClass: options.DefaultAgentClass,
		GrpcReflection:    options.GrpcReflection,
		Recorder:          trajectoryRecorder,
		Registerer:        prometheus.DefaultRegisterer,
		Exit:              cancel,
	})
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", options.Port))
	if err != nil {
		return fmt.Errorf("unable to listen to tcp port %d: %w", options.Port, err)
	}
	grpcPort, err := utils.ExtractPort(listener.Addr().String())
	if err != nil {
		return err
	}
	m.StartServerOnListener(listener, options.ServerMode, options.ServerThreads)
	log.WithFields(logrus.Fields{"grpc_port": grpcPort, "mode": m.ServerMode()}).Info("ue4ml environment ready")

	var httpServer *httpserver.Server
	if options.HTTPPort > 0 {
		httpServer = httpserver.New(options.HTTPPort, m, prometheus.DefaultGatherer)
	}

	group, ctx := errgroup.WithContext(ctx)

	// The game loop
	group.Go(func() error {
		err := m.Run(ctx)
		// The loop is stopped, this goroutine now owns the world
		m.SetSession(nil)
		return err
	})

	if httpServer != nil {
		group.Go(func() error {
			log.WithField("http_port", options.HTTPPort).Info("http server listening")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("unexpected error while serving http routes: %w", err)
			}
			return nil
		})
	}

	group.Go(func() error {
		<-ctx.Done()
		log.Info("gracefully stopping")

		stopGroup, stopCtx := errgroup.WithContext(context.Background())
		if httpServer != nil {
			stopGroup.Go(func() error {
				log.Debug("stopping the http server")
				stopCtx, cancel := context.WithTimeout(stopCtx, 5*time.Second)
				defer cancel()
				return httpServer.Shutdown(stopCtx)
			})
		}
		stopGroup.Go(func() error {
			log.Debug("stopping the grpc server")
			stopCtx, cancel := context.WithTimeout(stopCtx, 5*time.Second)
			defer cancel()
			return m.StopServer(stopCtx)
		})

		err := stopGroup.Wait()
		if err != nil {
			log.WithField("error", err).Warning("error while stopping")
		}
		return ctx.Err()
	})

	return group.Wait()
}
