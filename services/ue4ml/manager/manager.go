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

package manager

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/ue4ml/ue4ml/services/ue4ml/agents"
	// Built-in sensors and actuators
	_ "github.com/ue4ml/ue4ml/services/ue4ml/agents/actuators"
	_ "github.com/ue4ml/ue4ml/services/ue4ml/agents/sensors"
	"github.com/ue4ml/ue4ml/services/ue4ml/gamethread"
	"github.com/ue4ml/ue4ml/services/ue4ml/grpcservers"
	"github.com/ue4ml/ue4ml/services/ue4ml/librarian"
	"github.com/ue4ml/ue4ml/services/ue4ml/recorder"
	"github.com/ue4ml/ue4ml/services/ue4ml/rpc"
	"github.com/ue4ml/ue4ml/services/ue4ml/scribe"
	"github.com/ue4ml/ue4ml/services/ue4ml/session"
	"github.com/ue4ml/ue4ml/services/ue4ml/world"
	servicesUtils "github.com/ue4ml/ue4ml/services/utils"
	"github.com/ue4ml/ue4ml/utils"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

var log = logrus.WithField("component", "manager")

type Options struct {
	// EnvName is returned by get_name, defaults to the world name
	EnvName string
	// TickRate is the number of world ticks per second
	TickRate        float64
	ManualWorldTick bool
	// Scenario sets up the world, defaults to world.DefaultScenario()
	Scenario          *world.Scenario
	DefaultAgentClass string
	GrpcReflection    bool
	// Recorder, when set, records every session tick
	Recorder *recorder.Recorder
	// Registerer receives the manager's metrics, defaults to prometheus.DefaultRegisterer
	Registerer prometheus.Registerer
	// Exit is called by the exit function
	Exit func()
}

// Manager owns the world, the game loop, the current session and the RPC server
type Manager struct {
	librarian         *librarian.Librarian
	scribe            *scribe.Scribe
	loop              *gamethread.Loop
	world             *world.World
	recorder          *recorder.Recorder
	metrics           *metrics
	envName           string
	defaultAgentClass *agents.AgentClass
	grpcReflection    bool
	exit              func()
	functions         []*rpc.Function

	mutex          sync.RWMutex
	session        *session.Session
	mode           rpc.ServerMode
	bound          map[string]*rpc.Function
	boundOrder     []*rpc.Function
	server         *grpc.Server
	sessionChanged *utils.Observable
}

func New(options Options) (*Manager, error) {
	scenario := options.Scenario
	if scenario == nil {
		scenario = world.DefaultScenario()
	}
	w, err := scenario.NewWorld()
	if err != nil {
		return nil, fmt.Errorf("unable to create the world: %w", err)
	}

	l := librarian.New()
	l.GatherClasses()

	var defaultAgentClass *agents.AgentClass
	if options.DefaultAgentClass != "" {
		defaultAgentClass = l.FindAgentClass(options.DefaultAgentClass)
		if defaultAgentClass == nil {
			log.WithField("agent_class", options.DefaultAgentClass).Warn("unknown default agent class, ignoring")
		}
	}

	envName := options.EnvName
	if envName == "" {
		envName = w.Name()
	}
	registerer := options.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Manager{
		librarian:         l,
		scribe:            scribe.New(l),
		world:             w,
		recorder:          options.Recorder,
		metrics:           newMetrics(registerer),
		envName:           envName,
		defaultAgentClass: defaultAgentClass,
		grpcReflection:    options.GrpcReflection,
		exit:              options.Exit,
		mode:              rpc.ServerModeAuto,
		bound:             map[string]*rpc.Function{},
		sessionChanged:    utils.NewObservable(),
	}
	m.functions = m.createFunctions()
	m.loop = gamethread.NewLoop(options.TickRate, m.tick)
	m.loop.EnableManualTick(options.ManualWorldTick)

	// The loop isn't running yet, the world can be set up from here
	w.BeginPlay()

	log.WithFields(logrus.Fields{
		"env_name":  envName,
		"world":     w.Name(),
		"net_mode":  w.NetMode(),
		"tick_rate": 1 / m.loop.DeltaSeconds(),
	}).Info("manager created")
	return m, nil
}

func (m *Manager) Librarian() *librarian.Librarian {
	return m.librarian
}

func (m *Manager) Scribe() *scribe.Scribe {
	return m.scribe
}

func (m *Manager) Loop() *gamethread.Loop {
	return m.loop
}

func (m *Manager) World() *world.World {
	return m.world
}

// Run runs the game loop until the context is done
func (m *Manager) Run(ctx context.Context) error {
	return m.loop.Run(ctx)
}

func (m *Manager) tick(dt float32) {
	m.world.Tick(dt)
	m.metrics.ticks.Inc()

	s := m.CurrentSession()
	if s == nil {
		m.metrics.agents.Set(0)
		m.metrics.awaitingAgents.Set(0)
		return
	}
	s.Tick(dt)
	m.metrics.agents.Set(float64(len(s.Agents())))
	m.metrics.awaitingAgents.Set(float64(len(s.AwaitingAvatar())))

	if m.recorder != nil {
		if err := m.recorder.Record(s); err != nil {
			log.WithError(err).Warn("unable to record the session tick")
		}
	}
}

// CurrentSession returns the current session, nil if there is none
func (m *Manager) CurrentSession() *session.Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.session
}

// GetSession returns the current session, creating one if needed.
//
// It must be called from the game loop.
func (m *Manager) GetSession() *session.Session {
	if s := m.CurrentSession(); s != nil {
		return s
	}
	s := session.New(m.world, m.librarian, m.defaultAgentClass)
	m.SetSession(s)
	return s
}

// SetSession closes the previous session and opens the new one, nil only closes the previous session.
//
// It must be called from the game loop.
func (m *Manager) SetSession(s *session.Session) {
	m.mutex.Lock()
	previous := m.session
	m.session = s
	m.mutex.Unlock()

	if previous != nil && previous != s {
		previous.Close()
	}
	if s != nil {
		s.Open()
		log.WithField("session_id", s.ID()).Debug("session set")
	}
	m.sessionChanged.Emit()
}

// SessionChanged emits every time the current session is replaced
func (m *Manager) SessionChanged() *utils.Observable {
	return m.sessionChanged
}

// ResolveServerMode picks the mode matching the world's net mode when auto is requested
func (m *Manager) ResolveServerMode(requested rpc.ServerMode) rpc.ServerMode {
	if requested != rpc.ServerModeAuto {
		return requested
	}
	switch m.world.NetMode() {
	case world.NetModeDedicatedServer:
		return rpc.ServerModeServer
	case world.NetModeClient:
		return rpc.ServerModeClient
	default:
		return rpc.ServerModeStandalone
	}
}

// BindFunctions makes the functions of the groups available in the mode callable
func (m *Manager) BindFunctions(mode rpc.ServerMode) rpc.ServerMode {
	mode = m.ResolveServerMode(mode)

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.mode = mode
	m.bound = map[string]*rpc.Function{}
	m.boundOrder = []*rpc.Function{}
	m.librarian.ClearFunctions()
	for _, function := range m.functions {
		if !function.Group.AvailableIn(mode) {
			continue
		}
		m.bound[function.Name] = function
		m.boundOrder = append(m.boundOrder, function)
		m.librarian.RegisterFunction(function.Name, function.Description)
	}
	log.WithFields(logrus.Fields{"mode": mode, "nb_functions": len(m.boundOrder)}).Debug("functions bound")
	return mode
}

func (m *Manager) ServerMode() rpc.ServerMode {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.mode
}

// Functions returns the bound functions
func (m *Manager) Functions() []*rpc.Function {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return append([]*rpc.Function{}, m.boundOrder...)
}

func (m *Manager) findFunction(name string) *rpc.Function {
	for _, function := range m.functions {
		if function.Name == name {
			return function
		}
	}
	return nil
}

// Call invokes a bound function
func (m *Manager) Call(ctx context.Context, name string, args rpc.Args) (*structpb.Value, error) {
	m.mutex.RLock()
	function, bound := m.bound[name]
	mode := m.mode
	m.mutex.RUnlock()

	var result *structpb.Value
	var err error
	if bound {
		result, err = function.Invoke(ctx, args)
	} else if known := m.findFunction(name); known != nil {
		err = rpc.NewServerModeError(name, known.Group, mode)
	} else {
		err = rpc.NewFunctionNotFoundError(name)
	}
	m.metrics.calls.WithLabelValues(name, rpc.Code(err).String()).Inc()
	return result, err
}

// StartServer stops the running server, if any, and serves the functions bound for the mode on the given port
func (m *Manager) StartServer(port uint, mode rpc.ServerMode, threads uint32) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("unable to listen to tcp port %d: %w", port, err)
	}
	m.StartServerOnListener(listener, mode, threads)
	return nil
}

// StartServerOnListener stops the running server, if any, and serves the functions bound for the mode
func (m *Manager) StartServerOnListener(listener net.Listener, mode rpc.ServerMode, threads uint32) {
	m.StopServer(context.Background())

	mode = m.BindFunctions(mode)
	server := servicesUtils.NewGrpcServer(servicesUtils.GrpcServerOptions{
		EnableReflection: m.grpcReflection,
		NbWorkers:        threads,
	})
	grpcservers.RegisterFunctionsServer(server, m)
	servicesUtils.InitializeGrpcMetrics(server)

	m.mutex.Lock()
	m.server = server
	m.mutex.Unlock()

	log := log.WithFields(logrus.Fields{"address": listener.Addr().String(), "mode": mode})
	go func() {
		err := server.Serve(listener)
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.WithError(err).Error("RPC server failed")
		}
	}()
	log.Info("RPC server listening")
}

// StopServer gracefully stops the running server, if any
func (m *Manager) StopServer(ctx context.Context) error {
	m.mutex.Lock()
	server := m.server
	m.server = nil
	m.mutex.Unlock()

	if server == nil {
		return nil
	}
	log.Debug("stopping RPC server")
	return servicesUtils.StopGrpcServer(ctx, server)
}
