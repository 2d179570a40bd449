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

package grpcservers

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/ue4ml/ue4ml/services/ue4ml/rpc"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

var log = logrus.WithField("component", "grpcservers")

// ServiceName is the name of the gRPC service exposing the functions, each function is a unary method taking
// its positional arguments as a google.protobuf.ListValue and returning a google.protobuf.Value
const ServiceName = "ue4ml.UE4ML"

// FullMethodName returns the gRPC method name of a function
func FullMethodName(function string) string {
	return "/" + ServiceName + "/" + function
}

type unaryMethodHandler = func(
	srv interface{},
	ctx context.Context,
	dec func(interface{}) error,
	interceptor grpc.UnaryServerInterceptor,
) (interface{}, error)

func functionHandler(name string) unaryMethodHandler {
	return func(
		srv interface{},
		ctx context.Context,
		dec func(interface{}) error,
		interceptor grpc.UnaryServerInterceptor,
	) (interface{}, error) {
		in := &structpb.ListValue{}
		if err := dec(in); err != nil {
			return nil, err
		}
		dispatcher := srv.(rpc.Dispatcher)
		call := func(ctx context.Context, req interface{}) (interface{}, error) {
			return dispatcher.Call(ctx, name, rpc.NewArgs(req.(*structpb.ListValue)))
		}
		if interceptor == nil {
			return call(ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: FullMethodName(name),
		}
		return interceptor(ctx, in, info, call)
	}
}

// NewServiceDesc describes a service with one method per function
func NewServiceDesc(functions []*rpc.Function) *grpc.ServiceDesc {
	methods := make([]grpc.MethodDesc, 0, len(functions))
	for _, function := range functions {
		methods = append(methods, grpc.MethodDesc{
			MethodName: function.Name,
			Handler:    functionHandler(function.Name),
		})
	}
	return &grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*rpc.Dispatcher)(nil),
		Methods:     methods,
		Streams:     []grpc.StreamDesc{},
		Metadata:    "ue4ml.proto",
	}
}

// RegisterFunctionsServer exposes the functions currently bound by the dispatcher
func RegisterFunctionsServer(server grpc.ServiceRegistrar, dispatcher rpc.Dispatcher) {
	functions := dispatcher.Functions()
	server.RegisterService(NewServiceDesc(functions), dispatcher)
	log.WithField("nb_functions", len(functions)).Debug("functions server registered")
}
