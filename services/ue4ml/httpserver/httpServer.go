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

package httpserver

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/ue4ml/ue4ml/services/ue4ml/rpc"
	"github.com/ue4ml/ue4ml/version"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"google.golang.org/protobuf/types/known/structpb"
)

var log = logrus.WithField("component", "httpserver")

// Server is a JSON HTTP gateway to the functions of a dispatcher
type Server struct {
	http.Server
	dispatcher rpc.Dispatcher
	gin        *gin.Engine
}

type infoResponse struct {
	Name            string `json:"name"`
	Version         string `json:"version"`
	ProtocolVersion string `json:"protocol_version"`
	NbFunctions     int    `json:"nb_functions"`
}

type functionResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Group       string `json:"group"`
}

type callResponse struct {
	Result interface{} `json:"result"`
}

// New creates the gateway, gatherer is exposed on /metrics when not nil
func New(port uint, dispatcher rpc.Dispatcher, gatherer prometheus.Gatherer) *Server {
	gin.SetMode(gin.ReleaseMode)
	ginEngine := gin.New()

	server := &Server{
		Server: http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: ginEngine,
		},
		dispatcher: dispatcher,
		gin:        ginEngine,
	}

	server.gin.HandleMethodNotAllowed = true

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	server.gin.Use(cors.New(corsConfig))

	server.gin.Use(ginErrorHandlerMiddleware)
	server.gin.Use(ginLoggerMiddleware)
	server.gin.Use(gin.Recovery())

	server.gin.GET("/", server.getInfo)
	server.gin.GET("/functions", server.listFunctions)
	server.gin.POST("/functions/:name", server.callFunction)
	if gatherer != nil {
		server.gin.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	ginEngine.NoRoute(func(c *gin.Context) {
		_ = c.AbortWithError(http.StatusNotFound, fmt.Errorf("not found"))
	})

	ginEngine.NoMethod(func(c *gin.Context) {
		_ = c.AbortWithError(http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	})

	return server
}

func (server *Server) getInfo(c *gin.Context) {
	c.JSON(http.StatusOK, infoResponse{
		Name:            "ue4ml",
		Version:         version.Version,
		ProtocolVersion: version.ProtocolVersion,
		NbFunctions:     len(server.dispatcher.Functions()),
	})
}

func (server *Server) listFunctions(c *gin.Context) {
	functions := server.dispatcher.Functions()
	res := make([]functionResponse, 0, len(functions))
	for _, function := range functions {
		res = append(res, functionResponse{
			Name:        function.Name,
			Description: function.Description,
			Group:       function.Group.String(),
		})
	}
	c.JSON(http.StatusOK, res)
}

// parseArgs reads the positional arguments from a JSON array body, an empty body means no arguments
func parseArgs(c *gin.Context) (rpc.Args, error) {
	body, err := c.GetRawData()
	if err != nil {
		return rpc.Args{}, wrapError(http.StatusBadRequest, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return rpc.NewArgs(nil), nil
	}
	values := []interface{}{}
	if err := binding.JSON.BindBody(body, &values); err != nil {
		return rpc.Args{}, wrapError(http.StatusBadRequest, fmt.Errorf("arguments must be a json array: %w", err))
	}
	list, err := structpb.NewList(values)
	if err != nil {
		return rpc.Args{}, wrapError(http.StatusBadRequest, err)
	}
	return rpc.NewArgs(list), nil
}

func (server *Server) callFunction(c *gin.Context) {
	name := c.Param("name")
	args, err := parseArgs(c)
	if err != nil {
		_ = c.AbortWithError(statusCodeFromError(err), err)
		return
	}

	result, err := server.dispatcher.Call(c.Request.Context(), name, args)
	if err != nil {
		statusCode := statusCodeFromError(err)
		_ = c.AbortWithError(statusCode, wrapError(statusCode, err))
		return
	}
	c.JSON(http.StatusOK, callResponse{Result: result.AsInterface()})
}
