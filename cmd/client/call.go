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
	jsonEncoding "encoding/json"
	"strings"

	"github.com/spf13/cobra"
	"github.com/ue4ml/ue4ml/services/ue4ml/rpc"
)

// parseCallArgs parses each argument as a JSON value.
//
// JSON objects, like agent configurations, and arguments that aren't valid JSON are passed as strings.
func parseCallArgs(args []string) []interface{} {
	values := make([]interface{}, len(args))
	for i, arg := range args {
		var value interface{}
		if strings.HasPrefix(strings.TrimSpace(arg), "{") || jsonEncoding.Unmarshal([]byte(arg), &value) != nil {
			value = arg
		}
		values[i] = value
	}
	return values
}

// callCmd represents the `ue4ml client call` command
var callCmd = &cobra.Command{
	Use:   "call <function> [args...]",
	Short: "Call a function of the environment, each argument is a JSON value",
	Example: `  ue4ml client call add_agent
  ue4ml client call act 0 '[1, 0, 0.5]'
  ue4ml client call create_agent '{"sensors": {"Sensor_Movement": {}}}'`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(_cmd *cobra.Command, args []string) error {
		client, err := createClient()
		if err != nil {
			return err
		}

		ctx, cancel := contextWithTimeout()
		defer cancel()

		res, err := client.Call(ctx, args[0], parseCallArgs(args[1:])...)
		if err != nil {
			return wrapTimeoutError(err)
		}
		return renderJSON(rpc.FromValue(res))
	},
}
